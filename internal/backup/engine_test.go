package backup

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBackupLocalCopyRoundTrip(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "running_db"), []byte("<config/>"), 0o700); err != nil {
		t.Fatalf("seed database file: %v", err)
	}
	e := NewEngine(dir, nil)

	dest := filepath.Join(t.TempDir(), "nested", "running.snapshot")
	if err := e.Backup("running", dest); err != nil {
		t.Fatalf("Backup: %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read backup file: %v", err)
	}
	if string(got) != "<config/>" {
		t.Fatalf("backup contents = %q", got)
	}
}

func TestRestoreLocalCopyOverwritesDatabase(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "running_db")
	if err := os.WriteFile(dbPath, []byte("<config><old/></config>"), 0o700); err != nil {
		t.Fatalf("seed database file: %v", err)
	}
	e := NewEngine(dir, nil)

	src := filepath.Join(t.TempDir(), "running.snapshot")
	if err := os.WriteFile(src, []byte("<config><new/></config>"), 0o600); err != nil {
		t.Fatalf("seed snapshot file: %v", err)
	}

	if err := e.Restore("running", src); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	got, err := os.ReadFile(dbPath)
	if err != nil {
		t.Fatalf("read database file: %v", err)
	}
	if string(got) != "<config><new/></config>" {
		t.Fatalf("database contents = %q", got)
	}
}

func TestBackupToS3WithoutClientFails(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "running_db"), []byte("data"), 0o700); err != nil {
		t.Fatalf("seed database file: %v", err)
	}
	e := NewEngine(dir, nil)

	if err := e.Backup("running", "s3://bucket/key"); err == nil {
		t.Fatalf("expected error backing up to s3:// without a client")
	}
}

func TestSplitS3URLRejectsMalformedInput(t *testing.T) {
	cases := []string{"s3://", "s3://bucket", "s3://bucket/"}
	for _, c := range cases {
		if _, _, err := splitS3URL(c); err == nil {
			t.Fatalf("splitS3URL(%q): expected error", c)
		}
	}

	bucket, key, err := splitS3URL("s3://mybucket/path/to/snapshot")
	if err != nil {
		t.Fatalf("splitS3URL: %v", err)
	}
	if bucket != "mybucket" || key != "path/to/snapshot" {
		t.Fatalf("splitS3URL = (%q, %q)", bucket, key)
	}
}
