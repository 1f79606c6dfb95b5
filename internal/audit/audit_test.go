package audit

import (
	"path/filepath"
	"testing"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(Config{Backend: BackendSQLite, SQLitePath: filepath.Join(t.TempDir(), "audit.db")})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestRecordCommitPersistsRow(t *testing.T) {
	l := openTestLedger(t)

	if err := l.RecordCommit("running", "merge", 42, 256); err != nil {
		t.Fatalf("RecordCommit: %v", err)
	}

	recs, err := l.Recent("running", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if recs[0].Operation != "merge" || recs[0].Owner != 42 || recs[0].Bytes != 256 {
		t.Fatalf("unexpected record: %+v", recs[0])
	}
}

func TestRecentOrdersNewestFirstAndFiltersByDatabase(t *testing.T) {
	l := openTestLedger(t)

	if err := l.RecordCommit("running", "merge", 1, 10); err != nil {
		t.Fatalf("RecordCommit 1: %v", err)
	}
	if err := l.RecordCommit("candidate", "replace", 2, 20); err != nil {
		t.Fatalf("RecordCommit 2: %v", err)
	}
	if err := l.RecordCommit("running", "delete", 3, 30); err != nil {
		t.Fatalf("RecordCommit 3: %v", err)
	}

	recs, err := l.Recent("running", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records for running, got %d", len(recs))
	}
	if recs[0].Operation != "delete" || recs[1].Operation != "merge" {
		t.Fatalf("expected newest-first order, got %+v then %+v", recs[0], recs[1])
	}
}
