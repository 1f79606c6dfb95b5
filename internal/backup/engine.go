package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// s3Scheme is the dest prefix that routes Backup/Restore through s3Client
// instead of a local file copy.
const s3Scheme = "s3://"

// Engine binds a datastore directory (the same dir/db+"_db" layout
// internal/datastore.Engine uses) to an optional S3 client, and
// implements the §4.7-supplemented Backup/Restore operations. Engine
// does not import internal/datastore to avoid coupling the two; it
// reconstructs the on-disk path from the same "<db>_db" convention.
type Engine struct {
	dir      string
	s3Client *Client
}

// NewEngine returns an Engine rooted at dir. s3Client may be nil, in
// which case only dest values without an "s3://" prefix are accepted.
func NewEngine(dir string, s3Client *Client) *Engine {
	return &Engine{dir: dir, s3Client: s3Client}
}

func (e *Engine) dbPath(db string) string {
	return filepath.Join(e.dir, db+"_db")
}

// Backup copies db's on-disk file to dest: an S3 upload when dest has an
// "s3://" prefix (dest's path component becomes the object key, ignoring
// Engine's configured bucket so a single Engine can target several
// buckets), otherwise a local file copy to the dest path.
func (e *Engine) Backup(db, dest string) error {
	data, err := os.ReadFile(e.dbPath(db))
	if err != nil {
		return fmt.Errorf("backup: read database %q: %w", db, err)
	}

	if strings.HasPrefix(dest, s3Scheme) {
		if e.s3Client == nil {
			return fmt.Errorf("backup: %q requires S3 but no client is configured", dest)
		}
		bucket, key, err := splitS3URL(dest)
		if err != nil {
			return err
		}
		return e.s3Client.putTo(context.Background(), bucket, key, data)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("backup: create destination directory: %w", err)
	}
	if err := os.WriteFile(dest, data, 0o600); err != nil {
		return fmt.Errorf("backup: write %s: %w", dest, err)
	}
	return nil
}

// Restore overwrites db's on-disk file with the contents of src,
// applying the same s3:// dispatch as Backup.
func (e *Engine) Restore(db, src string) error {
	var data []byte
	var err error

	if strings.HasPrefix(src, s3Scheme) {
		if e.s3Client == nil {
			return fmt.Errorf("backup: %q requires S3 but no client is configured", src)
		}
		bucket, key, serr := splitS3URL(src)
		if serr != nil {
			return serr
		}
		data, err = e.s3Client.getFrom(context.Background(), bucket, key)
	} else {
		data, err = os.ReadFile(src)
	}
	if err != nil {
		return fmt.Errorf("backup: restore %q: %w", db, err)
	}

	return os.WriteFile(e.dbPath(db), data, 0o700)
}

func splitS3URL(url string) (bucket, key string, err error) {
	rest := strings.TrimPrefix(url, s3Scheme)
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("backup: malformed s3 destination %q, want s3://bucket/key", url)
	}
	return parts[0], parts[1], nil
}
