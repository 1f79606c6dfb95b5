// Package datastore implements the configuration datastore engine (§4.7):
// per-database cached trees backed by on-disk XML/JSON files, a two-pass
// RFC 6241 edit-config merge, marked-tree projection for get, and an
// advisory per-database lock. Grounded on
// datastore/text/clixon_xmldb_text.c for the algorithms, and on the
// teacher's pkg/metadata/store/memory (sync.Mutex-guarded in-memory cache
// plus file persistence, lazy load-on-first-access) for the Go realization.
package datastore

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/yangconf/confd/internal/errs"
	"github.com/yangconf/confd/internal/schema"
	"github.com/yangconf/confd/internal/serial"
	"github.com/yangconf/confd/internal/xmltree"
)

// dbRecord is one database's cached tree, the lock owner that most
// recently took it, and its on-disk path.
type dbRecord struct {
	cache *xmltree.Node
	owner uint64
	path  string
}

// AuditSink receives one record per successful Put. internal/audit
// implements this; datastore stays decoupled from it the same way it
// stays decoupled from a concrete schema implementation, via a narrow
// interface it declares and consumes rather than imports.
type AuditSink interface {
	RecordCommit(db, operation string, owner uint64, bytes int) error
}

// Engine is the per-process datastore handle (§4.7 connect()). Not safe
// for use by more than one process against the same dir — see
// DESIGN.md's single-writer cache decision: the cache is authoritative only because
// a single back-end process instance owns a given dir.
type Engine struct {
	mu     sync.Mutex
	dbs    map[string]*dbRecord
	locks  map[string]uint64
	oracle schema.Oracle

	dir     string
	cacheOn bool
	format  serial.Format
	pretty  bool

	auditSink AuditSink
}

// Connect allocates a new Engine bound to oracle, with the documented
// defaults: format xml, pretty on, cache on.
func Connect(oracle schema.Oracle) *Engine {
	return &Engine{
		dbs:     make(map[string]*dbRecord),
		locks:   make(map[string]uint64),
		oracle:  oracle,
		cacheOn: true,
		format:  serial.XML,
		pretty:  true,
	}
}

// SetOption recognises {dir, cache, format, pretty}. "schema" is accepted
// by §4.7's contract as an opaque option key, but this Go realization
// binds the schema oracle as a typed constructor argument to Connect
// rather than a stringly-typed option value; SetOption("schema", ...)
// therefore errors rather than silently doing nothing.
func (e *Engine) SetOption(key, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch key {
	case "dir":
		e.dir = value
	case "cache":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return errs.New(errs.Cfg, "option cache: %v", err)
		}
		e.cacheOn = b
	case "format":
		switch serial.Format(value) {
		case serial.XML, serial.JSON:
			e.format = serial.Format(value)
		default:
			return errs.New(errs.Cfg, "unrecognised format %q", value)
		}
	case "pretty":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return errs.New(errs.Cfg, "option pretty: %v", err)
		}
		e.pretty = b
	case "schema":
		return errs.New(errs.Cfg, "schema option is bound via Connect(oracle), not SetOption")
	default:
		return errs.New(errs.Cfg, "unrecognised datastore option %q", key)
	}
	return nil
}

// SetAuditSink wires a commit ledger; nil (the default) means no audit
// trail is kept.
func (e *Engine) SetAuditSink(s AuditSink) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.auditSink = s
}

func (e *Engine) dbPath(db string) string {
	return filepath.Join(e.dir, db+"_db")
}

// Exists reports whether db has a cache entry or an on-disk file.
func (e *Engine) Exists(db string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.dbs[db]; ok {
		return true
	}
	_, err := os.Stat(e.dbPath(db))
	return err == nil
}

// Create makes an empty database file, mode 0700, and seeds its cache
// with an empty config root. Errors if the file already exists.
func (e *Engine) Create(db string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.dbPath(db)
	if _, err := os.Stat(p); err == nil {
		return errs.New(errs.DB, "database %q already exists", db).WithPath(p)
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o700)
	if err != nil {
		return errs.New(errs.Unix, "create %q: %v", db, err).WithPath(p)
	}
	f.Close()
	e.dbs[db] = &dbRecord{cache: xmltree.NewElement("config"), path: p}
	return nil
}

// Delete removes db's on-disk file and cache entry.
func (e *Engine) Delete(db string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.dbPath(db)
	if err := os.Remove(p); err != nil {
		if os.IsNotExist(err) {
			return errs.New(errs.DB, "database %q does not exist", db).WithPath(p)
		}
		return errs.New(errs.Unix, "delete %q: %v", db, err).WithPath(p)
	}
	delete(e.dbs, db)
	delete(e.locks, db)
	return nil
}

// Lock takes the advisory per-database lock for owner, or confirms owner
// already holds it. Returns an error naming the current holder otherwise.
func (e *Engine) Lock(db string, owner uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cur, ok := e.locks[db]; ok && cur != owner {
		return errs.New(errs.DB, "database %q locked by session %d", db, cur)
	}
	e.locks[db] = owner
	if rec, ok := e.dbs[db]; ok {
		rec.owner = owner
	}
	return nil
}

// Unlock releases db's lock unconditionally.
func (e *Engine) Unlock(db string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.locks, db)
	return nil
}

// UnlockAll releases every database currently locked by owner — the
// session-termination cleanup hook.
func (e *Engine) UnlockAll(owner uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for db, o := range e.locks {
		if o == owner {
			delete(e.locks, db)
		}
	}
}

// IsLocked returns the current lock holder's id, or 0 if unlocked.
func (e *Engine) IsLocked(db string) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.locks[db]
}

// Copy replaces dst's cache and file with a deep structural clone of
// src — not a write-then-reread round trip (§4.7 supplemented feature).
func (e *Engine) Copy(src, dst string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	srcRec, err := e.ensureLoaded(src)
	if err != nil {
		return err
	}
	dstRec := &dbRecord{cache: srcRec.cache.Clone(), path: e.dbPath(dst)}
	if _, err := e.persist(dstRec); err != nil {
		return err
	}
	if e.cacheOn {
		e.dbs[dst] = dstRec
	}
	return nil
}

// ensureLoaded returns db's cached record, loading it from disk on first
// access (§4.7 "load path"). Caller must hold e.mu.
func (e *Engine) ensureLoaded(db string) (*dbRecord, error) {
	if rec, ok := e.dbs[db]; ok && e.cacheOn {
		return rec, nil
	}
	p := e.dbPath(db)
	root, err := e.loadFile(p)
	if err != nil {
		return nil, err
	}
	rec := &dbRecord{cache: root, path: p}
	if e.cacheOn {
		e.dbs[db] = rec
	}
	return rec, nil
}

// loadFile implements the §4.7 load path: parse against the configured
// format and schema; an empty file is a valid empty config; otherwise
// there must be exactly one top-level element named config.
func (e *Engine) loadFile(path string) (*xmltree.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.New(errs.DB, "database file does not exist").WithPath(path)
		}
		return nil, errs.New(errs.Unix, "read %v", err).WithPath(path)
	}
	if len(data) == 0 {
		return xmltree.NewElement("config"), nil
	}
	codec, ok := serial.ForFormat(e.format)
	if !ok {
		return nil, errs.New(errs.Cfg, "unrecognised format %q", e.format)
	}
	root, err := codec.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if root == nil {
		return xmltree.NewElement("config"), nil
	}
	if root.Name != "config" {
		return nil, errs.New(errs.XML, "top-level element must be %q, got %q", "config", root.Name).WithPath(path)
	}
	if e.oracle != nil {
		if err := xmltree.BindSchema(root, e.oracle, nil); err != nil {
			return nil, err
		}
	}
	return root, nil
}

// persist serialises rec.cache to rec.path, truncating, and returns the
// byte size written (used for the audit trail).
func (e *Engine) persist(rec *dbRecord) (int, error) {
	codec, ok := serial.ForFormat(e.format)
	if !ok {
		return 0, errs.New(errs.Cfg, "unrecognised format %q", e.format)
	}
	var buf bytes.Buffer
	if err := codec.Encode(&buf, rec.cache, e.pretty); err != nil {
		return 0, err
	}
	if err := os.WriteFile(rec.path, buf.Bytes(), 0o700); err != nil {
		return 0, errs.New(errs.Unix, "persist %v", err).WithPath(rec.path)
	}
	return buf.Len(), nil
}
