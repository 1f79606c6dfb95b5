package pluginreg

import (
	"encoding/json"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/yangconf/confd/internal/errs"
)

// ModuleRecord is the cached metadata kept across restarts for a
// discovered plugin, so a restarted agent does not need to re-open and
// re-validate every module's symbol table before its Start hook runs.
type ModuleRecord struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	LoadedAt  time.Time `json:"loaded_at"`
	ABIBroken bool      `json:"abi_broken"`
}

// ModuleCache persists ModuleRecords in an embedded badger.DB, the same
// embedded-KV pattern the teacher's pkg/metadata/store/badger uses for
// structured records, repurposed here from file metadata to plugin
// discovery bookkeeping.
type ModuleCache struct {
	db *badger.DB
}

// OpenModuleCache opens (creating if absent) a badger database at dir.
func OpenModuleCache(dir string) (*ModuleCache, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, errs.New(errs.Plugin, "open module cache: %v", err).WithPath(dir)
	}
	return &ModuleCache{db: db}, nil
}

// Close releases the underlying badger database.
func (c *ModuleCache) Close() error {
	if err := c.db.Close(); err != nil {
		return errs.New(errs.Plugin, "close module cache: %v", err)
	}
	return nil
}

// Put records rec, keyed by rec.Name.
func (c *ModuleCache) Put(rec ModuleRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return errs.New(errs.Plugin, "marshal module record: %v", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(rec.Name), data)
	})
}

// Get looks up a ModuleRecord by name.
func (c *ModuleCache) Get(name string) (ModuleRecord, bool, error) {
	var rec ModuleRecord
	found := false
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(name))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return ModuleRecord{}, false, errs.New(errs.Plugin, "lookup module record %q: %v", name, err)
	}
	return rec, found, nil
}
