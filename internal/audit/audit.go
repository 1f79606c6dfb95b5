// Package audit is the commit ledger: every successful datastore.Put
// appends one row recording which database, which owner session, which
// operation, and how many bytes were written. Grounded on the teacher's
// pkg/controlplane/store.New/GORMStore: the same sqlite-default,
// postgres-optional dialector switch and gorm.Open/AutoMigrate
// sequence, narrowed from the teacher's many control-plane tables down
// to this package's single append-only CommitRecord table.
package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yangconf/confd/internal/datastore"
)

// Backend selects the SQL dialector.
type Backend string

const (
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

// Config selects and configures the ledger's backend.
type Config struct {
	Backend Backend

	// SQLitePath is the database file path when Backend is sqlite.
	SQLitePath string

	// PostgresDSN is the connection string when Backend is postgres.
	PostgresDSN string
}

func (c *Config) applyDefaults() {
	if c.Backend == "" {
		c.Backend = BackendSQLite
	}
	if c.Backend == BackendSQLite && c.SQLitePath == "" {
		c.SQLitePath = "/var/lib/confd/audit.db"
	}
}

// CommitRecord is one row of the append-only commit ledger.
type CommitRecord struct {
	ID        uint `gorm:"primaryKey"`
	Database  string
	Operation string
	Owner     uint64
	Bytes     int
	CommittedAt time.Time
}

// Ledger persists CommitRecords and implements datastore.AuditSink.
type Ledger struct {
	db *gorm.DB
}

var _ datastore.AuditSink = (*Ledger)(nil)

// Open connects to the configured backend and migrates the ledger
// table.
func Open(cfg Config) (*Ledger, error) {
	cfg.applyDefaults()

	var dialector gorm.Dialector
	switch cfg.Backend {
	case BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("create audit database directory: %w", err)
		}
		dialector = sqlite.Open(cfg.SQLitePath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	case BackendPostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres backend requires a DSN")
		}
		dialector = postgres.Open(cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unsupported audit backend: %s", cfg.Backend)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}
	if err := db.AutoMigrate(&CommitRecord{}); err != nil {
		return nil, fmt.Errorf("migrate audit database: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Close releases the underlying connection pool.
func (l *Ledger) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// RecordCommit implements datastore.AuditSink: it appends one
// CommitRecord per successful Put.
func (l *Ledger) RecordCommit(db, operation string, owner uint64, bytes int) error {
	rec := CommitRecord{
		Database:    db,
		Operation:   operation,
		Owner:       owner,
		Bytes:       bytes,
		CommittedAt: time.Now(),
	}
	return l.db.Create(&rec).Error
}

// Recent returns the n most recently committed records for db, newest
// first.
func (l *Ledger) Recent(db string, n int) ([]CommitRecord, error) {
	var recs []CommitRecord
	err := l.db.Where("database = ?", db).Order("id DESC").Limit(n).Find(&recs).Error
	return recs, err
}
