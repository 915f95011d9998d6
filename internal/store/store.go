// Package store implements the persistent, versioned code graph described
// in the Store component: a single sqlite file holding files, symbols,
// edges, metrics, diagnostics and mined co-change data, addressed by an
// append-only graph_version sequence.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/lidxdev/lidx/internal/errors"
)

// Store is the sqlite-backed persistence layer. All writes that touch more
// than one table go through a transaction; reads use the shared pool.
type Store struct {
	db     *sqlx.DB
	log    *logrus.Logger
	path   string
	mu     sync.Mutex // serializes graph-version allocation
}

// Open connects to (creating if absent) the sqlite database at path,
// applying WAL mode and foreign keys the same way the reference storage
// layer does, then runs the schema migration.
func Open(path string, poolSize, poolMinIdle int, log *logrus.Logger) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.FileSystemErrorf(err, "failed to create store directory %s", dir)
		}
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, errors.DatabaseErrorf(err, "failed to open store at %s", path)
	}

	if poolSize <= 0 {
		poolSize = 8
	}
	if poolMinIdle < 0 {
		poolMinIdle = 0
	}
	db.SetMaxOpenConns(poolSize)
	db.SetMaxIdleConns(poolMinIdle)
	db.SetConnMaxLifetime(time.Hour)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, errors.SchemaIncompatibleErrorf("schema migration failed for %s: %v", path, err)
	}

	if log == nil {
		log = logrus.New()
	}

	return &Store{db: db, log: log, path: path}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the filesystem path of the backing sqlite file.
func (s *Store) Path() string {
	return s.path
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on any error or panic, mirroring the reference storage layer's
// BeginTxx/defer-Rollback/Commit idiom.
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseErrorf(err, "begin transaction")
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.DatabaseErrorf(err, "commit transaction")
	}
	return nil
}
