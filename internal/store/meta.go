package store

import (
	"context"

	"github.com/lidxdev/lidx/internal/errors"
)

// GetMeta reads a key from the meta table. ok is false if the key has never
// been set.
func (s *Store) GetMeta(ctx context.Context, key string) (value string, ok bool, err error) {
	err = s.db.GetContext(ctx, &value, `SELECT value FROM meta WHERE key = ?`, key)
	if err != nil {
		return "", false, nil
	}
	return value, true, nil
}

// SetMeta upserts a key in the meta table, the same pattern migrate() uses
// for schema_version. The indexer records last_indexed with this after a
// pass; the watch loop reads it on start to decide whether a bootstrap
// reindex is needed.
func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return errors.DatabaseErrorf(err, "set meta %s", key)
	}
	return nil
}
