package store

import (
	"context"

	"github.com/lidxdev/lidx/internal/errors"
)

// CreateGraphVersion allocates and returns a new graph version id. Locked so
// two concurrent reindex calls against the same Store can't interleave their
// allocation with a reader's CurrentGraphVersion lookup and observe a
// version row that isn't committed yet.
func (s *Store) CreateGraphVersion(ctx context.Context, commitSHA *string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `INSERT INTO graph_versions (created, commit_sha) VALUES (strftime('%s','now'), ?)`, commitSHA)
	if err != nil {
		return 0, errors.DatabaseErrorf(err, "create graph version")
	}
	return res.LastInsertId()
}

// CurrentGraphVersion returns the most recently allocated graph version id.
func (s *Store) CurrentGraphVersion(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id int64
	err := s.db.GetContext(ctx, &id, `SELECT id FROM graph_versions ORDER BY id DESC LIMIT 1`)
	if err != nil {
		return 0, errors.DatabaseErrorf(err, "current graph version")
	}
	return id, nil
}

// ListGraphVersions returns a page of graph versions, newest first.
func (s *Store) ListGraphVersions(ctx context.Context, limit, offset int) ([]versionRow, error) {
	var rows []versionRow
	err := s.db.SelectContext(ctx, &rows, `SELECT * FROM graph_versions ORDER BY id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, errors.DatabaseErrorf(err, "list graph versions")
	}
	return rows, nil
}

type versionRow struct {
	ID        int64   `db:"id"`
	Created   int64   `db:"created"`
	CommitSHA *string `db:"commit_sha"`
}
