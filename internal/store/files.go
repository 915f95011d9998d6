package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/lidxdev/lidx/internal/errors"
	"github.com/lidxdev/lidx/internal/models"
)

// UpsertFile inserts or updates a file row by path, returning its id.
// Idempotent: re-indexing the same path never creates a duplicate row.
func (s *Store) UpsertFile(ctx context.Context, path, contentHash, language string, size int64, modifiedAt time.Time, graphVersion int64) (int64, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		row := tx.QueryRowxContext(ctx, `SELECT id FROM files WHERE path = ?`, path)
		var existing int64
		switch err := row.Scan(&existing); err {
		case nil:
			_, err := tx.ExecContext(ctx, `
				UPDATE files SET content_hash = ?, language = ?, size = ?, modified_at = ?,
					deleted_version = NULL, graph_version = ?
				WHERE id = ?`,
				contentHash, language, size, modifiedAt.Unix(), graphVersion, existing)
			if err != nil {
				return errors.DatabaseErrorf(err, "update file %s", path)
			}
			id = existing
			return nil
		case sql.ErrNoRows:
			res, err := tx.ExecContext(ctx, `
				INSERT INTO files (path, content_hash, language, size, modified_at, graph_version)
				VALUES (?, ?, ?, ?, ?, ?)`,
				path, contentHash, language, size, modifiedAt.Unix(), graphVersion)
			if err != nil {
				return errors.DatabaseErrorf(err, "insert file %s", path)
			}
			id, err = res.LastInsertId()
			return err
		default:
			return errors.DatabaseErrorf(err, "lookup file %s", path)
		}
	})
	return id, err
}

// GetFileByPath returns the file row for path, or a NotFound error.
func (s *Store) GetFileByPath(ctx context.Context, path string) (*models.File, error) {
	var f fileRow
	err := s.db.GetContext(ctx, &f, `SELECT * FROM files WHERE path = ?`, path)
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundErrorf("file not found: %s", path)
	}
	if err != nil {
		return nil, errors.DatabaseErrorf(err, "get file %s", path)
	}
	m := f.toModel()
	return &m, nil
}

// MarkFileDeleted sets deleted_version on path's row without removing it or
// its symbols/edges, so past graph versions remain queryable.
func (s *Store) MarkFileDeleted(ctx context.Context, path string, graphVersion int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE files SET deleted_version = ? WHERE path = ? AND deleted_version IS NULL`, graphVersion, path)
	if err != nil {
		return errors.DatabaseErrorf(err, "mark file deleted %s", path)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return errors.NotFoundErrorf("file not found or already deleted: %s", path)
	}
	return nil
}

// AllLivePaths returns every file path live at graphVersion, used by a full
// reindex to detect which previously-indexed files vanished from the scan.
func (s *Store) AllLivePaths(ctx context.Context, graphVersion int64) ([]string, error) {
	var paths []string
	err := s.db.SelectContext(ctx, &paths, `
		SELECT path FROM files
		WHERE graph_version <= ? AND (deleted_version IS NULL OR deleted_version > ?)`,
		graphVersion, graphVersion)
	if err != nil {
		return nil, errors.DatabaseErrorf(err, "list live paths")
	}
	return paths, nil
}

// fileRow mirrors models.File with sqlite-native unix-epoch time columns.
type fileRow struct {
	ID             int64  `db:"id"`
	Path           string `db:"path"`
	ContentHash    string `db:"content_hash"`
	Language       string `db:"language"`
	Size           int64  `db:"size"`
	ModifiedAtUnix int64  `db:"modified_at"`
	DeletedVersion *int64 `db:"deleted_version"`
	GraphVersion   int64  `db:"graph_version"`
}

func (f fileRow) toModel() models.File {
	return models.File{
		ID:           f.ID,
		Path:         f.Path,
		ContentHash:  f.ContentHash,
		Language:     f.Language,
		Size:         f.Size,
		ModifiedAt:   time.Unix(f.ModifiedAtUnix, 0).UTC(),
		DeletedAt:    f.DeletedVersion,
		GraphVersion: f.GraphVersion,
	}
}
