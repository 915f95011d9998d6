package store

import (
	"context"
	"time"

	"github.com/lidxdev/lidx/internal/errors"
	"github.com/lidxdev/lidx/internal/models"
)

// UpsertCoChange records or refreshes a mined file-pair co-change weight.
// fileA/fileB are stored in a canonical (lexicographically sorted) order so
// the UNIQUE(file_a, file_b) index catches both query directions.
func (s *Store) UpsertCoChange(ctx context.Context, c models.CoChange) error {
	fileA, fileB := c.FileA, c.FileB
	if fileA > fileB {
		fileA, fileB = fileB, fileA
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO co_changes (file_a, file_b, co_change_count, total_commits_a, total_commits_b,
			confidence, last_commit_sha, last_commit_ts, mined_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_a, file_b) DO UPDATE SET
			co_change_count = excluded.co_change_count,
			total_commits_a = excluded.total_commits_a,
			total_commits_b = excluded.total_commits_b,
			confidence = excluded.confidence,
			last_commit_sha = excluded.last_commit_sha,
			last_commit_ts = excluded.last_commit_ts,
			mined_at = excluded.mined_at`,
		fileA, fileB, c.CoChangeCount, c.TotalCommitsA, c.TotalCommitsB,
		c.Confidence, c.LastCommitSHA, c.LastCommitTS.Unix(), c.MinedAt.Unix())
	if err != nil {
		return errors.DatabaseErrorf(err, "upsert co-change %s/%s", fileA, fileB)
	}
	return nil
}

// CoChangesForFiles returns co-change rows touching any of paths, at or
// above minOccurrences, ordered by confidence desc, capped at 500 per the
// historical impact layer's mining-result cap.
func (s *Store) CoChangesForFiles(ctx context.Context, paths []string, minOccurrences float64) ([]models.CoChange, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	placeholders := ""
	args := make([]interface{}, 0, len(paths)*2+1)
	for i, p := range paths {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
		args = append(args, p)
	}
	for _, p := range paths {
		args = append(args, p)
	}
	args = append(args, minOccurrences)

	query := `SELECT * FROM co_changes
		WHERE (file_a IN (` + placeholders + `) OR file_b IN (` + placeholders + `))
		AND co_change_count >= ?
		ORDER BY confidence DESC
		LIMIT 500`

	var rows []coChangeRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.DatabaseErrorf(err, "co-changes for %d files", len(paths))
	}
	out := make([]models.CoChange, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

type coChangeRow struct {
	ID              int64   `db:"id"`
	FileA           string  `db:"file_a"`
	FileB           string  `db:"file_b"`
	CoChangeCount   float64 `db:"co_change_count"`
	TotalCommitsA   int     `db:"total_commits_a"`
	TotalCommitsB   int     `db:"total_commits_b"`
	Confidence      float64 `db:"confidence"`
	LastCommitSHA   string  `db:"last_commit_sha"`
	LastCommitTSUTC int64   `db:"last_commit_ts"`
	MinedAtUTC      int64   `db:"mined_at"`
}

func (r coChangeRow) toModel() models.CoChange {
	return models.CoChange{
		ID:            r.ID,
		FileA:         r.FileA,
		FileB:         r.FileB,
		CoChangeCount: r.CoChangeCount,
		TotalCommitsA: r.TotalCommitsA,
		TotalCommitsB: r.TotalCommitsB,
		Confidence:    r.Confidence,
		LastCommitSHA: r.LastCommitSHA,
		LastCommitTS:  time.Unix(r.LastCommitTSUTC, 0).UTC(),
		MinedAt:       time.Unix(r.MinedAtUTC, 0).UTC(),
	}
}
