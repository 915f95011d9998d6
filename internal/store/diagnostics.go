package store

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"lukechampine.com/blake3"

	"github.com/lidxdev/lidx/internal/errors"
	"github.com/lidxdev/lidx/internal/models"
)

// InsertDiagnostic records a lint/analyzer finding, de-duplicated by a
// content hash over (path, start_line, end_line, rule, message) so repeated
// runs over an unchanged file never accumulate duplicate rows.
func (s *Store) InsertDiagnostic(ctx context.Context, d models.Diagnostic) error {
	hash := diagnosticHash(d.Path, d.StartLine, d.EndLine, d.Rule, d.Message)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO diagnostics (diagnostic_hash, path, start_line, end_line, severity, message, rule, tool, snippet, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(diagnostic_hash) DO UPDATE SET
			severity = excluded.severity, message = excluded.message, snippet = excluded.snippet`,
		hash, d.Path, d.StartLine, d.EndLine, d.Severity, d.Message, d.Rule, d.Tool, d.Snippet, time.Now().Unix())
	if err != nil {
		return errors.DatabaseErrorf(err, "insert diagnostic for %s:%d", d.Path, d.StartLine)
	}
	return nil
}

// DiagnosticsForPath returns every diagnostic recorded against a file path.
func (s *Store) DiagnosticsForPath(ctx context.Context, path string) ([]models.Diagnostic, error) {
	var rows []diagnosticRow
	err := s.db.SelectContext(ctx, &rows, `SELECT * FROM diagnostics WHERE path = ? ORDER BY start_line`, path)
	if err != nil {
		return nil, errors.DatabaseErrorf(err, "diagnostics for %s", path)
	}
	out := make([]models.Diagnostic, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

func diagnosticHash(path string, startLine, endLine int, rule, message string) string {
	payload := fmt.Sprintf("%s\x00%d\x00%d\x00%s\x00%s", path, startLine, endLine, rule, message)
	sum := blake3.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

type diagnosticRow struct {
	ID             int64   `db:"id"`
	DiagnosticHash string  `db:"diagnostic_hash"`
	Path           string  `db:"path"`
	StartLine      int     `db:"start_line"`
	EndLine        int     `db:"end_line"`
	Severity       string  `db:"severity"`
	Message        string  `db:"message"`
	Rule           string  `db:"rule"`
	Tool           string  `db:"tool"`
	Snippet        *string `db:"snippet"`
	CreatedAtUnix  int64   `db:"created_at"`
}

func (r diagnosticRow) toModel() models.Diagnostic {
	return models.Diagnostic{
		ID:             r.ID,
		DiagnosticHash: r.DiagnosticHash,
		Path:           r.Path,
		StartLine:      r.StartLine,
		EndLine:        r.EndLine,
		Severity:       r.Severity,
		Message:        r.Message,
		Rule:           r.Rule,
		Tool:           r.Tool,
		Snippet:        r.Snippet,
		CreatedAt:      time.Unix(r.CreatedAtUnix, 0).UTC(),
	}
}
