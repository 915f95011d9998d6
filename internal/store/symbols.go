package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/lidxdev/lidx/internal/errors"
	"github.com/lidxdev/lidx/internal/models"
)

// UpdateFileSymbols applies an already-computed SymbolDiff for one file:
// deletes symbols by stable-id, inserts added, updates modified in place,
// and bumps unchanged rows to the new graph version since they still exist
// at it without having been re-parsed. Returns the file's current symbol set.
func (s *Store) UpdateFileSymbols(ctx context.Context, fileID int64, diff models.SymbolDiff, graphVersion int64, commitSHA *string) ([]models.Symbol, error) {
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		return applyFileSymbolDiff(ctx, tx, fileID, diff, graphVersion, commitSHA)
	})
	if err != nil {
		return nil, err
	}
	return s.SymbolsForFile(ctx, fileID)
}

// UpdateFilesSymbolsBatch applies many files' diffs in a single transaction,
// the shape the batch writer flushes in.
func (s *Store) UpdateFilesSymbolsBatch(ctx context.Context, diffs []models.FileDiff) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, fd := range diffs {
			if err := applyFileSymbolDiff(ctx, tx, fd.FileID, fd.Diff, fd.GraphVersion, fd.CommitSHA); err != nil {
				return err
			}
		}
		return nil
	})
}

func applyFileSymbolDiff(ctx context.Context, tx *sqlx.Tx, fileID int64, diff models.SymbolDiff, graphVersion int64, commitSHA *string) error {
	for _, sym := range diff.Deleted {
		if _, err := tx.ExecContext(ctx, `DELETE FROM symbols WHERE file_id = ? AND stable_id = ?`, fileID, sym.StableID); err != nil {
			return errors.DatabaseErrorf(err, "delete symbol %s", sym.StableID)
		}
	}

	for _, sym := range diff.Added {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO symbols (file_id, stable_id, kind, name, qualname, start_line, start_col,
				end_line, end_col, start_byte, end_byte, signature, docstring, graph_version, commit_sha)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			fileID, sym.StableID, sym.Kind, sym.Name, sym.Qualname, sym.StartLine, sym.StartCol,
			sym.EndLine, sym.EndCol, sym.StartByte, sym.EndByte, sym.Signature, sym.Docstring,
			graphVersion, commitSHA)
		if err != nil {
			return errors.DatabaseErrorf(err, "insert symbol %s", sym.Qualname)
		}
	}

	for _, sym := range diff.Modified {
		_, err := tx.ExecContext(ctx, `
			UPDATE symbols SET name = ?, qualname = ?, start_line = ?, start_col = ?, end_line = ?,
				end_col = ?, start_byte = ?, end_byte = ?, signature = ?, docstring = ?,
				graph_version = ?, commit_sha = ?
			WHERE file_id = ? AND stable_id = ?`,
			sym.Name, sym.Qualname, sym.StartLine, sym.StartCol, sym.EndLine, sym.EndCol,
			sym.StartByte, sym.EndByte, sym.Signature, sym.Docstring, graphVersion, commitSHA,
			fileID, sym.StableID)
		if err != nil {
			return errors.DatabaseErrorf(err, "update symbol %s", sym.Qualname)
		}
	}

	for _, sym := range diff.Unchanged {
		_, err := tx.ExecContext(ctx, `UPDATE symbols SET graph_version = ? WHERE file_id = ? AND stable_id = ?`,
			graphVersion, fileID, sym.StableID)
		if err != nil {
			return errors.DatabaseErrorf(err, "carry forward symbol %s", sym.Qualname)
		}
	}

	return nil
}

// SymbolsForFile returns every live symbol belonging to a file, ordered by position.
func (s *Store) SymbolsForFile(ctx context.Context, fileID int64) ([]models.Symbol, error) {
	var rows []symbolRow
	err := s.db.SelectContext(ctx, &rows, `SELECT * FROM symbols WHERE file_id = ? ORDER BY start_line`, fileID)
	if err != nil {
		return nil, errors.DatabaseErrorf(err, "symbols for file %d", fileID)
	}
	return toSymbolModels(rows), nil
}

// GetSymbol resolves a symbol by id.
func (s *Store) GetSymbol(ctx context.Context, id int64) (*models.Symbol, error) {
	var row symbolRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM symbols WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundErrorf("symbol id %d not found", id)
	}
	if err != nil {
		return nil, errors.DatabaseErrorf(err, "get symbol %d", id)
	}
	m := row.toModel()
	return &m, nil
}

// SymbolsByIDs batch-loads symbols by id with their owning file's path and
// language joined in, the shape every impact layer needs to run its
// path/language heuristics without a query per symbol.
func (s *Store) SymbolsByIDs(ctx context.Context, ids []int64, languages []string, graphVersion int64) ([]models.Symbol, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimRight(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, 0, len(ids)+2)
	for _, id := range ids {
		args = append(args, id)
	}
	query := fmt.Sprintf(`SELECT s.*, f.path AS file_path, f.language AS language
		FROM symbols s JOIN files f ON f.id = s.file_id
		WHERE s.id IN (%s) AND s.graph_version <= ? AND (f.deleted_version IS NULL OR f.deleted_version > ?)`, placeholders)
	args = append(args, graphVersion, graphVersion)
	query, args = appendLanguageFilter(query, args, languages)

	var rows []symbolWithFileRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.DatabaseErrorf(err, "symbols by ids")
	}
	out := make([]models.Symbol, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// FindSymbolsByName substring-searches symbol names (case-insensitive),
// joined with their owning file's path and language — used by the test
// layer's naming strategy to enumerate candidates like "test_foo" or to scan
// every known test symbol for a reverse match.
func (s *Store) FindSymbolsByName(ctx context.Context, namePattern string, limit int, languages []string, graphVersion int64) ([]models.Symbol, error) {
	args := []interface{}{"%" + namePattern + "%", graphVersion, graphVersion}
	query := `SELECT s.*, f.path AS file_path, f.language AS language
		FROM symbols s JOIN files f ON f.id = s.file_id
		WHERE s.name LIKE ? AND s.graph_version <= ? AND (f.deleted_version IS NULL OR f.deleted_version > ?)`
	query, args = appendLanguageFilter(query, args, languages)
	query += ` LIMIT ?`
	args = append(args, limit)

	var rows []symbolWithFileRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.DatabaseErrorf(err, "find symbols by name %s", namePattern)
	}
	out := make([]models.Symbol, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// LookupSymbolIDFuzzy resolves a qualname to a symbol id: exact match first,
// then a suffix match on the last dotted segment, both scoped to graphVersion
// and an optional language filter applied via the owning file's language.
func (s *Store) LookupSymbolIDFuzzy(ctx context.Context, qualname string, languages []string, graphVersion int64) (int64, bool, error) {
	args := []interface{}{qualname, graphVersion}
	query := `SELECT s.id FROM symbols s JOIN files f ON f.id = s.file_id
		WHERE s.qualname = ? AND s.graph_version <= ? AND (f.deleted_version IS NULL OR f.deleted_version > ?)`
	args = append(args, graphVersion)
	query, args = appendLanguageFilter(query, args, languages)
	query += ` LIMIT 1`

	var id int64
	err := s.db.GetContext(ctx, &id, query, args...)
	if err == nil {
		return id, true, nil
	}
	if err != sql.ErrNoRows {
		return 0, false, errors.DatabaseErrorf(err, "exact lookup %s", qualname)
	}

	lastSegment := lastDotSegment(qualname)
	if lastSegment == "" {
		return 0, false, nil
	}

	suffix := "%." + lastSegment
	args = []interface{}{suffix, graphVersion, graphVersion}
	query = `SELECT s.id FROM symbols s JOIN files f ON f.id = s.file_id
		WHERE s.qualname LIKE ? AND s.graph_version <= ? AND (f.deleted_version IS NULL OR f.deleted_version > ?)`
	query, args = appendLanguageFilter(query, args, languages)
	query += ` ORDER BY s.qualname LIMIT 1`

	err = s.db.GetContext(ctx, &id, query, args...)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.DatabaseErrorf(err, "suffix lookup %s", qualname)
	}
	return id, true, nil
}

func lastDotSegment(qualname string) string {
	idx := -1
	for i := len(qualname) - 1; i >= 0; i-- {
		if qualname[i] == '.' {
			idx = i
			break
		}
	}
	if idx == -1 {
		return qualname
	}
	return qualname[idx+1:]
}

func appendLanguageFilter(query string, args []interface{}, languages []string) (string, []interface{}) {
	if len(languages) == 0 {
		return query, args
	}
	placeholders := ""
	for i, lang := range languages {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
		args = append(args, lang)
	}
	return query + " AND f.language IN (" + placeholders + ")", args
}

type symbolRow struct {
	ID           int64   `db:"id"`
	FileID       int64   `db:"file_id"`
	StableID     string  `db:"stable_id"`
	Kind         string  `db:"kind"`
	Name         string  `db:"name"`
	Qualname     string  `db:"qualname"`
	StartLine    int     `db:"start_line"`
	StartCol     int     `db:"start_col"`
	EndLine      int     `db:"end_line"`
	EndCol       int     `db:"end_col"`
	StartByte    int64   `db:"start_byte"`
	EndByte      int64   `db:"end_byte"`
	Signature    *string `db:"signature"`
	Docstring    *string `db:"docstring"`
	GraphVersion int64   `db:"graph_version"`
	CommitSHA    *string `db:"commit_sha"`
}

func (r symbolRow) toModel() models.Symbol {
	return models.Symbol{
		ID:           r.ID,
		FileID:       r.FileID,
		StableID:     r.StableID,
		Kind:         models.SymbolKind(r.Kind),
		Name:         r.Name,
		Qualname:     r.Qualname,
		StartLine:    r.StartLine,
		EndLine:      r.EndLine,
		StartCol:     r.StartCol,
		EndCol:       r.EndCol,
		StartByte:    r.StartByte,
		EndByte:      r.EndByte,
		Signature:    r.Signature,
		Docstring:    r.Docstring,
		GraphVersion: r.GraphVersion,
		CommitSHA:    r.CommitSHA,
	}
}

func toSymbolModels(rows []symbolRow) []models.Symbol {
	out := make([]models.Symbol, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out
}

// symbolWithFileRow is symbolRow plus the owning file's path and language,
// for read paths that join across to files.
type symbolWithFileRow struct {
	symbolRow
	FilePath string `db:"file_path"`
	Language string `db:"language"`
}

func (r symbolWithFileRow) toModel() models.Symbol {
	m := r.symbolRow.toModel()
	m.FilePath = r.FilePath
	m.Language = r.Language
	return m
}
