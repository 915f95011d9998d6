package store

import (
	"context"

	"github.com/lidxdev/lidx/internal/errors"
	"github.com/lidxdev/lidx/internal/models"
)

// UpsertFileMetrics records a file's size/composition counters, replacing
// any prior row for the same file.
func (s *Store) UpsertFileMetrics(ctx context.Context, fileID int64, m models.FileMetrics, graphVersion int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO file_metrics (file_id, loc, blank_lines, comment_lines, code_lines, graph_version)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_id) DO UPDATE SET
			loc = excluded.loc, blank_lines = excluded.blank_lines,
			comment_lines = excluded.comment_lines, code_lines = excluded.code_lines,
			graph_version = excluded.graph_version`,
		fileID, m.LOC, m.BlankLines, m.CommentLines, m.CodeLines, graphVersion)
	if err != nil {
		return errors.DatabaseErrorf(err, "upsert file metrics for file %d", fileID)
	}
	return nil
}

// UpsertSymbolMetrics records a symbol's complexity/duplication signals.
func (s *Store) UpsertSymbolMetrics(ctx context.Context, symbolID, fileID int64, m models.SymbolMetrics, graphVersion int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO symbol_metrics (symbol_id, file_id, loc, cyclomatic_complexity, duplication_hash, graph_version)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol_id) DO UPDATE SET
			loc = excluded.loc, cyclomatic_complexity = excluded.cyclomatic_complexity,
			duplication_hash = excluded.duplication_hash, graph_version = excluded.graph_version`,
		symbolID, fileID, m.LOC, m.CyclomaticComplexity, m.DuplicationHash, graphVersion)
	if err != nil {
		return errors.DatabaseErrorf(err, "upsert symbol metrics for symbol %d", symbolID)
	}
	return nil
}

// ComplexitySymbol is one row of a top_complexity / dead_symbols / etc report.
type ComplexitySymbol struct {
	SymbolID   int64  `db:"id" json:"symbol_id"`
	Qualname   string `db:"qualname" json:"qualname"`
	FilePath   string `db:"path" json:"file_path"`
	Complexity int    `db:"cyclomatic_complexity" json:"complexity"`
}

// TopComplexity returns the limit symbols with the highest cyclomatic complexity.
func (s *Store) TopComplexity(ctx context.Context, graphVersion int64, limit int) ([]ComplexitySymbol, error) {
	var rows []ComplexitySymbol
	err := s.db.SelectContext(ctx, &rows, `
		SELECT s.id, s.qualname, f.path, sm.cyclomatic_complexity
		FROM symbol_metrics sm
		JOIN symbols s ON s.id = sm.symbol_id
		JOIN files f ON f.id = s.file_id
		WHERE s.graph_version <= ? AND (f.deleted_version IS NULL OR f.deleted_version > ?)
		ORDER BY sm.cyclomatic_complexity DESC
		LIMIT ?`, graphVersion, graphVersion, limit)
	if err != nil {
		return nil, errors.DatabaseErrorf(err, "top complexity")
	}
	return rows, nil
}

// CouplingSymbol is one row of a top_coupling report: in+out edge fan counts.
type CouplingSymbol struct {
	SymbolID int64  `db:"id" json:"symbol_id"`
	Qualname string `db:"qualname" json:"qualname"`
	FilePath string `db:"path" json:"file_path"`
	FanIn    int    `db:"fan_in" json:"fan_in"`
	FanOut   int    `db:"fan_out" json:"fan_out"`
}

// TopCoupling returns the limit symbols with the highest combined fan-in/fan-out.
func (s *Store) TopCoupling(ctx context.Context, graphVersion int64, limit int) ([]CouplingSymbol, error) {
	var rows []CouplingSymbol
	err := s.db.SelectContext(ctx, &rows, `
		SELECT s.id, s.qualname, f.path,
			(SELECT COUNT(*) FROM edges e WHERE e.target_symbol_id = s.id AND e.graph_version <= ?) AS fan_in,
			(SELECT COUNT(*) FROM edges e WHERE e.source_symbol_id = s.id AND e.graph_version <= ?) AS fan_out
		FROM symbols s
		JOIN files f ON f.id = s.file_id
		WHERE s.graph_version <= ? AND (f.deleted_version IS NULL OR f.deleted_version > ?)
		ORDER BY (fan_in + fan_out) DESC
		LIMIT ?`, graphVersion, graphVersion, graphVersion, graphVersion, limit)
	if err != nil {
		return nil, errors.DatabaseErrorf(err, "top coupling")
	}
	return rows, nil
}

// DuplicateGroup is a set of symbols sharing the same duplication hash.
type DuplicateGroup struct {
	DuplicationHash string   `json:"duplication_hash"`
	Qualnames       []string `json:"qualnames"`
}

// DuplicateGroups finds symbols sharing a non-null duplication hash.
func (s *Store) DuplicateGroups(ctx context.Context, graphVersion int64) ([]DuplicateGroup, error) {
	type row struct {
		Hash     string `db:"duplication_hash"`
		Qualname string `db:"qualname"`
	}
	var rows []row
	err := s.db.SelectContext(ctx, &rows, `
		SELECT sm.duplication_hash, s.qualname
		FROM symbol_metrics sm
		JOIN symbols s ON s.id = sm.symbol_id
		JOIN files f ON f.id = s.file_id
		WHERE sm.duplication_hash IS NOT NULL
			AND s.graph_version <= ? AND (f.deleted_version IS NULL OR f.deleted_version > ?)
		ORDER BY sm.duplication_hash`, graphVersion, graphVersion)
	if err != nil {
		return nil, errors.DatabaseErrorf(err, "duplicate groups")
	}

	groups := map[string][]string{}
	var order []string
	for _, r := range rows {
		if _, ok := groups[r.Hash]; !ok {
			order = append(order, r.Hash)
		}
		groups[r.Hash] = append(groups[r.Hash], r.Qualname)
	}

	out := make([]DuplicateGroup, 0, len(order))
	for _, h := range order {
		if len(groups[h]) > 1 {
			out = append(out, DuplicateGroup{DuplicationHash: h, Qualnames: groups[h]})
		}
	}
	return out, nil
}

// DeadSymbols returns function/method symbols with zero incoming CALLS edges,
// excluding any symbol that is the source of an RPC_IMPL, HTTP_ROUTE or
// CHANNEL_SUBSCRIBE edge (those are reached externally, not via a local CALLS
// edge). Test functions are not excluded; an uncalled test is listed like any
// other uncalled function.
func (s *Store) DeadSymbols(ctx context.Context, graphVersion int64, limit int) ([]ComplexitySymbol, error) {
	var rows []ComplexitySymbol
	err := s.db.SelectContext(ctx, &rows, `
		SELECT s.id, s.qualname, f.path, COALESCE(sm.cyclomatic_complexity, 0) AS cyclomatic_complexity
		FROM symbols s
		JOIN files f ON f.id = s.file_id
		LEFT JOIN symbol_metrics sm ON sm.symbol_id = s.id
		WHERE s.kind IN ('function', 'method')
			AND s.graph_version <= ? AND (f.deleted_version IS NULL OR f.deleted_version > ?)
			AND NOT EXISTS (
				SELECT 1 FROM edges e
				WHERE e.target_symbol_id = s.id AND e.kind = 'CALLS' AND e.graph_version <= ?
			)
			AND NOT EXISTS (
				SELECT 1 FROM edges e
				WHERE e.source_symbol_id = s.id AND e.kind IN ('RPC_IMPL', 'HTTP_ROUTE', 'CHANNEL_SUBSCRIBE')
				AND e.graph_version <= ?
			)
		ORDER BY s.qualname
		LIMIT ?`, graphVersion, graphVersion, graphVersion, graphVersion, limit)
	if err != nil {
		return nil, errors.DatabaseErrorf(err, "dead symbols")
	}
	return rows, nil
}

// UnusedImport is an IMPORTS edge whose target was never referenced again
// by any CALLS/REFERENCES edge from the same source file.
type UnusedImport struct {
	FilePath string `db:"path" json:"file_path"`
	Target   string `db:"target_qualname" json:"target"`
}

// UnusedImports returns import edges with no corroborating use edge.
func (s *Store) UnusedImports(ctx context.Context, graphVersion int64, limit int) ([]UnusedImport, error) {
	var rows []UnusedImport
	err := s.db.SelectContext(ctx, &rows, `
		SELECT f.path, COALESCE(e.target_qualname, '') AS target_qualname
		FROM edges e
		JOIN files f ON f.id = e.file_id
		WHERE e.kind = 'IMPORTS' AND e.graph_version <= ?
			AND (f.deleted_version IS NULL OR f.deleted_version > ?)
			AND NOT EXISTS (
				SELECT 1 FROM edges u
				WHERE u.file_id = e.file_id AND u.kind IN ('CALLS', 'REFERENCES')
				AND u.target_qualname = e.target_qualname AND u.graph_version <= ?
			)
		LIMIT ?`, graphVersion, graphVersion, graphVersion, limit)
	if err != nil {
		return nil, errors.DatabaseErrorf(err, "unused imports")
	}
	return rows, nil
}

// OrphanTest is a test symbol with no call/import/naming/proximity link to
// any non-test symbol — a candidate for deletion or a missed rename.
type OrphanTest struct {
	SymbolID int64  `db:"id" json:"symbol_id"`
	Qualname string `db:"qualname" json:"qualname"`
	FilePath string `db:"path" json:"file_path"`
}

// OrphanTests returns test-named symbols with no outgoing CALLS edge at all,
// the cheap store-level half of the test layer's reverse-scan strategy.
func (s *Store) OrphanTests(ctx context.Context, graphVersion int64, namePattern string, limit int) ([]OrphanTest, error) {
	var rows []OrphanTest
	err := s.db.SelectContext(ctx, &rows, `
		SELECT s.id, s.qualname, f.path
		FROM symbols s
		JOIN files f ON f.id = s.file_id
		WHERE s.name LIKE ?
			AND s.graph_version <= ? AND (f.deleted_version IS NULL OR f.deleted_version > ?)
			AND NOT EXISTS (
				SELECT 1 FROM edges e WHERE e.source_symbol_id = s.id AND e.kind = 'CALLS' AND e.graph_version <= ?
			)
		ORDER BY s.qualname
		LIMIT ?`, namePattern, graphVersion, graphVersion, graphVersion, limit)
	if err != nil {
		return nil, errors.DatabaseErrorf(err, "orphan tests")
	}
	return rows, nil
}
