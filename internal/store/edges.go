package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/lidxdev/lidx/internal/errors"
	"github.com/lidxdev/lidx/internal/models"
)

// InsertEdges persists a file's edges in one transaction, resolving
// source/target qualnames against symbolMap (built from the file's just
// flushed symbols plus any already-known ids) where possible. Edges whose
// target isn't in symbolMap are stored unresolved, addressed by
// target_qualname, for later cross-language linking.
func (s *Store) InsertEdges(ctx context.Context, fileID int64, inputs []models.EdgeInput, symbolMap map[string]int64, graphVersion int64, commitSHA *string) (int, error) {
	count := 0
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, in := range inputs {
			sourceID, sourceOK := symbolMap[in.SourceQualname]
			if !sourceOK {
				continue // an edge with no resolvable source symbol cannot be stored meaningfully
			}
			targetID, targetOK := symbolMap[in.TargetQualname]

			var targetIDArg interface{}
			var targetQualnameArg interface{}
			if targetOK {
				targetIDArg = targetID
			} else {
				targetQualnameArg = in.TargetQualname
			}

			var detail *string
			if len(in.Detail) > 0 {
				encoded := encodeDetail(in.Detail)
				detail = &encoded
			}

			now := time.Now().Unix()
			eventTS := &now

			_, err := tx.ExecContext(ctx, `
				INSERT INTO edges (file_id, source_symbol_id, target_symbol_id, kind, target_qualname,
					detail, evidence_snippet, evidence_start_line, evidence_end_line, confidence,
					graph_version, commit_sha, trace_id, span_id, event_ts)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				fileID, sourceID, targetIDArg, in.Kind, targetQualnameArg, detail,
				nullableString(in.EvidenceSnippet), in.EvidenceStartLine, in.EvidenceEndLine,
				in.Confidence, graphVersion, commitSHA, in.TraceID, in.SpanID, eventTS)
			if err != nil {
				return errors.DatabaseErrorf(err, "insert edge %s->%s", in.SourceQualname, in.TargetQualname)
			}
			count++
		}
		return nil
	})
	return count, err
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func encodeDetail(detail map[string]any) string {
	var sb strings.Builder
	first := true
	for k, v := range detail {
		if !first {
			sb.WriteByte(';')
		}
		first = false
		fmt.Fprintf(&sb, "%s=%v", k, v)
	}
	return sb.String()
}

// DecodeDetail reverses encodeDetail's "k=v;k=v" packing, for callers (the
// cross-language linker) that need to read back an edge's detail fields.
func DecodeDetail(encoded string) map[string]string {
	out := map[string]string{}
	if encoded == "" {
		return out
	}
	for _, pair := range strings.Split(encoded, ";") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		out[k] = v
	}
	return out
}

// EdgesForSymbols batch-fetches every edge touching any of ids (as source or
// target), grouped by the symbol id that owns the lookup, the shape the
// direct BFS layer needs for one-query-per-level traversal.
func (s *Store) EdgesForSymbols(ctx context.Context, ids []int64, languages []string, graphVersion int64) (map[int64][]models.Edge, error) {
	if len(ids) == 0 {
		return map[int64][]models.Edge{}, nil
	}

	placeholders := strings.TrimRight(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, 0, len(ids)*2+3)
	for _, id := range ids {
		args = append(args, id)
	}
	query := fmt.Sprintf(`SELECT e.* FROM edges e
		JOIN files f ON f.id = e.file_id
		WHERE (e.source_symbol_id IN (%s) OR e.target_symbol_id IN (%s))
		AND e.graph_version <= ? AND (f.deleted_version IS NULL OR f.deleted_version > ?)`, placeholders, placeholders)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, graphVersion, graphVersion)
	query, args = appendLanguageFilter(query, args, languages)

	var rows []edgeRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.DatabaseErrorf(err, "edges for %d symbols", len(ids))
	}

	out := make(map[int64][]models.Edge, len(ids))
	wanted := make(map[int64]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	for _, r := range rows {
		edge := r.toModel()
		if edge.SourceSymbolID != nil && wanted[*edge.SourceSymbolID] {
			out[*edge.SourceSymbolID] = append(out[*edge.SourceSymbolID], edge)
		}
		if edge.TargetSymbolID != nil && wanted[*edge.TargetSymbolID] {
			out[*edge.TargetSymbolID] = append(out[*edge.TargetSymbolID], edge)
		}
	}
	return out, nil
}

// IncomingEdgesByQualnamePattern finds edges whose unresolved target_qualname
// either equals a symbol's full qualname or ends with ".<name>" — the
// caller-side bridge used to catch callers that referenced a symbol before
// it was resolved.
func (s *Store) IncomingEdgesByQualnamePattern(ctx context.Context, qualname, name string, kinds []models.EdgeKind, languages []string, graphVersion int64) ([]models.Edge, error) {
	query := `SELECT e.* FROM edges e JOIN files f ON f.id = e.file_id
		WHERE (e.target_qualname = ? OR e.target_qualname LIKE ?)
		AND e.graph_version <= ? AND (f.deleted_version IS NULL OR f.deleted_version > ?)`
	args := []interface{}{qualname, "%." + name, graphVersion, graphVersion}

	if len(kinds) > 0 {
		placeholders := strings.TrimRight(strings.Repeat("?,", len(kinds)), ",")
		query += fmt.Sprintf(" AND e.kind IN (%s)", placeholders)
		for _, k := range kinds {
			args = append(args, k)
		}
	}
	query, args = appendLanguageFilter(query, args, languages)

	var rows []edgeRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.DatabaseErrorf(err, "incoming edges for %s", qualname)
	}
	out := make([]models.Edge, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// EdgesByTargetQualname fetches edges whose kind is in kinds and whose
// target_qualname matches exactly — used by the bridge pass to cross
// publish/subscribe, call/impl and HTTP-call/route pairs.
func (s *Store) EdgesByTargetQualname(ctx context.Context, targetQualname string, kinds []models.EdgeKind, graphVersion int64) ([]models.Edge, error) {
	if len(kinds) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimRight(strings.Repeat("?,", len(kinds)), ",")
	query := fmt.Sprintf(`SELECT e.* FROM edges e JOIN files f ON f.id = e.file_id
		WHERE e.target_qualname = ? AND e.kind IN (%s)
		AND e.graph_version <= ? AND (f.deleted_version IS NULL OR f.deleted_version > ?)`, placeholders)
	args := []interface{}{targetQualname}
	for _, k := range kinds {
		args = append(args, k)
	}
	args = append(args, graphVersion, graphVersion)

	var rows []edgeRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.DatabaseErrorf(err, "edges by target qualname %s", targetQualname)
	}
	out := make([]models.Edge, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// UnresolvedEdges returns edges whose target is still addressed only by
// target_qualname, for the cross-language linking pass to attempt to
// resolve via fuzzy lookup.
func (s *Store) UnresolvedEdges(ctx context.Context, graphVersion int64, limit int) ([]models.Edge, error) {
	query := `SELECT e.* FROM edges e JOIN files f ON f.id = e.file_id
		WHERE e.target_symbol_id IS NULL AND e.target_qualname IS NOT NULL
		AND e.graph_version <= ? AND (f.deleted_version IS NULL OR f.deleted_version > ?)
		ORDER BY e.id LIMIT ?`
	var rows []edgeRow
	if err := s.db.SelectContext(ctx, &rows, query, graphVersion, graphVersion, limit); err != nil {
		return nil, errors.DatabaseErrorf(err, "unresolved edges")
	}
	out := make([]models.Edge, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// ResolveEdgeTarget links a previously unresolved edge to a concrete symbol,
// once cross-language linking has found a match for its target_qualname.
func (s *Store) ResolveEdgeTarget(ctx context.Context, edgeID, targetSymbolID int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE edges SET target_symbol_id = ? WHERE id = ?`, targetSymbolID, edgeID)
	if err != nil {
		return errors.DatabaseErrorf(err, "resolve edge %d target", edgeID)
	}
	return nil
}

// InsertResolvedEdge inserts a synthetic edge between two already-known
// symbol ids, used for the XREF edges the bridge pass and literal-matching
// pass synthesize after both endpoints are known.
func (s *Store) InsertResolvedEdge(ctx context.Context, fileID int64, kind models.EdgeKind, sourceSymbolID, targetSymbolID int64, confidence *float64, graphVersion int64, commitSHA *string) error {
	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO edges (file_id, source_symbol_id, target_symbol_id, kind, confidence,
			graph_version, commit_sha, event_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		fileID, sourceSymbolID, targetSymbolID, kind, confidence, graphVersion, commitSHA, now)
	if err != nil {
		return errors.DatabaseErrorf(err, "insert resolved edge %d->%d", sourceSymbolID, targetSymbolID)
	}
	return nil
}

// EdgesByKinds fetches every edge of the given kinds at graphVersion,
// regardless of resolution state — the candidate pool the cross-language
// linker buckets by normalized literal to find bridge matches.
func (s *Store) EdgesByKinds(ctx context.Context, kinds []models.EdgeKind, graphVersion int64) ([]models.Edge, error) {
	if len(kinds) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimRight(strings.Repeat("?,", len(kinds)), ",")
	query := fmt.Sprintf(`SELECT e.* FROM edges e JOIN files f ON f.id = e.file_id
		WHERE e.kind IN (%s)
		AND e.graph_version <= ? AND (f.deleted_version IS NULL OR f.deleted_version > ?)`, placeholders)
	args := make([]interface{}, 0, len(kinds)+2)
	for _, k := range kinds {
		args = append(args, k)
	}
	args = append(args, graphVersion, graphVersion)

	var rows []edgeRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.DatabaseErrorf(err, "edges by kinds")
	}
	out := make([]models.Edge, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// EdgeExists reports whether an edge of kind already links source to target,
// at any graph version — used to keep repeated cross-language linking passes
// from accumulating duplicate synthesized edges across successive reindexes.
func (s *Store) EdgeExists(ctx context.Context, kind models.EdgeKind, sourceSymbolID, targetSymbolID int64) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM edges
		WHERE kind = ? AND source_symbol_id = ? AND target_symbol_id = ?`,
		kind, sourceSymbolID, targetSymbolID)
	if err != nil {
		return false, errors.DatabaseErrorf(err, "edge exists check")
	}
	return count > 0, nil
}

type edgeRow struct {
	ID                int64    `db:"id"`
	FileID            int64    `db:"file_id"`
	SourceSymbolID    *int64   `db:"source_symbol_id"`
	TargetSymbolID    *int64   `db:"target_symbol_id"`
	Kind              string   `db:"kind"`
	TargetQualname    *string  `db:"target_qualname"`
	Detail            *string  `db:"detail"`
	EvidenceSnippet   *string  `db:"evidence_snippet"`
	EvidenceStartLine *int     `db:"evidence_start_line"`
	EvidenceEndLine   *int     `db:"evidence_end_line"`
	Confidence        *float64 `db:"confidence"`
	GraphVersion      int64    `db:"graph_version"`
	CommitSHA         *string  `db:"commit_sha"`
	TraceID           *string  `db:"trace_id"`
	SpanID            *string  `db:"span_id"`
	EventTS           *int64   `db:"event_ts"`
}

func (r edgeRow) toModel() models.Edge {
	e := models.Edge{
		ID:                r.ID,
		FileID:            r.FileID,
		Kind:              models.EdgeKind(r.Kind),
		SourceSymbolID:    r.SourceSymbolID,
		TargetSymbolID:    r.TargetSymbolID,
		TargetQualname:    r.TargetQualname,
		Detail:            r.Detail,
		EvidenceSnippet:   r.EvidenceSnippet,
		EvidenceStartLine: r.EvidenceStartLine,
		EvidenceEndLine:   r.EvidenceEndLine,
		Confidence:        r.Confidence,
		GraphVersion:      r.GraphVersion,
		CommitSHA:         r.CommitSHA,
		TraceID:           r.TraceID,
		SpanID:            r.SpanID,
	}
	if r.EventTS != nil {
		t := time.Unix(*r.EventTS, 0).UTC()
		e.EventTS = &t
	}
	return e
}
