package store

import (
	"context"
	"sort"

	"github.com/lidxdev/lidx/internal/errors"
	"github.com/lidxdev/lidx/internal/models"
)

// SubgraphFilter narrows which edges a subgraph traversal is allowed to
// cross, mirroring the reference implementation's EdgeFilter.
type SubgraphFilter struct {
	Include      map[models.EdgeKind]bool
	Exclude      map[models.EdgeKind]bool
	ExcludeAll   bool
	ResolvedOnly bool
}

func (f *SubgraphFilter) allows(e models.Edge) bool {
	if f == nil {
		return true
	}
	if f.ResolvedOnly && !e.IsResolved() {
		return false
	}
	if f.Include != nil {
		if len(f.Include) == 0 || !f.Include[e.Kind] {
			return false
		}
	}
	if len(f.Exclude) > 0 && f.Exclude[e.Kind] {
		return false
	}
	return true
}

// Subgraph is a bounded BFS neighbourhood around a set of seed symbols: the
// symbol_neighbors response for the "subgraph" RPC method.
type Subgraph struct {
	Nodes []models.Symbol `json:"nodes"`
	Edges []models.Edge   `json:"edges"`
}

type subgraphQueueEntry struct {
	id   int64
	dist int
}

// Subgraph expands start_ids outward up to depth hops (or max_nodes visited
// nodes, whichever binds first), resolving unresolved MODULE_FILE/
// IMPORTS_FILE/CALLS edge targets opportunistically as it goes, and returns
// a deterministically ordered node/edge set suitable for direct rendering.
func (s *Store) Subgraph(ctx context.Context, startIDs []int64, depth, maxNodes int, languages []string, graphVersion int64, filter *SubgraphFilter) (*Subgraph, error) {
	sortedStart := dedupSortedInt64(startIDs)

	symbolCache := map[int64]string{}
	if err := s.cacheQualnames(ctx, symbolCache, sortedStart, languages, graphVersion); err != nil {
		return nil, err
	}
	if len(languages) > 0 {
		filtered := sortedStart[:0]
		for _, id := range sortedStart {
			if _, ok := symbolCache[id]; ok {
				filtered = append(filtered, id)
			}
		}
		sortedStart = filtered
	}

	visited := map[int64]bool{}
	var queue []subgraphQueueEntry
	for _, id := range sortedStart {
		if !visited[id] {
			visited[id] = true
			queue = append(queue, subgraphQueueEntry{id: id, dist: 0})
		}
	}

	edgeIDs := map[int64]bool{}
	var edges []models.Edge

	for len(queue) > 0 {
		entry := queue[0]
		queue = queue[1:]
		if entry.dist >= depth {
			continue
		}

		neighborMap, err := s.EdgesForSymbols(ctx, []int64{entry.id}, languages, graphVersion)
		if err != nil {
			return nil, err
		}
		neighbors := neighborMap[entry.id]

		s.resolveOpenEdgeTargets(ctx, neighbors, languages, graphVersion)

		if filter != nil {
			if filter.ExcludeAll {
				neighbors = nil
			} else {
				kept := neighbors[:0]
				for _, e := range neighbors {
					if filter.allows(e) {
						kept = append(kept, e)
					}
				}
				neighbors = kept
			}
		}

		var lookupIDs []int64
		for _, e := range neighbors {
			if e.SourceSymbolID != nil {
				lookupIDs = append(lookupIDs, *e.SourceSymbolID)
			}
			if e.TargetSymbolID != nil {
				lookupIDs = append(lookupIDs, *e.TargetSymbolID)
			}
		}
		if err := s.cacheQualnames(ctx, symbolCache, lookupIDs, languages, graphVersion); err != nil {
			return nil, err
		}

		sort.Slice(neighbors, func(i, j int) bool {
			return edgeSortKey(neighbors[i], symbolCache) < edgeSortKey(neighbors[j], symbolCache)
		})

		for _, e := range neighbors {
			if e.SourceSymbolID != nil {
				if _, ok := symbolCache[*e.SourceSymbolID]; !ok {
					continue
				}
			}
			if e.TargetSymbolID != nil {
				if _, ok := symbolCache[*e.TargetSymbolID]; !ok {
					continue
				}
			}
			if !edgeIDs[e.ID] {
				edgeIDs[e.ID] = true
				edges = append(edges, e)
			}

			var neighborID *int64
			if e.SourceSymbolID != nil && *e.SourceSymbolID == entry.id {
				neighborID = e.TargetSymbolID
			} else {
				neighborID = e.SourceSymbolID
			}
			if neighborID == nil {
				continue
			}
			if _, ok := symbolCache[*neighborID]; !ok {
				continue
			}
			if len(visited) < maxNodes && !visited[*neighborID] {
				visited[*neighborID] = true
				queue = append(queue, subgraphQueueEntry{id: *neighborID, dist: entry.dist + 1})
			}
		}

		if len(visited) >= maxNodes {
			break
		}
	}

	ids := make([]int64, 0, len(visited))
	for id := range visited {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	nodes, err := s.symbolsByIDs(ctx, ids, languages, graphVersion)
	if err != nil {
		return nil, err
	}
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Qualname != nodes[j].Qualname {
			return nodes[i].Qualname < nodes[j].Qualname
		}
		return nodes[i].ID < nodes[j].ID
	})

	sort.Slice(edges, func(i, j int) bool {
		return edgeSortKey(edges[i], symbolCache) < edgeSortKey(edges[j], symbolCache)
	})

	return &Subgraph{Nodes: nodes, Edges: edges}, nil
}

// resolveOpenEdgeTargets fills in target_symbol_id for edges the extractor
// left addressed only by qualname, the same opportunistic resolution the
// reference subgraph builder performs inline rather than requiring a prior
// cross-language linking pass.
func (s *Store) resolveOpenEdgeTargets(ctx context.Context, edges []models.Edge, languages []string, graphVersion int64) {
	for i := range edges {
		e := &edges[i]
		if e.TargetSymbolID != nil || e.TargetQualname == nil {
			continue
		}
		switch e.Kind {
		case models.EdgeModuleFile, models.EdgeImportsFile, models.EdgeCalls:
			id, ok, err := s.LookupSymbolIDFuzzy(ctx, *e.TargetQualname, languages, graphVersion)
			if err == nil && ok {
				e.TargetSymbolID = &id
			}
		}
	}
}

func (s *Store) cacheQualnames(ctx context.Context, cache map[int64]string, ids []int64, languages []string, graphVersion int64) error {
	var missing []int64
	for _, id := range ids {
		if _, ok := cache[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	missing = dedupSortedInt64(missing)
	symbols, err := s.symbolsByIDs(ctx, missing, languages, graphVersion)
	if err != nil {
		return err
	}
	for _, sym := range symbols {
		cache[sym.ID] = sym.Qualname
	}
	return nil
}

func (s *Store) symbolsByIDs(ctx context.Context, ids []int64, languages []string, graphVersion int64) ([]models.Symbol, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := ""
	args := make([]interface{}, 0, len(ids)+3)
	for i, id := range ids {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
		args = append(args, id)
	}
	query := `SELECT s.* FROM symbols s JOIN files f ON f.id = s.file_id
		WHERE s.id IN (` + placeholders + `)
		AND s.graph_version <= ? AND (f.deleted_version IS NULL OR f.deleted_version > ?)`
	args = append(args, graphVersion, graphVersion)
	query, args = appendLanguageFilter(query, args, languages)

	var rows []symbolRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.DatabaseErrorf(err, "symbols by ids")
	}
	return toSymbolModels(rows), nil
}

func dedupSortedInt64(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	cp := append([]int64(nil), ids...)
	sort.Slice(cp, func(i, j int) bool { return cp[i] < cp[j] })
	out := cp[:0]
	var prev int64
	first := true
	for _, id := range cp {
		if first || id != prev {
			out = append(out, id)
			prev = id
			first = false
		}
	}
	return out
}

var edgeRank = map[models.EdgeKind]int{
	models.EdgeContains:    0,
	models.EdgeModuleFile:  1,
	models.EdgeExtends:     2,
	models.EdgeImplements:  3,
	models.EdgeImportsFile: 4,
	models.EdgeImports:     5,
	models.EdgeCalls:       6,
	models.EdgeXref:        7,
}

func edgeSortKey(e models.Edge, cache map[int64]string) string {
	rank := 10
	if r, ok := edgeRank[e.Kind]; ok {
		rank = r
	}
	source := ""
	if e.SourceSymbolID != nil {
		source = cache[*e.SourceSymbolID]
	}
	target := ""
	if e.TargetSymbolID != nil {
		target = cache[*e.TargetSymbolID]
	} else if e.TargetQualname != nil {
		target = *e.TargetQualname
	}
	detail := ""
	if e.Detail != nil {
		detail = *e.Detail
	}
	return string(rune(rank)) + "\x00" + source + "\x00" + target + "\x00" + detail
}
