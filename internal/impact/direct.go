package impact

import (
	"context"
	"time"

	"github.com/lidxdev/lidx/internal/models"
	"github.com/lidxdev/lidx/internal/resolve"
	"github.com/lidxdev/lidx/internal/store"
)

// directTimeout is the hard wall-clock budget for one BFS run; exceeding it
// truncates the traversal rather than erroring.
const directTimeout = 5 * time.Second

// DirectLayer is the level-synchronous BFS impact layer: it walks the edge
// graph outward from a seed set, one level at a time, batching every store
// read per level so an N-hop traversal costs O(N) queries rather than
// O(symbols).
type DirectLayer struct {
	store *store.Store
}

// NewDirectLayer builds a DirectLayer over st.
func NewDirectLayer(st *store.Store) *DirectLayer {
	return &DirectLayer{store: st}
}

// frontierEdge is a candidate next-level symbol discovered while scanning
// one level's edges, carrying enough to reconstruct the path later.
type frontierEdge struct {
	symbolID      int64
	predecessorID int64
}

// Analyze runs the BFS from seedIDs out to cfg.MaxDepth (or until limit or
// the timeout is hit) and returns every non-seed symbol reached, each tagged
// with an ImpactSourceDirectEdge evidence entry at its discovery distance.
func (d *DirectLayer) Analyze(ctx context.Context, seedIDs []int64, cfg DirectConfig, limit int, graphVersion int64) (LayerResult, map[int64]int64, error) {
	start := time.Now()
	deadline := start.Add(directTimeout)

	result := newLayerResult("direct")
	visited := make(map[int64]bool, len(seedIDs))
	predecessor := map[int64]int64{}
	for _, id := range seedIDs {
		visited[id] = true
	}

	frontier := append([]int64(nil), seedIDs...)

	for level := 0; len(frontier) > 0 && level < cfg.MaxDepth; level++ {
		if time.Now().After(deadline) {
			result.Truncated = true
			break
		}
		if limit > 0 && len(visited) >= limit {
			result.Truncated = true
			break
		}

		edgesBySymbol, err := d.store.EdgesForSymbols(ctx, frontier, cfg.Languages, graphVersion)
		if err != nil {
			return result, predecessor, err
		}

		if cfg.Direction == models.DirectionUpstream || cfg.Direction == models.DirectionBoth {
			frontierSymbols, err := d.store.SymbolsByIDs(ctx, frontier, cfg.Languages, graphVersion)
			if err != nil {
				return result, predecessor, err
			}
			for _, sym := range frontierSymbols {
				incoming, err := d.store.IncomingEdgesByQualnamePattern(ctx, sym.Qualname, sym.Name, nil, cfg.Languages, graphVersion)
				if err != nil {
					return result, predecessor, err
				}
				edgesBySymbol[sym.ID] = append(edgesBySymbol[sym.ID], incoming...)
			}
		}

		fuzzyCache := map[string]*int64{}
		var candidates []frontierEdge

		for _, symID := range frontier {
			for _, edge := range edgesBySymbol[symID] {
				if len(cfg.Kinds) > 0 && !kindAllowed(cfg.Kinds, edge.Kind) {
					continue
				}

				if nextID, ok := d.resolveNextSymbol(ctx, edge, symID, cfg.Direction, cfg.Languages, graphVersion, fuzzyCache); ok {
					candidates = append(candidates, frontierEdge{symbolID: nextID, predecessorID: symID})
				}

				if complements := resolve.BridgeComplement(edge.Kind); len(complements) > 0 && edge.TargetQualname != nil {
					bridged, err := d.store.EdgesByTargetQualname(ctx, *edge.TargetQualname, complements, graphVersion)
					if err != nil {
						return result, predecessor, err
					}
					for _, be := range bridged {
						if be.SourceSymbolID == nil {
							continue
						}
						candidates = append(candidates, frontierEdge{symbolID: *be.SourceSymbolID, predecessorID: symID})
					}
				}
			}
		}

		if len(candidates) == 0 {
			break
		}

		candidateIDSet := make(map[int64]bool, len(candidates))
		for _, c := range candidates {
			candidateIDSet[c.symbolID] = true
		}
		candidateIDs := make([]int64, 0, len(candidateIDSet))
		for id := range candidateIDSet {
			candidateIDs = append(candidateIDs, id)
		}
		candidateSymbols, err := d.store.SymbolsByIDs(ctx, candidateIDs, cfg.Languages, graphVersion)
		if err != nil {
			return result, predecessor, err
		}
		symByID := make(map[int64]models.Symbol, len(candidateSymbols))
		for _, s := range candidateSymbols {
			symByID[s.ID] = s
		}

		distance := level + 1
		var nextFrontier []int64
		for _, c := range candidates {
			if visited[c.symbolID] {
				continue
			}
			sym, known := symByID[c.symbolID]
			if !known {
				continue
			}
			if !cfg.IncludeTests && isTestFile(sym.FilePath) {
				continue
			}

			visited[c.symbolID] = true
			predecessor[c.symbolID] = c.predecessorID
			result.add(c.symbolID, models.ImpactSource{
				Kind:       models.ImpactSourceDirectEdge,
				Layer:      "direct",
				Distance:   intPtr(distance),
				Confidence: applyDistanceDecay(directBaseConfidence, distance),
			})
			nextFrontier = append(nextFrontier, c.symbolID)

			if limit > 0 && len(visited) >= limit {
				result.Truncated = true
				break
			}
		}

		frontier = nextFrontier
	}

	result.DurationMS = time.Since(start).Milliseconds()
	return result, predecessor, nil
}

// resolveNextSymbol determines the neighbour an edge implies given the
// traversal direction: downstream follows source→target, upstream follows
// target→source, both tries either; an unresolved target_symbol_id falls
// back to a cached fuzzy qualname lookup.
func (d *DirectLayer) resolveNextSymbol(ctx context.Context, edge models.Edge, fromSymbolID int64, direction models.TraversalDirection, languages []string, graphVersion int64, cache map[string]*int64) (int64, bool) {
	tryDownstream := direction == models.DirectionDownstream || direction == models.DirectionBoth
	tryUpstream := direction == models.DirectionUpstream || direction == models.DirectionBoth

	if tryDownstream && edge.SourceSymbolID != nil && *edge.SourceSymbolID == fromSymbolID {
		if edge.TargetSymbolID != nil {
			return *edge.TargetSymbolID, true
		}
		if edge.TargetQualname != nil {
			if id, ok := d.fuzzyResolve(ctx, *edge.TargetQualname, languages, graphVersion, cache); ok {
				return id, true
			}
		}
	}

	if tryUpstream {
		if edge.TargetSymbolID != nil && *edge.TargetSymbolID == fromSymbolID {
			if edge.SourceSymbolID != nil {
				return *edge.SourceSymbolID, true
			}
		} else if edge.TargetQualname != nil && edge.SourceSymbolID != nil {
			// this edge came from the incoming-by-qualname-pattern pass: its
			// unresolved target_qualname matches fromSymbolID by pattern, so its
			// source is the caller neighbour regardless of target_symbol_id.
			return *edge.SourceSymbolID, true
		}
	}

	return 0, false
}

func (d *DirectLayer) fuzzyResolve(ctx context.Context, qualname string, languages []string, graphVersion int64, cache map[string]*int64) (int64, bool) {
	if cached, ok := cache[qualname]; ok {
		if cached == nil {
			return 0, false
		}
		return *cached, true
	}
	id, ok, err := d.store.LookupSymbolIDFuzzy(ctx, qualname, languages, graphVersion)
	if err != nil || !ok {
		cache[qualname] = nil
		return 0, false
	}
	cache[qualname] = &id
	return id, true
}

// reconstructPath walks predecessor back from symbolID to a seed, returning
// the chain from seed to symbolID inclusive. Used only when include_paths is
// requested, since most callers don't need it.
func reconstructPath(predecessor map[int64]int64, symbolID int64) []int64 {
	chain := []int64{symbolID}
	current := symbolID
	for {
		pred, ok := predecessor[current]
		if !ok {
			break
		}
		chain = append([]int64{pred}, chain...)
		current = pred
	}
	return chain
}
