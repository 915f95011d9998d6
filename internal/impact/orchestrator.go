package impact

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/lidxdev/lidx/internal/models"
	"github.com/lidxdev/lidx/internal/store"
)

// Orchestrator runs the enabled impact layers — in parallel, one goroutine
// per layer, each against its own read path — and fuses their evidence into
// one ranked, deduplicated result.
type Orchestrator struct {
	store *store.Store
}

// New builds an Orchestrator over st.
func New(st *store.Store) *Orchestrator {
	return &Orchestrator{store: st}
}

// Analyze resolves seedIDs at graphVersion, runs every enabled layer, fuses
// the result, and applies the min-confidence post-filter. A seed id that
// does not resolve to a live symbol fails the call; a layer failure does
// not — it is recorded in that layer's LayerStats.Error and the other
// layers' results still come back.
func (o *Orchestrator) Analyze(ctx context.Context, seedIDs []int64, cfg MultiLayerConfig, graphVersion int64) (models.ImpactResult, error) {
	seeds, err := o.store.SymbolsByIDs(ctx, seedIDs, cfg.Direct.Languages, graphVersion)
	if err != nil {
		return models.ImpactResult{}, err
	}
	if len(seeds) != len(dedupInt64(seedIDs)) {
		return models.ImpactResult{}, fmt.Errorf("one or more seed ids did not resolve to a live symbol at graph version %d", graphVersion)
	}

	var (
		directResult     LayerResult
		predecessor      map[int64]int64
		directErr        error
		testResult       LayerResult
		testErr          error
		historicalResult LayerResult
		historicalErr    error
	)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Direct.Enabled {
		g.Go(func() error {
			directResult, predecessor, directErr = NewDirectLayer(o.store).Analyze(gctx, seedIDs, cfg.Direct, cfg.Limit, graphVersion)
			return nil // a layer error is recorded, not propagated — see directErr below
		})
	}
	if cfg.Test.Enabled {
		g.Go(func() error {
			testResult, testErr = NewTestLayer(o.store).Analyze(gctx, seeds, cfg.Direct.Languages, graphVersion)
			return nil
		})
	}
	if cfg.Historical.Enabled {
		g.Go(func() error {
			historicalResult, historicalErr = NewHistoricalLayer(o.store).Analyze(gctx, seeds, cfg.Historical, graphVersion)
			return nil
		})
	}

	_ = g.Wait() // goroutines never return a non-nil error; failures are captured per-layer above

	layers := []models.LayerStats{}
	evidence := map[int64][]models.ImpactSource{}
	truncated := false

	if cfg.Direct.Enabled {
		layers = append(layers, layerStats("direct", true, directResult, directErr))
		if directErr == nil {
			mergeEvidence(evidence, directResult.Evidence)
			truncated = truncated || directResult.Truncated
		}
	}
	if cfg.Test.Enabled {
		layers = append(layers, layerStats("test", true, testResult, testErr))
		if testErr == nil {
			mergeEvidence(evidence, testResult.Evidence)
			truncated = truncated || testResult.Truncated
		}
	}
	if cfg.Historical.Enabled {
		layers = append(layers, layerStats("historical", true, historicalResult, historicalErr))
		if historicalErr == nil {
			mergeEvidence(evidence, historicalResult.Evidence)
			truncated = truncated || historicalResult.Truncated
		}
	}

	seedIDSet := make(map[int64]bool, len(seedIDs))
	for _, id := range seedIDs {
		seedIDSet[id] = true
	}
	for id := range evidence {
		if seedIDSet[id] {
			delete(evidence, id)
		}
	}

	entryIDs := make([]int64, 0, len(evidence))
	for id := range evidence {
		entryIDs = append(entryIDs, id)
	}
	entrySymbols, err := o.store.SymbolsByIDs(ctx, entryIDs, cfg.Direct.Languages, graphVersion)
	if err != nil {
		return models.ImpactResult{}, err
	}
	symByID := make(map[int64]models.Symbol, len(entrySymbols))
	for _, s := range entrySymbols {
		symByID[s.ID] = s
	}

	entries := make([]models.ImpactEntry, 0, len(entryIDs))
	for _, id := range entryIDs {
		sym, ok := symByID[id]
		if !ok {
			continue // deleted or out of scope at this graph version; drop silently
		}
		sources := evidence[id]
		entry := models.ImpactEntry{
			SymbolID:   id,
			Qualname:   sym.Qualname,
			FilePath:   sym.FilePath,
			Distance:   minDistance(sources),
			Confidence: fuseEvidence(sources),
			Sources:    sources,
		}
		if cfg.IncludePaths && predecessor != nil {
			if _, hasDirect := predecessor[id]; hasDirect {
				entry.Path = reconstructPath(predecessor, id)
			}
		}
		if entry.Confidence >= cfg.MinConfidence {
			entries = append(entries, entry)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		di, dj := distanceOrInfinity(entries[i].Distance), distanceOrInfinity(entries[j].Distance)
		if di != dj {
			return di < dj
		}
		return entries[i].Qualname < entries[j].Qualname
	})

	return models.ImpactResult{
		Seeds:     seedIDs,
		Affected:  entries,
		Summary:   buildSummary(entries),
		Truncated: truncated,
		Layers:    layers,
	}, nil
}

func layerStats(name string, enabled bool, r LayerResult, err error) models.LayerStats {
	stats := models.LayerStats{
		Name:        name,
		Enabled:     enabled,
		DurationMS:  r.DurationMS,
		ResultCount: len(r.Evidence),
		Truncated:   r.Truncated,
	}
	if err != nil {
		stats.Error = err.Error()
	}
	return stats
}

func mergeEvidence(dst, src map[int64][]models.ImpactSource) {
	for id, sources := range src {
		dst[id] = append(dst[id], sources...)
	}
}

// minDistance returns the smallest direct-edge distance among sources, or
// nil if the symbol was only reached via a layer that doesn't define one
// (the relationship is then reported as TEST rather than a hop count).
func minDistance(sources []models.ImpactSource) *int {
	var best *int
	for _, s := range sources {
		if s.Distance == nil {
			continue
		}
		if best == nil || *s.Distance < *best {
			d := *s.Distance
			best = &d
		}
	}
	return best
}

func distanceOrInfinity(d *int) int {
	if d == nil {
		return int(^uint(0) >> 1) // max int: undated entries sort after every distance-bearing one
	}
	return *d
}

// buildSummary rolls up the affected set by file, relationship and distance,
// per spec: DIRECT at distance 1, INDIRECT_n beyond that, TEST for any entry
// with no direct-layer distance (its evidence is test-layer links and/or
// co-change rows only), SEED at distance 0 (excluded here since seeds are
// never part of the affected set).
func buildSummary(entries []models.ImpactEntry) models.ImpactSummary {
	summary := models.ImpactSummary{
		TotalAffected:  len(entries),
		ByFile:         map[string]int{},
		ByRelationship: map[string]int{},
		ByDistance:     map[int]int{},
	}
	for _, e := range entries {
		summary.ByFile[e.FilePath]++
		summary.ByRelationship[relationship(e)]++
		if e.Distance != nil {
			summary.ByDistance[*e.Distance]++
		}
	}
	return summary
}

func relationship(e models.ImpactEntry) string {
	if e.Distance == nil {
		return "TEST"
	}
	if *e.Distance == 1 {
		return "DIRECT"
	}
	return fmt.Sprintf("INDIRECT_%d", *e.Distance)
}

func dedupInt64(ids []int64) []int64 {
	seen := map[int64]bool{}
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
