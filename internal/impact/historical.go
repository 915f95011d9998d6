package impact

import (
	"context"
	"time"

	"github.com/lidxdev/lidx/internal/models"
	"github.com/lidxdev/lidx/internal/store"
)

// HistoricalLayer surfaces symbols in files that have historically changed
// together with a seed's file, using co-change rows mined offline by a
// git-log scanner (see internal/git) and persisted to the co_changes table.
type HistoricalLayer struct {
	store *store.Store
}

// NewHistoricalLayer builds a HistoricalLayer over st.
func NewHistoricalLayer(st *store.Store) *HistoricalLayer {
	return &HistoricalLayer{store: st}
}

// Analyze fetches co-change rows touching any seed's file, expands each
// file-pair to a symbol-pair by joining the other file's live symbols, and
// emits one ImpactSourceCoChange per candidate symbol using the row's
// pre-mined confidence — keeping the maximum confidence when more than one
// seed's file co-changes with the same candidate. Every live symbol of a
// co-changed file is emitted, whether or not that symbol itself changed in
// the mined commits, so the result over-counts at symbol level.
func (h *HistoricalLayer) Analyze(ctx context.Context, seeds []models.Symbol, cfg HistoricalConfig, graphVersion int64) (LayerResult, error) {
	start := time.Now()
	result := newLayerResult("historical")
	if len(seeds) == 0 {
		return result, nil
	}

	seedPaths := map[string]bool{}
	seedIDs := map[int64]bool{}
	var paths []string
	for _, s := range seeds {
		seedIDs[s.ID] = true
		if s.FilePath == "" || seedPaths[s.FilePath] {
			continue
		}
		seedPaths[s.FilePath] = true
		paths = append(paths, s.FilePath)
	}
	if len(paths) == 0 {
		return result, nil
	}

	rows, err := h.store.CoChangesForFiles(ctx, paths, float64(cfg.MinOccurrences))
	if err != nil {
		return result, err
	}

	bestConfidence := map[int64]float64{}
	candidateFiles := map[string]float64{}
	for _, row := range rows {
		if seedPaths[row.FileA] && !seedPaths[row.FileB] {
			keepMax(candidateFiles, row.FileB, row.Confidence)
		}
		if seedPaths[row.FileB] && !seedPaths[row.FileA] {
			keepMax(candidateFiles, row.FileA, row.Confidence)
		}
	}

	for otherPath, confidence := range candidateFiles {
		file, err := h.store.GetFileByPath(ctx, otherPath)
		if err != nil {
			continue // file may have since been deleted or renamed out from under the mined row
		}
		symbols, err := h.store.SymbolsForFile(ctx, file.ID)
		if err != nil {
			return result, err
		}
		for _, sym := range symbols {
			if seedIDs[sym.ID] {
				continue
			}
			if existing, ok := bestConfidence[sym.ID]; !ok || confidence > existing {
				bestConfidence[sym.ID] = confidence
			}
		}
	}

	for symbolID, confidence := range bestConfidence {
		result.add(symbolID, models.ImpactSource{
			Kind:       models.ImpactSourceCoChange,
			Layer:      "historical",
			Confidence: confidence,
		})
	}

	result.DurationMS = time.Since(start).Milliseconds()
	return result, nil
}

func keepMax(m map[string]float64, key string, value float64) {
	if existing, ok := m[key]; !ok || value > existing {
		m[key] = value
	}
}
