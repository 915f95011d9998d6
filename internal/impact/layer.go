package impact

import "github.com/lidxdev/lidx/internal/models"

// LayerResult is what each of the three impact layers returns: the evidence
// it found, keyed by the symbol id it implicates, plus its own execution
// stats. The orchestrator merges these across layers and fuses confidences.
type LayerResult struct {
	LayerName  string
	Evidence   map[int64][]models.ImpactSource
	DurationMS int64
	Truncated  bool
}

func newLayerResult(name string) LayerResult {
	return LayerResult{LayerName: name, Evidence: map[int64][]models.ImpactSource{}}
}

func (r *LayerResult) add(symbolID int64, source models.ImpactSource) {
	r.Evidence[symbolID] = append(r.Evidence[symbolID], source)
}

func intPtr(v int) *int {
	return &v
}

func kindAllowed(allowed []models.EdgeKind, kind models.EdgeKind) bool {
	for _, k := range allowed {
		if k == kind {
			return true
		}
	}
	return false
}
