// Package impact implements the multi-layer impact analysis engine: a
// direct BFS layer over the symbol graph, a test layer that links tests to
// the code they exercise, and a historical layer over mined co-change data,
// fused into one ranked, deduplicated result set.
package impact

import "github.com/lidxdev/lidx/internal/models"

// decayFactor is the per-hop multiplicative falloff applied to the direct
// layer's base confidence as BFS distance grows.
const decayFactor = 0.9

// directBaseConfidence is the confidence assigned to a distance-1 direct edge
// before decay.
const directBaseConfidence = 0.95

// maxMultiSourceConfidence caps the fused confidence when three or more
// independent sources agree, since correlated evidence (e.g. a call edge and
// a co-change row pointing at the same pair) shouldn't compound to near-1.0.
const maxMultiSourceConfidence = 0.95

// testStrategyConfidence maps a test-layer discovery strategy to its fused
// confidence value (spec §4.7.2; the import strategy's nominal 0.90 is
// represented here as 0.70, the value actually used for fusion).
var testStrategyConfidence = map[string]float64{
	"call":     0.95,
	"import":   0.70,
	"naming":   0.60,
	"proximity": 0.40,
}

// applyDistanceDecay multiplies base by decayFactor raised to distance,
// matching the exponential falloff used to discount indirect direct-layer
// hits relative to immediate neighbours.
func applyDistanceDecay(base float64, distance int) float64 {
	result := base
	for i := 0; i < distance; i++ {
		result *= decayFactor
	}
	return result
}

// confidenceFromSource maps one piece of evidence to its scalar confidence,
// before fusion: DirectEdge decays with distance from the base confidence,
// TestLink looks up its strategy's fixed value (falling back to 0.5 for an
// unrecognized strategy), and CoChange uses its own pre-mined frequency.
func confidenceFromSource(src models.ImpactSource) float64 {
	switch src.Kind {
	case models.ImpactSourceDirectEdge:
		distance := 1
		if src.Distance != nil {
			distance = *src.Distance
		}
		return applyDistanceDecay(directBaseConfidence, distance)
	case models.ImpactSourceTestLink:
		if c, ok := testStrategyConfidence[src.Strategy]; ok {
			return c
		}
		return 0.5
	case models.ImpactSourceCoChange:
		return src.Confidence
	default:
		return 0
	}
}

// fuseConfidenceNoisyOr combines independent confidences assuming each is an
// independent probability of "this symbol really is impacted": the fused
// probability that at least one source is right is 1 - Π(1 - cᵢ).
func fuseConfidenceNoisyOr(scores []float64) float64 {
	product := 1.0
	for _, c := range scores {
		product *= 1 - c
	}
	return 1 - product
}

// fuseConfidenceWithDampening runs Noisy-OR fusion, then caps the result at
// maxMultiSourceConfidence whenever three or more sources agree — avoiding a
// near-certain score from evidence that may all trace back to one underlying
// correlated signal (e.g. a symbol that is both called by and co-changes
// with every seed in a large refactor).
func fuseConfidenceWithDampening(scores []float64) float64 {
	fused := fuseConfidenceNoisyOr(scores)
	if len(scores) >= 3 && fused > maxMultiSourceConfidence {
		return maxMultiSourceConfidence
	}
	return fused
}

// fuseEvidence converts a symbol's full evidence list into one fused
// confidence score.
func fuseEvidence(evidence []models.ImpactSource) float64 {
	scores := make([]float64, 0, len(evidence))
	for _, e := range evidence {
		scores = append(scores, confidenceFromSource(e))
	}
	return fuseConfidenceWithDampening(scores)
}
