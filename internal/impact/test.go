package impact

import (
	"context"
	"strings"
	"time"

	"github.com/lidxdev/lidx/internal/models"
	"github.com/lidxdev/lidx/internal/store"
)

// namingCandidateLimit bounds how many rows the forward substring lookup can
// return per seed, so a common name doesn't blow up a single seed's query
// cost. reverseScanLimit bounds the broad test-marker scan shared by the
// naming reverse pass and the proximity strategy.
const (
	namingCandidateLimit = 50
	reverseScanLimit     = 500
)

// TestLayer discovers test symbols related to a seed set via the four
// strategies in spec §4.7.2: call, import, naming, and proximity.
type TestLayer struct {
	store *store.Store
}

// NewTestLayer builds a TestLayer over st.
func NewTestLayer(st *store.Store) *TestLayer {
	return &TestLayer{store: st}
}

// Analyze runs every strategy against seeds and returns the union of test
// symbols discovered, each with the strategy/test-type evidence that found
// it (a test can be found by more than one strategy; each produces its own
// evidence entry so fusion sees all of them).
func (t *TestLayer) Analyze(ctx context.Context, seeds []models.Symbol, languages []string, graphVersion int64) (LayerResult, error) {
	start := time.Now()
	result := newLayerResult("test")
	if len(seeds) == 0 {
		return result, nil
	}

	seedIDs := make([]int64, len(seeds))
	seedByID := make(map[int64]models.Symbol, len(seeds))
	for i, s := range seeds {
		seedIDs[i] = s.ID
		seedByID[s.ID] = s
	}

	if err := t.callAndImportStrategies(ctx, seedIDs, seedByID, languages, graphVersion, &result); err != nil {
		return result, err
	}
	if err := t.namingStrategy(ctx, seeds, languages, graphVersion, &result); err != nil {
		return result, err
	}
	if err := t.proximityStrategy(ctx, seeds, languages, graphVersion, &result); err != nil {
		return result, err
	}

	result.DurationMS = time.Since(start).Milliseconds()
	return result, nil
}

// callAndImportStrategies covers strategies 1 and 2: any CALLS or IMPORTS
// edge whose target is a seed and whose source is a test symbol.
func (t *TestLayer) callAndImportStrategies(ctx context.Context, seedIDs []int64, seedByID map[int64]models.Symbol, languages []string, graphVersion int64, result *LayerResult) error {
	edgesBySeed, err := t.store.EdgesForSymbols(ctx, seedIDs, languages, graphVersion)
	if err != nil {
		return err
	}

	sourceIDSet := map[int64]bool{}
	for _, edges := range edgesBySeed {
		for _, e := range edges {
			if e.SourceSymbolID == nil {
				continue
			}
			switch e.Kind {
			case models.EdgeCalls, models.EdgeImports:
				sourceIDSet[*e.SourceSymbolID] = true
			}
		}
	}
	if len(sourceIDSet) == 0 {
		return nil
	}

	sourceIDs := make([]int64, 0, len(sourceIDSet))
	for id := range sourceIDSet {
		sourceIDs = append(sourceIDs, id)
	}
	sources, err := t.store.SymbolsByIDs(ctx, sourceIDs, languages, graphVersion)
	if err != nil {
		return err
	}
	sourceByID := make(map[int64]models.Symbol, len(sources))
	for _, s := range sources {
		sourceByID[s.ID] = s
	}

	for seedID, edges := range edgesBySeed {
		if _, isSeed := seedByID[seedID]; !isSeed {
			continue
		}
		for _, e := range edges {
			if e.TargetSymbolID == nil || *e.TargetSymbolID != seedID || e.SourceSymbolID == nil {
				continue
			}
			var strategy string
			switch e.Kind {
			case models.EdgeCalls:
				strategy = "call"
			case models.EdgeImports:
				strategy = "import"
			default:
				continue
			}

			src, ok := sourceByID[*e.SourceSymbolID]
			if !ok || !isTestSymbol(src.Language, src.Name, src.FilePath) {
				continue
			}

			result.add(src.ID, models.ImpactSource{
				Kind:       models.ImpactSourceTestLink,
				Layer:      "test",
				Strategy:   strategy,
				TestType:   classifyTestType(src.FilePath, src.Name),
				Confidence: testStrategyConfidence[strategy],
			})
		}
	}

	return nil
}

// namingStrategy constructs candidate test names for each seed and looks
// them up, plus a reverse scan over likely test symbols extracting their
// probable target name and matching it against the seed.
func (t *TestLayer) namingStrategy(ctx context.Context, seeds []models.Symbol, languages []string, graphVersion int64, result *LayerResult) error {
	for _, seed := range seeds {
		for _, candidate := range namingCandidates(seed.Name) {
			matches, err := t.store.FindSymbolsByName(ctx, candidate, namingCandidateLimit, languages, graphVersion)
			if err != nil {
				return err
			}
			for _, m := range matches {
				if m.Name != candidate || m.ID == seed.ID {
					continue
				}
				if !isTestSymbol(m.Language, m.Name, m.FilePath) {
					continue
				}
				if crossLanguageMismatch(seed.FilePath, m.FilePath) {
					continue
				}
				result.add(m.ID, models.ImpactSource{
					Kind:       models.ImpactSourceTestLink,
					Layer:      "test",
					Strategy:   "naming",
					TestType:   classifyTestType(m.FilePath, m.Name),
					Confidence: testStrategyConfidence["naming"],
				})
			}
		}
	}

	// Reverse scan: enumerate a broad pool of likely test symbols and see
	// whether stripping their test affixes recovers one of the seed names.
	candidatesByName := make(map[string]models.Symbol, len(seeds))
	for _, s := range seeds {
		candidatesByName[strings.ToLower(s.Name)] = s
	}

	seen := map[int64]models.Symbol{}
	for _, marker := range []string{"test", "Test", "Spec"} {
		matches, err := t.store.FindSymbolsByName(ctx, marker, reverseScanLimit, languages, graphVersion)
		if err != nil {
			return err
		}
		for _, m := range matches {
			seen[m.ID] = m
		}
	}

	for _, m := range seen {
		if !isTestSymbol(m.Language, m.Name, m.FilePath) {
			continue
		}
		targetName := strings.ToLower(extractTestTargetName(m.Name))
		seed, ok := candidatesByName[targetName]
		if !ok || seed.ID == m.ID {
			continue
		}
		if crossLanguageMismatch(seed.FilePath, m.FilePath) {
			continue
		}
		result.add(m.ID, models.ImpactSource{
			Kind:       models.ImpactSourceTestLink,
			Layer:      "test",
			Strategy:   "naming",
			TestType:   classifyTestType(m.FilePath, m.Name),
			Confidence: testStrategyConfidence["naming"],
		})
	}

	return nil
}

// proximityStrategy is the fallback catch-all: it scans a broad pool of
// symbols matching a generic test marker, independent of any naming
// correlation with the seed, and accepts a candidate purely on path-component
// overlap (at least two shared directories/basename components, stopwords
// removed) and same-language, per spec §4.7.2.4. This is deliberately
// broader than namingStrategy's reverse scan, which still requires the
// candidate's stripped name to match a seed name — proximity catches
// legitimate matches like `tests/auth/test_login.py:test_create_user` for
// seed `src/auth/login.py`, where the test symbol's name shares no
// substring with the seed's basename at all.
func (t *TestLayer) proximityStrategy(ctx context.Context, seeds []models.Symbol, languages []string, graphVersion int64, result *LayerResult) error {
	pool := map[int64]models.Symbol{}
	for _, marker := range []string{"test", "Test", "Spec"} {
		matches, err := t.store.FindSymbolsByName(ctx, marker, reverseScanLimit, languages, graphVersion)
		if err != nil {
			return err
		}
		for _, m := range matches {
			pool[m.ID] = m
		}
	}

	candidates := make([]models.Symbol, 0, len(pool))
	for _, m := range pool {
		if isTestSymbol(m.Language, m.Name, m.FilePath) {
			candidates = append(candidates, m)
		}
	}

	for _, seed := range seeds {
		seedComponents := extractPathComponents(seed.FilePath)
		seedLang := inferLanguage(seed.FilePath)

		for _, m := range candidates {
			if m.ID == seed.ID {
				continue
			}
			if seedLang != "" && inferLanguage(m.FilePath) != seedLang {
				continue
			}
			if sharedComponentCount(seedComponents, extractPathComponents(m.FilePath)) < 2 {
				continue
			}
			result.add(m.ID, models.ImpactSource{
				Kind:       models.ImpactSourceTestLink,
				Layer:      "test",
				Strategy:   "proximity",
				TestType:   classifyTestType(m.FilePath, m.Name),
				Confidence: testStrategyConfidence["proximity"],
			})
		}
	}
	return nil
}

// crossLanguageMismatch rejects a naming match when both paths map to a
// known, distinct language.
func crossLanguageMismatch(seedPath, candidatePath string) bool {
	seedLang := inferLanguage(seedPath)
	candidateLang := inferLanguage(candidatePath)
	return seedLang != "" && candidateLang != "" && seedLang != candidateLang
}
