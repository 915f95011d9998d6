package rpcapi

import (
	"context"
	"sort"

	apperrors "github.com/lidxdev/lidx/internal/errors"
	"github.com/lidxdev/lidx/internal/models"
)

// resolveSeed turns one SeedRef into a live symbol id at graphVersion. A ref
// that names neither id nor qualname is a client error (invalidParamsError);
// a ref that names one but it doesn't resolve to a live symbol is reported
// as a SkipReason per §7's not-found handling, not an exception.
func (s *Server) resolveSeed(ctx context.Context, ref SeedRef, seedIndex int, languages []string, graphVersion int64) (int64, *models.Symbol, *models.SkipReason, error) {
	switch {
	case ref.ID != nil:
		sym, err := s.store.GetSymbol(ctx, *ref.ID)
		if isNotFound(err) {
			idx := seedIndex
			return 0, nil, &models.SkipReason{
				SeedIndex: &idx,
				Code:      "not_found",
				Message:   "symbol id not found at this graph version",
			}, nil
		}
		if err != nil {
			return 0, nil, nil, err
		}
		return sym.ID, sym, nil, nil

	case ref.Qualname != nil:
		id, ok, err := s.store.LookupSymbolIDFuzzy(ctx, *ref.Qualname, languages, graphVersion)
		if err != nil {
			return 0, nil, nil, err
		}
		if !ok {
			idx := seedIndex
			return 0, nil, &models.SkipReason{
				SeedIndex:   &idx,
				Code:        "not_found",
				Message:     "qualname not found at this graph version",
				Suggestions: s.suggestQualnames(ctx, *ref.Qualname, languages, graphVersion),
			}, nil
		}
		sym, err := s.store.GetSymbol(ctx, id)
		if err != nil {
			return 0, nil, nil, err
		}
		return sym.ID, sym, nil, nil

	default:
		return 0, nil, nil, invalidParamsError("seed requires either id or qualname")
	}
}

// resolveSeeds resolves every ref in order, returning parallel slices of the
// ids that resolved and the skip reasons for the ones that didn't — callers
// proceed with whichever seeds resolved rather than failing the whole call.
func (s *Server) resolveSeeds(ctx context.Context, refs []SeedRef, languages []string, graphVersion int64) ([]int64, []models.SkipReason, error) {
	var ids []int64
	var skips []models.SkipReason
	for i, ref := range refs {
		id, _, skip, err := s.resolveSeed(ctx, ref, i, languages, graphVersion)
		if err != nil {
			return nil, nil, err
		}
		if skip != nil {
			skips = append(skips, *skip)
			continue
		}
		ids = append(ids, id)
	}
	return ids, skips, nil
}

func isNotFound(err error) bool {
	appErr, ok := err.(*apperrors.Error)
	return ok && appErr.Type == apperrors.ErrorTypeNotFound
}

// suggestQualnames finds up to three live qualnames closest to want by edit
// distance, candidates drawn from a substring search on want's last dotted
// segment (the store has no full qualname scan, so this mirrors the
// teacher's Levenshtein-based fuzzy signature matching over a narrowed
// candidate pool rather than the whole symbol table).
func (s *Server) suggestQualnames(ctx context.Context, want string, languages []string, graphVersion int64) []string {
	segment := lastSegment(want)
	if segment == "" {
		return nil
	}
	candidates, err := s.store.FindSymbolsByName(ctx, segment, 50, languages, graphVersion)
	if err != nil || len(candidates) == 0 {
		return nil
	}

	type scored struct {
		qualname string
		distance int
	}
	scoredCandidates := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		scoredCandidates = append(scoredCandidates, scored{qualname: c.Qualname, distance: editDistance(want, c.Qualname)})
	}
	sort.Slice(scoredCandidates, func(i, j int) bool {
		if scoredCandidates[i].distance != scoredCandidates[j].distance {
			return scoredCandidates[i].distance < scoredCandidates[j].distance
		}
		return scoredCandidates[i].qualname < scoredCandidates[j].qualname
	})

	limit := 3
	if len(scoredCandidates) < limit {
		limit = len(scoredCandidates)
	}
	out := make([]string, 0, limit)
	for _, c := range scoredCandidates[:limit] {
		out = append(out, c.qualname)
	}
	return out
}

func lastSegment(qualname string) string {
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

func editDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
