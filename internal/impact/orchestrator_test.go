package impact

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lidxdev/lidx/internal/models"
)

func TestOrchestrator_DirectOnly_ExcludesSeedsAndPopulatesSummary(t *testing.T) {
	st, version := newIndexedRepo(t)
	ctx := context.Background()
	greet := symbolByName(t, st, version, "Greet")

	orch := New(st)
	result, err := orch.Analyze(ctx, []int64{greet.ID}, DirectOnly(), version)
	require.NoError(t, err)

	require.Equal(t, []int64{greet.ID}, result.Seeds)
	for _, entry := range result.Affected {
		require.NotEqual(t, greet.ID, entry.SymbolID)
	}
	require.Equal(t, len(result.Affected), result.Summary.TotalAffected)
	require.Len(t, result.Layers, 1)
	require.Equal(t, "direct", result.Layers[0].Name)
}

func TestOrchestrator_UnresolvedSeedFails(t *testing.T) {
	st, version := newIndexedRepo(t)
	ctx := context.Background()

	orch := New(st)
	_, err := orch.Analyze(ctx, []int64{999999}, DirectOnly(), version)
	require.Error(t, err)
}

func TestOrchestrator_MinConfidenceFiltersLowScores(t *testing.T) {
	st, version := newIndexedRepo(t)
	ctx := context.Background()
	hello := symbolByName(t, st, version, "Hello")

	orch := New(st)
	cfg := NewConfigBuilder().
		Direction(models.DirectionUpstream).
		MaxDepth(3).
		EnableTestLayer(false).
		EnableHistoricalLayer(false).
		MinConfidence(0.9).
		Build()

	result, err := orch.Analyze(ctx, []int64{hello.ID}, cfg, version)
	require.NoError(t, err)
	for _, entry := range result.Affected {
		require.GreaterOrEqual(t, entry.Confidence, 0.9)
	}
}
