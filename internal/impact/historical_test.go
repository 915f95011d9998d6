package impact

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lidxdev/lidx/internal/models"
)

func TestHistoricalLayer_ProjectsFilePairToSymbolPair(t *testing.T) {
	st, version := newIndexedRepo(t)
	ctx := context.Background()

	hello := symbolByName(t, st, version, "Hello")
	now := time.Now()
	require.NoError(t, st.UpsertCoChange(ctx, models.CoChange{
		FileA:         "greeter/hello.go",
		FileB:         "greeter/greet.go",
		CoChangeCount: 5,
		TotalCommitsA: 6,
		TotalCommitsB: 6,
		Confidence:    0.8,
		LastCommitSHA: "deadbeef",
		LastCommitTS:  now,
		MinedAt:       now,
	}))

	layer := NewHistoricalLayer(st)
	result, err := layer.Analyze(ctx, []models.Symbol{hello}, DefaultHistoricalConfig(), version)
	require.NoError(t, err)

	greet := symbolByName(t, st, version, "Greet")
	sources, ok := result.Evidence[greet.ID]
	require.True(t, ok, "co-change between hello.go and greet.go should surface greet.go's symbols")
	require.Len(t, sources, 1)
	require.Equal(t, models.ImpactSourceCoChange, sources[0].Kind)
	require.Equal(t, 0.8, sources[0].Confidence)
}

func TestHistoricalLayer_NoCoChangeRowsReturnsEmpty(t *testing.T) {
	st, version := newIndexedRepo(t)
	ctx := context.Background()
	hello := symbolByName(t, st, version, "Hello")

	layer := NewHistoricalLayer(st)
	result, err := layer.Analyze(ctx, []models.Symbol{hello}, DefaultHistoricalConfig(), version)
	require.NoError(t, err)
	require.Empty(t, result.Evidence)
}
