package batch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lidxdev/lidx/internal/config"
	"github.com/lidxdev/lidx/internal/models"
)

func diffWithSymbols(added, modified, deleted int) models.SymbolDiff {
	var d models.SymbolDiff
	for i := 0; i < added; i++ {
		d.Added = append(d.Added, models.Symbol{})
	}
	for i := 0; i < modified; i++ {
		d.Modified = append(d.Modified, models.Symbol{})
	}
	for i := 0; i < deleted; i++ {
		d.Deleted = append(d.Deleted, models.Symbol{})
	}
	return d
}

func TestShouldFlush_OnBatchSize(t *testing.T) {
	cfg := config.BatchConfig{BatchSize: 2, FlushIntervalMS: 9_999_999, MaxMemoryMB: 1 << 20}
	w := NewWriter(cfg)

	w.Add(models.FileDiff{FileID: 1, FilePath: "test.py"})
	assert.False(t, w.ShouldFlush())

	w.Add(models.FileDiff{FileID: 2, FilePath: "test2.py"})
	assert.True(t, w.ShouldFlush())
}

func TestShouldFlush_OnTimeout(t *testing.T) {
	cfg := config.BatchConfig{BatchSize: 1000, FlushIntervalMS: 10, MaxMemoryMB: 1 << 20}
	w := NewWriter(cfg)

	w.Add(models.FileDiff{FileID: 1, FilePath: "test.py"})
	assert.False(t, w.ShouldFlush())

	time.Sleep(15 * time.Millisecond)
	assert.True(t, w.ShouldFlush())
}

func TestShouldFlush_OnMemoryLimit(t *testing.T) {
	cfg := config.BatchConfig{BatchSize: 1000, FlushIntervalMS: 9_999_999, MaxMemoryMB: 0}
	w := NewWriter(cfg)

	// 10 added symbols at 200 bytes each exceeds a zero-byte memory cap.
	w.Add(models.FileDiff{FileID: 1, FilePath: "test.py", Diff: diffWithSymbols(10, 0, 0)})
	assert.True(t, w.ShouldFlush())
}

func TestTake_ResetsWriter(t *testing.T) {
	cfg := config.BatchConfig{BatchSize: 100, FlushIntervalMS: 500, MaxMemoryMB: 10}
	w := NewWriter(cfg)

	w.Add(models.FileDiff{FileID: 1, FilePath: "a.py", Diff: diffWithSymbols(1, 0, 0)})
	w.Add(models.FileDiff{FileID: 2, FilePath: "b.py", Diff: diffWithSymbols(0, 1, 0)})
	require.Equal(t, 2, w.PendingCount())

	batch := w.Take()
	assert.Len(t, batch, 2)
	assert.True(t, w.IsEmpty())
	assert.Equal(t, int64(0), w.EstimatedMemory())
}

func TestIsEmpty_InitiallyTrue(t *testing.T) {
	w := NewWriter(config.Default().Batch)
	assert.True(t, w.IsEmpty())
	assert.False(t, w.ShouldFlush())
}

func TestEstimateDiffMemory_WeightsDeletionsLighter(t *testing.T) {
	symbolHeavy := estimateDiffMemory(diffWithSymbols(1, 0, 0))
	deletionHeavy := estimateDiffMemory(diffWithSymbols(0, 0, 1))
	assert.Equal(t, int64(bytesPerSymbol), symbolHeavy)
	assert.Equal(t, int64(bytesPerDeletion), deletionHeavy)
	assert.Less(t, deletionHeavy, symbolHeavy)
}
