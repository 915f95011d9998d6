// Package batch accumulates per-file symbol diffs and decides when to flush
// them as a single store transaction instead of one transaction per file.
package batch

import (
	"time"

	"github.com/lidxdev/lidx/internal/config"
	"github.com/lidxdev/lidx/internal/models"
)

// bytesPerSymbol and bytesPerDeletion are the same rough per-entry memory
// estimates the flush-trigger arithmetic uses upstream: a kept symbol
// carries qualname/signature/docstring text, a deletion only a stable id.
const (
	bytesPerSymbol   = 200
	bytesPerDeletion = 50
)

// Writer collects FileDiffs from multiple files and exposes three
// independent flush triggers: batch size, elapsed time, and estimated
// memory. Callers drive the loop themselves:
//
//	w := batch.NewWriter(cfg)
//	for _, fd := range diffs {
//	    w.Add(fd)
//	    if w.ShouldFlush() {
//	        store.UpdateFilesSymbolsBatch(ctx, w.Take())
//	    }
//	}
//	if !w.IsEmpty() {
//	    store.UpdateFilesSymbolsBatch(ctx, w.Take())
//	}
//
// Writer is not safe for concurrent use; callers that parallelize
// extraction should serialize calls to Add/ShouldFlush/Take themselves.
type Writer struct {
	cfg               config.BatchConfig
	pending           []models.FileDiff
	lastFlush         time.Time
	estimatedMemBytes int64
}

// NewWriter creates a batch writer using cfg's configured thresholds.
func NewWriter(cfg config.BatchConfig) *Writer {
	return &Writer{cfg: cfg, lastFlush: time.Now()}
}

// Add appends a file diff to the pending batch and updates the running
// memory estimate.
func (w *Writer) Add(fd models.FileDiff) {
	w.estimatedMemBytes += estimateDiffMemory(fd.Diff)
	w.pending = append(w.pending, fd)
}

// ShouldFlush reports whether any configured trigger has fired. An empty
// writer never needs to flush.
func (w *Writer) ShouldFlush() bool {
	if len(w.pending) == 0 {
		return false
	}
	if len(w.pending) >= w.cfg.BatchSize {
		return true
	}
	if time.Since(w.lastFlush) >= w.cfg.FlushInterval() {
		return true
	}
	if w.estimatedMemBytes >= w.cfg.MaxMemoryBytes() {
		return true
	}
	return false
}

// Take returns the pending diffs and resets the writer for the next batch.
func (w *Writer) Take() []models.FileDiff {
	out := w.pending
	w.pending = nil
	w.estimatedMemBytes = 0
	w.lastFlush = time.Now()
	return out
}

// PendingCount returns the number of file diffs currently queued.
func (w *Writer) PendingCount() int { return len(w.pending) }

// EstimatedMemory returns the current estimated memory usage in bytes.
func (w *Writer) EstimatedMemory() int64 { return w.estimatedMemBytes }

// IsEmpty reports whether the writer has no pending diffs.
func (w *Writer) IsEmpty() bool { return len(w.pending) == 0 }

func estimateDiffMemory(d models.SymbolDiff) int64 {
	added := int64(len(d.Added)) * bytesPerSymbol
	modified := int64(len(d.Modified)) * bytesPerSymbol
	deleted := int64(len(d.Deleted)) * bytesPerDeletion
	return added + modified + deleted
}
