package watch

import (
	"time"

	"github.com/lidxdev/lidx/internal/config"
)

// fileQueue routes incoming change paths into two priority bands: a path
// re-edited within the urgent window is promoted to urgent and always
// drained before normal paths, so an actively-edited file gets synced at
// low latency while background churn batches up behind it.
type fileQueue struct {
	urgent        []string
	normal        []string
	recentlyEdited map[string]time.Time
	urgentWindow  time.Duration
}

func newFileQueue(urgentWindow time.Duration) *fileQueue {
	return &fileQueue{
		recentlyEdited: make(map[string]time.Time),
		urgentWindow:   urgentWindow,
	}
}

// enqueue adds path to the appropriate band based on whether it was already
// edited once within the urgent window.
func (q *fileQueue) enqueue(path string) {
	isUrgent := false
	if last, ok := q.recentlyEdited[path]; ok {
		isUrgent = time.Since(last) < q.urgentWindow
	}
	q.recentlyEdited[path] = time.Now()

	if isUrgent {
		q.urgent = append(q.urgent, path)
	} else {
		q.normal = append(q.normal, path)
	}
}

// dequeue removes and returns the highest-priority pending path, urgent
// before normal, or ("", false) if both bands are empty.
func (q *fileQueue) dequeue() (string, bool) {
	if len(q.urgent) > 0 {
		p := q.urgent[0]
		q.urgent = q.urgent[1:]
		return p, true
	}
	if len(q.normal) > 0 {
		p := q.normal[0]
		q.normal = q.normal[1:]
		return p, true
	}
	return "", false
}

// drain dequeues every pending path in priority order.
func (q *fileQueue) drain() []string {
	out := make([]string, 0, q.len())
	for {
		p, ok := q.dequeue()
		if !ok {
			return out
		}
		out = append(out, p)
	}
}

func (q *fileQueue) len() int       { return len(q.urgent) + len(q.normal) }
func (q *fileQueue) isEmpty() bool  { return q.len() == 0 }
func (q *fileQueue) urgentCount() int { return len(q.urgent) }

func (q *fileQueue) clear() {
	q.urgent = nil
	q.normal = nil
}

// cleanupOldEntries drops recently-edited bookkeeping older than threshold,
// preventing recentlyEdited from growing unbounded across a long-lived
// watch session.
func (q *fileQueue) cleanupOldEntries(threshold time.Duration) {
	for path, last := range q.recentlyEdited {
		if time.Since(last) >= threshold {
			delete(q.recentlyEdited, path)
		}
	}
}

// computeDebounce picks the debounce duration for the current queue state:
// a single urgent file, or a small batch (below batch_threshold) containing
// any urgent file, gets the fast urgent_debounce; everything else gets the
// normal debounce.
func computeDebounce(q *fileQueue, cfg config.WatchConfig) time.Duration {
	total := q.len()
	urgent := q.urgentCount()

	if total == 1 && urgent == 1 {
		return cfg.UrgentDebounce()
	}
	if total > 0 && total < cfg.BatchThreshold && urgent > 0 {
		return cfg.UrgentDebounce()
	}
	return cfg.Debounce()
}
