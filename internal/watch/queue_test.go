package watch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lidxdev/lidx/internal/config"
)

func TestFileQueue_NewFileGoesToNormal(t *testing.T) {
	q := newFileQueue(time.Minute)
	q.enqueue("file.go")

	assert.Equal(t, 1, q.len())
	assert.Equal(t, 0, q.urgentCount())
	p, ok := q.dequeue()
	require.True(t, ok)
	assert.Equal(t, "file.go", p)
}

func TestFileQueue_RecentlyEditedGoesToUrgent(t *testing.T) {
	q := newFileQueue(time.Minute)

	q.enqueue("file.go")
	assert.Equal(t, 0, q.urgentCount())
	q.dequeue()

	q.enqueue("file.go")
	assert.Equal(t, 1, q.urgentCount())
}

func TestFileQueue_UrgentDequeuedFirst(t *testing.T) {
	q := newFileQueue(time.Minute)

	q.enqueue("urgent.go")
	q.dequeue()
	q.enqueue("urgent.go")

	q.enqueue("normal.go")

	assert.Equal(t, 2, q.len())
	assert.Equal(t, 1, q.urgentCount())

	first, ok := q.dequeue()
	require.True(t, ok)
	assert.Equal(t, "urgent.go", first)

	second, ok := q.dequeue()
	require.True(t, ok)
	assert.Equal(t, "normal.go", second)

	_, ok = q.dequeue()
	assert.False(t, ok)
}

func TestFileQueue_Clear(t *testing.T) {
	q := newFileQueue(time.Minute)
	q.enqueue("a.go")
	q.enqueue("b.go")

	assert.Equal(t, 2, q.len())
	q.clear()
	assert.Equal(t, 0, q.len())
	assert.True(t, q.isEmpty())
}

func TestFileQueue_CleanupOldEntries(t *testing.T) {
	q := newFileQueue(100 * time.Millisecond)
	q.enqueue("file.go")
	assert.Len(t, q.recentlyEdited, 1)

	time.Sleep(150 * time.Millisecond)
	q.cleanupOldEntries(100 * time.Millisecond)
	assert.Len(t, q.recentlyEdited, 0)
}

func TestFileQueue_UrgentWindowExpiry(t *testing.T) {
	q := newFileQueue(50 * time.Millisecond)
	q.enqueue("file.go")
	q.dequeue()

	time.Sleep(100 * time.Millisecond)

	q.enqueue("file.go")
	assert.Equal(t, 0, q.urgentCount())
}

func TestComputeDebounce_SingleUrgentFile(t *testing.T) {
	q := newFileQueue(time.Minute)
	cfg := config.Default().Watch

	q.enqueue("file.go")
	q.dequeue()
	q.enqueue("file.go")

	assert.Equal(t, cfg.UrgentDebounce(), computeDebounce(q, cfg))
}

func TestComputeDebounce_SmallBatchWithUrgent(t *testing.T) {
	q := newFileQueue(time.Minute)
	cfg := config.Default().Watch
	cfg.BatchThreshold = 10

	for i := 0; i < 3; i++ {
		path := "file" + string(rune('a'+i)) + ".go"
		q.enqueue(path)
		q.dequeue()
		q.enqueue(path)
	}

	assert.Equal(t, cfg.UrgentDebounce(), computeDebounce(q, cfg))
}

func TestComputeDebounce_LargeBatch(t *testing.T) {
	q := newFileQueue(time.Minute)
	cfg := config.Default().Watch
	cfg.BatchThreshold = 10

	for i := 0; i < 15; i++ {
		q.enqueue("file" + string(rune('a'+i)) + ".go")
	}

	assert.Equal(t, cfg.Debounce(), computeDebounce(q, cfg))
}

func TestComputeDebounce_NormalFiles(t *testing.T) {
	q := newFileQueue(time.Minute)
	cfg := config.Default().Watch

	for i := 0; i < 3; i++ {
		q.enqueue("file" + string(rune('a'+i)) + ".go")
	}

	assert.Equal(t, cfg.Debounce(), computeDebounce(q, cfg))
}
