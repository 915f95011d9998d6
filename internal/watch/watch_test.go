package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lidxdev/lidx/internal/config"
	"github.com/lidxdev/lidx/internal/extract"
	"github.com/lidxdev/lidx/internal/indexer"
	"github.com/lidxdev/lidx/internal/store"
)

const watchTestFile = `package greeter

func Hello(name string) string {
	return "hello, " + name
}
`

func newTestWatcher(t *testing.T, root string, cfg config.WatchConfig) (*Watcher, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.sqlite"), 1, 0, nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	batchCfg := config.BatchConfig{BatchSize: 100, FlushIntervalMS: 500, MaxMemoryMB: 10}
	ix := indexer.New(st, extract.NewRegistry(), root, batchCfg, nil)
	w := New(root, ix, st, cfg, nil)
	return w, st
}

func TestWatcher_BootstrapsIndexOnFirstRun(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "hello.go"), []byte(watchTestFile), 0o644))

	cfg := config.Default().Watch
	cfg.Mode = "auto"
	cfg.Bootstrap = true
	w, st := newTestWatcher(t, root, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, ok, err := st.GetMeta(context.Background(), "last_indexed")
		return err == nil && ok
	}, 5*time.Second, 20*time.Millisecond, "watch loop should bootstrap an initial reindex")

	f, err := st.GetFileByPath(context.Background(), "hello.go")
	require.NoError(t, err)
	require.NotNil(t, f)

	w.Stop()
	require.NoError(t, <-done)
}

func TestWatcher_SyncsFileCreatedAfterStart(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "hello.go"), []byte(watchTestFile), 0o644))

	cfg := config.Default().Watch
	cfg.Mode = "auto"
	cfg.Bootstrap = true
	cfg.DebounceMS = 50
	cfg.UrgentDebounceMS = 10
	w, st := newTestWatcher(t, root, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, ok, _ := st.GetMeta(context.Background(), "last_indexed")
		return ok
	}, 5*time.Second, 20*time.Millisecond, "initial bootstrap should complete")

	require.NoError(t, os.WriteFile(filepath.Join(root, "greet.go"), []byte(
		"package greeter\n\nfunc Greet(name string) string { return Hello(name) }\n"), 0o644))

	require.Eventually(t, func() bool {
		f, err := st.GetFileByPath(context.Background(), "greet.go")
		return err == nil && f != nil
	}, 10*time.Second, 50*time.Millisecond, "watch loop should pick up the new file via fsnotify or fallback scan")

	w.Stop()
	require.NoError(t, <-done)
}

func TestWatcher_OffModeReturnsImmediately(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default().Watch
	cfg.Mode = "off"
	w, _ := newTestWatcher(t, root, cfg)

	err := w.Run(context.Background())
	require.NoError(t, err)
}
