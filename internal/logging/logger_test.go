package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewLogger_WritesRunFile(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(Config{Level: INFO, Dir: dir, RunID: "abc123"})
	require.NoError(t, err)
	t.Cleanup(func() { logger.Close() })

	logger.Info("hello", "k", "v")

	path := filepath.Join(dir, "lidx_abc123.log")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "hello")
}

func TestNewLogger_StdoutOnlyWithNoDir(t *testing.T) {
	logger, err := NewLogger(Config{Level: INFO})
	require.NoError(t, err)
	require.Nil(t, logger.file)
}

func TestPruneOldRuns_KeepsNewestOnly(t *testing.T) {
	dir := t.TempDir()

	for i, name := range []string{"lidx_a.log", "lidx_b.log", "lidx_c.log"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
		modTime := time.Now().Add(time.Duration(i) * time.Second)
		require.NoError(t, os.Chtimes(path, modTime, modTime))
	}

	require.NoError(t, pruneOldRuns(dir, 1))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "lidx_c.log", entries[0].Name())
}

