package impact

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lidxdev/lidx/internal/config"
	"github.com/lidxdev/lidx/internal/extract"
	"github.com/lidxdev/lidx/internal/indexer"
	"github.com/lidxdev/lidx/internal/models"
	"github.com/lidxdev/lidx/internal/store"
)

const directTestFileA = `package greeter

func Hello(name string) string {
	if name == "" {
		return "hello, world"
	}
	return "hello, " + name
}
`

const directTestFileB = `package greeter

func Greet(name string) string {
	return Hello(name)
}
`

func newIndexedRepo(t *testing.T) (*store.Store, int64) {
	t.Helper()
	root := t.TempDir()
	for relPath, contents := range map[string]string{
		"greeter/hello.go": directTestFileA,
		"greeter/greet.go": directTestFileB,
	} {
		full := filepath.Join(root, relPath)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(contents), 0o644))
	}

	st, err := store.Open(filepath.Join(t.TempDir(), "test.sqlite"), 1, 0, nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg := config.BatchConfig{BatchSize: 100, FlushIntervalMS: 500, MaxMemoryMB: 10}
	ix := indexer.New(st, extract.NewRegistry(), root, cfg, nil)
	_, err = ix.Reindex(context.Background(), nil, false)
	require.NoError(t, err)

	version, err := st.CurrentGraphVersion(context.Background())
	require.NoError(t, err)
	return st, version
}

func symbolByName(t *testing.T, st *store.Store, version int64, name string) models.Symbol {
	t.Helper()
	matches, err := st.FindSymbolsByName(context.Background(), name, 10, nil, version)
	require.NoError(t, err)
	for _, m := range matches {
		if m.Name == name {
			return m
		}
	}
	t.Fatalf("symbol %s not found", name)
	return models.Symbol{}
}

func TestDirectLayer_DownstreamFollowsCallee(t *testing.T) {
	st, version := newIndexedRepo(t)
	greet := symbolByName(t, st, version, "Greet")

	layer := NewDirectLayer(st)
	cfg := DefaultDirectConfig()
	cfg.Direction = models.DirectionDownstream
	result, _, err := layer.Analyze(context.Background(), []int64{greet.ID}, cfg, 1000, version)
	require.NoError(t, err)

	hello := symbolByName(t, st, version, "Hello")
	_, reached := result.Evidence[hello.ID]
	require.True(t, reached, "downstream BFS from Greet should reach Hello via the CALLS edge")
}

func TestDirectLayer_UpstreamFollowsCaller(t *testing.T) {
	st, version := newIndexedRepo(t)
	hello := symbolByName(t, st, version, "Hello")

	layer := NewDirectLayer(st)
	cfg := DefaultDirectConfig()
	cfg.Direction = models.DirectionUpstream
	result, _, err := layer.Analyze(context.Background(), []int64{hello.ID}, cfg, 1000, version)
	require.NoError(t, err)

	greet := symbolByName(t, st, version, "Greet")
	_, reached := result.Evidence[greet.ID]
	require.True(t, reached, "upstream BFS from Hello should reach its caller Greet")
}

func TestDirectLayer_ExcludesSeedsFromResult(t *testing.T) {
	st, version := newIndexedRepo(t)
	greet := symbolByName(t, st, version, "Greet")

	layer := NewDirectLayer(st)
	cfg := DefaultDirectConfig()
	cfg.Direction = models.DirectionBoth
	result, _, err := layer.Analyze(context.Background(), []int64{greet.ID}, cfg, 1000, version)
	require.NoError(t, err)

	_, seedPresent := result.Evidence[greet.ID]
	require.False(t, seedPresent)
}

func TestDirectLayer_DepthMonotonicity(t *testing.T) {
	st, version := newIndexedRepo(t)
	hello := symbolByName(t, st, version, "Hello")

	layer := NewDirectLayer(st)

	shallow := DefaultDirectConfig()
	shallow.Direction = models.DirectionUpstream
	shallow.MaxDepth = 1
	shallowResult, _, err := layer.Analyze(context.Background(), []int64{hello.ID}, shallow, 1000, version)
	require.NoError(t, err)

	deep := DefaultDirectConfig()
	deep.Direction = models.DirectionUpstream
	deep.MaxDepth = 3
	deepResult, _, err := layer.Analyze(context.Background(), []int64{hello.ID}, deep, 1000, version)
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(deepResult.Evidence), len(shallowResult.Evidence))
}
