package rpcapi

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lidxdev/lidx/internal/config"
	"github.com/lidxdev/lidx/internal/extract"
	"github.com/lidxdev/lidx/internal/impact"
	"github.com/lidxdev/lidx/internal/indexer"
	"github.com/lidxdev/lidx/internal/models"
	"github.com/lidxdev/lidx/internal/store"
)

const rpcTestFileA = `package greeter

func Hello(name string) string {
	return "hello, " + name
}
`

const rpcTestFileB = `package greeter

func Greet(name string) string {
	return Hello(name)
}
`

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "greeter"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "greeter", "hello.go"), []byte(rpcTestFileA), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "greeter", "greet.go"), []byte(rpcTestFileB), 0o644))

	st, err := store.Open(filepath.Join(t.TempDir(), "test.sqlite"), 1, 0, nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	batchCfg := config.BatchConfig{BatchSize: 100, FlushIntervalMS: 500, MaxMemoryMB: 10}
	ix := indexer.New(st, extract.NewRegistry(), root, batchCfg, nil)

	ctx := context.Background()
	_, err = ix.Reindex(ctx, nil, false)
	require.NoError(t, err)

	return New(st, ix, impact.New(st), nil), st
}

func symbolByName(t *testing.T, st *store.Store, name string) models.Symbol {
	t.Helper()
	version, err := st.CurrentGraphVersion(context.Background())
	require.NoError(t, err)
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

func TestServer_Reindex(t *testing.T) {
	s, _ := newTestServer(t)
	stats, err := s.Reindex(context.Background(), ReindexRequest{})
	require.NoError(t, err)
	require.Equal(t, 2, stats.Scanned)
}

func TestServer_ChangedFiles(t *testing.T) {
	s, _ := newTestServer(t)
	changed, err := s.ChangedFiles(context.Background(), ChangedFilesRequest{})
	require.NoError(t, err)
	require.Empty(t, changed.Added)
	require.Empty(t, changed.Modified)
	require.Empty(t, changed.Deleted)
}

func TestServer_AnalyzeImpact_ResolvesByQualname(t *testing.T) {
	s, st := newTestServer(t)
	hello := symbolByName(t, st, "Hello")

	result, skips, err := s.AnalyzeImpact(context.Background(), AnalyzeImpactRequest{
		Seeds:     []SeedRef{{Qualname: &hello.Qualname}},
		MaxDepth:  3,
		Direction: "both",
	})
	require.NoError(t, err)
	require.Empty(t, skips)
	require.NotEmpty(t, result.Affected)
	require.Equal(t, result.Summary.TotalAffected, len(result.Affected))
}

func TestServer_AnalyzeImpact_ResolvesByID(t *testing.T) {
	s, st := newTestServer(t)
	hello := symbolByName(t, st, "Hello")

	result, skips, err := s.AnalyzeImpact(context.Background(), AnalyzeImpactRequest{
		Seeds: []SeedRef{{ID: &hello.ID}},
	})
	require.NoError(t, err)
	require.Empty(t, skips)
	require.NotEmpty(t, result.Affected)
}

func TestServer_AnalyzeImpact_UnknownQualnameIsSkipReasonNotError(t *testing.T) {
	s, st := newTestServer(t)
	hello := symbolByName(t, st, "Hello")
	unknown := hello.Qualname + "DoesNotExist"

	result, skips, err := s.AnalyzeImpact(context.Background(), AnalyzeImpactRequest{
		Seeds: []SeedRef{{Qualname: &unknown}},
	})
	require.NoError(t, err)
	require.Empty(t, result.Affected)
	require.Len(t, skips, 1)
	require.Equal(t, "not_found", skips[0].Code)
}

func TestServer_AnalyzeImpact_RequiresIDOrQualname(t *testing.T) {
	s, _ := newTestServer(t)
	_, _, err := s.AnalyzeImpact(context.Background(), AnalyzeImpactRequest{
		Seeds: []SeedRef{{}},
	})
	require.Error(t, err)
}

func TestServer_ListGraphVersions(t *testing.T) {
	s, _ := newTestServer(t)
	_, err := s.Reindex(context.Background(), ReindexRequest{})
	require.NoError(t, err)

	resp, err := s.ListGraphVersions(context.Background(), ListGraphVersionsRequest{Limit: 10})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(resp.Versions), 2)
}

func TestServer_Subgraph(t *testing.T) {
	s, st := newTestServer(t)
	hello := symbolByName(t, st, "Hello")
	version, err := st.CurrentGraphVersion(context.Background())
	require.NoError(t, err)

	resp, skips, err := s.Subgraph(context.Background(), SubgraphRequest{
		StartRefs:    []SeedRef{{Qualname: &hello.Qualname}},
		Depth:        2,
		MaxNodes:     50,
		GraphVersion: &version,
	})
	require.NoError(t, err)
	require.Empty(t, skips)
	require.NotEmpty(t, resp.Nodes)
}

func TestServer_References(t *testing.T) {
	s, st := newTestServer(t)
	hello := symbolByName(t, st, "Hello")

	resp, skip, err := s.References(context.Background(), ReferencesRequest{
		Ref:       SeedRef{Qualname: &hello.Qualname},
		Direction: "upstream",
	})
	require.NoError(t, err)
	require.Nil(t, skip)
	require.Equal(t, hello.Qualname, resp.Symbol.Qualname)
	require.NotEmpty(t, resp.Incoming)
	require.Empty(t, resp.Outgoing)
}

func TestDispatch_MethodNotFound(t *testing.T) {
	s, _ := newTestServer(t)
	_, rpcErr := s.Dispatch(context.Background(), "bogus", nil)
	require.NotNil(t, rpcErr)
	require.Equal(t, codeMethodNotFound, rpcErr.Code)
}

func TestDispatch_Reindex(t *testing.T) {
	s, _ := newTestServer(t)
	raw, rpcErr := s.Dispatch(context.Background(), "reindex", []byte(`{}`))
	require.Nil(t, rpcErr)

	var stats struct {
		Scanned int `json:"scanned"`
	}
	require.NoError(t, json.Unmarshal(raw, &stats))
	require.Equal(t, 2, stats.Scanned)
}

func TestDispatch_AnalyzeImpact(t *testing.T) {
	s, st := newTestServer(t)
	hello := symbolByName(t, st, "Hello")

	params, err := json.Marshal(AnalyzeImpactRequest{
		Seeds: []SeedRef{{Qualname: &hello.Qualname}},
	})
	require.NoError(t, err)

	raw, rpcErr := s.Dispatch(context.Background(), "analyze_impact", params)
	require.Nil(t, rpcErr)

	var resp struct {
		Result struct {
			Affected []struct {
				Qualname string `json:"qualname"`
			} `json:"affected"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(raw, &resp))
	require.NotEmpty(t, resp.Result.Affected)
}
