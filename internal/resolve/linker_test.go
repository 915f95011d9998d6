package resolve

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lidxdev/lidx/internal/models"
	"github.com/lidxdev/lidx/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.sqlite")
	st, err := store.Open(path, 1, 0, nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func addFile(t *testing.T, ctx context.Context, st *store.Store, path string, graphVersion int64) int64 {
	t.Helper()
	id, err := st.UpsertFile(ctx, path, "hash-"+path, "python", 10, time.Now(), graphVersion)
	require.NoError(t, err)
	return id
}

func addSymbol(t *testing.T, ctx context.Context, st *store.Store, fileID int64, qualname string, graphVersion int64) models.Symbol {
	t.Helper()
	diff := models.SymbolDiff{Added: []models.Symbol{{
		StableID: "sym_" + qualname,
		Kind:     models.SymbolKindFunction,
		Name:     qualname,
		Qualname: qualname,
	}}}
	syms, err := st.UpdateFileSymbols(ctx, fileID, diff, graphVersion, nil)
	require.NoError(t, err)
	for _, s := range syms {
		if s.Qualname == qualname {
			return s
		}
	}
	t.Fatalf("symbol %s not found after insert", qualname)
	return models.Symbol{}
}

func TestLinker_ResolvesUnresolvedTargetByExactQualname(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	callerFile := addFile(t, ctx, st, "caller.py", 1)
	calleeFile := addFile(t, ctx, st, "callee.py", 1)
	caller := addSymbol(t, ctx, st, callerFile, "caller.main", 1)
	addSymbol(t, ctx, st, calleeFile, "callee.target", 1)

	symbolMap := map[string]int64{"caller.main": caller.ID}
	_, err := st.InsertEdges(ctx, callerFile, []models.EdgeInput{{
		Kind: models.EdgeCalls, SourceQualname: "caller.main", TargetQualname: "callee.target",
	}}, symbolMap, 1, nil)
	require.NoError(t, err)

	linker := New(st, nil)
	stats, err := linker.Link(ctx, 1, nil)
	require.NoError(t, err)
	require.Equal(t, 1, stats.QualnameResolved)

	edges, err := st.EdgesForSymbols(ctx, []int64{caller.ID}, nil, 1)
	require.NoError(t, err)
	require.Len(t, edges[caller.ID], 1)
	require.NotNil(t, edges[caller.ID][0].TargetSymbolID)
}

func TestLinker_SynthesizesXrefForMatchingChannelNames(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	pubFile := addFile(t, ctx, st, "publisher.py", 1)
	subFile := addFile(t, ctx, st, "subscriber.py", 1)
	publisher := addSymbol(t, ctx, st, pubFile, "publisher.send", 1)
	subscriber := addSymbol(t, ctx, st, subFile, "subscriber.on_event", 1)

	pubDetail := map[string]any{"channel": "channel://ordercreated", "raw": "Topics.OrderCreated", "role": "publisher"}
	subDetail := map[string]any{"channel": "channel://ordercreated", "raw": "OrderCreated", "role": "subscriber"}

	_, err := st.InsertEdges(ctx, pubFile, []models.EdgeInput{{
		Kind: models.EdgeChannelPublish, SourceQualname: "publisher.send", TargetQualname: "channel://ordercreated", Detail: pubDetail,
	}}, map[string]int64{"publisher.send": publisher.ID}, 1, nil)
	require.NoError(t, err)

	_, err = st.InsertEdges(ctx, subFile, []models.EdgeInput{{
		Kind: models.EdgeChannelSubscribe, SourceQualname: "subscriber.on_event", TargetQualname: "channel://ordercreated", Detail: subDetail,
	}}, map[string]int64{"subscriber.on_event": subscriber.ID}, 1, nil)
	require.NoError(t, err)

	linker := New(st, nil)
	stats, err := linker.Link(ctx, 1, nil)
	require.NoError(t, err)
	require.Equal(t, 1, stats.XrefCreated)

	exists, err := st.EdgeExists(ctx, models.EdgeXref, publisher.ID, subscriber.ID)
	require.NoError(t, err)
	require.True(t, exists)
}

func TestLinker_SecondPassDoesNotDuplicateXref(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	pubFile := addFile(t, ctx, st, "publisher.py", 1)
	subFile := addFile(t, ctx, st, "subscriber.py", 1)
	publisher := addSymbol(t, ctx, st, pubFile, "publisher.send", 1)
	subscriber := addSymbol(t, ctx, st, subFile, "subscriber.on_event", 1)

	detail := map[string]any{"channel": "channel://x"}
	_, err := st.InsertEdges(ctx, pubFile, []models.EdgeInput{{
		Kind: models.EdgeChannelPublish, SourceQualname: "publisher.send", TargetQualname: "channel://x", Detail: detail,
	}}, map[string]int64{"publisher.send": publisher.ID}, 1, nil)
	require.NoError(t, err)
	_, err = st.InsertEdges(ctx, subFile, []models.EdgeInput{{
		Kind: models.EdgeChannelSubscribe, SourceQualname: "subscriber.on_event", TargetQualname: "channel://x", Detail: detail,
	}}, map[string]int64{"subscriber.on_event": subscriber.ID}, 1, nil)
	require.NoError(t, err)

	linker := New(st, nil)
	first, err := linker.Link(ctx, 1, nil)
	require.NoError(t, err)
	require.Equal(t, 1, first.XrefCreated)

	second, err := linker.Link(ctx, 1, nil)
	require.NoError(t, err)
	require.Equal(t, 0, second.XrefCreated)
}
