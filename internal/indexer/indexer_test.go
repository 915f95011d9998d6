package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lidxdev/lidx/internal/config"
	"github.com/lidxdev/lidx/internal/extract"
	"github.com/lidxdev/lidx/internal/store"
)

func newTestIndexer(t *testing.T, repoRoot string) (*Indexer, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.sqlite"), 1, 0, nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg := config.BatchConfig{BatchSize: 100, FlushIntervalMS: 500, MaxMemoryMB: 10}
	ix := New(st, extract.NewRegistry(), repoRoot, cfg, nil)
	return ix, st
}

const goFileA = `package greeter

func Hello(name string) string {
	if name == "" {
		return "hello, world"
	}
	return "hello, " + name
}
`

const goFileB = `package greeter

func Greet(name string) string {
	return Hello(name)
}
`

func writeRepoFile(t *testing.T, root, relPath, contents string) {
	t.Helper()
	full := filepath.Join(root, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(contents), 0o644))
}

func TestReindex_IndexesSymbolsEdgesAndMetrics(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	writeRepoFile(t, root, "greeter/hello.go", goFileA)
	writeRepoFile(t, root, "greeter/greet.go", goFileB)

	ix, st := newTestIndexer(t, root)
	stats, err := ix.Reindex(ctx, nil, false)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Scanned)
	require.Equal(t, 2, stats.Indexed)
	require.True(t, stats.Symbols >= 2)

	helloFile, err := st.GetFileByPath(ctx, "greeter/hello.go")
	require.NoError(t, err)
	syms, err := st.SymbolsForFile(ctx, helloFile.ID)
	require.NoError(t, err)
	require.Len(t, syms, 2) // the file's module symbol, then Hello
	require.Equal(t, "Hello", syms[1].Name)
}

func TestReindex_IsIdempotentOnUnchangedContent(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	writeRepoFile(t, root, "greeter/hello.go", goFileA)

	ix, st := newTestIndexer(t, root)
	first, err := ix.Reindex(ctx, nil, false)
	require.NoError(t, err)
	require.Equal(t, 1, first.Indexed)

	second, err := ix.Reindex(ctx, nil, false)
	require.NoError(t, err)
	require.Equal(t, 1, second.Indexed)

	f, err := st.GetFileByPath(ctx, "greeter/hello.go")
	require.NoError(t, err)
	syms, err := st.SymbolsForFile(ctx, f.ID)
	require.NoError(t, err)
	require.Len(t, syms, 2)
	require.Equal(t, int64(2), syms[0].GraphVersion)
}

func TestReindex_MarksVanishedFilesDeleted(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	writeRepoFile(t, root, "greeter/hello.go", goFileA)

	ix, st := newTestIndexer(t, root)
	_, err := ix.Reindex(ctx, nil, false)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, "greeter/hello.go")))
	writeRepoFile(t, root, "greeter/greet.go", goFileB)

	stats, err := ix.Reindex(ctx, nil, false)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Deleted)

	f, err := st.GetFileByPath(ctx, "greeter/hello.go")
	require.NoError(t, err)
	require.NotNil(t, f.DeletedAt)
}

func TestSync_UpdatesSingleFileWithoutNewGraphVersion(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	writeRepoFile(t, root, "greeter/hello.go", goFileA)

	ix, st := newTestIndexer(t, root)
	_, err := ix.Reindex(ctx, nil, false)
	require.NoError(t, err)

	before, err := st.CurrentGraphVersion(ctx)
	require.NoError(t, err)

	writeRepoFile(t, root, "greeter/hello.go", goFileA+"\nfunc Extra() {}\n")
	stats, err := ix.Sync(ctx, []string{"greeter/hello.go"}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Indexed)

	after, err := st.CurrentGraphVersion(ctx)
	require.NoError(t, err)
	require.Equal(t, before, after)

	f, err := st.GetFileByPath(ctx, "greeter/hello.go")
	require.NoError(t, err)
	syms, err := st.SymbolsForFile(ctx, f.ID)
	require.NoError(t, err)
	require.Len(t, syms, 3)
}

func TestSync_MarksRemovedFileDeleted(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	writeRepoFile(t, root, "greeter/hello.go", goFileA)

	ix, st := newTestIndexer(t, root)
	_, err := ix.Reindex(ctx, nil, false)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, "greeter/hello.go")))
	stats, err := ix.Sync(ctx, []string{"greeter/hello.go"}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Deleted)

	f, err := st.GetFileByPath(ctx, "greeter/hello.go")
	require.NoError(t, err)
	require.NotNil(t, f.DeletedAt)
}

func TestChangedFiles_ReportsAddedModifiedAndDeletedWithoutWriting(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	writeRepoFile(t, root, "greeter/hello.go", goFileA)
	writeRepoFile(t, root, "greeter/greet.go", goFileB)

	ix, st := newTestIndexer(t, root)
	_, err := ix.Reindex(ctx, nil, false)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, "greeter/greet.go")))
	writeRepoFile(t, root, "greeter/hello.go", goFileA+"\n// trailing comment\n")
	writeRepoFile(t, root, "greeter/new.go", "package greeter\n\nfunc New() string { return \"\" }\n")

	changed, err := ix.ChangedFiles(ctx, nil)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"greeter/new.go"}, changed.Added)
	require.ElementsMatch(t, []string{"greeter/hello.go"}, changed.Modified)
	require.ElementsMatch(t, []string{"greeter/greet.go"}, changed.Deleted)

	// ChangedFiles must not itself write anything: the store's view is unchanged.
	f, err := st.GetFileByPath(ctx, "greeter/greet.go")
	require.NoError(t, err)
	require.Nil(t, f.DeletedAt)
}

func TestChangedFiles_FiltersByLanguage(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	writeRepoFile(t, root, "greeter/hello.go", goFileA)

	ix, _ := newTestIndexer(t, root)
	_, err := ix.Reindex(ctx, nil, false)
	require.NoError(t, err)

	writeRepoFile(t, root, "greeter/extra.py", "def extra():\n    pass\n")

	changed, err := ix.ChangedFiles(ctx, []string{"python"})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"greeter/extra.py"}, changed.Added)
}
