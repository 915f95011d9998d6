package git

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func initRenamedRepo(t *testing.T) string {
	t.Helper()
	root := initTestRepo(t)
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = root
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "git %v: %s", args, out)
	}
	run("mv", "a.go", "moved_a.go")
	run("commit", "-q", "-m", "rename a.go")
	return root
}

func TestRenameResolver_CachesAndFindsHistoricalPath(t *testing.T) {
	root := initRenamedRepo(t)
	ctx := context.Background()

	resolver, err := NewRenameResolver(root, filepath.Join(t.TempDir(), "renames.bolt"))
	require.NoError(t, err)
	t.Cleanup(func() { resolver.Close() })

	paths, err := resolver.HistoricalPaths(ctx, "moved_a.go")
	require.NoError(t, err)
	require.Contains(t, paths, "moved_a.go")
	require.Contains(t, paths, "a.go")

	// Second call should be served from cache without erroring.
	paths2, err := resolver.HistoricalPaths(ctx, "moved_a.go")
	require.NoError(t, err)
	require.Equal(t, paths, paths2)
}

func TestRenameResolver_InvalidateForcesRefresh(t *testing.T) {
	root := initRenamedRepo(t)
	ctx := context.Background()

	resolver, err := NewRenameResolver(root, filepath.Join(t.TempDir(), "renames.bolt"))
	require.NoError(t, err)
	t.Cleanup(func() { resolver.Close() })

	_, err = resolver.HistoricalPaths(ctx, "moved_a.go")
	require.NoError(t, err)

	require.NoError(t, resolver.Invalidate("moved_a.go"))

	paths, err := resolver.HistoricalPaths(ctx, "moved_a.go")
	require.NoError(t, err)
	require.Contains(t, paths, "a.go")
}
