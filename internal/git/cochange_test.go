package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lidxdev/lidx/internal/store"
)

// initTestRepo creates a throwaway git repository with a handful of commits
// that co-change two files (a.go, b.go) and leave a third (c.go) isolated,
// so the miner has both a pair to find and a pair to correctly omit.
func initTestRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = root
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com")
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "git %v: %s", args, out)
	}

	run("init", "-q")
	run("config", "commit.gpgsign", "false")

	writeAndCommit := func(files map[string]string, msg string) {
		for rel, contents := range files {
			full := filepath.Join(root, rel)
			require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
			require.NoError(t, os.WriteFile(full, []byte(contents), 0o644))
		}
		run("add", "-A")
		run("commit", "-q", "-m", msg)
	}

	writeAndCommit(map[string]string{"a.go": "package a\n", "b.go": "package b\n"}, "initial")
	writeAndCommit(map[string]string{"a.go": "package a\n\nfunc A() {}\n", "b.go": "package b\n\nfunc B() {}\n"}, "evolve a and b together")
	writeAndCommit(map[string]string{"a.go": "package a\n\nfunc A() int { return 1 }\n", "b.go": "package b\n\nfunc B() int { return 2 }\n"}, "evolve a and b together again")
	writeAndCommit(map[string]string{"c.go": "package c\n\nfunc C() {}\n"}, "touch c alone")

	return root
}

func TestCoChangeMiner_MinesCoChangingPair(t *testing.T) {
	root := initTestRepo(t)
	ctx := context.Background()

	st, err := store.Open(filepath.Join(t.TempDir(), "test.sqlite"), 1, 0, nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	miner := NewCoChangeMiner(root)
	written, err := miner.Mine(ctx, st)
	require.NoError(t, err)
	require.Greater(t, written, 0)

	rows, err := st.CoChangesForFiles(ctx, []string{"a.go"}, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.ElementsMatch(t, []string{"a.go", "b.go"}, []string{rows[0].FileA, rows[0].FileB})
	require.Greater(t, rows[0].Confidence, 0.0)
	require.LessOrEqual(t, rows[0].Confidence, 1.0)
}

func TestCoChangeMiner_OmitsFileThatNeverCoChanges(t *testing.T) {
	root := initTestRepo(t)
	ctx := context.Background()

	st, err := store.Open(filepath.Join(t.TempDir(), "test.sqlite"), 1, 0, nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	miner := NewCoChangeMiner(root)
	_, err = miner.Mine(ctx, st)
	require.NoError(t, err)

	rows, err := st.CoChangesForFiles(ctx, []string{"c.go"}, 0)
	require.NoError(t, err)
	require.Empty(t, rows, "c.go never co-changed with another file, so it should have no rows")
}
