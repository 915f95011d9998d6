package scan

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestRepo_FindsSourceFilesAndSkipsUnsupported(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pkg/foo.go", "package pkg\n")
	writeFile(t, root, "pkg/foo.md", "# not a source file\n")
	writeFile(t, root, "pkg/sub/bar.py", "def bar():\n    pass\n")

	files, err := Repo(context.Background(), root, Options{})
	require.NoError(t, err)

	var rels []string
	for _, f := range files {
		rels = append(rels, f.RelPath)
	}
	assert.ElementsMatch(t, []string{"pkg/foo.go", "pkg/sub/bar.py"}, rels)
}

func TestRepo_SkipsGitAndLidxDirsAlways(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".git/objects/pack.go", "package pack\n")
	writeFile(t, root, ".lidx/cache.go", "package cache\n")
	writeFile(t, root, "main.go", "package main\n")

	files, err := Repo(context.Background(), root, Options{NoIgnore: true})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "main.go", files[0].RelPath)
}

func TestRepo_HonorsGitignoreUnlessNoIgnore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "vendor/\n*.gen.go\n")
	writeFile(t, root, "vendor/dep.go", "package dep\n")
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "schema.gen.go", "package schema\n")

	files, err := Repo(context.Background(), root, Options{})
	require.NoError(t, err)
	var rels []string
	for _, f := range files {
		rels = append(rels, f.RelPath)
	}
	assert.ElementsMatch(t, []string{"main.go"}, rels)

	filesNoIgnore, err := Repo(context.Background(), root, Options{NoIgnore: true})
	require.NoError(t, err)
	assert.Len(t, filesNoIgnore, 3)
}

func TestRepo_NestedGitignoreIsRootedAtItsDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "sub/.gitignore", "local.go\n")
	writeFile(t, root, "sub/local.go", "package sub\n")
	writeFile(t, root, "local.go", "package root\n")

	files, err := Repo(context.Background(), root, Options{})
	require.NoError(t, err)
	var rels []string
	for _, f := range files {
		rels = append(rels, f.RelPath)
	}
	assert.ElementsMatch(t, []string{"local.go"}, rels)
}

func TestRepo_ResultsAreSortedByRelPath(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "z.go", "package z\n")
	writeFile(t, root, "a.go", "package a\n")

	files, err := Repo(context.Background(), root, Options{})
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.go", files[0].RelPath)
	assert.Equal(t, "z.go", files[1].RelPath)
}

func TestPath_ReturnsNilForUnsupportedOrMissingFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "readme.md", "# hi\n")

	f, err := Path(root, "readme.md")
	require.NoError(t, err)
	assert.Nil(t, f)

	f, err = Path(root, "missing.go")
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestPath_ReturnsHashAndLanguageForSourceFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")

	f, err := Path(root, "main.go")
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "go", f.Language)
	assert.NotEmpty(t, f.Hash)
	assert.Equal(t, int64(len("package main\n")), f.Size)
}
