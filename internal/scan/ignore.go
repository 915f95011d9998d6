package scan

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// ignoreFileNames are read in every directory visited; all their patterns go
// into one flat set, each anchored at the directory of the file it came from.
var ignoreFileNames = []string{".gitignore", ".lidxignore"}

// pattern is one compiled ignore rule, rooted at the directory its source
// file lives in.
type pattern struct {
	glob    string
	dirOnly bool
}

// ignoreSet holds every ignore pattern discovered under a repo root,
// collected up front so a single walk doesn't repeatedly stat ignore files.
type ignoreSet struct {
	patterns []pattern
}

// loadIgnoreSet walks repoRoot once collecting every .gitignore/.lidxignore
// file's patterns, rewritten relative to repoRoot so they can be matched
// against the walk's own repo-relative paths.
func loadIgnoreSet(repoRoot string) (*ignoreSet, error) {
	set := &ignoreSet{}

	err := filepath.WalkDir(repoRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if alwaysIgnoredDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !containsName(ignoreFileNames, d.Name()) {
			return nil
		}

		dir, relErr := filepath.Rel(repoRoot, filepath.Dir(path))
		if relErr != nil {
			return relErr
		}
		dir = filepath.ToSlash(dir)
		if dir == "." {
			dir = ""
		}

		lines, readErr := readLines(path)
		if readErr != nil {
			return readErr
		}
		for _, line := range lines {
			if p, ok := parsePattern(dir, line); ok {
				set.patterns = append(set.patterns, p)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return set, nil
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}

// parsePattern turns one gitignore line into a doublestar glob anchored at
// dir (the directory the ignore file lives in, repo-relative). Negation
// ("!pattern") is not supported; it is rare enough in practice that
// supporting it would require re-walking in pattern order rather than a
// flat allow/deny set, and nothing in this indexer depends on it.
func parsePattern(dir, line string) (pattern, bool) {
	line = strings.TrimRight(line, " \t")
	if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
		return pattern{}, false
	}

	dirOnly := strings.HasSuffix(line, "/")
	line = strings.TrimSuffix(line, "/")

	anchored := strings.Contains(line, "/")
	line = strings.TrimPrefix(line, "/")

	var glob string
	switch {
	case dir == "" && anchored:
		glob = line
	case dir == "" && !anchored:
		glob = "**/" + line
	case anchored:
		glob = dir + "/" + line
	default:
		glob = dir + "/**/" + line
	}

	return pattern{glob: glob, dirOnly: dirOnly}, true
}

// matchDir reports whether rel (a repo-relative directory path) should be
// pruned from the walk entirely.
func (s *ignoreSet) matchDir(rel string) bool {
	for _, p := range s.patterns {
		if matches(p.glob, rel) {
			return true
		}
		if matches(p.glob+"/**", rel) {
			return true
		}
	}
	return false
}

// matchFile reports whether rel (a repo-relative file path) should be
// skipped.
func (s *ignoreSet) matchFile(rel string) bool {
	for _, p := range s.patterns {
		if p.dirOnly {
			continue
		}
		if matches(p.glob, rel) {
			return true
		}
	}
	return false
}

// IgnoreSet is the exported handle to the same ignore policy a full Repo
// scan applies, for callers that need to test individual paths one at a
// time instead of walking the whole tree (the watch loop's per-event
// filter).
type IgnoreSet = ignoreSet

// LoadIgnoreSet collects every .gitignore/.lidxignore pattern under
// repoRoot, the same patterns Repo would use to prune its walk.
func LoadIgnoreSet(repoRoot string) (*IgnoreSet, error) {
	return loadIgnoreSet(repoRoot)
}

// MatchDir reports whether rel, a repo-relative directory path, is ignored.
func (s *IgnoreSet) MatchDir(rel string) bool { return s.matchDir(rel) }

// MatchFile reports whether rel, a repo-relative file path, is ignored.
func (s *IgnoreSet) MatchFile(rel string) bool { return s.matchFile(rel) }
