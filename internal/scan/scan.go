// Package scan walks a repository tree, honors gitignore-style ignore
// policy, and reports the source files the indexer should extract.
package scan

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/time/rate"
	"lukechampine.com/blake3"

	"github.com/lidxdev/lidx/internal/extract"
)

// alwaysIgnoredDirs are skipped regardless of ignore policy; they are either
// indexer-owned state or never a source tree.
var alwaysIgnoredDirs = map[string]bool{
	".git":  true,
	".lidx": true,
}

// File is one discovered source file with the metadata the indexer needs to
// decide whether it changed since the last scan.
type File struct {
	RelPath  string
	AbsPath  string
	Hash     string
	Size     int64
	Modified time.Time
	Language string
}

// Options controls a single scan pass.
type Options struct {
	// NoIgnore disables gitignore-style filtering; only the always-ignored
	// directories are skipped.
	NoIgnore bool
	// ReadLimiter throttles file reads during a scan, bounding I/O burst on
	// a large tree (e.g. a watch-triggered fallback full scan). Nil means
	// unthrottled.
	ReadLimiter *rate.Limiter
}

// Repo walks repoRoot and returns every recognized source file, sorted by
// relative path for deterministic ordering.
func Repo(ctx context.Context, repoRoot string, opts Options) ([]File, error) {
	var ignores *ignoreSet
	if !opts.NoIgnore {
		var err error
		ignores, err = loadIgnoreSet(repoRoot)
		if err != nil {
			return nil, err
		}
	}

	var files []File
	err := filepath.WalkDir(repoRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == repoRoot {
			return nil
		}
		rel, relErr := filepath.Rel(repoRoot, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if alwaysIgnoredDirs[d.Name()] {
				return filepath.SkipDir
			}
			if ignores != nil && ignores.matchDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if ignores != nil && ignores.matchFile(rel) {
			return nil
		}

		language, ok := extract.LanguageForPath(rel)
		if !ok {
			return nil
		}

		if opts.ReadLimiter != nil {
			if err := opts.ReadLimiter.Wait(ctx); err != nil {
				return err
			}
		}

		f, scanErr := scanOne(repoRoot, rel, language)
		if scanErr != nil {
			return scanErr
		}
		if f != nil {
			files = append(files, *f)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}

// Path scans a single file relative to repoRoot, for the watch loop's
// per-event path. Returns (nil, nil) if the path isn't a recognized source
// file or no longer exists.
func Path(repoRoot, relPath string) (*File, error) {
	language, ok := extract.LanguageForPath(relPath)
	if !ok {
		return nil, nil
	}
	absPath := filepath.Join(repoRoot, filepath.FromSlash(relPath))
	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return nil, nil
	}
	return scanOne(repoRoot, relPath, language)
}

func scanOne(repoRoot, relPath, language string) (*File, error) {
	absPath := filepath.Join(repoRoot, filepath.FromSlash(relPath))
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, nil
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, err
	}
	sum := blake3.Sum256(data)
	return &File{
		RelPath:  relPath,
		AbsPath:  absPath,
		Hash:     hex.EncodeToString(sum[:]),
		Size:     info.Size(),
		Modified: info.ModTime(),
		Language: language,
	}, nil
}

// matches reports whether glob matches rel using doublestar's "**" aware
// globbing; a malformed glob never matches.
func matches(glob, rel string) bool {
	ok, err := doublestar.Match(glob, rel)
	return err == nil && ok
}
