// Package watch keeps a store's indexed graph synchronised with its
// repository's filesystem: a recursive fsnotify watch feeds a priority
// queue, drained on an adaptive debounce into incremental syncs, falling
// back to periodic full scans when a recursive watch can't be established
// or drops.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/lidxdev/lidx/internal/config"
	"github.com/lidxdev/lidx/internal/indexer"
	"github.com/lidxdev/lidx/internal/scan"
	"github.com/lidxdev/lidx/internal/store"
)

// idleSleep is how long Run waits between checks when no recursive watch is
// active and the next fallback scan isn't due yet.
const idleSleep = 200 * time.Millisecond

// cleanupInterval bounds how often the priority queue's recently-edited
// bookkeeping is pruned.
const cleanupInterval = 5 * time.Minute

// Watcher drives one repository's watch loop.
type Watcher struct {
	repoRoot string
	ix       *indexer.Indexer
	store    *store.Store
	cfg      config.WatchConfig
	log      *logrus.Logger

	stop chan struct{}
	done chan struct{}
}

// New builds a Watcher rooted at repoRoot, driving ix/st per cfg.
func New(repoRoot string, ix *indexer.Indexer, st *store.Store, cfg config.WatchConfig, log *logrus.Logger) *Watcher {
	if log == nil {
		log = logrus.New()
	}
	return &Watcher{
		repoRoot: repoRoot,
		ix:       ix,
		store:    st,
		cfg:      cfg,
		log:      log,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Run blocks, keeping the index synchronised, until ctx is cancelled or Stop
// is called. It returns immediately if cfg.Mode is "off".
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.done)
	if w.cfg.Mode == "off" {
		return nil
	}

	if w.cfg.Bootstrap {
		if _, ok, err := w.store.GetMeta(ctx, "last_indexed"); err != nil {
			return fmt.Errorf("check last_indexed: %w", err)
		} else if !ok {
			if _, err := w.ix.Reindex(ctx, nil, w.cfg.NoIgnore); err != nil {
				w.log.WithError(err).Warn("watch bootstrap reindex failed")
			}
		}
	}

	var ignores *scan.IgnoreSet
	if !w.cfg.NoIgnore {
		var err error
		ignores, err = scan.LoadIgnoreSet(w.repoRoot)
		if err != nil {
			return fmt.Errorf("load ignore rules: %w", err)
		}
	}

	fsw, err := w.tryStartWatcher()
	if err != nil && w.cfg.Mode == "on" {
		return fmt.Errorf("start recursive filesystem watch: %w", err)
	}

	queue := newFileQueue(w.cfg.UrgentWindow())
	lastEvent := time.Now()
	lastFallback := time.Now()
	lastCleanup := time.Now()
	forceReindex := false

	for {
		if ctxOrStopDone(ctx, w.stop) {
			return nil
		}

		if time.Since(lastCleanup) >= cleanupInterval {
			queue.cleanupOldEntries(2 * w.cfg.UrgentWindow())
			lastCleanup = time.Now()
		}

		if fsw == nil {
			if time.Since(lastFallback) >= w.cfg.FallbackScan() {
				if err := w.fallbackScan(ctx); err != nil {
					w.log.WithError(err).Warn("watch fallback scan failed")
				}
				lastFallback = time.Now()
				continue
			}
			if waitOrDone(ctx, w.stop, idleSleep) {
				return nil
			}
			continue
		}

		debounce := idleSleep
		if !queue.isEmpty() {
			debounce = computeDebounce(queue, w.cfg)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-w.stop:
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				fsw.Close()
				fsw = nil
				continue
			}
			w.handleEvent(fsw, event, ignores, queue)
			if queue.len() >= w.cfg.MaxBatch {
				forceReindex = true
				queue.clear()
			}
			lastEvent = time.Now()
		case watchErr, ok := <-fsw.Errors:
			if !ok {
				fsw.Close()
				fsw = nil
				continue
			}
			w.log.WithError(watchErr).Warn("watch error")
		case <-time.After(debounce):
		}

		if fsw == nil {
			continue
		}

		currentDebounce := computeDebounce(queue, w.cfg)
		shouldFlush := !queue.isEmpty() && time.Since(lastEvent) >= currentDebounce

		if forceReindex || shouldFlush {
			if forceReindex {
				if _, err := w.ix.Reindex(ctx, nil, w.cfg.NoIgnore); err != nil {
					w.log.WithError(err).Warn("watch reindex failed")
				}
			} else {
				paths := queue.drain()
				if _, err := w.ix.Sync(ctx, paths, nil); err != nil {
					w.log.WithError(err).Warn("watch sync failed")
				}
			}
			forceReindex = false
			queue.clear()
		}
	}
}

// Stop signals Run to return at the next debounce boundary and blocks until
// it has.
func (w *Watcher) Stop() {
	select {
	case <-w.stop:
	default:
		close(w.stop)
	}
	<-w.done
}

func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, event fsnotify.Event, ignores *scan.IgnoreSet, queue *fileQueue) {
	if isNoiseEvent(event) {
		return
	}
	rel, err := filepath.Rel(w.repoRoot, event.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)
	if first, _, _ := splitFirstComponent(rel); first == ".git" || first == ".lidx" {
		return
	}
	if pathIgnored(ignores, rel) {
		return
	}
	queue.enqueue(rel)

	if event.Op&fsnotify.Create != 0 {
		if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
			_ = fsw.Add(event.Name)
		}
	}
}

func (w *Watcher) tryStartWatcher() (*fsnotify.Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.log.WithError(err).Warn("watch disabled, falling back to periodic scan")
		return nil, err
	}
	if err := addRecursive(fsw, w.repoRoot); err != nil {
		fsw.Close()
		w.log.WithError(err).Warn("watch disabled, falling back to periodic scan")
		return nil, err
	}
	return fsw, nil
}

func (w *Watcher) fallbackScan(ctx context.Context) error {
	changed, err := w.ix.ChangedFiles(ctx, nil)
	if err != nil {
		return err
	}
	paths := make([]string, 0, len(changed.Added)+len(changed.Modified)+len(changed.Deleted))
	paths = append(paths, changed.Added...)
	paths = append(paths, changed.Modified...)
	paths = append(paths, changed.Deleted...)
	if len(paths) == 0 {
		return nil
	}
	if len(paths) >= w.cfg.MaxBatch {
		_, err := w.ix.Reindex(ctx, nil, w.cfg.NoIgnore)
		return err
	}
	_, err = w.ix.Sync(ctx, paths, nil)
	return err
}

func addRecursive(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == ".git" || d.Name() == ".lidx" {
			return filepath.SkipDir
		}
		_ = fsw.Add(path)
		return nil
	})
}

func isNoiseEvent(event fsnotify.Event) bool {
	return event.Op&fsnotify.Chmod != 0 && event.Op&^fsnotify.Chmod == 0
}

func pathIgnored(ignores *scan.IgnoreSet, rel string) bool {
	if ignores == nil {
		return false
	}
	return ignores.MatchFile(rel) || ignores.MatchDir(rel)
}

func splitFirstComponent(rel string) (first, rest string, ok bool) {
	idx := -1
	for i, r := range rel {
		if r == '/' {
			idx = i
			break
		}
	}
	if idx < 0 {
		return rel, "", false
	}
	return rel[:idx], rel[idx+1:], true
}

func ctxOrStopDone(ctx context.Context, stop chan struct{}) bool {
	select {
	case <-ctx.Done():
		return true
	case <-stop:
		return true
	default:
		return false
	}
}

func waitOrDone(ctx context.Context, stop chan struct{}, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return true
	case <-stop:
		return true
	case <-time.After(d):
		return false
	}
}
