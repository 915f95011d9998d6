// Package indexer implements the scan -> extract -> diff -> write pipeline:
// a full reindex that allocates a new graph version, and an incremental sync
// that folds a changed-path set into the current one. Both end with a
// cross-language linking pass over the version they just wrote.
package indexer

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/lidxdev/lidx/internal/batch"
	"github.com/lidxdev/lidx/internal/config"
	"github.com/lidxdev/lidx/internal/differ"
	apperrors "github.com/lidxdev/lidx/internal/errors"
	"github.com/lidxdev/lidx/internal/extract"
	"github.com/lidxdev/lidx/internal/metrics"
	"github.com/lidxdev/lidx/internal/models"
	"github.com/lidxdev/lidx/internal/resolve"
	"github.com/lidxdev/lidx/internal/scan"
	"github.com/lidxdev/lidx/internal/store"
)

// largeFileSkipBytes is the incremental-sync per-file size guard: a file
// above this is logged and skipped rather than parsed inline on the sync
// path, which is expected to stay interactive-latency fast.
const largeFileSkipBytes = 10 * 1024 * 1024

// extractConcurrency bounds how many files are parsed in parallel during a
// full reindex. Tree-sitter parsing is CPU-bound and allocation-heavy, so
// this is deliberately modest rather than "one goroutine per file".
const extractConcurrency = 8

// Indexer owns the pipeline that turns repository source into graph rows.
type Indexer struct {
	store    *store.Store
	registry *extract.Registry
	linker   *resolve.Linker
	repoRoot string
	batchCfg config.BatchConfig
	log      *logrus.Logger
}

// New builds an Indexer over repoRoot, persisting into st.
func New(st *store.Store, registry *extract.Registry, repoRoot string, batchCfg config.BatchConfig, log *logrus.Logger) *Indexer {
	if log == nil {
		log = logrus.New()
	}
	return &Indexer{
		store:    st,
		registry: registry,
		linker:   resolve.New(st, log),
		repoRoot: repoRoot,
		batchCfg: batchCfg,
		log:      log,
	}
}

// fileResult is one scanned file's pipeline output, produced concurrently
// and consumed in scan order by the batch writer.
type fileResult struct {
	file     scan.File
	extract  *models.ExtractedFile
	existing *models.File
	oldSyms  []models.Symbol
	err      error
}

// Reindex performs a full repository reindex: allocates a new graph version,
// scans and extracts every file under ignore policy, diffs each against its
// prior symbol set, and marks any file no longer present as deleted at the
// new version.
func (ix *Indexer) Reindex(ctx context.Context, commitSHA *string, noIgnore bool) (models.IndexStats, error) {
	start := time.Now()
	var stats models.IndexStats
	runID := uuid.New().String()

	version, err := ix.store.CreateGraphVersion(ctx, commitSHA)
	if err != nil {
		return stats, fmt.Errorf("allocate graph version: %w", err)
	}
	ix.log.WithFields(logrus.Fields{"run_id": runID, "graph_version": version}).Info("starting full reindex")

	files, err := scan.Repo(ctx, ix.repoRoot, scan.Options{NoIgnore: noIgnore})
	if err != nil {
		return stats, fmt.Errorf("scan repo: %w", err)
	}
	stats.Scanned = len(files)

	seenPaths := make(map[string]bool, len(files))
	writer := batch.NewWriter(ix.batchCfg)

	flush := func() error {
		if writer.IsEmpty() {
			return nil
		}
		diffs := writer.Take()
		if err := ix.store.UpdateFilesSymbolsBatch(ctx, diffs); err != nil {
			return fmt.Errorf("flush batch: %w", err)
		}
		for _, fd := range diffs {
			if err := ix.writeEdgesAndMetrics(ctx, fd, version, commitSHA); err != nil {
				return err
			}
			stats.Symbols += len(fd.Diff.Added) + len(fd.Diff.Modified)
		}
		return nil
	}

	for result := range ix.extractAll(ctx, files) {
		seenPaths[result.file.RelPath] = true

		if result.err != nil {
			ix.log.WithError(result.err).WithField("path", result.file.RelPath).Warn("extract failed, skipping file")
			stats.Errors++
			continue
		}

		fd, err := ix.buildFileDiff(ctx, result, version, commitSHA)
		if err != nil {
			stats.Errors++
			ix.log.WithError(err).WithField("path", result.file.RelPath).Warn("diff failed, skipping file")
			continue
		}

		writer.Add(fd)
		stats.Indexed++
		if writer.ShouldFlush() {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}
	if err := flush(); err != nil {
		return stats, err
	}

	deleted, err := ix.markVanishedFiles(ctx, seenPaths, version)
	if err != nil {
		return stats, err
	}
	stats.Deleted = deleted

	linkStats, err := ix.linker.Link(ctx, version, nil)
	if err != nil {
		return stats, fmt.Errorf("link pass: %w", err)
	}
	stats.Edges += linkStats.QualnameResolved + linkStats.XrefCreated

	stats.DurationMS = time.Since(start).Milliseconds()
	if err := ix.store.SetMeta(ctx, "last_indexed", strconv.FormatInt(time.Now().Unix(), 10)); err != nil {
		ix.log.WithError(err).Warn("failed to record last_indexed")
	}
	ix.log.WithFields(logrus.Fields{
		"run_id":        runID,
		"graph_version": version,
		"scanned":       stats.Scanned,
		"indexed":       stats.Indexed,
		"deleted":       stats.Deleted,
		"errors":        stats.Errors,
		"duration_ms":   stats.DurationMS,
	}).Info("full reindex complete")

	return stats, nil
}

// Sync folds a set of changed repository-relative paths into the current
// graph version without allocating a new one: added/modified paths are
// rescanned and re-extracted, paths no longer on disk are marked deleted.
func (ix *Indexer) Sync(ctx context.Context, paths []string, commitSHA *string) (models.IndexStats, error) {
	start := time.Now()
	var stats models.IndexStats
	stats.Scanned = len(paths)
	runID := uuid.New().String()

	version, err := ix.store.CurrentGraphVersion(ctx)
	if err != nil {
		return stats, fmt.Errorf("current graph version: %w", err)
	}
	ix.log.WithFields(logrus.Fields{"run_id": runID, "graph_version": version, "paths": len(paths)}).Debug("starting sync")

	writer := batch.NewWriter(ix.batchCfg)
	for _, relPath := range paths {
		file, err := scan.Path(ix.repoRoot, relPath)
		if err != nil {
			stats.Errors++
			ix.log.WithError(err).WithField("path", relPath).Warn("sync scan failed")
			continue
		}
		if file == nil {
			if err := ix.store.MarkFileDeleted(ctx, relPath, version); err != nil {
				ix.log.WithError(err).WithField("path", relPath).Warn("mark deleted failed")
			} else {
				stats.Deleted++
			}
			continue
		}
		if file.Size > largeFileSkipBytes {
			ix.log.WithField("path", relPath).WithField("size", file.Size).Warn("skipping large file on sync")
			stats.Skipped++
			continue
		}

		result := ix.extractOne(ctx, *file)
		if result.err != nil {
			stats.Errors++
			ix.log.WithError(result.err).WithField("path", relPath).Warn("extract failed, skipping file")
			continue
		}

		fd, err := ix.buildFileDiff(ctx, result, version, commitSHA)
		if err != nil {
			stats.Errors++
			ix.log.WithError(err).WithField("path", relPath).Warn("diff failed, skipping file")
			continue
		}
		writer.Add(fd)
		stats.Indexed++

		if writer.ShouldFlush() {
			diffs := writer.Take()
			if err := ix.store.UpdateFilesSymbolsBatch(ctx, diffs); err != nil {
				return stats, fmt.Errorf("flush batch: %w", err)
			}
			for _, d := range diffs {
				if err := ix.writeEdgesAndMetrics(ctx, d, version, commitSHA); err != nil {
					return stats, err
				}
				stats.Symbols += len(d.Diff.Added) + len(d.Diff.Modified)
			}
		}
	}

	if !writer.IsEmpty() {
		diffs := writer.Take()
		if err := ix.store.UpdateFilesSymbolsBatch(ctx, diffs); err != nil {
			return stats, fmt.Errorf("flush batch: %w", err)
		}
		for _, d := range diffs {
			if err := ix.writeEdgesAndMetrics(ctx, d, version, commitSHA); err != nil {
				return stats, err
			}
			stats.Symbols += len(d.Diff.Added) + len(d.Diff.Modified)
		}
	}

	linkStats, err := ix.linker.Link(ctx, version, nil)
	if err != nil {
		return stats, fmt.Errorf("link pass: %w", err)
	}
	stats.Edges += linkStats.QualnameResolved + linkStats.XrefCreated

	stats.DurationMS = time.Since(start).Milliseconds()
	if err := ix.store.SetMeta(ctx, "last_indexed", strconv.FormatInt(time.Now().Unix(), 10)); err != nil {
		ix.log.WithError(err).Warn("failed to record last_indexed")
	}
	ix.log.WithFields(logrus.Fields{
		"run_id":      runID,
		"indexed":     stats.Indexed,
		"deleted":     stats.Deleted,
		"errors":      stats.Errors,
		"duration_ms": stats.DurationMS,
	}).Debug("sync complete")
	return stats, nil
}

// extractAll runs the extractor for every scanned file with bounded
// concurrency, preserving scan order on the returned channel so downstream
// batching sees a stable, reproducible write order.
func (ix *Indexer) extractAll(ctx context.Context, files []scan.File) <-chan fileResult {
	out := make(chan fileResult, len(files))

	go func() {
		defer close(out)
		results := make([]fileResult, len(files))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(extractConcurrency)
		var mu sync.Mutex

		for i, f := range files {
			i, f := i, f
			g.Go(func() error {
				if gctx.Err() != nil {
					return nil
				}
				r := ix.extractOne(gctx, f)
				mu.Lock()
				results[i] = r
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		for _, r := range results {
			out <- r
		}
	}()

	return out
}

// extractOne loads the existing file/symbol state and runs the extractor if
// the content hash changed (or the file is new); unchanged-hash files skip
// re-parsing entirely and carry their old symbols forward as Unchanged.
func (ix *Indexer) extractOne(ctx context.Context, f scan.File) fileResult {
	result := fileResult{file: f}

	existing, err := ix.store.GetFileByPath(ctx, f.RelPath)
	if err == nil {
		result.existing = existing
	}

	if existing != nil && existing.ContentHash == f.Hash {
		oldSyms, err := ix.store.SymbolsForFile(ctx, existing.ID)
		if err != nil {
			result.err = err
			return result
		}
		result.oldSyms = oldSyms
		result.extract = &models.ExtractedFile{}
		return result
	}

	extractor, ok := ix.registry.For(f.Language)
	if !ok {
		result.err = fmt.Errorf("no extractor registered for language %q", f.Language)
		return result
	}

	source, err := os.ReadFile(f.AbsPath)
	if err != nil {
		result.err = err
		return result
	}

	moduleName := extractor.ModuleNameFromRelPath(f.RelPath)
	extracted, err := extractor.Extract(f.RelPath, source, moduleName)
	if err != nil {
		result.err = err
		return result
	}
	if resolver, ok := extractor.(extract.ImportResolver); ok {
		if err := resolver.ResolveImports(ix.repoRoot, f.RelPath, moduleName, &extracted.Edges); err != nil {
			ix.log.WithError(err).WithField("path", f.RelPath).Warn("import resolution failed")
		}
	}

	if extracted.FileMetrics == nil {
		fm := metrics.FileCounts(source, f.Language)
		extracted.FileMetrics = &fm
	}
	if extracted.SymbolMetrics == nil {
		for _, sym := range extracted.Symbols {
			extracted.SymbolMetrics = append(extracted.SymbolMetrics, models.SymbolMetrics{
				LOC:                  metrics.SymbolLOC(sym.StartLine, sym.EndLine),
				CyclomaticComplexity: metrics.SymbolComplexity(source, sym.StartLine, sym.EndLine),
			})
		}
	}

	result.extract = &extracted
	if existing != nil {
		oldSyms, err := ix.store.SymbolsForFile(ctx, existing.ID)
		if err != nil {
			result.err = err
			return result
		}
		result.oldSyms = oldSyms
	}
	return result
}

// buildFileDiff upserts the file row, computes its symbol diff against prior
// state, and assembles the models.FileDiff the batch writer accumulates.
func (ix *Indexer) buildFileDiff(ctx context.Context, r fileResult, version int64, commitSHA *string) (models.FileDiff, error) {
	fileID, err := ix.store.UpsertFile(ctx, r.file.RelPath, r.file.Hash, r.file.Language, r.file.Size, r.file.Modified, version)
	if err != nil {
		return models.FileDiff{}, fmt.Errorf("upsert file %s: %w", r.file.RelPath, err)
	}

	var diff models.SymbolDiff
	if r.oldSyms != nil && len(r.extract.Symbols) == 0 {
		diff = models.SymbolDiff{Unchanged: r.oldSyms}
	} else {
		diff = differ.ComputeSymbolDiff(r.oldSyms, r.extract.Symbols)
	}

	var fileMetrics *models.FileMetrics
	if r.extract.FileMetrics != nil {
		fm := *r.extract.FileMetrics
		fm.FileID = fileID
		fileMetrics = &fm
	}

	symbolMetrics := make(map[string]models.SymbolMetrics, len(r.extract.SymbolMetrics))
	for i, sm := range r.extract.SymbolMetrics {
		if i >= len(r.extract.Symbols) {
			break
		}
		symbolMetrics[differ.StableID(r.extract.Symbols[i])] = sm
	}

	return models.FileDiff{
		FileID:                  fileID,
		FilePath:                r.file.RelPath,
		Diff:                    diff,
		Edges:                   r.extract.Edges,
		GraphVersion:            version,
		CommitSHA:               commitSHA,
		FileMetrics:             fileMetrics,
		SymbolMetricsByStableID: symbolMetrics,
	}, nil
}

// writeEdgesAndMetrics inserts a flushed file's edges, file metrics and
// per-symbol metrics. It runs after the symbol batch commits so the file's
// current symbol set (real ids, needed both to resolve edges and to attach
// symbol metrics) is up to date.
func (ix *Indexer) writeEdgesAndMetrics(ctx context.Context, fd models.FileDiff, version int64, commitSHA *string) error {
	needSymbols := len(fd.Edges) > 0 || len(fd.SymbolMetricsByStableID) > 0
	var symbols []models.Symbol
	if needSymbols {
		var err error
		symbols, err = ix.store.SymbolsForFile(ctx, fd.FileID)
		if err != nil {
			return fmt.Errorf("load symbols for %s: %w", fd.FilePath, err)
		}
	}

	if len(fd.Edges) > 0 {
		symbolMap := make(map[string]int64, len(symbols))
		for _, s := range symbols {
			symbolMap[s.Qualname] = s.ID
		}
		if _, err := ix.store.InsertEdges(ctx, fd.FileID, fd.Edges, symbolMap, version, commitSHA); err != nil {
			return fmt.Errorf("insert edges %s: %w", fd.FilePath, err)
		}
	}

	if fd.FileMetrics != nil {
		if err := ix.store.UpsertFileMetrics(ctx, fd.FileID, *fd.FileMetrics, version); err != nil {
			return fmt.Errorf("upsert file metrics %s: %w", fd.FilePath, err)
		}
	}

	for _, s := range symbols {
		sm, ok := fd.SymbolMetricsByStableID[s.StableID]
		if !ok {
			continue
		}
		if err := ix.store.UpsertSymbolMetrics(ctx, s.ID, fd.FileID, sm, version); err != nil {
			return fmt.Errorf("upsert symbol metrics %s: %w", fd.FilePath, err)
		}
	}

	return nil
}

// ChangedFiles compares the current on-disk tree against the last-indexed
// graph version without writing anything, reporting the added, modified, and
// deleted paths a sync pass would act on. This is what the watch loop's
// fallback scan, and the RPC surface's changed_files(), both read. languages,
// when non-empty, restricts the comparison to files of those languages.
func (ix *Indexer) ChangedFiles(ctx context.Context, languages []string) (models.ChangedFiles, error) {
	var out models.ChangedFiles

	version, err := ix.store.CurrentGraphVersion(ctx)
	if err != nil {
		return out, fmt.Errorf("current graph version: %w", err)
	}

	files, err := scan.Repo(ctx, ix.repoRoot, scan.Options{})
	if err != nil {
		return out, fmt.Errorf("scan repo: %w", err)
	}

	wanted := languageSet(languages)
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		if wanted != nil && !wanted[f.Language] {
			continue
		}
		seen[f.RelPath] = true

		existing, err := ix.store.GetFileByPath(ctx, f.RelPath)
		if err != nil && apperrors.GetType(err) != apperrors.ErrorTypeNotFound {
			return out, fmt.Errorf("lookup file %s: %w", f.RelPath, err)
		}
		switch {
		case existing == nil:
			out.Added = append(out.Added, f.RelPath)
		case existing.ContentHash != f.Hash:
			out.Modified = append(out.Modified, f.RelPath)
		}
	}

	livePaths, err := ix.store.AllLivePaths(ctx, version)
	if err != nil {
		return out, fmt.Errorf("list live paths: %w", err)
	}
	for _, p := range livePaths {
		if seen[p] {
			continue
		}
		if wanted != nil {
			lang, ok := extract.LanguageForPath(p)
			if !ok || !wanted[lang] {
				continue
			}
		}
		out.Deleted = append(out.Deleted, p)
	}

	return out, nil
}

func languageSet(languages []string) map[string]bool {
	if len(languages) == 0 {
		return nil
	}
	set := make(map[string]bool, len(languages))
	for _, l := range languages {
		set[l] = true
	}
	return set
}

// markVanishedFiles marks every previously-indexed path absent from seenPaths
// as deleted at version. It only needs to consider files the store already
// knows about, not the freshly scanned set.
func (ix *Indexer) markVanishedFiles(ctx context.Context, seenPaths map[string]bool, version int64) (int, error) {
	paths, err := ix.store.AllLivePaths(ctx, version-1)
	if err != nil {
		return 0, fmt.Errorf("list live paths: %w", err)
	}

	deleted := 0
	for _, p := range paths {
		if seenPaths[p] {
			continue
		}
		if err := ix.store.MarkFileDeleted(ctx, p, version); err != nil {
			ix.log.WithError(err).WithField("path", p).Warn("mark vanished file deleted failed")
			continue
		}
		deleted++
	}
	return deleted, nil
}
