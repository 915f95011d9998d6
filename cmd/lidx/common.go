package main

import (
	"os"
	"path/filepath"

	"github.com/lidxdev/lidx/internal/extract"
	"github.com/lidxdev/lidx/internal/indexer"
	"github.com/lidxdev/lidx/internal/store"
)

// openStore opens the sqlite-backed graph store at the configured path,
// creating its parent directory if this is a fresh repository.
func openStore() (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
		return nil, err
	}
	return store.Open(cfg.Store.Path, cfg.Store.PoolSize, cfg.Store.PoolMinIdle, logger)
}

// openIndexer wires a fresh Indexer over an already-open store.
func openIndexer(st *store.Store) *indexer.Indexer {
	return indexer.New(st, extract.NewRegistry(), cfg.RepoRoot, cfg.Batch, logger)
}
