package git

import (
	"context"
	"encoding/json"

	bolt "go.etcd.io/bbolt"
)

var renamesBucket = []byte("file_renames")

// RenameResolver answers "what paths has this file lived at" by wrapping a
// HistoryTracker with a bbolt-backed cache, so repeated lookups for the same
// path (the common case when impact queries touch a hot file over and over)
// don't re-shell out to git log --follow every time.
type RenameResolver struct {
	tracker *HistoryTracker
	cache   *bolt.DB
}

// NewRenameResolver opens (creating if absent) a bbolt database at dbPath to
// cache repoPath's file-rename history.
func NewRenameResolver(repoPath, dbPath string) (*RenameResolver, error) {
	db, err := bolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(renamesBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &RenameResolver{tracker: NewHistoryTracker(repoPath), cache: db}, nil
}

// Close releases the underlying bbolt database.
func (r *RenameResolver) Close() error {
	return r.cache.Close()
}

// HistoricalPaths returns every path currentPath has been known by,
// including currentPath itself, consulting the cache before shelling out to
// git.
func (r *RenameResolver) HistoricalPaths(ctx context.Context, currentPath string) ([]string, error) {
	if cached, ok := r.readCache(currentPath); ok {
		return cached, nil
	}

	paths, err := r.tracker.GetFileHistory(ctx, currentPath)
	if err != nil {
		return nil, err
	}
	r.writeCache(currentPath, paths)
	return paths, nil
}

// Invalidate drops a path's cached history, for callers that know a file
// was just renamed; the next HistoricalPaths call for it asks git again.
// Nothing else ever refreshes a cached entry.
func (r *RenameResolver) Invalidate(currentPath string) error {
	return r.cache.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(renamesBucket).Delete([]byte(currentPath))
	})
}

func (r *RenameResolver) readCache(currentPath string) ([]string, bool) {
	var paths []string
	err := r.cache.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(renamesBucket).Get([]byte(currentPath))
		if raw == nil {
			return nil
		}
		return json.Unmarshal(raw, &paths)
	})
	if err != nil || paths == nil {
		return nil, false
	}
	return paths, true
}

func (r *RenameResolver) writeCache(currentPath string, paths []string) {
	raw, err := json.Marshal(paths)
	if err != nil {
		return
	}
	_ = r.cache.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(renamesBucket).Put([]byte(currentPath), raw)
	})
}
