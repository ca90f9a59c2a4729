// Package store implements the Examine store contract on top of a
// bleve full-text index.
//
// The persistent index lives in a directory on disk; staging writers use
// an isolated mem-only index that exists only for the duration of one
// drain cycle. Cross-process exclusion uses a lock file next to the
// index directory, held for the lifetime of an open writer.
package store

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/gofrs/flock"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/zhhbo/Examine/internal/errors"
	"github.com/zhhbo/Examine/pkg/index"
)

// DefaultCacheSize is the key-lookup LRU size used when the config does
// not set one.
const DefaultCacheSize = 1024

// Options configures a Store.
type Options struct {
	// Path is the directory holding the persistent index.
	Path string

	// CacheSize bounds the key-lookup LRU. Defaults to DefaultCacheSize.
	CacheSize int

	// Overwrite discards any existing index the first time a writer is
	// opened with create.
	Overwrite bool
}

// Store is a bleve-backed implementation of index.Store.
//
// One Store instance owns at most one open handle on the persistent
// index; writers borrow it. Lookups and writer opens wait for pending
// merge work so that delete-before-merge stays correct.
type Store struct {
	path     string
	lockPath string

	mu        sync.Mutex
	idx       bleve.Index
	closed    bool
	overwrite bool

	// In-process writer exclusion; the flock only guards against other
	// processes (TryLock on the same instance is reentrant).
	writerMu   sync.Mutex
	writerHeld bool
	writerLock *flock.Flock

	// Pending background merge work.
	mergeWG sync.WaitGroup

	keys *lru.Cache[string, bool]
}

// New creates a Store rooted at opts.Path. The index itself is opened
// lazily; New never touches the disk.
func New(opts Options) (*Store, error) {
	if opts.Path == "" {
		return nil, errors.New(errors.ErrCodeConfigInvalid, "store path must not be empty", nil)
	}
	size := opts.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	keys, err := lru.New[string, bool](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create lookup cache: %w", err)
	}
	return &Store{
		path:       opts.Path,
		lockPath:   opts.Path + ".lock",
		writerLock: flock.New(opts.Path + ".lock"),
		overwrite:  opts.Overwrite,
		keys:       keys,
	}, nil
}

// Path returns the persistent index directory.
func (s *Store) Path() string { return s.path }

// Exists reports whether the persistent index has been created.
func (s *Store) Exists() bool {
	_, err := os.Stat(filepath.Join(s.path, "index_meta.json"))
	return err == nil
}

// IsLocked reports whether a writer (this process or another) currently
// holds the store.
func (s *Store) IsLocked() bool {
	s.writerMu.Lock()
	held := s.writerHeld
	s.writerMu.Unlock()
	if held {
		return true
	}

	probe := flock.New(s.lockPath)
	locked, err := probe.TryLock()
	if err != nil {
		// Cannot tell; treat as locked rather than risk a second writer.
		return true
	}
	if !locked {
		return true
	}
	_ = probe.Unlock()
	return false
}

// OpenWriter opens a writer against the persistent index. When create is
// false a missing index is ErrCodeStoreUnavailable; a held lock is
// ErrCodeStoreLocked.
func (s *Store) OpenWriter(create bool) (index.PrimaryWriter, error) {
	s.mergeWG.Wait()

	s.writerMu.Lock()
	if s.writerHeld {
		s.writerMu.Unlock()
		return nil, errors.Newf(errors.ErrCodeStoreLocked, nil,
			"store %s already has an open writer", s.path)
	}
	locked, err := s.writerLock.TryLock()
	if err != nil {
		s.writerMu.Unlock()
		return nil, errors.Newf(errors.ErrCodeStoreUnavailable, err,
			"failed to acquire store lock %s", s.lockPath)
	}
	if !locked {
		s.writerMu.Unlock()
		return nil, errors.Newf(errors.ErrCodeStoreLocked, nil,
			"store %s is locked by another writer", s.path)
	}
	s.writerHeld = true
	s.writerMu.Unlock()

	idx, err := s.handle(create)
	if err != nil {
		s.releaseWriter()
		return nil, err
	}

	return &Writer{store: s, idx: idx, batch: idx.NewBatch()}, nil
}

// OpenStagingWriter opens a writer over a fresh mem-only index.
func (s *Store) OpenStagingWriter() (index.StagingWriter, error) {
	idx, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return nil, errors.New(errors.ErrCodeStoreUnavailable, "failed to create staging store", err)
	}
	return &StagingWriter{idx: idx, batch: idx.NewBatch()}, nil
}

// LookupByKey reports whether a document with the given key exists in
// the persistent index.
func (s *Store) LookupByKey(key string) (bool, error) {
	s.mergeWG.Wait()

	if found, ok := s.keys.Get(key); ok {
		return found, nil
	}
	if !s.Exists() {
		return false, nil
	}

	idx, err := s.handle(false)
	if err != nil {
		return false, err
	}
	doc, err := idx.Document(key)
	if err != nil {
		return false, fmt.Errorf("lookup of %q failed: %w", key, err)
	}
	found := doc != nil
	s.keys.Add(key, found)
	return found, nil
}

// DocCount returns the number of documents in the persistent index.
// A missing index counts as zero.
func (s *Store) DocCount() (uint64, error) {
	s.mergeWG.Wait()
	if !s.Exists() {
		return 0, nil
	}
	idx, err := s.handle(false)
	if err != nil {
		return 0, err
	}
	return idx.DocCount()
}

// Close waits for background work and closes the index handle. Safe to
// call more than once.
func (s *Store) Close() error {
	s.mergeWG.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.idx != nil {
		err := s.idx.Close()
		s.idx = nil
		return err
	}
	return nil
}

// handle returns the shared bleve handle, opening (or creating) the
// on-disk index on first use.
func (s *Store) handle(create bool) (bleve.Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errors.New(errors.ErrCodeStoreUnavailable, "store is closed", nil)
	}
	if s.idx != nil {
		return s.idx, nil
	}

	if create && s.overwrite {
		s.overwrite = false
		if err := os.RemoveAll(s.path); err != nil {
			return nil, errors.Newf(errors.ErrCodeStoreUnavailable, err,
				"failed to discard existing store %s", s.path)
		}
		s.keys.Purge()
		slog.Info("existing store discarded", slog.String("path", s.path))
	}

	idx, err := bleve.Open(s.path)
	switch {
	case err == bleve.ErrorIndexPathDoesNotExist:
		if !create {
			return nil, errors.Newf(errors.ErrCodeStoreUnavailable, err,
				"store %s does not exist", s.path)
		}
		if mkErr := os.MkdirAll(filepath.Dir(s.path), 0o755); mkErr != nil {
			return nil, errors.Newf(errors.ErrCodeStoreUnavailable, mkErr,
				"failed to create store directory for %s", s.path)
		}
		idx, err = bleve.New(s.path, newMapping())
		if err != nil {
			return nil, errors.Newf(errors.ErrCodeStoreUnavailable, err,
				"failed to create store %s", s.path)
		}
		slog.Info("store created", slog.String("path", s.path))
	case err != nil:
		return nil, errors.Newf(errors.ErrCodeStoreCorrupt, err,
			"failed to open store %s", s.path)
	}

	s.idx = idx
	return s.idx, nil
}

// newMapping builds the index mapping shared by the persistent and the
// staging indexes. Conversion has already flattened every value to a
// string or a number, so the default dynamic mapping is enough.
func newMapping() mapping.IndexMapping {
	return bleve.NewIndexMapping()
}

// releaseWriter is called from Writer.Close.
func (s *Store) releaseWriter() {
	s.writerMu.Lock()
	s.writerHeld = false
	_ = s.writerLock.Unlock()
	s.writerMu.Unlock()
}

// Verify interface implementations.
var (
	_ index.Store     = (*Store)(nil)
	_ index.Converter = (*Store)(nil)
)
