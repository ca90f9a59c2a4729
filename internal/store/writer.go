package store

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"

	"github.com/zhhbo/Examine/internal/errors"
	"github.com/zhhbo/Examine/pkg/index"
)

// Writer stages mutations against the persistent index and applies them
// atomically on Commit. It holds the store lock until closed.
type Writer struct {
	store *Store
	idx   bleve.Index

	mu     sync.Mutex
	batch  *bleve.Batch
	closed bool

	// Keys touched since the last commit, used to keep the store's
	// lookup cache coherent.
	added   []string
	deleted []string
}

// AddOrUpdate stages a document write under the given key.
func (w *Writer) AddOrUpdate(key string, doc index.Document) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errors.New(errors.ErrCodeApplyFailure, "writer is closed", nil)
	}
	if err := w.batch.Index(key, map[string]any(doc)); err != nil {
		return errors.Newf(errors.ErrCodeApplyFailure, err, "failed to stage document %q", key)
	}
	w.added = append(w.added, key)
	return nil
}

// Delete stages removal of the document with the given key.
func (w *Writer) Delete(key string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errors.New(errors.ErrCodeApplyFailure, "writer is closed", nil)
	}
	w.batch.Delete(key)
	w.deleted = append(w.deleted, key)
	return nil
}

// Commit applies the staged batch atomically.
func (w *Writer) Commit() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errors.New(errors.ErrCodeApplyFailure, "writer is closed", nil)
	}
	if w.batch.Size() == 0 {
		return nil
	}
	if err := w.idx.Batch(w.batch); err != nil {
		return errors.New(errors.ErrCodeApplyFailure, "failed to commit batch", err)
	}
	for _, key := range w.added {
		w.store.keys.Add(key, true)
	}
	for _, key := range w.deleted {
		w.store.keys.Add(key, false)
	}
	w.added = w.added[:0]
	w.deleted = w.deleted[:0]
	w.batch = w.idx.NewBatch()
	return nil
}

// MergeFrom folds the committed contents of a staging writer into the
// persistent index. Enumeration happens synchronously, so the staging
// writer may be closed as soon as MergeFrom returns; the batch apply
// runs in the background and is joined by WaitForPendingMerges.
func (w *Writer) MergeFrom(staging index.StagingWriter) error {
	sw, ok := staging.(*StagingWriter)
	if !ok {
		return errors.New(errors.ErrCodeMergeFailure, "staging writer is not from this store", nil)
	}

	docs, err := sw.documents()
	if err != nil {
		return errors.New(errors.ErrCodeMergeFailure, "failed to enumerate staging store", err)
	}
	if len(docs) == 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errors.New(errors.ErrCodeMergeFailure, "writer is closed", nil)
	}

	batch := w.idx.NewBatch()
	keys := make([]string, 0, len(docs))
	for key, doc := range docs {
		if err := batch.Index(key, doc); err != nil {
			return errors.Newf(errors.ErrCodeMergeFailure, err, "failed to stage merge of %q", key)
		}
		keys = append(keys, key)
	}

	idx, store := w.idx, w.store
	store.mergeWG.Add(1)
	go func() {
		defer store.mergeWG.Done()
		start := time.Now()
		if err := idx.Batch(batch); err != nil {
			slog.Warn("background merge failed",
				slog.String("path", store.path),
				slog.Int("documents", len(keys)),
				slog.String("error", err.Error()))
			return
		}
		for _, key := range keys {
			store.keys.Add(key, true)
		}
		slog.Debug("staging store merged",
			slog.String("path", store.path),
			slog.Int("documents", len(keys)),
			slog.Duration("duration", time.Since(start)))
	}()
	return nil
}

// WaitForPendingMerges blocks until background merge work has been
// applied to the persistent index.
func (w *Writer) WaitForPendingMerges() {
	w.store.mergeWG.Wait()
}

// Compact rebuilds the persistent index into a fresh directory and swaps
// it in. The caller must guarantee no concurrent writer activity; the
// single-flight worker does. When blocking is false the rebuild runs in
// the background and the next writer open waits for it.
func (w *Writer) Compact(blocking bool) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return errors.New(errors.ErrCodeCompactionFailure, "writer is closed", nil)
	}
	store := w.store
	w.mu.Unlock()

	store.mergeWG.Wait()

	if blocking {
		return store.compact()
	}
	store.mergeWG.Add(1)
	go func() {
		defer store.mergeWG.Done()
		if err := store.compact(); err != nil {
			slog.Warn("background compaction failed",
				slog.String("path", store.path),
				slog.String("error", err.Error()))
		}
	}()
	return nil
}

// Close releases the writer and the store lock. Idempotent; staged but
// uncommitted mutations are discarded.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	w.batch = nil
	w.store.releaseWriter()
	return nil
}

// compact performs the rebuild-and-swap. Holds the store mutex for the
// whole pass so lookups see either the old or the new index, never a
// half-swapped one.
func (s *Store) compact() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.idx == nil {
		return errors.New(errors.ErrCodeCompactionFailure, "store has no open index", nil)
	}

	start := time.Now()
	docs, err := enumerate(s.idx)
	if err != nil {
		return errors.New(errors.ErrCodeCompactionFailure, "failed to enumerate store", err)
	}

	tmpPath := s.path + ".compact"
	oldPath := s.path + ".old"
	_ = os.RemoveAll(tmpPath)
	_ = os.RemoveAll(oldPath)

	fresh, err := bleve.New(tmpPath, newMapping())
	if err != nil {
		return errors.New(errors.ErrCodeCompactionFailure, "failed to create compacted store", err)
	}

	batch := fresh.NewBatch()
	for key, doc := range docs {
		if err := batch.Index(key, doc); err != nil {
			_ = fresh.Close()
			_ = os.RemoveAll(tmpPath)
			return errors.Newf(errors.ErrCodeCompactionFailure, err, "failed to stage %q", key)
		}
	}
	if err := fresh.Batch(batch); err != nil {
		_ = fresh.Close()
		_ = os.RemoveAll(tmpPath)
		return errors.New(errors.ErrCodeCompactionFailure, "failed to write compacted store", err)
	}
	if err := fresh.Close(); err != nil {
		_ = os.RemoveAll(tmpPath)
		return errors.New(errors.ErrCodeCompactionFailure, "failed to close compacted store", err)
	}

	if err := s.idx.Close(); err != nil {
		return errors.New(errors.ErrCodeCompactionFailure, "failed to close live store", err)
	}
	s.idx = nil

	if err := os.Rename(s.path, oldPath); err != nil {
		return errors.New(errors.ErrCodeCompactionFailure, "failed to move live store aside", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		// Roll the old index back so the store stays usable.
		_ = os.Rename(oldPath, s.path)
		return errors.New(errors.ErrCodeCompactionFailure, "failed to swap compacted store in", err)
	}
	_ = os.RemoveAll(oldPath)

	idx, err := bleve.Open(s.path)
	if err != nil {
		return errors.New(errors.ErrCodeCompactionFailure, "failed to reopen compacted store", err)
	}
	s.idx = idx
	s.keys.Purge()

	slog.Info("store compacted",
		slog.String("path", s.path),
		slog.Int("documents", len(docs)),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// enumerate returns every document in idx as stored fields.
func enumerate(idx bleve.Index) (map[string]map[string]any, error) {
	count, err := idx.DocCount()
	if err != nil {
		return nil, err
	}
	docs := make(map[string]map[string]any, count)
	if count == 0 {
		return docs, nil
	}

	req := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	req.Size = int(count)
	req.Fields = []string{"*"}
	res, err := idx.Search(req)
	if err != nil {
		return nil, err
	}
	for _, hit := range res.Hits {
		docs[hit.ID] = hit.Fields
	}
	return docs, nil
}

// Verify interface implementation.
var _ index.PrimaryWriter = (*Writer)(nil)
