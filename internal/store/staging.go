package store

import (
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/zhhbo/Examine/internal/errors"
	"github.com/zhhbo/Examine/pkg/index"
)

// StagingWriter is a writer over a transient mem-only index. It batches
// new documents in isolation from the persistent store until a primary
// writer merges them in.
type StagingWriter struct {
	mu     sync.Mutex
	idx    bleve.Index
	batch  *bleve.Batch
	closed bool
}

// AddOrUpdate stages a document write under the given key.
func (s *StagingWriter) AddOrUpdate(key string, doc index.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New(errors.ErrCodeApplyFailure, "staging writer is closed", nil)
	}
	if err := s.batch.Index(key, map[string]any(doc)); err != nil {
		return errors.Newf(errors.ErrCodeApplyFailure, err, "failed to stage document %q", key)
	}
	return nil
}

// Delete stages removal of the document with the given key. Rarely used
// on a staging store but part of the writer contract.
func (s *StagingWriter) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New(errors.ErrCodeApplyFailure, "staging writer is closed", nil)
	}
	s.batch.Delete(key)
	return nil
}

// Commit applies the staged batch to the transient index.
func (s *StagingWriter) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New(errors.ErrCodeApplyFailure, "staging writer is closed", nil)
	}
	if s.batch.Size() == 0 {
		return nil
	}
	if err := s.idx.Batch(s.batch); err != nil {
		return errors.New(errors.ErrCodeApplyFailure, "failed to commit staging batch", err)
	}
	s.batch = s.idx.NewBatch()
	return nil
}

// DocCount returns the number of committed documents in the staging
// store.
func (s *StagingWriter) DocCount() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, errors.New(errors.ErrCodeApplyFailure, "staging writer is closed", nil)
	}
	return s.idx.DocCount()
}

// Close discards the transient index. Idempotent.
func (s *StagingWriter) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.idx.Close()
	s.idx = nil
	s.batch = nil
	return err
}

// documents returns the committed contents keyed by document id.
func (s *StagingWriter) documents() (map[string]map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.New(errors.ErrCodeApplyFailure, "staging writer is closed", nil)
	}
	return enumerate(s.idx)
}

// Verify interface implementation.
var _ index.StagingWriter = (*StagingWriter)(nil)
