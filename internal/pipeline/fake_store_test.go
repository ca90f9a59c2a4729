package pipeline

import (
	"strconv"
	"sync"
	"time"

	"github.com/zhhbo/Examine/internal/errors"
	"github.com/zhhbo/Examine/pkg/index"
)

// fakeStore is an in-memory index.Store that records the drain engine's
// behavior: applied documents, operation ordering, concurrent writer
// counts, and compactions.
type fakeStore struct {
	mu   sync.Mutex
	docs map[string]index.Document

	// Event log of writer activity, e.g. "delete:1", "merge:2".
	log []string

	compactions int

	// Writer concurrency tracking for the single-flight property.
	openWriters    int
	maxOpenWriters int

	// Failure injection.
	openErr   error
	commitErr error
	failAddID string

	// Per-document write delay, to widen race windows in tests.
	writeDelay time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: map[string]index.Document{}}
}

func (f *fakeStore) Exists() bool   { return true }
func (f *fakeStore) IsLocked() bool { return false }

func (f *fakeStore) OpenWriter(create bool) (index.PrimaryWriter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.openWriters++
	if f.openWriters > f.maxOpenWriters {
		f.maxOpenWriters = f.openWriters
	}
	return &fakePrimaryWriter{store: f}, nil
}

func (f *fakeStore) OpenStagingWriter() (index.StagingWriter, error) {
	return &fakeStagingWriter{store: f, staged: map[string]index.Document{}}, nil
}

func (f *fakeStore) LookupByKey(key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.docs[key]
	return ok, nil
}

func (f *fakeStore) snapshot() map[string]index.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]index.Document, len(f.docs))
	for k, v := range f.docs {
		out[k] = v
	}
	return out
}

func (f *fakeStore) events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.log...)
}

func (f *fakeStore) record(ev string) {
	f.mu.Lock()
	f.log = append(f.log, ev)
	f.mu.Unlock()
}

// fakePrimaryWriter applies deletes to the fake store on Commit; adds
// only ever arrive via MergeFrom, mirroring the real protocol.
type fakePrimaryWriter struct {
	store   *fakeStore
	mu      sync.Mutex
	deletes []string
	closed  int
}

func (w *fakePrimaryWriter) AddOrUpdate(key string, doc index.Document) error {
	// The drain engine never adds directly to the primary.
	w.store.record("primary-add:" + key)
	w.store.mu.Lock()
	w.store.docs[key] = doc
	w.store.mu.Unlock()
	return nil
}

func (w *fakePrimaryWriter) Delete(key string) error {
	w.mu.Lock()
	w.deletes = append(w.deletes, key)
	w.mu.Unlock()
	w.store.record("delete:" + key)
	return nil
}

func (w *fakePrimaryWriter) Commit() error {
	if w.store.commitErr != nil {
		return w.store.commitErr
	}
	w.mu.Lock()
	deletes := w.deletes
	w.deletes = nil
	w.mu.Unlock()

	w.store.mu.Lock()
	for _, key := range deletes {
		delete(w.store.docs, key)
	}
	w.store.mu.Unlock()
	w.store.record("commit-primary")
	return nil
}

func (w *fakePrimaryWriter) MergeFrom(staging index.StagingWriter) error {
	sw := staging.(*fakeStagingWriter)
	sw.mu.Lock()
	committed := sw.committed
	sw.mu.Unlock()

	w.store.mu.Lock()
	for key, doc := range committed {
		w.store.docs[key] = doc
	}
	count := len(committed)
	w.store.mu.Unlock()
	w.store.record("merge:" + strconv.Itoa(count))
	return nil
}

func (w *fakePrimaryWriter) WaitForPendingMerges() {}

func (w *fakePrimaryWriter) Compact(blocking bool) error {
	w.store.mu.Lock()
	w.store.compactions++
	w.store.mu.Unlock()
	w.store.record("compact")
	return nil
}

func (w *fakePrimaryWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed++
	if w.closed > 1 {
		return nil
	}
	w.store.mu.Lock()
	w.store.openWriters--
	w.store.mu.Unlock()
	return nil
}

// fakeStagingWriter buffers adds and exposes them to MergeFrom once
// committed.
type fakeStagingWriter struct {
	store     *fakeStore
	mu        sync.Mutex
	staged    map[string]index.Document
	committed map[string]index.Document
	closed    int
}

func (s *fakeStagingWriter) AddOrUpdate(key string, doc index.Document) error {
	if s.store.writeDelay > 0 {
		time.Sleep(s.store.writeDelay)
	}
	if s.store.failAddID == key {
		return errors.Newf(errors.ErrCodeApplyFailure, nil, "injected failure for %q", key)
	}
	s.mu.Lock()
	s.staged[key] = doc
	s.mu.Unlock()
	s.store.record("stage:" + key)
	return nil
}

func (s *fakeStagingWriter) Delete(key string) error {
	s.mu.Lock()
	delete(s.staged, key)
	s.mu.Unlock()
	return nil
}

func (s *fakeStagingWriter) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed = make(map[string]index.Document, len(s.staged))
	for k, v := range s.staged {
		s.committed[k] = v
	}
	s.store.record("commit-staging")
	return nil
}

func (s *fakeStagingWriter) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

// recordingSink captures pipeline events for assertions.
type recordingSink struct {
	mu         sync.Mutex
	errors     []index.IndexingError
	optStarted int
	optDone    int
	applied    []int
	appliedIDs [][]string
	cancelIDs  map[string]bool
}

func (s *recordingSink) OnIndexingError(err index.IndexingError) {
	s.mu.Lock()
	s.errors = append(s.errors, err)
	s.mu.Unlock()
}

func (s *recordingSink) OnOptimizingStarted() {
	s.mu.Lock()
	s.optStarted++
	s.mu.Unlock()
}

func (s *recordingSink) OnOptimizingFinished() {
	s.mu.Lock()
	s.optDone++
	s.mu.Unlock()
}

func (s *recordingSink) OnDocumentsApplied(count int, ids []string) {
	s.mu.Lock()
	s.applied = append(s.applied, count)
	s.appliedIDs = append(s.appliedIDs, ids)
	s.mu.Unlock()
}

func (s *recordingSink) OnDocumentWriting(ev *index.WritingEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelIDs[ev.ItemID] {
		ev.Cancel = true
	}
}

func (s *recordingSink) errorCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.errors)
}
