package index

// Document is the converted form of an item, ready for the store: field
// name to store-encodable value. The id/category fields are included.
type Document map[string]any

// Store is the write-side surface of a full-text store.
//
// Implementations must be safe for concurrent use. The pipeline never
// relies on store internals beyond this contract, so backends are
// swappable.
type Store interface {
	// Exists reports whether the persistent store has been created.
	Exists() bool

	// IsLocked reports whether another writer currently holds the store.
	IsLocked() bool

	// OpenWriter opens a writer against the persistent store. When create
	// is true a missing store is created first; otherwise a missing store
	// is an error.
	OpenWriter(create bool) (PrimaryWriter, error)

	// OpenStagingWriter opens a writer against a fresh, empty transient
	// store that is isolated from the persistent one.
	OpenStagingWriter() (StagingWriter, error)

	// LookupByKey reports whether a document with the given key is
	// present in the persistent store.
	LookupByKey(key string) (bool, error)
}

// Writer stages mutations against a store and applies them atomically on
// Commit. Close is idempotent and safe to call with nothing open.
type Writer interface {
	// AddOrUpdate stages a document write under the given key.
	AddOrUpdate(key string, doc Document) error

	// Delete stages removal of the document with the given key.
	Delete(key string) error

	// Commit durably applies everything staged since the last commit.
	Commit() error

	// Close releases the writer. Calling Close more than once, or on a
	// writer that never staged anything, is a no-op.
	Close() error
}

// StagingWriter is a Writer over a transient store whose contents can be
// merged into a primary store.
type StagingWriter interface {
	Writer
}

// PrimaryWriter extends Writer with the merge and maintenance operations
// only the persistent store supports.
type PrimaryWriter interface {
	Writer

	// MergeFrom folds the committed contents of a staging writer into the
	// persistent store without forcing a full compaction.
	MergeFrom(staging StagingWriter) error

	// WaitForPendingMerges blocks until background merge work has been
	// applied. Synchronous submissions use this for read-after-write.
	WaitForPendingMerges()

	// Compact consolidates the persistent store. Requires exclusive
	// access; callers must guarantee no concurrent writer activity. When
	// blocking is false the work may continue in the background.
	Compact(blocking bool) error
}

// Converter maps an item's typed fields into store-specific encodings.
// Stores may implement it; the pipeline falls back to a raw passthrough
// when they do not. Conversion failures are returned per field; the
// document is still indexable from the returned Document.
type Converter interface {
	Convert(item Item) (Document, []error)
}
