package index

import "log/slog"

// IndexingError describes a per-document or per-cycle failure.
type IndexingError struct {
	Message string
	ItemID  string
	Cause   error
}

// Error implements the error interface.
func (e IndexingError) Error() string {
	if e.ItemID != "" {
		return e.Message + " (item " + e.ItemID + ")"
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e IndexingError) Unwrap() error { return e.Cause }

// WritingEvent is raised before each document write. Setting Cancel skips
// the document without reporting an error.
type WritingEvent struct {
	ItemID   string
	Category string
	Fields   Document
	Cancel   bool
}

// EventSink receives pipeline lifecycle and failure notifications.
//
// Sink methods are invoked from the drain worker; implementations should
// return quickly and must not re-enter the pipeline.
type EventSink interface {
	// OnIndexingError reports a failure. Failures are reported exactly
	// once and the operation is never retried.
	OnIndexingError(err IndexingError)

	// OnOptimizingStarted fires before a compaction pass.
	OnOptimizingStarted()

	// OnOptimizingFinished fires after a compaction pass, successful or not.
	OnOptimizingFinished()

	// OnDocumentsApplied reports how many operations a drain applied.
	OnDocumentsApplied(count int, ids []string)

	// OnDocumentWriting fires before each document write; the handler may
	// cancel the write.
	OnDocumentWriting(ev *WritingEvent)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) OnIndexingError(IndexingError)    {}
func (NopSink) OnOptimizingStarted()             {}
func (NopSink) OnOptimizingFinished()            {}
func (NopSink) OnDocumentsApplied(int, []string) {}
func (NopSink) OnDocumentWriting(*WritingEvent)  {}

// LogSink forwards events to slog.
type LogSink struct{}

func (LogSink) OnIndexingError(err IndexingError) {
	slog.Warn("indexing error",
		slog.String("item_id", err.ItemID),
		slog.String("message", err.Message),
		slog.Any("cause", err.Cause))
}

func (LogSink) OnOptimizingStarted() {
	slog.Info("store optimization starting")
}

func (LogSink) OnOptimizingFinished() {
	slog.Info("store optimization finished")
}

func (LogSink) OnDocumentsApplied(count int, ids []string) {
	slog.Debug("documents applied",
		slog.Int("count", count),
		slog.Int("ids", len(ids)))
}

func (LogSink) OnDocumentWriting(*WritingEvent) {}

// Verify interface implementations.
var (
	_ EventSink = NopSink{}
	_ EventSink = LogSink{}
)
