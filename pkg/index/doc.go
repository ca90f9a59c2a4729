// Package index defines the public contracts for the Examine indexing
// pipeline: the operation/document data model, the store and writer
// interfaces the pipeline drives, and the event sink through which the
// pipeline reports progress and failures.
//
// The concrete bleve-backed store lives in internal/store; the pipeline
// itself lives in internal/pipeline. This package holds only types and
// interfaces so that alternative store backends can be plugged in without
// touching the pipeline.
package index
