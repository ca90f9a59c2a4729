// Package pipeline implements the asynchronous document-indexing
// pipeline: submissions are deduplicated and queued, a single-flight
// worker drains the queue through a two-stage buffered merge-commit
// against the store, and a commit counter schedules periodic compaction.
package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"github.com/zhhbo/Examine/internal/config"
	"github.com/zhhbo/Examine/internal/errors"
	"github.com/zhhbo/Examine/pkg/index"
)

// Pipeline coordinates writes into a full-text store.
//
// All mutable coordination state (the is-draining flag, the cancellation
// flag, and the commit counter) belongs to one Pipeline instance and is
// only touched under its coordination lock. There is no package-level
// state; independent pipelines never interfere.
type Pipeline struct {
	cfg   config.IndexConfig
	store index.Store
	sink  index.EventSink

	queue *operationQueue

	// Coordination lock guarding everything below.
	mu          sync.Mutex
	draining    bool
	cancelling  bool
	commitCount int
	workerDone  chan struct{}
}

// New creates a pipeline over the given store. A nil sink discards
// events.
func New(store index.Store, cfg config.IndexConfig, sink index.EventSink) *Pipeline {
	if sink == nil {
		sink = index.NopSink{}
	}
	return &Pipeline{
		cfg:   cfg,
		store: store,
		sink:  sink,
		queue: newOperationQueue(),
	}
}

// Submit queues a batch of operations and, depending on the configured
// mode, either drains inline (synchronous) or makes sure a background
// worker is running (asynchronous).
//
// In synchronous mode the call blocks until everything queued, including
// anything that cascaded in meanwhile, is drained and merged,
// and store or apply failures are returned after being reported. When
// another caller is already draining, Submit waits for that worker and
// only returns once its own operations have been picked up; fatal
// failures are still returned only to the caller that drained them. In
// asynchronous mode the call returns once the batch is queued; failures
// are reported through the event sink only.
func (p *Pipeline) Submit(ctx context.Context, ops []index.Operation) error {
	ops = p.prepare(ops)
	if len(ops) == 0 {
		return nil
	}
	p.queue.push(ops)

	if p.cfg.Mode == config.ModeSynchronous {
		for {
			if p.tryClaim() {
				return p.work(ctx)
			}
			// Another caller holds the claim. Wait for its worker; the
			// active drain keeps cycling until the queue, including this
			// batch, is empty and merged.
			p.mu.Lock()
			done := p.workerDone
			p.mu.Unlock()
			if done != nil {
				select {
				case <-done:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			if p.queue.empty() || p.IsCancelling() {
				return nil
			}
			// The batch landed after the worker's final empty check;
			// reclaim and drain it here.
		}
	}

	// Optimistic check first; recheck happens inside tryClaim under the
	// coordination lock so two submitters never both start a worker.
	if p.IsDraining() {
		return nil
	}
	if !p.tryClaim() {
		return nil
	}
	go func() {
		_ = p.work(context.WithoutCancel(ctx))
	}()
	return nil
}

// Cancel requests cooperative cancellation. The active drain cycle, if
// any, finishes; no new cycle starts until Resume.
func (p *Pipeline) Cancel() {
	p.mu.Lock()
	p.cancelling = true
	p.mu.Unlock()
}

// Resume clears a previous Cancel.
func (p *Pipeline) Resume() {
	p.mu.Lock()
	p.cancelling = false
	p.mu.Unlock()
}

// IsDraining reports whether a drain worker is active.
func (p *Pipeline) IsDraining() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.draining
}

// IsCancelling reports whether cancellation has been requested.
func (p *Pipeline) IsCancelling() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancelling
}

// CommitCount returns the operations applied since the last compaction.
func (p *Pipeline) CommitCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.commitCount
}

// QueueLen returns the number of pending operations.
func (p *Pipeline) QueueLen() int {
	return p.queue.len()
}

// Close cancels the pipeline and waits for an active worker to finish
// its current cycle. Queued operations that no cycle picked up stay
// unapplied.
func (p *Pipeline) Close(ctx context.Context) error {
	p.Cancel()

	p.mu.Lock()
	done := p.workerDone
	draining := p.draining
	p.mu.Unlock()

	if !draining || done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// prepare deduplicates a submission batch and guarantees the reserved
// fields on every add. Later adds for the same id supersede earlier ones
// in the same batch; deletes are never deduplicated.
func (p *Pipeline) prepare(ops []index.Operation) []index.Operation {
	out := make([]index.Operation, 0, len(ops))
	for _, op := range ops {
		if op.Item.ID == "" {
			p.reportError(errors.Newf(errors.ErrCodeEmptyID, nil,
				"dropping %s operation with empty item id", op.Kind), "")
			continue
		}
		switch op.Kind {
		case index.OpAdd:
			for i := 0; i < len(out); i++ {
				if out[i].Kind == index.OpAdd && out[i].Item.ID == op.Item.ID {
					out = append(out[:i], out[i+1:]...)
					i--
				}
			}
			item := op.Item.Clone()
			ensureReservedFields(&item)
			out = append(out, index.Add(item))
		case index.OpDelete:
			out = append(out, op)
		}
	}
	return out
}

// ensureReservedFields injects the id and category fields if the
// submitter did not set them.
func ensureReservedFields(item *index.Item) {
	if !item.HasField(index.IDField) {
		item.Fields = append(item.Fields, index.Field{
			Name:     index.IDField,
			Value:    item.ID,
			Type:     index.TypeString,
			Sortable: true,
		})
	}
	if !item.HasField(index.CategoryField) {
		item.Fields = append(item.Fields, index.Field{
			Name:     index.CategoryField,
			Value:    item.Category,
			Type:     index.TypeString,
			Sortable: true,
		})
	}
}

// tryClaim marks the pipeline as draining. Exactly one caller wins; the
// claim is released by the worker via release.
func (p *Pipeline) tryClaim() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.draining {
		return false
	}
	p.draining = true
	p.workerDone = make(chan struct{})
	return true
}

// release ends the single-flight claim.
func (p *Pipeline) release() {
	p.mu.Lock()
	p.draining = false
	done := p.workerDone
	p.workerDone = nil
	p.mu.Unlock()
	if done != nil {
		close(done)
	}
}

// addCommits bumps the commit counter under the coordination lock.
func (p *Pipeline) addCommits(n int) {
	p.mu.Lock()
	p.commitCount += n
	p.mu.Unlock()
}

// reportError forwards a failure to the sink and the log.
func (p *Pipeline) reportError(err error, itemID string) {
	p.sink.OnIndexingError(index.IndexingError{
		Message: err.Error(),
		ItemID:  itemID,
		Cause:   err,
	})
	slog.Warn("indexing error",
		slog.String("item_id", itemID),
		slog.String("error", err.Error()))
}
