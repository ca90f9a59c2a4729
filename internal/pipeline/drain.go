package pipeline

import (
	"context"
	"log/slog"

	"github.com/zhhbo/Examine/internal/config"
	"github.com/zhhbo/Examine/internal/errors"
	"github.com/zhhbo/Examine/pkg/index"
)

// cycleResult summarizes one drain cycle.
type cycleResult struct {
	applied  int
	ids      []string
	applyErr error // first per-operation failure, reported already
}

// work is the body of the single-flight worker. It drains the queue,
// runs the optimization check while still holding the claim, then
// releases. In synchronous mode the first fatal failure is returned to
// the submitting caller; in asynchronous mode everything has already
// been reported through the sink.
func (p *Pipeline) work(ctx context.Context) error {
	var total int
	var fatal error

	for {
		n, err := p.drainAll(ctx)
		total += n
		if fatal == nil {
			fatal = err
		}
		p.maybeOptimize()
		p.release()

		if err != nil || p.IsCancelling() || ctx.Err() != nil {
			break
		}
		// A submission may have landed between the final empty check and
		// the release; reclaim and keep draining so it is not stranded
		// with no active worker.
		if p.queue.empty() {
			break
		}
		if !p.tryClaim() {
			break
		}
	}

	slog.Debug("drain worker finished",
		slog.Int("applied", total),
		slog.Bool("cancelled", p.IsCancelling()))

	if p.cfg.Mode == config.ModeSynchronous {
		if fatal != nil {
			return fatal
		}
		return ctx.Err()
	}
	return nil
}

// drainAll runs drain cycles until the queue is empty, cancellation is
// requested, or a cycle fails outright.
func (p *Pipeline) drainAll(ctx context.Context) (int, error) {
	var total int
	var firstApplyErr error

	for {
		if p.IsCancelling() || ctx.Err() != nil {
			break
		}
		if p.queue.empty() {
			break
		}

		res, err := p.runCycle()
		total += res.applied
		if firstApplyErr == nil {
			firstApplyErr = res.applyErr
		}
		if err != nil {
			// Cycle aborted; remaining operations stay queued for a
			// later submission. Already reported.
			return total, err
		}
	}
	return total, firstApplyErr
}

// runCycle performs one buffered merge-commit pass: stage adds into a
// transient store, delete stale and removed documents from the primary,
// then commit both and fold the staging store into the primary.
//
// The returned error aborts draining (store unavailable, commit or merge
// failure); per-operation failures only land in cycleResult.applyErr.
func (p *Pipeline) runCycle() (cycleResult, error) {
	var res cycleResult

	staging, err := p.store.OpenStagingWriter()
	if err != nil {
		p.reportError(err, "")
		return res, err
	}
	defer func() { _ = staging.Close() }()

	primary, err := p.store.OpenWriter(true)
	if err != nil {
		p.reportError(err, "")
		return res, err
	}
	defer func() { _ = primary.Close() }()

	for {
		op, ok := p.queue.pop()
		if !ok {
			break
		}
		applied := true
		var opErr error
		switch op.Kind {
		case index.OpAdd:
			applied, opErr = p.applyAdd(primary, staging, op.Item)
		case index.OpDelete:
			opErr = p.applyDelete(primary, op.Item.ID)
		}
		if opErr != nil {
			p.reportError(opErr, op.Item.ID)
			if res.applyErr == nil {
				res.applyErr = opErr
			}
			continue
		}
		if !applied {
			continue
		}
		res.applied++
		res.ids = append(res.ids, op.Item.ID)
	}

	// Queue is empty: staged documents first, then the primary's
	// deletes, then fold the staging store in. Deletes land before the
	// merge so an updated document is never visible twice.
	if err := staging.Commit(); err != nil {
		p.reportError(err, "")
		return res, err
	}
	if err := primary.Commit(); err != nil {
		p.reportError(err, "")
		return res, err
	}
	if err := primary.MergeFrom(staging); err != nil {
		p.reportError(err, "")
		return res, err
	}
	if p.cfg.Mode == config.ModeSynchronous {
		primary.WaitForPendingMerges()
	}

	// Count only operations that made it through the commits; an aborted
	// cycle must not advance the compaction schedule.
	p.addCommits(res.applied)

	p.sink.OnDocumentsApplied(res.applied, res.ids)
	slog.Debug("drain cycle complete",
		slog.Int("applied", res.applied),
		slog.Int("remaining", p.queue.len()))
	return res, nil
}

// applyAdd stages one document: converts its fields, lets the sink
// intercept the write, deletes any stale version from the primary, and
// writes the new version into the staging store.
func (p *Pipeline) applyAdd(primary index.PrimaryWriter, staging index.StagingWriter, item index.Item) (bool, error) {
	doc := p.convert(item)

	ev := &index.WritingEvent{ItemID: item.ID, Category: item.Category, Fields: doc}
	p.sink.OnDocumentWriting(ev)
	if ev.Cancel {
		slog.Debug("document write cancelled by sink", slog.String("item_id", item.ID))
		return false, nil
	}

	found, err := p.store.LookupByKey(item.ID)
	if err != nil {
		// Cannot tell; delete defensively so the merge cannot leave a
		// stale duplicate behind.
		slog.Warn("lookup failed, deleting defensively",
			slog.String("item_id", item.ID),
			slog.String("error", err.Error()))
		found = true
	}
	if found {
		if err := primary.Delete(item.ID); err != nil {
			return false, errors.Newf(errors.ErrCodeApplyFailure, err,
				"failed to delete stale document %q", item.ID)
		}
	}

	if err := staging.AddOrUpdate(item.ID, doc); err != nil {
		return false, errors.Newf(errors.ErrCodeApplyFailure, err,
			"failed to stage document %q", item.ID)
	}
	return true, nil
}

// applyDelete removes a document from the primary store.
func (p *Pipeline) applyDelete(primary index.PrimaryWriter, id string) error {
	if err := primary.Delete(id); err != nil {
		return errors.Newf(errors.ErrCodeApplyFailure, err,
			"failed to delete document %q", id)
	}
	return nil
}

// convert maps the item through the store's converter when it has one,
// reporting per-field conversion failures; otherwise the raw values pass
// through.
func (p *Pipeline) convert(item index.Item) index.Document {
	if c, ok := p.store.(index.Converter); ok {
		doc, convErrs := c.Convert(item)
		for _, err := range convErrs {
			p.reportError(err, item.ID)
		}
		return doc
	}

	doc := make(index.Document, len(item.Fields)+2)
	for _, f := range item.Fields {
		doc[f.Name] = f.Value
	}
	doc[index.IDField] = item.ID
	doc[index.CategoryField] = item.Category
	return doc
}

// maybeOptimize triggers a full compaction once the commit counter
// crosses the configured threshold. Runs inside the single-flight claim
// so it can never overlap a drain. The counter resets even when
// compaction fails; a failing store would otherwise be retried on every
// drain.
func (p *Pipeline) maybeOptimize() {
	p.mu.Lock()
	due := p.cfg.CompactionThreshold > 0 &&
		p.commitCount >= p.cfg.CompactionThreshold &&
		!p.cancelling
	p.mu.Unlock()

	if !due || !p.queue.empty() {
		return
	}

	p.sink.OnOptimizingStarted()
	defer p.sink.OnOptimizingFinished()
	defer func() {
		p.mu.Lock()
		p.commitCount = 0
		p.mu.Unlock()
	}()

	writer, err := p.store.OpenWriter(false)
	if err != nil {
		p.reportError(errors.New(errors.ErrCodeCompactionFailure,
			"cannot open store for compaction", err), "")
		return
	}
	defer func() { _ = writer.Close() }()

	blocking := p.cfg.Mode == config.ModeSynchronous
	if err := writer.Compact(blocking); err != nil {
		p.reportError(errors.New(errors.ErrCodeCompactionFailure,
			"store compaction failed", err), "")
	}
}
