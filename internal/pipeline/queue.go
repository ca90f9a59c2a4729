package pipeline

import (
	"sync"

	"github.com/zhhbo/Examine/pkg/index"
)

// operationQueue is a thread-safe FIFO of pending operations. Multiple
// producers push; the single drain worker pops.
type operationQueue struct {
	mu  sync.Mutex
	ops []index.Operation
}

func newOperationQueue() *operationQueue {
	return &operationQueue{}
}

// push appends ops in submission order.
func (q *operationQueue) push(ops []index.Operation) {
	if len(ops) == 0 {
		return
	}
	q.mu.Lock()
	q.ops = append(q.ops, ops...)
	q.mu.Unlock()
}

// pop removes and returns the oldest operation.
func (q *operationQueue) pop() (index.Operation, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.ops) == 0 {
		return index.Operation{}, false
	}
	op := q.ops[0]
	q.ops = q.ops[1:]
	if len(q.ops) == 0 {
		// Let the backing array go once drained.
		q.ops = nil
	}
	return op, true
}

// len returns the number of queued operations.
func (q *operationQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// empty reports whether the queue has no pending operations.
func (q *operationQueue) empty() bool {
	return q.len() == 0
}
