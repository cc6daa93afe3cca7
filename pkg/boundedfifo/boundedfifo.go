package boundedfifo

import (
	"context"
	"sync"
	"sync/atomic"
)

// Status is the outcome of a queue operation. Operations on a bounded queue
// fail for structural reasons (full, empty) or transient ones (lock
// contention); none of these are errors, so they are reported as a tagged
// status instead of an error value.
type Status uint8

const (
	// StatusSuccess means the operation completed and the queue changed.
	StatusSuccess Status = iota
	// StatusFull means a push found no free slot before attempting the lock.
	StatusFull
	// StatusEmpty means a pop found nothing to fetch.
	StatusEmpty
	// StatusLocked means a push could not acquire the lock without waiting.
	// The caller should retry later or treat it as back-pressure.
	StatusLocked
	// StatusPreempted means a push passed the capacity pre-check but another
	// producer filled the last slot before this one acquired the lock.
	// Structurally equivalent to StatusFull, reported distinctly so callers
	// can observe that the race actually happened.
	StatusPreempted
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusFull:
		return "FULL"
	case StatusEmpty:
		return "EMPTY"
	case StatusLocked:
		return "LOCKED"
	case StatusPreempted:
		return "PREEMPTED"
	default:
		return "UNKNOWN"
	}
}

// BoundedQueue is a fixed-capacity circular buffer for handing work items
// from any number of producer goroutines to a single consumer goroutine.
//
// Producers call TryPush, which never blocks: it fails fast with StatusFull,
// StatusLocked or StatusPreempted rather than waiting. The consumer calls
// TryPop, PopBlocking or PopContext. The slot array, both indices and the
// count form one consistency unit guarded by a single mutex; the count is
// additionally readable without the lock for the cheap fast-path checks.
type BoundedQueue[T any] struct {
	mu    sync.Mutex
	ready *sync.Cond // predicate: count > 0

	slots      []T
	insertion  uint64 // next slot to write, advanced mod capacity
	extraction uint64 // next slot to read, advanced mod capacity
	count      atomic.Uint64

	capacity uint64
}

// New creates an empty queue with the given fixed capacity.
// Capacity zero is a configuration error and panics.
func New[T any](capacity uint64) *BoundedQueue[T] {
	if capacity == 0 {
		panic("boundedfifo: capacity must be at least 1")
	}
	q := &BoundedQueue[T]{
		slots:    make([]T, capacity),
		capacity: capacity,
	}
	q.ready = sync.NewCond(&q.mu)
	return q
}

// TryPush attempts to append item to the queue without ever blocking the
// calling producer. It returns StatusSuccess, or one of StatusFull,
// StatusLocked, StatusPreempted if the item was not stored.
//
// Safe to call from any number of goroutines.
func (q *BoundedQueue[T]) TryPush(item T) Status {
	// Fast path: reject before touching the lock to avoid contention.
	if q.count.Load() >= q.capacity {
		return StatusFull
	}

	if !q.mu.TryLock() {
		return StatusLocked
	}

	// Between the fast-path check and TryLock another producer may have
	// taken the last slot. Re-check now that we hold the lock.
	if q.count.Load() >= q.capacity {
		q.mu.Unlock()
		return StatusPreempted
	}

	q.slots[q.insertion] = item
	q.insertion = (q.insertion + 1) % q.capacity
	q.count.Add(1)
	q.mu.Unlock()

	// Wake the consumer if it is parked in PopBlocking/PopContext.
	// Signalling with no waiter is harmless: a consumer that arrives later
	// re-checks the count before waiting.
	q.ready.Signal()
	return StatusSuccess
}

// TryPop removes and returns the oldest item. It returns the zero value and
// StatusEmpty if the queue holds nothing, without mutating any state.
//
// Must only be called from the single consumer goroutine.
func (q *BoundedQueue[T]) TryPop() (T, Status) {
	// Fast path: nothing to fetch, skip the lock entirely.
	if q.count.Load() == 0 {
		var zero T
		return zero, StatusEmpty
	}

	// Only the single consumer removes items, so the count cannot have
	// dropped since the check above; it can only have grown. The lock wait
	// here is bounded by a producer's O(1) critical section.
	q.mu.Lock()
	item := q.extract()
	q.mu.Unlock()
	return item, StatusSuccess
}

// PopBlocking removes and returns the oldest item, suspending the calling
// consumer until an item is available. This is the only operation that can
// wait unboundedly.
//
// Must only be called from the single consumer goroutine.
func (q *BoundedQueue[T]) PopBlocking() T {
	q.mu.Lock()
	for q.count.Load() == 0 {
		q.ready.Wait()
	}
	item := q.extract()
	q.mu.Unlock()
	return item
}

// PopContext behaves like PopBlocking but gives up when ctx is cancelled,
// returning the zero value and ctx.Err().
//
// Must only be called from the single consumer goroutine.
func (q *BoundedQueue[T]) PopContext(ctx context.Context) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	// The cond has no native cancellation, so a watcher wakes the waiter
	// when ctx fires. Broadcasting under the lock closes the window where
	// the waiter has checked ctx but not yet entered Wait.
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		q.ready.Broadcast()
	})
	defer stop()

	q.mu.Lock()
	for q.count.Load() == 0 {
		if err := ctx.Err(); err != nil {
			q.mu.Unlock()
			return zero, err
		}
		q.ready.Wait()
	}
	item := q.extract()
	q.mu.Unlock()
	return item, nil
}

// extract removes the item at the extraction index. The caller must hold
// q.mu and have verified count > 0. The vacated slot is zeroed so the queue
// does not retain a reference to the moved-out value.
func (q *BoundedQueue[T]) extract() T {
	item := q.slots[q.extraction]
	var zero T
	q.slots[q.extraction] = zero
	q.extraction = (q.extraction + 1) % q.capacity
	q.count.Add(^uint64(0)) // decrement
	return item
}

// Len returns the current occupancy as a coherent snapshot. It is meant for
// diagnostics and tests; by the time the caller looks at it, concurrent
// producers may already have changed it.
func (q *BoundedQueue[T]) Len() uint64 {
	return q.count.Load()
}

// Cap returns the fixed capacity the queue was created with.
func (q *BoundedQueue[T]) Cap() uint64 {
	return q.capacity
}
