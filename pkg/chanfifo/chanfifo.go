package chanfifo

import (
	"context"

	"github.com/i5heu/GoBoundedFifo/pkg/boundedfifo"
)

// ChanQueue is a baseline implementation of the bounded FIFO contract on
// top of a buffered Go channel. It exists as a comparison point for the
// mutex-based queue: channel sends either succeed or find the buffer full
// as one atomic step, so this implementation never reports StatusLocked or
// StatusPreempted.
type ChanQueue[T any] struct {
	ch chan T
}

// New creates an empty channel-backed queue with the given fixed capacity.
// Capacity zero is a configuration error and panics: a zero-capacity Go
// channel is an unbuffered rendezvous, not a zero-capacity buffer.
func New[T any](capacity uint64) *ChanQueue[T] {
	if capacity == 0 {
		panic("chanfifo: capacity must be at least 1")
	}
	return &ChanQueue[T]{ch: make(chan T, capacity)}
}

// TryPush attempts to append item without blocking.
func (q *ChanQueue[T]) TryPush(item T) boundedfifo.Status {
	select {
	case q.ch <- item:
		return boundedfifo.StatusSuccess
	default:
		return boundedfifo.StatusFull
	}
}

// TryPop removes and returns the oldest item without blocking.
func (q *ChanQueue[T]) TryPop() (T, boundedfifo.Status) {
	select {
	case item := <-q.ch:
		return item, boundedfifo.StatusSuccess
	default:
		var zero T
		return zero, boundedfifo.StatusEmpty
	}
}

// PopBlocking removes and returns the oldest item, waiting until one is
// available.
func (q *ChanQueue[T]) PopBlocking() T {
	return <-q.ch
}

// PopContext behaves like PopBlocking but gives up when ctx is cancelled.
func (q *ChanQueue[T]) PopContext(ctx context.Context) (T, error) {
	select {
	case item := <-q.ch:
		return item, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Len returns the current occupancy.
func (q *ChanQueue[T]) Len() uint64 {
	return uint64(len(q.ch))
}

// Cap returns the fixed capacity the queue was created with.
func (q *ChanQueue[T]) Cap() uint64 {
	return uint64(cap(q.ch))
}
