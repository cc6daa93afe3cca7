package queue

import (
	"context"

	"github.com/i5heu/GoBoundedFifo/pkg/boundedfifo"
	"github.com/i5heu/GoBoundedFifo/pkg/chanfifo"
)

// ContractInterface is a *type constraint* that ensures any queue type Q
// carries the full bounded-FIFO contract. We never store Q in a runtime
// interface — it is only used at compile time to ensure matching signatures.
type ContractInterface[T any] interface {
	// TryPush attempts to append an item without blocking the producer.
	// It reports StatusSuccess, StatusFull, StatusLocked or StatusPreempted.
	TryPush(T) boundedfifo.Status

	// TryPop removes and returns the oldest item, or reports StatusEmpty
	// without mutating state. Single consumer only.
	TryPop() (T, boundedfifo.Status)

	// PopBlocking removes and returns the oldest item, suspending the
	// consumer until one is available. Single consumer only.
	PopBlocking() T

	// PopContext behaves like PopBlocking but honours ctx cancellation.
	PopContext(ctx context.Context) (T, error)

	// Len returns the current occupancy (diagnostic snapshot only).
	Len() uint64

	// Cap returns the fixed capacity.
	Cap() uint64
}

// Compile-time enforcement that all implementations satisfy the contract.
var (
	_ ContractInterface[int] = (*boundedfifo.BoundedQueue[int])(nil)
	_ ContractInterface[int] = (*chanfifo.ChanQueue[int])(nil)
)
