package chanfifo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i5heu/GoBoundedFifo/pkg/boundedfifo"
)

func TestNewPanicsOnZeroCapacity(t *testing.T) {
	require.Panics(t, func() { New[int](0) })
}

func TestFIFOOrderAndStatuses(t *testing.T) {
	q := New[int](3)
	assert.Equal(t, uint64(3), q.Cap())

	_, st := q.TryPop()
	require.Equal(t, boundedfifo.StatusEmpty, st)

	require.Equal(t, boundedfifo.StatusSuccess, q.TryPush(1))
	require.Equal(t, boundedfifo.StatusSuccess, q.TryPush(2))
	require.Equal(t, boundedfifo.StatusSuccess, q.TryPush(3))
	require.Equal(t, uint64(3), q.Len())

	// A channel send either succeeds or finds the buffer full; there is no
	// LOCKED or PREEMPTED outcome to observe.
	require.Equal(t, boundedfifo.StatusFull, q.TryPush(4))

	for _, want := range []int{1, 2, 3} {
		v, st := q.TryPop()
		require.Equal(t, boundedfifo.StatusSuccess, st)
		require.Equal(t, want, v)
	}
	_, st = q.TryPop()
	require.Equal(t, boundedfifo.StatusEmpty, st)
}

func TestPopBlockingWakesOnPush(t *testing.T) {
	q := New[int](2)

	got := make(chan int, 1)
	go func() {
		got <- q.PopBlocking()
	}()

	select {
	case v := <-got:
		t.Fatalf("PopBlocking returned %d from an empty queue", v)
	case <-time.After(50 * time.Millisecond):
	}

	require.Equal(t, boundedfifo.StatusSuccess, q.TryPush(42))

	select {
	case v := <-got:
		assert.Equal(t, 42, v)
	case <-time.After(2 * time.Second):
		t.Fatal("PopBlocking was not woken by the push")
	}
}

func TestPopContext(t *testing.T) {
	q := New[int](2)
	require.Equal(t, boundedfifo.StatusSuccess, q.TryPush(7))

	v, err := q.PopContext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = q.PopContext(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
