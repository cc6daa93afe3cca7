package main

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/i5heu/GoBoundedFifo/pkg/boundedfifo"
)

// =============================================================================
// Contention Test Suite
// =============================================================================
//
// These tests target the race window the status protocol exists to surface:
// a producer passing the lock-free capacity check and then losing the last
// slot to another producer before it can acquire the lock (PREEMPTED), or
// finding the lock taken outright (LOCKED).
//
// =============================================================================

// TestRejectionStatusesUnderContention hammers a tiny queue from many
// producers while the consumer drains slowly, so push attempts are rejected
// most of the time. It checks that rejections happen, that every status
// comes from the documented set, and that the per-status tallies add up.
func TestRejectionStatusesUnderContention(t *testing.T) {
	const (
		numProducers = 8
		capacity     = 2
		duration     = 500 * time.Millisecond
	)
	q := boundedfifo.New[int](capacity)

	var success, full, locked, preempted atomic.Int64
	var stop atomic.Bool

	var prodWg sync.WaitGroup
	prodWg.Add(numProducers)
	for p := 0; p < numProducers; p++ {
		go func() {
			defer prodWg.Done()
			for i := 0; !stop.Load(); i++ {
				switch st := q.TryPush(i); st {
				case boundedfifo.StatusSuccess:
					success.Add(1)
				case boundedfifo.StatusFull:
					full.Add(1)
				case boundedfifo.StatusLocked:
					locked.Add(1)
				case boundedfifo.StatusPreempted:
					preempted.Add(1)
				default:
					t.Errorf("undocumented push status %v", st)
					return
				}
			}
		}()
	}

	var consumed atomic.Int64
	var consWg sync.WaitGroup
	consWg.Add(1)
	go func() {
		defer consWg.Done()
		for !stop.Load() {
			if _, st := q.TryPop(); st == boundedfifo.StatusSuccess {
				consumed.Add(1)
			}
			// Slow consumer keeps the queue near capacity.
			time.Sleep(time.Millisecond)
		}
	}()

	time.Sleep(duration)
	stop.Store(true)
	prodWg.Wait()
	consWg.Wait()

	// Drain what is left so the accounting below is exact.
	for {
		if _, st := q.TryPop(); st != boundedfifo.StatusSuccess {
			break
		}
		consumed.Add(1)
	}

	t.Logf("success=%d full=%d locked=%d preempted=%d consumed=%d",
		success.Load(), full.Load(), locked.Load(), preempted.Load(), consumed.Load())

	if success.Load() == 0 {
		t.Fatal("no push ever succeeded")
	}
	if full.Load()+locked.Load()+preempted.Load() == 0 {
		t.Fatal("a saturated capacity-2 queue produced no rejections at all")
	}
	if got, want := consumed.Load(), success.Load(); got != want {
		t.Fatalf("consumed %d items but %d pushes succeeded", got, want)
	}
	if runtime.GOMAXPROCS(0) > 1 && locked.Load() == 0 && preempted.Load() == 0 {
		t.Log("no lock contention observed this run; scheduler never overlapped producers in the race window")
	}
}

// TestConsumerNeverStarved keeps producers pushing while a blocking consumer
// must make steady progress through a fixed number of items.
func TestConsumerNeverStarved(t *testing.T) {
	const (
		numProducers = 8
		totalItems   = 20000
		capacity     = 16
	)
	q := boundedfifo.New[int](capacity)

	wd := newWatchdog(t, "ConsumerNeverStarved")
	wd.Start()
	defer wd.Stop()

	var pushed atomic.Int64
	var prodWg sync.WaitGroup
	prodWg.Add(numProducers)
	for p := 0; p < numProducers; p++ {
		go func() {
			defer prodWg.Done()
			for {
				n := pushed.Load()
				if n >= totalItems {
					return
				}
				if q.TryPush(int(n)) == boundedfifo.StatusSuccess {
					pushed.Add(1)
					wd.Progress()
				} else {
					runtime.Gosched()
				}
			}
		}()
	}

	for i := 0; i < totalItems; i++ {
		q.PopBlocking()
		wd.Progress()
	}

	prodWg.Wait()

	// Producers may have raced past the totalItems check; drain any excess.
	for {
		if _, st := q.TryPop(); st != boundedfifo.StatusSuccess {
			break
		}
	}
	if q.Len() != 0 {
		t.Fatalf("queue not empty after drain: %d items left", q.Len())
	}
}
