package testbench

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/i5heu/GoBoundedFifo/internal/queue"
	"github.com/i5heu/GoBoundedFifo/pkg/boundedfifo"
)

// Config describes a producer-side load shape. The consumer side is fixed:
// the queue contract allows exactly one consumer.
type Config struct {
	NumProducers int
}

// Tally is the outcome of one timed run: how many items made it through,
// and how often each non-success push status was observed. Produced counts
// only successful pushes; Full/Locked/Preempted count rejected attempts.
type Tally struct {
	Produced  int64
	Consumed  int64
	Full      int64
	Locked    int64
	Preempted int64
	Elapsed   time.Duration
}

// Attempts returns the total number of push attempts, successful or not.
func (t Tally) Attempts() int64 {
	return t.Produced + t.Full + t.Locked + t.Preempted
}

// RunTimedTest spawns cfg.NumProducers producers and one consumer that run
// for the specified duration, counting how many items are actually pushed
// and popped in that window and how the rejected pushes break down by
// status. Once the context expires, producers stop and the consumer drains
// whatever is left in the queue, so on return Consumed == Produced.
func RunTimedTest[T any, Q queue.ContractInterface[T]](
	q Q,
	cfg Config,
	testDuration time.Duration,
	valueGenerator func(int) T,
) Tally {
	ctx, cancel := context.WithTimeout(context.Background(), testDuration)
	defer cancel()

	var produced, consumed int64
	var full, locked, preempted int64

	start := time.Now()

	var msgIndex int64
	var prodWg sync.WaitGroup
	prodWg.Add(cfg.NumProducers)

	// Flipped once the test duration expires; producers poll it.
	var productionDone atomic.Bool
	go func() {
		<-ctx.Done()
		productionDone.Store(true)
	}()

	for i := 0; i < cfg.NumProducers; i++ {
		go func() {
			defer prodWg.Done()
			for !productionDone.Load() {
				idx := atomic.AddInt64(&msgIndex, 1) - 1
				msg := valueGenerator(int(idx))
				// A rejected item is dropped, not retried: the bench
				// measures hand-off throughput, not delivery guarantees.
				switch q.TryPush(msg) {
				case boundedfifo.StatusSuccess:
					atomic.AddInt64(&produced, 1)
				case boundedfifo.StatusFull:
					atomic.AddInt64(&full, 1)
					runtime.Gosched()
				case boundedfifo.StatusLocked:
					atomic.AddInt64(&locked, 1)
				case boundedfifo.StatusPreempted:
					atomic.AddInt64(&preempted, 1)
					runtime.Gosched()
				}
			}
		}()
	}

	// The single consumer. Uses TryPop rather than PopBlocking so it can
	// notice the end of production instead of parking forever on an empty
	// queue.
	var consWg sync.WaitGroup
	consWg.Add(1)
	go func() {
		defer consWg.Done()
		for {
			if productionDone.Load() {
				// Producers have stopped; drain what remains.
				prodWg.Wait()
				for {
					if _, st := q.TryPop(); st != boundedfifo.StatusSuccess {
						return
					}
					atomic.AddInt64(&consumed, 1)
				}
			}
			if _, st := q.TryPop(); st == boundedfifo.StatusSuccess {
				atomic.AddInt64(&consumed, 1)
			} else {
				runtime.Gosched()
			}
		}
	}()

	<-ctx.Done()
	prodWg.Wait()
	consWg.Wait()

	return Tally{
		Produced:  atomic.LoadInt64(&produced),
		Consumed:  atomic.LoadInt64(&consumed),
		Full:      atomic.LoadInt64(&full),
		Locked:    atomic.LoadInt64(&locked),
		Preempted: atomic.LoadInt64(&preempted),
		Elapsed:   time.Since(start),
	}
}
