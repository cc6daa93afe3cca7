package testbench

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i5heu/GoBoundedFifo/pkg/boundedfifo"
	"github.com/i5heu/GoBoundedFifo/pkg/chanfifo"
)

func TestRunTimedTestDrainsEverything(t *testing.T) {
	q := boundedfifo.New[*int](64)

	tally := RunTimedTest(q, Config{NumProducers: 4}, 250*time.Millisecond,
		func(i int) *int {
			v := i
			return &v
		})

	// With the drain phase, nothing successfully pushed may be left behind.
	assert.Equal(t, tally.Produced, tally.Consumed)
	assert.Equal(t, uint64(0), q.Len())
	require.Positive(t, tally.Produced)
	assert.Equal(t, tally.Produced+tally.Full+tally.Locked+tally.Preempted, tally.Attempts())
	assert.GreaterOrEqual(t, tally.Elapsed, 250*time.Millisecond)
}

func TestRunTimedTestChannelBaselineNeverContends(t *testing.T) {
	q := chanfifo.New[*int](64)

	tally := RunTimedTest(q, Config{NumProducers: 4}, 250*time.Millisecond,
		func(i int) *int {
			v := i
			return &v
		})

	assert.Equal(t, tally.Produced, tally.Consumed)
	// Channel sends are atomic: full is the only possible rejection.
	assert.Zero(t, tally.Locked)
	assert.Zero(t, tally.Preempted)
}
