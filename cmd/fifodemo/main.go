package main

import (
	"fmt"

	"github.com/i5heu/GoBoundedFifo/pkg/boundedfifo"
)

// demoCapacity matches the capacity used by the reference test rig.
const demoCapacity = 5

// opKind distinguishes the two scripted operations.
type opKind int

const (
	opPush opKind = iota
	opPop
)

// step is one scripted call against the queue.
type step struct {
	kind  opKind
	value int // pushed value, only meaningful for opPush
}

// stepResult records what a step observed.
type stepResult struct {
	step   step
	status boundedfifo.Status
	value  int // popped value, only meaningful for successful pops
	depth  uint64
}

// script is the fixed push/pop sequence of the demo: probe the empty queue,
// part-fill and drain once, then fill to capacity, overflow, and drain dry.
func script() []step {
	return []step{
		{kind: opPop},
		{kind: opPush, value: 7},
		{kind: opPush, value: 8},
		{kind: opPop},
		{kind: opPush, value: 9},
		{kind: opPush, value: 10},
		{kind: opPush, value: 11},
		{kind: opPush, value: 12},
		{kind: opPush, value: 13},
		{kind: opPop},
		{kind: opPop},
		{kind: opPop},
		{kind: opPop},
		{kind: opPop},
		{kind: opPop},
	}
}

// runScript drives the queue through the scripted sequence and collects
// what each step observed.
func runScript(q *boundedfifo.BoundedQueue[int], steps []step) []stepResult {
	results := make([]stepResult, 0, len(steps))
	for _, s := range steps {
		var r stepResult
		r.step = s
		switch s.kind {
		case opPush:
			r.status = q.TryPush(s.value)
		case opPop:
			r.value, r.status = q.TryPop()
		}
		r.depth = q.Len()
		results = append(results, r)
	}
	return results
}

func main() {
	fmt.Println("** Bounded FIFO demo - scripted single-threaded test rig **")

	q := boundedfifo.New[int](demoCapacity)
	fmt.Printf("\nFifo population at start-up is %d\n", q.Len())

	for i, r := range runScript(q, script()) {
		switch r.step.kind {
		case opPush:
			fmt.Printf("\n** Test %d ** Pushing the value %d onto fifo\n", i+1, r.step.value)
		case opPop:
			fmt.Printf("\n** Test %d ** Trying to pop a value from fifo\n", i+1)
		}
		fmt.Printf("Status result of operation was %s\n", r.status)
		fmt.Printf("Fifo population after test is %d\n", r.depth)
		if r.step.kind == opPop && r.status == boundedfifo.StatusSuccess {
			fmt.Printf("Popped value is %d\n", r.value)
		}
	}
}
