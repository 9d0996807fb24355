// Package sched implements the cooperative, non-preemptive, single-CPU
// round-robin kernel thread scheduler: thread creation, the tail-rotation
// run set, timed and explicit wakeups, and the exit/join protocol. It runs
// each kernel thread as a goroutine paired with a hostabi.Fiber, so that
// only one thread's application code is ever live at a time even though
// the underlying runtime is truly concurrent.
package sched

import (
	"container/list"

	"github.com/rumprun-go/corekernel/hostabi"
)

// Thread flags, kept as named booleans on the struct rather than a packed
// bitset: nothing in this port is size-constrained the way the original
// thread descriptor is, and named fields read better in Go than bit
// twiddling.
type Thread struct {
	Name   string
	Cookie interface{}
	Lwp    interface{}

	fiber    *hostabi.Fiber
	stack    []byte
	extStack bool

	runnable   bool
	mustJoin   bool
	joined     bool
	timedOut   bool
	wakeupTime int64 // 0 means not sleeping

	// elem is this thread's node in whichever of the scheduler's R or E
	// list currently holds it; nil once reaped. This is the "owned
	// collection" translation of the source's intrusive list node: the
	// thread doesn't embed the link itself, the scheduler's list owns a
	// node that merely points back to the thread.
	elem *list.Element
	inE  bool
}

// TimedOut reports whether the thread's most recent sleep ended because its
// deadline elapsed, as opposed to an explicit wake.
func (t *Thread) TimedOut() bool {
	return t.timedOut
}

// Runnable reports whether the thread is currently eligible for selection.
func (t *Thread) Runnable() bool {
	return t.runnable
}
