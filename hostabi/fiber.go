package hostabi

import "sync/atomic"

// Fiber is this port's stand-in for a kernel thread's machine context. It
// is the narrow boundary the port's own design notes call for: a single
// resume(other) operation, implemented here as one goroutine per logical
// thread plus a pair of unbuffered handoff channels. arch_switch_threads'
// register-context swap becomes SwitchTo's channel send/receive pair; the
// goroutine scheduler never runs two fibers' application code concurrently
// because only the fiber holding the token (the one that received on its
// own resume channel) is outside a blocking receive.
type Fiber struct {
	id     uint64
	resume chan struct{}
	done   chan struct{}
}

var nextFiberID uint64

// NewFiber allocates a Fiber and starts its goroutine, which blocks
// immediately waiting to be resumed for the first time. entry is run with
// arg once some other fiber first calls SwitchTo this one; when entry
// returns, the fiber closes its done channel (the equivalent of a machine
// context that never resumes, matching exit_thread's "never returns"
// contract one level up in sched).
func NewFiber(entry func(arg any), arg any) *Fiber {
	f := &Fiber{
		id:     atomic.AddUint64(&nextFiberID, 1),
		resume: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go func() {
		<-f.resume
		entry(arg)
		close(f.done)
	}()
	return f
}

// ID returns a stable per-fiber identifier, used by the per-thread errno
// slot and by diagnostics; it is assigned once at creation and never
// reused.
func (f *Fiber) ID() uint64 {
	return f.id
}

// SwitchTo hands the token to next and blocks until some other fiber
// switches back to the caller. The caller must be the fiber currently
// holding the token (that invariant is the scheduler's responsibility, not
// this package's).
func (f *Fiber) SwitchTo(next *Fiber) {
	next.resume <- struct{}{}
	<-f.resume
}

// NewCurrentFiber wraps the calling goroutine itself as a Fiber, for the
// bootstrap thread init_mainlwp attaches a cookie to: unlike NewFiber it
// does not spawn a goroutine or take an entry point, since the calling
// goroutine already exists and will drive the scheduler loop directly.
func NewCurrentFiber() *Fiber {
	return &Fiber{
		id:     atomic.AddUint64(&nextFiberID, 1),
		resume: make(chan struct{}),
		done:   make(chan struct{}),
	}
}
