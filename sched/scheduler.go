package sched

import (
	"github.com/rumprun-go/corekernel/corelog"
	"github.com/rumprun-go/corekernel/hostabi"
	"v.io/x/lib/buildinfo"
)

// StackOrder is the page-allocator order used for a thread's owned stack
// accounting region (8 pages), matching STACK_SIZE_PAGE_ORDER.
const StackOrder = 3

// minWakeupHorizon bounds how far into the future the idle branch will ask
// the CPU to sleep when no thread has a nearer deadline, matching the
// selection algorithm's "now + 10s" initialization of min_wakeup.
const minWakeupHorizon = 10_000_000_000 // 10s in nanoseconds

// Scheduler owns the run set R, the exited set E, the join-wait set J, and
// the currently running thread. A single process-wide Scheduler models the
// single-CPU assumption the rest of the design makes explicit: there is
// exactly one of these in a running guest, analogous to now()/IRQSave
// being free functions in hostabi.
type Scheduler struct {
	r *runSet
	e *runSet
	j joinSet

	current *Thread
	hook    func(prevCookie, nextCookie interface{})
	facade  rtfacade

	threadsStarted bool
}

// New creates an empty Scheduler. The caller must still call InitMainLWP to
// attach the bootstrap thread before creating any other threads.
func New() *Scheduler {
	return &Scheduler{
		r:      newRunSet(),
		e:      newRunSet(),
		j:      newJoinSet(),
		facade: defaultFacade,
	}
}

// SetSchedHook installs fn to be invoked as fn(prev.Cookie, next.Cookie)
// immediately before every non-trivial context switch.
func (s *Scheduler) SetSchedHook(fn func(prevCookie, nextCookie interface{})) {
	s.hook = fn
}

// ThreadsStarted reports whether the idle thread has run at least once.
// Exposed purely as a test hook; no scheduling decision reads it, per the
// port's own note that the flag is a debug hook.
func (s *Scheduler) ThreadsStarted() bool {
	return s.threadsStarted
}

// Current returns the thread presently selected to run.
func (s *Scheduler) Current() *Thread {
	return s.current
}

// InitMainLWP attaches cookie to the currently running (bootstrap) thread
// and returns its descriptor; called once at startup, before any other
// scheduler operation.
func (s *Scheduler) InitMainLWP(cookie interface{}) *Thread {
	corelog.Infof("booting: %s", buildinfo.Info())
	th := &Thread{
		Name:     "main",
		Cookie:   cookie,
		fiber:    hostabi.NewCurrentFiber(),
		runnable: true,
	}
	s.r.pushTail(th)
	s.current = th
	return th
}

// Create allocates and enqueues a new runnable thread running fn(th, arg).
// If stack is non-nil it is adopted with ext_stack semantics and must
// outlive the thread; otherwise a fresh stack-accounting region is
// allocated from the page allocator. Create may be called from any thread;
// it appends at the tail of R under the IRQ mask.
func (s *Scheduler) Create(name string, cookie interface{}, fn func(th *Thread, arg interface{}), arg interface{}, stack []byte) (*Thread, error) {
	ext := stack != nil
	if !ext {
		b, err := hostabi.AllocPages(StackOrder)
		if err != nil {
			return nil, err
		}
		stack = b
	}

	th := &Thread{
		Name:     name,
		Cookie:   cookie,
		stack:    stack,
		extStack: ext,
		runnable: true,
	}
	th.fiber = hostabi.NewFiber(func(any) {
		fn(th, arg)
		s.exitSelf(th)
	}, nil)

	masked := hostabi.IRQSave()
	s.r.pushTail(th)
	hostabi.IRQRestore(masked)
	return th, nil
}

// RunIdleThread creates the scheduler's terminal-fallback idle thread, the
// unique member of R whenever nothing else is runnable.
func (s *Scheduler) RunIdleThread() (*Thread, error) {
	return s.Create("idle", nil, func(th *Thread, _ interface{}) {
		s.threadsStarted = true
		for {
			s.Block(th)
			s.Schedule()
		}
	}, nil, nil)
}

// Block clears runnable and wakeup_time on t. It is a pure state change:
// it does not yield. The caller must subsequently call Schedule (directly
// or via MSleep/Join) for the block to take effect.
func (s *Scheduler) Block(t *Thread) {
	masked := hostabi.IRQSave()
	t.runnable = false
	t.wakeupTime = 0
	hostabi.IRQRestore(masked)
}

// Wake clears wakeup_time and sets runnable on t. Idempotent: waking an
// already-runnable thread is a no-op on observable state. Does not yield.
func (s *Scheduler) Wake(t *Thread) {
	masked := hostabi.IRQSave()
	t.wakeupTime = 0
	t.runnable = true
	hostabi.IRQRestore(masked)
}

// MSleep sleeps the current thread until now()+ms milliseconds. It returns
// true iff the sleep ended by timeout, as opposed to an explicit Wake
// observed before the deadline.
func (s *Scheduler) MSleep(ms uint64) bool {
	return s.sleepUntil(hostabi.Now() + int64(ms)*1_000_000)
}

// AbsMSleep is like MSleep but deadline is absolute milliseconds since the
// monotonic epoch rather than relative to now.
func (s *Scheduler) AbsMSleep(ms uint64) bool {
	return s.sleepUntil(int64(ms) * 1_000_000)
}

func (s *Scheduler) sleepUntil(deadlineNS int64) bool {
	cur := s.current
	masked := hostabi.IRQSave()
	cur.wakeupTime = deadlineNS
	cur.runnable = false
	hostabi.IRQRestore(masked)

	s.Schedule()

	timedOut := cur.timedOut
	cur.timedOut = false
	return timedOut
}

// Schedule yields to the next runnable thread, the selection algorithm's
// entry point. It is fatal to call Schedule from within an event callback
// or with event delivery already masked by the caller.
func (s *Scheduler) Schedule() {
	if hostabi.InEventCallback() {
		corelog.Fatalf("sched: Schedule called from an event callback")
	}
	if hostabi.IRQAlreadyMasked() {
		corelog.Fatalf("sched: Schedule called with event delivery already masked")
	}

	masked := hostabi.IRQSave()

	var next *Thread
	for {
		now := hostabi.Now()
		minWakeup := now + minWakeupHorizon
		next, minWakeup = s.r.selectRunnable(now, minWakeup)
		if next != nil {
			break
		}
		hostabi.IRQRestore(masked)
		hostabi.BlockDomain(minWakeup)
		hostabi.ForceEvtchnCallback()
		masked = hostabi.IRQSave()
	}

	prev := s.current
	s.r.moveToTail(next)
	s.current = next
	hostabi.IRQRestore(masked)

	if prev != next {
		if s.hook != nil {
			s.hook(prev.Cookie, next.Cookie)
		}
		prev.fiber.SwitchTo(next.fiber)
	}

	s.reapExited()
}

// reapExited frees every thread in E other than the one now running: stack
// freed (unless ext_stack), descriptor dropped. Skipping the running
// thread is a safety net; by invariant 2 it is never legitimately a member
// of E while it is also the one executing this code.
func (s *Scheduler) reapExited() {
	masked := hostabi.IRQSave()
	self := s.current
	var toReap []*Thread
	s.e.forEach(func(th *Thread) {
		if th != self {
			toReap = append(toReap, th)
		}
	})
	for _, th := range toReap {
		s.e.remove(th)
	}
	hostabi.IRQRestore(masked)

	for _, th := range toReap {
		if !th.extStack && th.stack != nil {
			hostabi.FreePages(th.stack)
		}
		hostabi.ClearErrno(th.fiber.ID())
	}
}
