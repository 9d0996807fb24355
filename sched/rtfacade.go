package sched

// rtfacade stands in for the higher-layer runtime's own scheduler lock
// pair (hyp_schedule/hyp_unschedule) and its callback-capable-thread
// registration (hyp_lwproc_newlwp). The core only needs this contract to
// be concrete enough to compile and test against, not a full separate LWP
// runtime; by default all three hooks are no-ops, and callers that embed a
// richer runtime on top of sched install their own via SetRuntimeFacade.
type rtfacade struct {
	unschedule func()
	schedule   func()
	newLWP     func()
}

var defaultFacade = rtfacade{
	unschedule: func() {},
	schedule:   func() {},
	newLWP:     func() {},
}

// SetRuntimeFacade installs the higher layer's unschedule/schedule/newLWP
// hooks. unschedule is called before a thread gives up the CPU to sleep;
// schedule is called once it has the CPU again; newLWP registers a thread
// (such as blkio's pump) as callback-capable with the surrounding runtime.
func (s *Scheduler) SetRuntimeFacade(unschedule, schedule, newLWP func()) {
	if unschedule != nil {
		s.facade.unschedule = unschedule
	}
	if schedule != nil {
		s.facade.schedule = schedule
	}
	if newLWP != nil {
		s.facade.newLWP = newLWP
	}
}

// RegisterCallbackCapable runs the runtime facade's newLWP hook, the
// concrete implementation of hyp_lwproc_newlwp(0); blkio's pump thread
// calls this once, on its first iteration.
func (s *Scheduler) RegisterCallbackCapable() {
	s.facade.newLWP()
}
