package sched

import (
	"github.com/rumprun-go/corekernel/corelog"
	"github.com/rumprun-go/corekernel/hostabi"
	"v.io/x/lib/nsync"
)

// joinEntry is a (waiter, wanted) pair: present only while waiter is
// parked inside Join.
type joinEntry struct {
	waiter *Thread
	wanted *Thread
}

// joinSet is the join-wait set J, guarded by its own nsync.Mu rather than
// the scheduler's IRQ mask: the exit/join protocol explicitly drops the
// IRQ mask around its J manipulation (to let events be delivered while a
// thread parks), so J needs a mutual-exclusion mechanism that outlives
// that window. This is the sync-primitives facade exercised directly by
// the scheduler, not just by blkio.
type joinSet struct {
	mu      nsync.Mu
	entries []joinEntry
}

func newJoinSet() joinSet {
	return joinSet{}
}

// SetMustJoin marks t as joinable; must be called by the higher layer that
// created t, before t can exit, per the exit/join precondition.
func (s *Scheduler) SetMustJoin(t *Thread) {
	masked := hostabi.IRQSave()
	t.mustJoin = true
	hostabi.IRQRestore(masked)
}

// MustJoin reports whether t has been marked joinable.
func (t *Thread) MustJoin() bool {
	return t.mustJoin
}

// Exit is called by a thread to terminate itself. If the thread is
// joinable, it blocks until its joiner has acknowledged; it is then
// removed from R, pushed to the front of E, and loops calling Schedule.
// Exit never returns; any return from the inner Schedule loop is a bug
// and is logged before retrying.
func (s *Scheduler) Exit() {
	s.exitSelf(s.current)
}

func (s *Scheduler) exitSelf(self *Thread) {
	for self.mustJoin {
		masked := hostabi.IRQSave()
		self.joined = true
		hostabi.IRQRestore(masked)

		s.j.mu.Lock()
		for i := range s.j.entries {
			if s.j.entries[i].wanted == self {
				s.Wake(s.j.entries[i].waiter)
			}
		}
		s.j.mu.Unlock()

		s.Block(self)
		s.Schedule()
		// On resumption, re-check must_join: Join clears it once it has
		// observed joined, at which point this loop exits.
	}

	masked := hostabi.IRQSave()
	s.r.remove(self)
	self.runnable = false
	s.e.pushFront(self)
	hostabi.IRQRestore(masked)

	for {
		s.Schedule()
		corelog.Errorf("sched: Schedule returned to an exited thread %q, retrying", self.Name)
	}
}

// Join blocks the calling thread until t has called Exit and is joined.
// Join asserts (fatally) that t was marked joinable by SetMustJoin before
// this call.
func (s *Scheduler) Join(t *Thread) {
	if !t.MustJoin() {
		corelog.Fatalf("sched: Join called on thread %q that is not must_join", t.Name)
	}

	self := s.current
	for !t.joined {
		s.j.mu.Lock()
		s.j.entries = append(s.j.entries, joinEntry{waiter: self, wanted: t})
		s.j.mu.Unlock()

		s.Block(self)
		s.Schedule()

		s.j.mu.Lock()
		for i := range s.j.entries {
			if s.j.entries[i].waiter == self && s.j.entries[i].wanted == t {
				s.j.entries = append(s.j.entries[:i], s.j.entries[i+1:]...)
				break
			}
		}
		s.j.mu.Unlock()
	}

	if !t.joined {
		corelog.Fatalf("sched: Join woke without observing t.joined")
	}
	masked := hostabi.IRQSave()
	t.mustJoin = false
	hostabi.IRQRestore(masked)

	s.Wake(t)
}
