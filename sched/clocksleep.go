package sched

import "github.com/rumprun-go/corekernel/hostabi"

// SleepKind selects clock_sleep's two variants.
type SleepKind int

const (
	// RelWall sleeps for a relative duration.
	RelWall SleepKind = iota
	// AbsMono sleeps until an absolute monotonic deadline.
	AbsMono
)

// ClockSleep implements the clock-sleep adapter exposed to higher layers:
// RelWall sleeps for sec seconds plus nsec nanoseconds using MSleep;
// AbsMono sleeps until the absolute monotonic deadline sec*1e9+nsec using
// the current thread's wakeup_time directly.
func (s *Scheduler) ClockSleep(kind SleepKind, sec, nsec int64) bool {
	s.facade.unschedule()
	defer s.facade.schedule()
	switch kind {
	case RelWall:
		ms := uint64(sec*1000 + nsec/1_000_000)
		return s.MSleep(ms)
	case AbsMono:
		return s.sleepUntil(sec*1_000_000_000 + nsec)
	default:
		return false
	}
}
