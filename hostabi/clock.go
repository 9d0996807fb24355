// Package hostabi supplies this port's concrete implementations of the
// external hypervisor, architecture, and block-backend interfaces the
// kernel core is specified against: a monotonic clock, an IRQ mask, CPU
// idle, a page-aligned allocator, a goroutine-and-channel fiber standing in
// for a machine-context switch, a console sink, a per-thread errno slot,
// and a simulated paravirtual block backend.
package hostabi

import "time"

// nowFunc is used rather than direct calls to time.Now so tests can inject
// a different clock.
var nowFunc = time.Now

var bootTime = nowFunc()

// Now returns monotonic nanoseconds since this process's boot time, the
// concrete implementation of the hypervisor's now().
func Now() int64 {
	return int64(nowFunc().Sub(bootTime))
}

// resetClock rebases bootTime against the current nowFunc. Tests that
// inject a fake clock call this after swapping nowFunc so Now() readings
// are relative to the fake epoch rather than the real process start.
func resetClock() {
	bootTime = nowFunc()
}
