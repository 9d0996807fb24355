package hostabi

// inEventCallback simulates being inside the hypervisor's event (interrupt)
// callback context, used by tests to exercise the scheduler's "must not be
// called from within an interrupt callback" precondition. Modeled as a
// package-level flag rather than per-goroutine state since, like the IRQ
// mask, there is exactly one callback context on a single-CPU guest.
var inEventCallback bool

// InEventCallback reports whether the caller is (simulated to be) running
// inside an event callback.
func InEventCallback() bool {
	return inEventCallback
}

// RunEventCallback simulates delivering an event by running fn with
// InEventCallback reporting true for its duration.
func RunEventCallback(fn func()) {
	inEventCallback = true
	defer func() { inEventCallback = false }()
	fn()
}
