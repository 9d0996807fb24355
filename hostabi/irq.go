package hostabi

import "sync"

// irqMu is the concrete realization of the single-CPU "event delivery mask"
// described by the core: since NCPU is fixed at 1, there is exactly one
// mask, modeled as a package-level singleton rather than a field threaded
// through every call. A real sync.Mutex backs it (per the port's own design
// note that a richer runtime should replace the mask with a scheduler
// mutex) so that the brief window during a fiber handoff where two
// goroutines are both live is still mutually exclusive.
var irqMu sync.Mutex

// IRQAlreadyMasked reports whether event delivery is currently masked,
// without acquiring the mask itself. schedule() uses this to check its
// "not already masked by the caller" precondition before it calls IRQSave.
func IRQAlreadyMasked() bool {
	if irqMu.TryLock() {
		irqMu.Unlock()
		return false
	}
	return true
}

// IRQSave masks event delivery and returns the prior state, for a matching
// IRQRestore. Callers are expected to have checked IRQAlreadyMasked first;
// IRQSave itself always masks, blocking only for the instant it takes a
// concurrent holder (normally none, given the fiber token-passing
// discipline) to call IRQRestore.
func IRQSave() (wasMasked bool) {
	wasMasked = IRQAlreadyMasked()
	irqMu.Lock()
	return wasMasked
}

// IRQRestore restores the event mask to the state returned by a matching
// IRQSave.
func IRQRestore(wasMasked bool) {
	irqMu.Unlock()
}
