package blkio

import (
	"time"

	"github.com/rumprun-go/corekernel/lifecycle"
)

// startPump launches the pump as a plain background goroutine rather than
// a sched.Thread: unlike the application threads sched schedules
// cooperatively one at a time via a Fiber handoff, the pump genuinely
// blocks on bio_cv while idle, exactly as the distilled spec's algorithm
// describes. Routing that block through sched's single-fiber-token
// discipline would leave whichever thread handed it the token stuck
// forever, since nothing would ever switch back; running it as an
// ordinary goroutine synchronized purely through bio_mtx/bio_cv and
// explicit Wake calls keeps the token model intact while still letting the
// pump use a real condition variable the way the distilled spec intends.
func (m *Manager) startPump() {
	go m.pumpMain()
}

// pumpMain registers the pump as callback-capable with the surrounding
// runtime, installs the halt-time drain hook, and then loops: wait for
// outstanding work, poll every slot until something completes.
func (m *Manager) pumpMain() {
	m.sched.RegisterCallbackCapable()
	lifecycle.Register(m.drainOnHalt)

	for {
		m.mu.Lock()
		for m.outstandingTotal == 0 {
			m.cv.Wait(&m.mu)
		}
		m.mu.Unlock()

		m.pollUntilProgress()
	}
}

// pollUntilProgress sweeps every slot with outstanding requests until at
// least one completes, matching the distilled spec's "stay hot until it
// has drained at least one completion" rationale: a burst of submissions
// can land across several devices in the same window, so a full sweep is
// done rather than stopping at the first nonempty slot.
func (m *Manager) pollUntilProgress() {
	for {
		if completed := m.pollAllSlots(); completed > 0 {
			return
		}
		m.waitForActivity()
	}
}

func (m *Manager) pollAllSlots() int {
	completed := 0
	for n := range m.slots {
		m.mu.Lock()
		dev := m.slots[n].dev
		outstanding := m.slots[n].outstanding
		m.mu.Unlock()

		if outstanding > 0 && dev != nil {
			completed += dev.AIOPoll()
		}
	}
	return completed
}

// waitForActivity registers on one outstanding slot's wait object (the
// concrete stand-in for blkfront_queue) so the pump isn't purely spinning
// between sweeps; a short timeout bounds the wait in case activity lands
// on a different slot than the one picked.
func (m *Manager) waitForActivity() {
	m.mu.Lock()
	var wait <-chan struct{}
	for n := range m.slots {
		if m.slots[n].dev != nil && m.slots[n].outstanding > 0 {
			wait = m.slots[n].dev.Queue()
			break
		}
	}
	m.mu.Unlock()

	if wait == nil {
		return
	}
	select {
	case <-wait:
	case <-time.After(time.Millisecond):
	}
}
