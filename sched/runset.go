package sched

import "container/list"

// runSet is the ordered run set R (or the exited set E, which uses the
// same shape): insertion order matters, selection scans front-to-back, and
// a selected thread is rotated to the tail. Grounded on the intrusive
// doubly-linked list nsync uses for its Mu/CV waiter queues, translated
// per this port's own design note from embedded link pointers to a
// standard-library container/list of owned *Thread handles, so that
// removal stays O(1) without unsafe in-struct pointers.
type runSet struct {
	l *list.List
}

func newRunSet() *runSet {
	return &runSet{l: list.New()}
}

// pushTail appends th to the set and records its element handle.
func (rs *runSet) pushTail(th *Thread) {
	th.elem = rs.l.PushBack(th)
}

// pushFront prepends th to the set and records its element handle, used by
// exit to push onto the front of E.
func (rs *runSet) pushFront(th *Thread) {
	th.elem = rs.l.PushFront(th)
}

// remove unlinks th from whichever set currently holds it.
func (rs *runSet) remove(th *Thread) {
	if th.elem != nil {
		rs.l.Remove(th.elem)
		th.elem = nil
	}
}

// moveToTail rotates th to the tail, the heart of tail-rotation round
// robin.
func (rs *runSet) moveToTail(th *Thread) {
	rs.l.MoveToBack(th.elem)
}

// forEach walks the set front-to-back, calling fn on each thread. fn may
// not mutate the set; callers that need to remove while walking collect
// candidates first.
func (rs *runSet) forEach(fn func(*Thread)) {
	for e := rs.l.Front(); e != nil; e = e.Next() {
		fn(e.Value.(*Thread))
	}
}

// len reports the number of threads currently in the set.
func (rs *runSet) len() int {
	return rs.l.Len()
}

// selectRunnable implements step 3 of the selection algorithm: walk the set
// front-to-back, expiring any timer whose deadline has passed, tracking
// the nearest still-future deadline, and stopping at the first thread that
// is runnable once that expiry check has been applied.
func (rs *runSet) selectRunnable(now, minWakeup int64) (selected *Thread, newMinWakeup int64) {
	newMinWakeup = minWakeup
	for el := rs.l.Front(); el != nil; el = el.Next() {
		th := el.Value.(*Thread)
		if !th.runnable && th.wakeupTime != 0 {
			if th.wakeupTime <= now {
				th.timedOut = true
				th.wakeupTime = 0
				th.runnable = true
			} else if th.wakeupTime < newMinWakeup {
				newMinWakeup = th.wakeupTime
			}
		}
		if th.runnable {
			selected = th
			break
		}
	}
	return selected, newMinWakeup
}
