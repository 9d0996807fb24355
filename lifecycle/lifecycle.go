// Package lifecycle implements the guest's process/exit hook: a small
// registry of shutdown callbacks run, in LIFO order, when the guest halts.
package lifecycle

import (
	"sync"

	"github.com/rumprun-go/corekernel/corelog"
)

var (
	mu       sync.Mutex
	handlers []func()
	halted   bool
)

// haltFunc is called once all hooks have run. Tests override it to observe
// a halt without actually exiting the process.
var haltFunc = func() { corelog.Halt("guest halted") }

// Register appends fn to the set of hooks run by Halt, in LIFO order: the
// most recently registered hook runs first. Registering after Halt has
// already run is a programmer error and is logged, not executed.
func Register(fn func()) {
	mu.Lock()
	defer mu.Unlock()
	if halted {
		corelog.Errorf("lifecycle: Register called after Halt")
		return
	}
	handlers = append(handlers, fn)
}

// Halt runs every registered hook in LIFO order and then halts the process
// through corelog's halt function. Safe to call more than once; calls after
// the first run no hooks again.
func Halt() {
	mu.Lock()
	if halted {
		mu.Unlock()
		return
	}
	halted = true
	toRun := make([]func(), len(handlers))
	copy(toRun, handlers)
	mu.Unlock()

	for i := len(toRun) - 1; i >= 0; i-- {
		toRun[i]()
	}
	haltFunc()
}

// reset clears the registry; used only by tests in this package.
func reset() {
	mu.Lock()
	defer mu.Unlock()
	handlers = nil
	halted = false
}
