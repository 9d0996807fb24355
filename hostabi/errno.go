package hostabi

import "v.io/x/lib/nsync"

// errnoTable is the per-thread errno slot, keyed by fiber ID. Guarded by an
// nsync.Mu rather than a plain sync.Mutex: it is exercised exactly like
// blkio's bio_mtx, a small piece of state shared across fibers and
// protected by the same sync-primitives facade the rest of the core uses.
var (
	errnoMu    nsync.Mu
	errnoTable = map[uint64]int{}
)

// SetErrno records errno e for the fiber identified by id.
func SetErrno(id uint64, e int) {
	errnoMu.Lock()
	defer errnoMu.Unlock()
	errnoTable[id] = e
}

// GetErrno returns the last errno recorded for the fiber identified by id,
// or 0 if none has been set.
func GetErrno(id uint64) int {
	errnoMu.Lock()
	defer errnoMu.Unlock()
	return errnoTable[id]
}

// ClearErrno removes the fiber's errno slot entirely, called when a fiber
// exits so the table does not grow without bound across the guest's
// lifetime.
func ClearErrno(id uint64) {
	errnoMu.Lock()
	defer errnoMu.Unlock()
	delete(errnoTable, id)
}
