package hostabi

import (
	"fmt"
	"sync"

	"github.com/rumprun-go/corekernel/errno"
)

// DeviceCapacity is the fixed size, in sectors, simulated for every block
// device; SectorSize is the fixed sector size. Both are constants of the
// simulated backend rather than configurable, since nothing in the core
// needs heterogeneous device geometry to exercise its algorithms.
const (
	DeviceCapacity = 2048
	SectorSize     = 512
)

// AIOOp names the two request kinds the backend accepts.
type AIOOp int

const (
	AIORead AIOOp = iota
	AIOWrite
)

// AIOCB is the per-request control block passed to the backend. Callback
// is invoked once, during a later AIOPoll (or FailPending, which passes
// EIO), with ret==0 on success or a nonzero errno.Errno value on failure.
type AIOCB struct {
	Op       AIOOp
	Buf      []byte
	Off      uint64
	Callback func(cb *AIOCB, ret int)
}

// DeviceInfo describes a device's geometry and access mode, mirroring what
// init_blkfront is specified to populate.
type DeviceInfo struct {
	Sectors    uint64
	SectorSize uint32
	ReadOnly   bool
}

// ReadOnlySlots lets tests mark specific slot numbers as backend-read-only,
// so that blkio's EROFS path (write requested against a read-only device)
// is exercisable without a real read-only block device underneath.
var ReadOnlySlots = map[int]bool{}

// Device is a simulated paravirtual block device: an in-memory byte store
// plus a completion queue drained only by an explicit AIOPoll call, never
// synchronously during submission. This is what lets blkio's submit-then-
// account-then-signal ordering and the pump's poll loop be exercised
// exactly as specified, without a real hypervisor underneath.
type Device struct {
	info DeviceInfo
	data []byte

	mu      sync.Mutex
	pending []*AIOCB
	waiters chan struct{} // the simulated blkfront_queue wait object
}

// InitBlkfront opens (creates) the simulated device named by path, the
// concrete implementation of init_blkfront. path encodes the slot number
// as device/vbd/<768+(n<<6)>; the slot's read-only-ness comes from
// ReadOnlySlots.
func InitBlkfront(path string) (*Device, DeviceInfo, error) {
	n, err := slotFromPath(path)
	if err != nil {
		return nil, DeviceInfo{}, err
	}
	info := DeviceInfo{
		Sectors:    DeviceCapacity,
		SectorSize: SectorSize,
		ReadOnly:   ReadOnlySlots[n],
	}
	dev := &Device{
		info:    info,
		data:    make([]byte, DeviceCapacity*SectorSize),
		waiters: make(chan struct{}, 1),
	}
	return dev, info, nil
}

// slotFromPath recovers the slot number n from the device/vbd/<768+(n<<6)>
// naming scheme.
func slotFromPath(path string) (int, error) {
	var v int
	if _, err := fmt.Sscanf(path, "device/vbd/%d", &v); err != nil {
		return 0, errno.ENXIO
	}
	n := (v - 768) >> 6
	if n < 0 || v != 768+(n<<6) {
		return 0, errno.ENXIO
	}
	return n, nil
}

// PathForSlot renders the device/vbd/<768+(n<<6)> name for slot n.
func PathForSlot(n int) string {
	return fmt.Sprintf("device/vbd/%d", 768+(n<<6))
}

// ShutdownBlkfront releases dev. Any requests still pending are dropped
// without invoking their callbacks, matching the backend's "handle slots
// are nulled before shutdown, not drained" contract.
func ShutdownBlkfront(dev *Device) {
	dev.mu.Lock()
	dev.pending = nil
	dev.mu.Unlock()
}

func (dev *Device) offsetInBounds(off uint64, n int) bool {
	return off+uint64(n) <= uint64(len(dev.data))
}

// AIORead submits an async read, the concrete implementation of
// blkfront_aio_read. The request is only queued here; it completes on a
// later AIOPoll.
func (dev *Device) AIORead(cb *AIOCB) {
	dev.mu.Lock()
	dev.pending = append(dev.pending, cb)
	dev.mu.Unlock()
	dev.notify()
}

// AIOWrite submits an async write, the concrete implementation of
// blkfront_aio_write.
func (dev *Device) AIOWrite(cb *AIOCB) {
	dev.mu.Lock()
	dev.pending = append(dev.pending, cb)
	dev.mu.Unlock()
	dev.notify()
}

func (dev *Device) notify() {
	select {
	case dev.waiters <- struct{}{}:
	default:
	}
}

// AIOPoll drains the completion queue, synchronously invoking each
// request's callback, the concrete implementation of blkfront_aio_poll. It
// returns the number of requests completed.
func (dev *Device) AIOPoll() int {
	dev.mu.Lock()
	batch := dev.pending
	dev.pending = nil
	dev.mu.Unlock()

	for _, cb := range batch {
		if !dev.offsetInBounds(cb.Off, len(cb.Buf)) {
			cb.Callback(cb, int(errno.EIO))
			continue
		}
		switch cb.Op {
		case AIORead:
			copy(cb.Buf, dev.data[cb.Off:])
		case AIOWrite:
			if dev.info.ReadOnly {
				cb.Callback(cb, int(errno.EIO))
				continue
			}
			copy(dev.data[cb.Off:], cb.Buf)
		}
		cb.Callback(cb, 0)
	}
	return len(batch)
}

// Queue returns the wait object the pump thread can register on between
// poll attempts, the concrete implementation of blkfront_queue.
func (dev *Device) Queue() <-chan struct{} {
	return dev.waiters
}

// FailPending drains any requests still queued, invoking each callback with
// EIO instead of performing the I/O, and returns the number drained. This
// backs the halt-time drain of outstanding block I/O: shutdown_blkfront
// itself only nulls the pending queue, so a caller that must fail in-flight
// callbacks (rather than silently drop them) calls FailPending first.
func (dev *Device) FailPending() int {
	dev.mu.Lock()
	batch := dev.pending
	dev.pending = nil
	dev.mu.Unlock()

	for _, cb := range batch {
		cb.Callback(cb, int(errno.EIO))
	}
	return len(batch)
}
