package blkio

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rumprun-go/corekernel/errno"
	"github.com/rumprun-go/corekernel/hostabi"
	"github.com/rumprun-go/corekernel/sched"
)

func newTestManager() *Manager {
	s := sched.New()
	s.InitMainLWP(nil)
	return New(s)
}

func awaitTrue(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition never became true")
}

func TestOpenRefcountAndClose(t *testing.T) {
	m := newTestManager()
	fd1, err := m.Open("blk3", ModeRead|ModeBIO)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if fd1 != BLKFDOFF+3 {
		t.Fatalf("fd = %d, want %d", fd1, BLKFDOFF+3)
	}
	fd2, err := m.Open("blk3", ModeRead|ModeBIO)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	if fd2 != fd1 {
		t.Fatalf("fd changed across ref-bump open: %d != %d", fd2, fd1)
	}

	if err := m.Close(fd1); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := m.Close(fd2); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := m.Close(fd1); !errors.Is(err, errno.EBADF) {
		t.Errorf("Close past zero refcount: got %v, want EBADF", err)
	}
}

func TestOpenUnknownNameENXIO(t *testing.T) {
	m := newTestManager()
	if _, err := m.Open("blk99", ModeRead|ModeBIO); !errors.Is(err, errno.ENXIO) {
		t.Errorf("got %v, want ENXIO", err)
	}
	if _, err := m.Open("notablk", ModeRead|ModeBIO); !errors.Is(err, errno.ENXIO) {
		t.Errorf("got %v, want ENXIO", err)
	}
}

func TestOpenMissingBIOFlagENXIO(t *testing.T) {
	m := newTestManager()
	if _, err := m.Open("blk0", ModeRead); !errors.Is(err, errno.ENXIO) {
		t.Errorf("got %v, want ENXIO", err)
	}
}

func TestOpenWriteOnReadOnlyDeviceEROFS(t *testing.T) {
	hostabi.ReadOnlySlots[4] = true
	defer delete(hostabi.ReadOnlySlots, 4)

	m := newTestManager()
	if _, err := m.Open("blk4", ModeWrite|ModeBIO); !errors.Is(err, errno.EROFS) {
		t.Errorf("got %v, want EROFS", err)
	}
	// A read-only open of the same device must still succeed.
	if _, err := m.Open("blk4", ModeRead|ModeBIO); err != nil {
		t.Errorf("read-only open after EROFS write attempt: %v", err)
	}
}

func TestCloseOutOfRangeEBADF(t *testing.T) {
	m := newTestManager()
	if err := m.Close(BLKFDOFF + NBLKDEV); !errors.Is(err, errno.EBADF) {
		t.Errorf("got %v, want EBADF", err)
	}
	if err := m.Close(BLKFDOFF - 1); !errors.Is(err, errno.EBADF) {
		t.Errorf("got %v, want EBADF", err)
	}
}

func TestCloseRefusedWhileOutstandingThenSucceeds(t *testing.T) {
	m := newTestManager()
	fd, err := m.Open("blk5", ModeRead|ModeWrite|ModeBIO)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	gate := make(chan struct{})
	done := make(chan struct{})
	buf := make([]byte, 16)
	err = m.Bio(fd, hostabi.AIORead, buf, 0, func(arg interface{}, n int, err error) {
		<-gate
		close(done)
	}, nil)
	if err != nil {
		t.Fatalf("Bio: %v", err)
	}

	awaitTrue(t, func() bool {
		m.mu.Lock()
		out := m.slots[fd-BLKFDOFF].outstanding
		m.mu.Unlock()
		return out > 0
	})

	if err := m.Close(fd); !errors.Is(err, errno.EBUSY) {
		t.Fatalf("Close while outstanding: got %v, want EBUSY", err)
	}

	close(gate)
	<-done

	awaitTrue(t, func() bool {
		m.mu.Lock()
		out := m.slots[fd-BLKFDOFF].outstanding
		m.mu.Unlock()
		return out == 0
	})

	if err := m.Close(fd); err != nil {
		t.Fatalf("Close after drain: %v", err)
	}
}

func TestBioWriteThenReadRoundTrip(t *testing.T) {
	m := newTestManager()
	fd, err := m.Open("blk6", ModeRead|ModeWrite|ModeBIO)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	want := []byte("round-trip-data!")
	writeDone := make(chan error, 1)
	if err := m.Bio(fd, hostabi.AIOWrite, want, 128, func(arg interface{}, n int, err error) {
		writeDone <- err
	}, nil); err != nil {
		t.Fatalf("Bio write: %v", err)
	}
	if err := <-writeDone; err != nil {
		t.Fatalf("write callback error: %v", err)
	}

	got := make([]byte, len(want))
	readDone := make(chan error, 1)
	if err := m.Bio(fd, hostabi.AIORead, got, 128, func(arg interface{}, n int, err error) {
		readDone <- err
	}, nil); err != nil {
		t.Fatalf("Bio read: %v", err)
	}
	if err := <-readDone; err != nil {
		t.Fatalf("read callback error: %v", err)
	}

	if string(got) != string(want) {
		t.Errorf("read back %q, want %q", got, want)
	}
}

func TestBioCompletionCount(t *testing.T) {
	m := newTestManager()
	fd, err := m.Open("blk0", ModeRead|ModeBIO)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	const n = 100
	var mu sync.Mutex
	completed := 0
	seenArgs := make(map[int]bool)

	for i := 0; i < n; i++ {
		i := i
		buf := make([]byte, 8)
		if err := m.Bio(fd, hostabi.AIORead, buf, 0, func(arg interface{}, nbytes int, err error) {
			mu.Lock()
			completed++
			seenArgs[arg.(int)] = true
			mu.Unlock()
		}, i); err != nil {
			t.Fatalf("Bio #%d: %v", i, err)
		}
	}

	awaitTrue(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return completed == n
	})

	if len(seenArgs) != n {
		t.Errorf("saw %d distinct callback args, want %d", len(seenArgs), n)
	}

	m.mu.Lock()
	total := m.outstandingTotal
	perSlot := m.slots[fd-BLKFDOFF].outstanding
	m.mu.Unlock()
	if total != 0 || perSlot != 0 {
		t.Errorf("outstandingTotal=%d per_slot=%d, want 0, 0", total, perSlot)
	}
}

func TestBioOutstandingTotalMatchesSumOfSlots(t *testing.T) {
	m := newTestManager()
	fd0, _ := m.Open("blk0", ModeRead|ModeBIO)
	fd1, _ := m.Open("blk1", ModeRead|ModeBIO)

	gate := make(chan struct{})
	cb := func(arg interface{}, n int, err error) { <-gate }
	for i := 0; i < 3; i++ {
		if err := m.Bio(fd0, hostabi.AIORead, make([]byte, 4), 0, cb, nil); err != nil {
			t.Fatalf("Bio fd0: %v", err)
		}
	}
	for i := 0; i < 2; i++ {
		if err := m.Bio(fd1, hostabi.AIORead, make([]byte, 4), 0, cb, nil); err != nil {
			t.Fatalf("Bio fd1: %v", err)
		}
	}

	awaitTrue(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.slots[0].outstanding == 3 && m.slots[1].outstanding == 2
	})

	m.mu.Lock()
	sum := 0
	for i := range m.slots {
		sum += m.slots[i].outstanding
	}
	total := m.outstandingTotal
	m.mu.Unlock()
	if sum != total {
		t.Errorf("sum of per-slot outstanding = %d, outstandingTotal = %d", sum, total)
	}

	close(gate)
}

func TestFileInfoReportsSizeAndKind(t *testing.T) {
	m := newTestManager()
	size, kind, err := m.FileInfo("blk7")
	if err != nil {
		t.Fatalf("FileInfo: %v", err)
	}
	if kind != BLK {
		t.Errorf("kind = %v, want BLK", kind)
	}
	want := uint64(hostabi.DeviceCapacity) * uint64(hostabi.SectorSize)
	if size != want {
		t.Errorf("size = %d, want %d", size, want)
	}

	// fileinfo closes behind itself: the slot should be free again.
	m.mu.Lock()
	refcount := m.slots[7].refcount
	m.mu.Unlock()
	if refcount != 0 {
		t.Errorf("refcount after FileInfo = %d, want 0", refcount)
	}
}

func TestDrainOnHaltFailsOutstandingCallbacks(t *testing.T) {
	m := newTestManager()
	fd, err := m.Open("blk8", ModeRead|ModeBIO)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	var gotErr int
	m.slots[fd-BLKFDOFF].dev.AIORead(&hostabi.AIOCB{
		Op:  hostabi.AIORead,
		Buf: make([]byte, 4),
		Off: 0,
		Callback: func(cb *hostabi.AIOCB, ret int) {
			gotErr = ret
			wg.Done()
		},
	})

	m.drainOnHalt()
	wg.Wait()

	if gotErr != int(errno.EIO) {
		t.Errorf("drainOnHalt callback ret = %d, want EIO", gotErr)
	}
}
