package hostabi

import (
	"golang.org/x/sys/unix"

	"github.com/rumprun-go/corekernel/errno"
)

// PageSize is the host page size used to size page-order allocations.
const PageSize = 4096

// AllocPages allocates 1<<order pages, page-aligned, via an anonymous mmap
// region, the concrete implementation of the hypervisor's alloc_pages. It
// returns errno.ENOMEM if the mapping fails.
func AllocPages(order uint) ([]byte, error) {
	n := (1 << order) * PageSize
	b, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, errno.ENOMEM
	}
	return b, nil
}

// FreePages releases a region previously returned by AllocPages.
func FreePages(b []byte) error {
	if err := unix.Munmap(b); err != nil {
		return errno.ENOMEM
	}
	return nil
}
