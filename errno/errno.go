// Package errno defines the small set of POSIX-style error codes that cross
// the boundary between the kernel core and its callers. Every public entry
// point in sched, blkio, hostabi, and paramtab that can fail returns one of
// these instead of a generic error, mirroring the fixed errno taxonomy of the
// host it is ported from.
package errno

import "strconv"

// Errno is a small integer error code. Its numeric values match the
// corresponding POSIX errno constants so that callers that already know
// those numbers (log lines, test fixtures, a future syscall-compatible
// front end) don't have to learn a second numbering.
type Errno int

// The codes named in the error-handling design: unknown parameter key,
// caller buffer too small, allocation failure, unrecognized device or
// missing flag, backend I/O failure, read-only violation, and a bad
// descriptor.
const (
	ENOENT Errno = 2
	EIO    Errno = 5
	ENXIO  Errno = 6
	E2BIG  Errno = 7
	EBADF  Errno = 9
	ENOMEM Errno = 12
	EBUSY  Errno = 16
	EROFS  Errno = 30
)

var names = map[Errno]string{
	ENOENT: "no such entry",
	EIO:    "I/O error",
	ENXIO:  "no such device or address",
	E2BIG:  "argument list too long",
	EBADF:  "bad file descriptor",
	ENOMEM: "cannot allocate memory",
	EBUSY:  "device or resource busy",
	EROFS:  "read-only device",
}

// Error implements the error interface.
func (e Errno) Error() string {
	if s, ok := names[e]; ok {
		return s
	}
	return "errno " + strconv.Itoa(int(e))
}

// Is reports whether target names the same errno value, so that callers can
// use errors.Is(err, errno.ENOENT) against a wrapped error.
func (e Errno) Is(target error) bool {
	t, ok := target.(Errno)
	return ok && t == e
}
