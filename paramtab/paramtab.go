// Package paramtab implements the guest's key/value parameter table: a
// fixed, read-only set of built-in entries, looked up by name into a
// caller-supplied buffer. It is a read-only, fixed-key lookup rather than a
// general-purpose key/value configuration store.
package paramtab

import "github.com/rumprun-go/corekernel/errno"

// builtins holds the fixed parameter set. There is no Set: the table is
// read-only by construction, unlike a general configuration store.
var builtins = map[string]string{
	"NCPU":          "1",
	"HOSTNAME":      "rump4xen",
	"RUMP_VERBOSE":  "1",
	"RUMP_MEMLIMIT": "8m",
}

// Get looks up key and copies its value into buf, returning the number of
// bytes written. It returns errno.ENOENT if key is not one of the built-in
// entries, or errno.E2BIG if buf is shorter than the value.
func Get(key string, buf []byte) (int, error) {
	v, ok := builtins[key]
	if !ok {
		return 0, errno.ENOENT
	}
	if len(buf) < len(v) {
		return 0, errno.E2BIG
	}
	return copy(buf, v), nil
}

// Lookup returns key's value directly, for callers that don't need to
// manage a destination buffer; it never returns E2BIG, only errno.ENOENT
// for an unknown key.
func Lookup(key string) (string, error) {
	v, ok := builtins[key]
	if !ok {
		return "", errno.ENOENT
	}
	return v, nil
}
