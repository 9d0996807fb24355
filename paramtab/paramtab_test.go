package paramtab

import (
	"errors"
	"testing"

	"github.com/rumprun-go/corekernel/errno"
)

func TestGetKnownKeys(t *testing.T) {
	cases := map[string]string{
		"NCPU":          "1",
		"HOSTNAME":      "rump4xen",
		"RUMP_VERBOSE":  "1",
		"RUMP_MEMLIMIT": "8m",
	}
	for key, want := range cases {
		buf := make([]byte, len(want))
		n, err := Get(key, buf)
		if err != nil {
			t.Errorf("Get(%q): %v", key, err)
			continue
		}
		if got := string(buf[:n]); got != want {
			t.Errorf("Get(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestGetUnknownKey(t *testing.T) {
	_, err := Get("NOSUCHKEY", make([]byte, 16))
	if !errors.Is(err, errno.ENOENT) {
		t.Errorf("Get(unknown) error = %v, want ENOENT", err)
	}
}

func TestGetBufferTooSmall(t *testing.T) {
	_, err := Get("HOSTNAME", make([]byte, 1))
	if !errors.Is(err, errno.E2BIG) {
		t.Errorf("Get with short buffer error = %v, want E2BIG", err)
	}
}

func TestLookup(t *testing.T) {
	v, err := Lookup("NCPU")
	if err != nil || v != "1" {
		t.Errorf("Lookup(NCPU) = %q, %v, want \"1\", nil", v, err)
	}
	if _, err := Lookup("missing"); !errors.Is(err, errno.ENOENT) {
		t.Errorf("Lookup(missing) error = %v, want ENOENT", err)
	}
}
