package hostabi

import (
	"testing"
	"time"
)

func TestIRQSaveRestore(t *testing.T) {
	if IRQAlreadyMasked() {
		t.Fatal("mask should start clear")
	}
	wasMasked := IRQSave()
	if wasMasked {
		t.Error("wasMasked should be false on first save")
	}
	if !IRQAlreadyMasked() {
		t.Error("mask should read as held after IRQSave")
	}
	IRQRestore(wasMasked)
	if IRQAlreadyMasked() {
		t.Error("mask should read as clear after IRQRestore")
	}
}

func TestIRQSaveBlocksConcurrentSave(t *testing.T) {
	wasMasked := IRQSave()
	defer IRQRestore(wasMasked)

	acquired := make(chan struct{})
	go func() {
		w := IRQSave()
		close(acquired)
		IRQRestore(w)
	}()

	select {
	case <-acquired:
		t.Fatal("concurrent IRQSave should have blocked while masked")
	case <-time.After(20 * time.Millisecond):
	}
}
