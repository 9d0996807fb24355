package hostabi

import (
	"testing"
	"time"
)

func TestNowAdvancesWithInjectedClock(t *testing.T) {
	origNow := nowFunc
	origBoot := bootTime
	defer func() { nowFunc = origNow; bootTime = origBoot }()

	fake := time.Unix(1000, 0)
	nowFunc = func() time.Time { return fake }
	resetClock()

	if got := Now(); got != 0 {
		t.Fatalf("Now() at epoch = %d, want 0", got)
	}

	fake = fake.Add(5 * time.Second)
	if got, want := Now(), int64(5*time.Second); got != want {
		t.Fatalf("Now() after advance = %d, want %d", got, want)
	}
}
