package clock

import (
	"testing"
	"time"
)

func TestManualClock_Advance(t *testing.T) {
	t.Parallel()

	c := NewManualClock(time.Unix(100, 0).UTC())
	c.Advance(2 * time.Second)
	if got := c.Now(); !got.Equal(time.Unix(102, 0)) {
		t.Fatalf("Now()=%v", got)
	}
	c.Set(time.Unix(5, 0).UTC())
	if got := c.Now(); !got.Equal(time.Unix(5, 0)) {
		t.Fatalf("Now() after Set=%v", got)
	}
}
