package clock

import (
	"testing"
	"time"

	clockport "github.com/Overland-East-Bay/terreiro-api/internal/ports/out/clock"
)

func TestSystemClock_ReportsConfiguredLocation(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("BRT", -3*60*60)
	if got := NewSystemClockIn(loc).Now().Location(); got != loc {
		t.Fatalf("location=%v want=%v", got, loc)
	}
	if got := NewSystemClock().Now().Location(); got != time.UTC {
		t.Fatalf("default location=%v", got)
	}
	if got := NewSystemClockIn(nil).Now().Location(); got != time.UTC {
		t.Fatalf("nil location=%v", got)
	}
}

type fixed time.Time

func (f fixed) Now() time.Time { return time.Time(f) }

func TestToday_UsesClockZoneCalendarDate(t *testing.T) {
	t.Parallel()

	// 01:30 UTC on the 8th is still the 7th in Brazil.
	brt := time.FixedZone("BRT", -3*60*60)
	now := time.Date(2026, 3, 8, 1, 30, 0, 0, time.UTC).In(brt)

	got := clockport.Today(fixed(now))
	want := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) || got.Location() != time.UTC {
		t.Fatalf("Today=%v want=%v", got, want)
	}
}
