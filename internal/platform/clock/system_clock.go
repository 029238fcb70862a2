package clock

import "time"

// SystemClock returns the current wall-clock time in a fixed location.
type SystemClock struct {
	loc *time.Location
}

func NewSystemClock() SystemClock { return SystemClock{loc: time.UTC} }

// NewSystemClockIn reports time in loc, so calendar dates follow the house's day.
func NewSystemClockIn(loc *time.Location) SystemClock {
	if loc == nil {
		loc = time.UTC
	}
	return SystemClock{loc: loc}
}

func (c SystemClock) Now() time.Time {
	if c.loc == nil {
		return time.Now().UTC()
	}
	return time.Now().In(c.loc)
}
