package clock

import "time"

// Clock provides time to the application. Now reports an instant in the
// house's time zone.
type Clock interface {
	Now() time.Time
}

// Today is the current calendar date in the clock's zone, as UTC midnight.
func Today(c Clock) time.Time {
	now := c.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
