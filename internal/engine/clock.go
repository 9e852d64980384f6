package engine

import "time"

// Clock abstracts time.Now() to allow deterministic testing.
// "Today" drives the date-window evaluation, the upcomingEvents filter and
// the lastContactDate stamped on committed contacts.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// Now returns the current local time.
func (RealClock) Now() time.Time {
	return time.Now()
}
