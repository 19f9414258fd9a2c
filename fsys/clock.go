package fsys

import "time"

// nowUTC is the only place this package reads the wall clock, so a denial
// event's timestamp source is easy to find and reason about.
func nowUTC() time.Time {
	return time.Now().UTC()
}
