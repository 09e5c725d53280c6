// Package clock provides the source of "today" for the ledger.
// Tests inject a Fixed clock so assertions never depend on wall-clock time.
package clock

import (
	"time"

	"cloud.google.com/go/civil"
)

// Clock returns the current calendar date.
type Clock interface {
	Today() civil.Date
}

// System is a Clock backed by time.Now in the given location.
// A nil Location means time.Local.
type System struct {
	Location *time.Location
}

// Today returns the current date in the clock's location.
func (s System) Today() civil.Date {
	loc := s.Location
	if loc == nil {
		loc = time.Local
	}
	return civil.DateOf(time.Now().In(loc))
}

// Fixed is a Clock that always returns the same date.
type Fixed civil.Date

// Today returns the fixed date.
func (f Fixed) Today() civil.Date {
	return civil.Date(f)
}
