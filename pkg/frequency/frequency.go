// Package frequency generates recurring dates for scheduled transactions.
package frequency

import (
	"fmt"
	"iter"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
)

// Frequency produces recurring dates.
type Frequency interface {
	// Since returns an unbounded sequence of dates starting on start.
	// Every call returns a fresh sequence.
	Since(start civil.Date) iter.Seq[civil.Date]
	String() string
}

// Daily happens every Step days.
type Daily struct {
	Step int
}

// NewDaily returns a Daily frequency. Steps below one become one.
func NewDaily(step int) Daily {
	if step < 1 {
		step = 1
	}
	return Daily{Step: step}
}

// Since yields start, start+Step, start+2*Step, ...
func (d Daily) Since(start civil.Date) iter.Seq[civil.Date] {
	step := max(d.Step, 1)
	return func(yield func(civil.Date) bool) {
		for next := start; ; next = next.AddDays(step) {
			if !yield(next) {
				return
			}
		}
	}
}

func (d Daily) String() string {
	return fmt.Sprintf("Daily(step %d)", d.Step)
}

// Weekly happens every Step weeks.
type Weekly struct {
	Step int
}

// NewWeekly returns a Weekly frequency. Steps below one become one.
func NewWeekly(step int) Weekly {
	if step < 1 {
		step = 1
	}
	return Weekly{Step: step}
}

// Since yields start and then every Step weeks after it.
func (w Weekly) Since(start civil.Date) iter.Seq[civil.Date] {
	return Daily{Step: max(w.Step, 1) * 7}.Since(start)
}

func (w Weekly) String() string {
	return fmt.Sprintf("Weekly(step %d)", w.Step)
}

// Take returns the first n dates of seq.
func Take(seq iter.Seq[civil.Date], n int) []civil.Date {
	if n <= 0 {
		return nil
	}
	out := make([]civil.Date, 0, n)
	for d := range seq {
		out = append(out, d)
		if len(out) == n {
			break
		}
	}
	return out
}

// Parse reads a frequency written as "<n>d" or "<n>w" (e.g. "1d", "2w").
// A bare number means days.
func Parse(s string) (Frequency, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return nil, fmt.Errorf("empty frequency")
	}

	unit := s[len(s)-1]
	digits := s
	if unit == 'd' || unit == 'w' {
		digits = s[:len(s)-1]
	} else {
		unit = 'd'
	}

	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 {
		return nil, fmt.Errorf("invalid frequency %q: expected <n>d or <n>w with n >= 1", s)
	}

	if unit == 'w' {
		return NewWeekly(n), nil
	}
	return NewDaily(n), nil
}
