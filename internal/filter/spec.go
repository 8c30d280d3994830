package filter

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// ErrInvalidFilter marks a filter specification that is rejected before
// any store access.
var ErrInvalidFilter = errors.New("invalid filter")

// ValidationError names the rejected field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidFilter, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidFilter }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// MaxWeekOfMonth is the last week-of-month bucket (days 29..31).
const MaxWeekOfMonth = 5

// Spec is one query intent. Nil bounds and empty sets mean "unrestricted";
// all criteria compose with AND. A validated Spec is not mutated in place;
// WithDefaultLocation hands out copies with their own Days and Weeks.
type Spec struct {
	Name      string
	StartDate *Date
	EndDate   *Date
	StartTime *Clock
	EndTime   *Clock
	Days      []time.Weekday
	Weeks     []int
	Location  *time.Location
}

// Validate checks the specification. Every failure wraps ErrInvalidFilter.
func (s Spec) Validate() error {
	if s.Name == "" {
		return invalid("name", "is required")
	}
	if s.StartDate != nil && s.EndDate != nil && s.EndDate.Before(*s.StartDate) {
		return invalid("end_date", "must be on or after start_date")
	}
	if (s.StartTime == nil) != (s.EndTime == nil) {
		return invalid("start_time", "and end_time must be provided together")
	}
	for _, d := range s.Days {
		if d < time.Sunday || d > time.Saturday {
			return invalid("days", "contains unknown weekday %d", int(d))
		}
	}
	for _, w := range s.Weeks {
		if w < 1 || w > MaxWeekOfMonth {
			return invalid("weeks", "must be integers between 1 and %d, got %d", MaxWeekOfMonth, w)
		}
	}
	return nil
}

// Zone returns the location used for local date and clock computations.
func (s Spec) Zone() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

// WithDefaultLocation returns a copy whose Location is loc when unset.
// The copy does not share the Days and Weeks backing arrays.
func (s Spec) WithDefaultLocation(loc *time.Location) Spec {
	if s.Location == nil {
		s.Location = loc
	}
	s.Days = slices.Clone(s.Days)
	s.Weeks = slices.Clone(s.Weeks)
	return s
}

// Matches reports whether ts satisfies the date, time-of-day, weekday and
// week-of-month criteria. The strategy partition is not checked here.
func (s Spec) Matches(ts time.Time) bool {
	local := ts.In(s.Zone())

	if s.StartDate != nil || s.EndDate != nil {
		day := DateOf(local)
		if s.StartDate != nil && day.Before(*s.StartDate) {
			return false
		}
		if s.EndDate != nil && s.EndDate.Before(day) {
			return false
		}
	}

	if s.StartTime != nil && s.EndTime != nil {
		if !InWindow(ClockOf(local), *s.StartTime, *s.EndTime) {
			return false
		}
	}

	if len(s.Days) > 0 && !slices.Contains(s.Days, local.Weekday()) {
		return false
	}

	if len(s.Weeks) > 0 && !slices.Contains(s.Weeks, WeekOfMonth(local)) {
		return false
	}

	return true
}

// InWindow reports whether c lies in the inclusive window [start, end].
// When end is before start the window wraps past midnight.
func InWindow(c, start, end Clock) bool {
	if start <= end {
		return c >= start && c <= end
	}
	return c >= start || c <= end
}

// WeekOfMonth is 1 for days 1..7, 2 for 8..14 and so on up to 5.
func WeekOfMonth(t time.Time) int {
	return (t.Day()-1)/7 + 1
}
