package filter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"strategy-alerts/internal/payload"
)

var weekdayNames = map[string]time.Weekday{
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
	"sunday": time.Sunday, "sun": time.Sunday,
}

// WeekdayLabel returns the three-letter English label (Mon..Sun).
func WeekdayLabel(d time.Weekday) string {
	return d.String()[:3]
}

// ParseWeekday accepts labels, full names and the integers 0..6 where
// Monday is 0 and Sunday is 6.
func ParseWeekday(s string) (time.Weekday, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if d, ok := weekdayNames[key]; ok {
		return d, nil
	}
	if n, err := strconv.Atoi(key); err == nil {
		if n < 0 || n > 6 {
			return 0, fmt.Errorf("weekday integers must be between 0 (Mon) and 6 (Sun), got %d", n)
		}
		return time.Weekday((n + 1) % 7), nil
	}
	return 0, fmt.Errorf("unrecognized weekday name: %q", s)
}

// Input is the loosely typed form of a filter as it arrives from callers.
type Input struct {
	Name      string
	StartDate string
	EndDate   string
	StartTime string
	EndTime   string
	Days      []string
	Weeks     []int
	Timezone  string
}

// Parse converts an Input into a validated Spec.
func Parse(in Input) (Spec, error) {
	spec := Spec{Name: strings.TrimSpace(in.Name)}

	if s := strings.TrimSpace(in.StartDate); s != "" {
		d, err := ParseDate(s)
		if err != nil {
			return Spec{}, invalid("start_date", "%v", err)
		}
		spec.StartDate = &d
	}
	if s := strings.TrimSpace(in.EndDate); s != "" {
		d, err := ParseDate(s)
		if err != nil {
			return Spec{}, invalid("end_date", "%v", err)
		}
		spec.EndDate = &d
	}
	if s := strings.TrimSpace(in.StartTime); s != "" {
		c, err := ParseClock(s)
		if err != nil {
			return Spec{}, invalid("start_time", "%v", err)
		}
		spec.StartTime = &c
	}
	if s := strings.TrimSpace(in.EndTime); s != "" {
		c, err := ParseClock(s)
		if err != nil {
			return Spec{}, invalid("end_time", "%v", err)
		}
		spec.EndTime = &c
	}

	for _, raw := range in.Days {
		d, err := ParseWeekday(raw)
		if err != nil {
			return Spec{}, invalid("days", "%v", err)
		}
		if !slices.Contains(spec.Days, d) {
			spec.Days = append(spec.Days, d)
		}
	}
	for _, w := range in.Weeks {
		if !slices.Contains(spec.Weeks, w) {
			spec.Weeks = append(spec.Weeks, w)
		}
	}

	if tz := strings.TrimSpace(in.Timezone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return Spec{}, invalid("timezone", "unknown zone %q", tz)
		}
		spec.Location = loc
	}

	if err := spec.Validate(); err != nil {
		return Spec{}, err
	}
	return spec, nil
}

type wireInput struct {
	Name      string          `json:"name"`
	StartDate string          `json:"start_date"`
	EndDate   string          `json:"end_date"`
	StartTime string          `json:"start_time"`
	EndTime   string          `json:"end_time"`
	Days      json.RawMessage `json:"days"`
	Weeks     json.RawMessage `json:"weeks"`
	Timezone  string          `json:"timezone"`
}

// Decode parses a filter document. The document may be a JSON object or a
// JSON string holding the encoded object; both decode identically.
func Decode(raw []byte) (Spec, error) {
	doc, err := payload.Canonical(raw)
	if err != nil {
		return Spec{}, invalid("body", "%v", err)
	}

	var wire wireInput
	if err := json.Unmarshal(doc, &wire); err != nil {
		return Spec{}, invalid("body", "%v", err)
	}

	days, err := decodeDays(wire.Days)
	if err != nil {
		return Spec{}, err
	}
	weeks, err := decodeWeeks(wire.Weeks)
	if err != nil {
		return Spec{}, err
	}

	return Parse(Input{
		Name:      wire.Name,
		StartDate: wire.StartDate,
		EndDate:   wire.EndDate,
		StartTime: wire.StartTime,
		EndTime:   wire.EndTime,
		Days:      days,
		Weeks:     weeks,
		Timezone:  wire.Timezone,
	})
}

// decodeDays accepts a list or a single value of names and integers.
// Integers must be JSON numbers; "0" is not a weekday name.
func decodeDays(raw json.RawMessage) ([]string, error) {
	items, err := listItems(raw)
	if err != nil {
		return nil, invalid("days", "must be a list of weekday names or integers")
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			if _, numErr := strconv.Atoi(strings.TrimSpace(s)); numErr == nil {
				return nil, invalid("days", "unrecognized weekday name %q", s)
			}
			out = append(out, s)
			continue
		}
		var n int
		if err := json.Unmarshal(item, &n); err != nil {
			return nil, invalid("days", "unrecognized weekday %s", string(item))
		}
		out = append(out, strconv.Itoa(n))
	}
	return out, nil
}

// decodeWeeks accepts a list or a single value of integers or numeric strings.
func decodeWeeks(raw json.RawMessage) ([]int, error) {
	items, err := listItems(raw)
	if err != nil {
		return nil, invalid("weeks", "must be a list of integers 1..%d", MaxWeekOfMonth)
	}
	out := make([]int, 0, len(items))
	for _, item := range items {
		var n int
		if err := json.Unmarshal(item, &n); err == nil {
			out = append(out, n)
			continue
		}
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			return nil, invalid("weeks", "must contain integers, got %s", string(item))
		}
		n, convErr := strconv.Atoi(strings.TrimSpace(s))
		if convErr != nil {
			return nil, invalid("weeks", "must contain integers, got %q", s)
		}
		out = append(out, n)
	}
	return out, nil
}

func listItems(raw json.RawMessage) ([]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] != '[' {
		return []json.RawMessage{raw}, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	return items, nil
}
