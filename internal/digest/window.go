package digest

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// Resolver turns triggers into concrete windows in a fixed zone.
type Resolver struct {
	Location *time.Location
}

func NewResolver(loc *time.Location) Resolver {
	if loc == nil {
		loc = time.Local
	}
	return Resolver{Location: loc}
}

func (r Resolver) loc() *time.Location {
	if r.Location == nil {
		return time.Local
	}
	return r.Location
}

// Resolve maps a trigger to its window. Automatic triggers cover yesterday
// relative to now; manual triggers cover start..end inclusive.
func (r Resolver) Resolve(trigger Trigger, now time.Time) (TimeWindow, error) {
	if trigger.IsAutomatic() {
		today := r.StartOfDay(now)
		return TimeWindow{Start: today.AddDate(0, 0, -1), End: today}, nil
	}
	if err := ValidateRange(trigger.Start, trigger.End); err != nil {
		return TimeWindow{}, err
	}
	start := r.dateAt(trigger.Start)
	end := r.dateAt(trigger.End).AddDate(0, 0, 1)
	return TimeWindow{Start: start, End: end}, nil
}

// StartOfDay returns midnight of t's calendar date in the resolver's zone.
func (r Resolver) StartOfDay(t time.Time) time.Time {
	loc := r.loc()
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// SameDay reports whether a and b fall on the same calendar date in the zone.
func (r Resolver) SameDay(a, b time.Time) bool {
	return r.StartOfDay(a).Equal(r.StartOfDay(b))
}

// dateAt reads the calendar fields of d as they were written, independent of
// d's own location, and places midnight of that date in the resolver's zone.
func (r Resolver) dateAt(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, r.loc())
}

// ValidateRange compares calendar dates only.
func ValidateRange(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return errors.New("start and end dates are required")
	}
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	if s.After(e) {
		return &InvalidRangeError{Start: start, End: end}
	}
	return nil
}

// ParseDate accepts YYYY-MM-DD and full RFC3339 timestamps (the date part is kept).
func ParseDate(raw string) (time.Time, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return time.Time{}, errors.New("date is empty")
	}
	if t, err := time.Parse(DateLayout, text); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, text); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("parse date %q: expected YYYY-MM-DD", text)
}

// PresetRange resolves the named timeframes the dashboard offers into calendar
// dates relative to now. Ranges end yesterday, matching the daily job.
func (r Resolver) PresetRange(name string, now time.Time) (time.Time, time.Time, error) {
	today := r.StartOfDay(now)
	yesterday := today.AddDate(0, 0, -1)
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "yesterday":
		return yesterday, yesterday, nil
	case "today":
		return today, today, nil
	case "last7days":
		return today.AddDate(0, 0, -7), yesterday, nil
	case "last30days":
		return today.AddDate(0, 0, -30), yesterday, nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("unknown timeframe %q", name)
	}
}

// DescribePeriod is the phrase used in report headlines and prompts:
// "yesterday", "on January 2, 2024" or "from January 1, 2024 to January 3, 2024".
func DescribePeriod(trigger Trigger) string {
	if trigger.IsAutomatic() {
		return "yesterday"
	}
	const layout = "January 2, 2006"
	if trigger.Start.Year() == trigger.End.Year() && trigger.Start.YearDay() == trigger.End.YearDay() {
		return "on " + trigger.Start.Format(layout)
	}
	return fmt.Sprintf("from %s to %s", trigger.Start.Format(layout), trigger.End.Format(layout))
}
