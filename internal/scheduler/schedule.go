package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	robcron "github.com/robfig/cron/v3"
)

const DefaultDailyTime = "08:00"

var cronParser = robcron.NewParser(robcron.Minute | robcron.Hour | robcron.Dom | robcron.Month | robcron.Dow | robcron.Descriptor)

// CronSpec turns a daily "HH:MM" into a five-field cron expression. Anything
// else is treated as a cron expression and validated as such.
func CronSpec(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		text = DefaultDailyTime
	}
	if hh, mm, ok := strings.Cut(text, ":"); ok && !strings.ContainsAny(text, " *") {
		hour, errH := strconv.Atoi(hh)
		minute, errM := strconv.Atoi(mm)
		if errH != nil || errM != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
			return "", fmt.Errorf("invalid daily time %q (expected HH:MM)", raw)
		}
		return fmt.Sprintf("%d %d * * *", minute, hour), nil
	}
	if _, err := cronParser.Parse(text); err != nil {
		return "", fmt.Errorf("parse cron expr %q: %w", text, err)
	}
	return text, nil
}

// NextRun returns the first firing strictly after now, in loc.
func NextRun(spec string, loc *time.Location, now time.Time) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	schedule, err := cronParser.Parse(spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron expr: %w", err)
	}
	return schedule.Next(now.In(loc)), nil
}

func LoadLocation(name string) (*time.Location, error) {
	tz := strings.TrimSpace(name)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	return loc, nil
}
