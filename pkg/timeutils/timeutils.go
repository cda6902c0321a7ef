package timeutils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseClock parses "HH:MM" into minutes since midnight.
func ParseClock(value string) (int, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time format %q, expected HH:MM", value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", value)
	}
	return hour*60 + minute, nil
}

// LoadLocation resolves an IANA zone name, falling back to UTC when empty.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	return loc, nil
}

// WithinBusinessHours reports whether now falls on a weekday (Monday to
// Friday) inside [start, end) in the given zone. Windows that wrap midnight
// are not supported; start must be before end.
func WithinBusinessHours(now time.Time, start, end, timezone string) (bool, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return false, err
	}
	from, err := ParseClock(start)
	if err != nil {
		return false, err
	}
	to, err := ParseClock(end)
	if err != nil {
		return false, err
	}
	if from >= to {
		return false, fmt.Errorf("business hours start %s must be before end %s", start, end)
	}

	local := now.In(loc)
	if local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
		return false, nil
	}
	minutes := local.Hour()*60 + local.Minute()
	return minutes >= from && minutes < to, nil
}
