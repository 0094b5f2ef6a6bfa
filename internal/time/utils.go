package timeutils

import (
	"fmt"
	"strconv"
	"time"
)

// FromMillis converts an epoch-milliseconds value reported by the tracking
// server into a UTC time.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// FormatMillis renders an optional epoch-milliseconds value as RFC3339.
// Absent values render as "-".
func FormatMillis(ms *int64) string {
	if ms == nil {
		return "-"
	}
	return FromMillis(*ms).Format(time.RFC3339)
}

// Duration returns the wall time between start and end. If the run has not
// ended, now is used instead. ok is false when the start time is unknown.
func Duration(start, end *int64, now time.Time) (d time.Duration, ok bool) {
	if start == nil {
		return 0, false
	}
	stop := now
	if end != nil {
		stop = FromMillis(*end)
	}
	d = stop.Sub(FromMillis(*start))
	if d < 0 {
		d = 0
	}
	return d.Truncate(time.Millisecond), true
}

// ParseTimestamp accepts RFC3339 or a raw epoch-milliseconds value.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp: %s (expected RFC3339 or epoch milliseconds)", s)
	}
	return FromMillis(ms), nil
}
