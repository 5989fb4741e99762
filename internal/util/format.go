package util //nolint:revive // package name util hosts shared formatting helpers used by the CLI

import "time"

// FormatDuration formats a request duration for display. Zero or negative durations
// render as "-"; anything from a millisecond up is truncated to milliseconds.
func FormatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "-"
	case d < time.Millisecond:
		return d.String()
	default:
		return d.Truncate(time.Millisecond).String()
	}
}
