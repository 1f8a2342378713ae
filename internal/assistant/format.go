package assistant

import (
	"fmt"
	"time"
)

// FormatRelativeTime renders ts relative to now for message and notification
// footers: "just now", "12s ago", "4m ago", then the wall-clock time.
func FormatRelativeTime(now, ts time.Time) string {
	d := now.Sub(ts)
	switch {
	case d < 10*time.Second:
		return "just now"
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d/time.Second))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d/time.Minute))
	default:
		return ts.Format("3:04 PM")
	}
}
