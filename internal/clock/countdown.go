// Package clock holds the time helpers shared by the sync monitor:
// countdown formatting and a mockable time source.
package clock

import (
	"fmt"
	"math"
	"time"
)

// FormatCountdown renders the time remaining until next.
//
// A nil next renders as the empty string, anything that rounds to zero minutes
// or less renders as "soon", under an hour renders as "{m}m" and longer spans
// render as "{h}h {m}m" with the minutes dropped when they are zero.
func FormatCountdown(next *time.Time, now time.Time) string {
	if next == nil {
		return ""
	}
	mins := int(math.Round(next.Sub(now).Minutes()))
	if mins <= 0 {
		return "soon"
	}
	if mins < 60 {
		return fmt.Sprintf("%dm", mins)
	}
	h, m := mins/60, mins%60
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}
