package livemap

import (
	"fmt"
	"time"
)

// DefaultMaxAge is the freshness window: fixes older than two minutes render
// as stale.
const DefaultMaxAge = 120 * time.Second

// IsFresh reports whether a fix taken at updatedAt is still live at now.
// The boundary is inclusive: a fix exactly maxAge old is fresh. A zero
// updatedAt (missing timestamp) is never fresh.
func IsFresh(updatedAt, now time.Time, maxAge time.Duration) bool {
	if updatedAt.IsZero() {
		return false
	}
	return now.Sub(updatedAt) <= maxAge
}

// AgeLabel renders a coarse relative age for display: seconds under a
// minute, then minutes, hours, days. Empty for a missing timestamp.
func AgeLabel(updatedAt, now time.Time) string {
	if updatedAt.IsZero() {
		return ""
	}
	age := now.Sub(updatedAt)
	if age < 0 {
		age = 0
	}
	switch {
	case age < time.Minute:
		return fmt.Sprintf("%ds ago", int(age.Seconds()))
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(age.Hours())/24)
	}
}
