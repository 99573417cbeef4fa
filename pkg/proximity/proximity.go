// Package proximity turns a raw distance into a coarse label so the map can
// hint how close another user is without exposing the exact figure.
package proximity

// Progress maps distance onto 0-100: 100 at zero distance, 0 at or beyond
// the radius.
func Progress(distanceMeters, maxRadiusMeters float64) float64 {
	if maxRadiusMeters <= 0 || distanceMeters >= maxRadiusMeters {
		return 0
	}
	p := (1 - distanceMeters/maxRadiusMeters) * 100
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

// Label buckets a progress value into the display string. Empty means out
// of range.
func Label(progressPct float64) string {
	switch {
	case progressPct >= 75:
		return "Very Close"
	case progressPct >= 50:
		return "Nearby"
	case progressPct >= 25:
		return "Within Area"
	case progressPct > 0:
		return "Far (within range)"
	default:
		return ""
	}
}
