package kinematics

import (
	"fmt"
	"math"
)

// HeadingMode selects how yaw values are stored in snapshots.
type HeadingMode string

const (
	// HeadingWrapped normalises every heading to [-π, π).
	HeadingWrapped HeadingMode = "wrapped"
	// HeadingRaw keeps yaw exactly as recorded.
	HeadingRaw HeadingMode = "raw"
)

// ParseHeadingMode validates a configured mode. Empty means wrapped.
func ParseHeadingMode(s string) (HeadingMode, error) {
	switch HeadingMode(s) {
	case "", HeadingWrapped:
		return HeadingWrapped, nil
	case HeadingRaw:
		return HeadingRaw, nil
	}
	return "", fmt.Errorf("invalid heading mode %q (want %q or %q)", s, HeadingWrapped, HeadingRaw)
}

// Apply returns yaw under the mode.
func (m HeadingMode) Apply(yaw float64) float64 {
	if m == HeadingRaw {
		return yaw
	}
	return NormalizeHeading(yaw)
}

// NormalizeHeading maps an angle in radians to [-π, π). NaN and infinities
// are returned unchanged.
func NormalizeHeading(a float64) float64 {
	if math.IsNaN(a) || math.IsInf(a, 0) {
		return a
	}
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}

// HeadingDelta returns the signed change from a to b, wrapped to [-π, π).
func HeadingDelta(a, b float64) float64 {
	return NormalizeHeading(b - a)
}
