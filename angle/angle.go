// Package angle provides degree-angle normalization helpers used throughout
// the solar-term and new-moon enumerators, where quantities wrap at the
// 0°/360° seam.
package angle

import "math"

// Norm360 reduces x to the half-open range [0, 360).
func Norm360(x float64) float64 {
	y := math.Mod(x, 360)
	if y < 0 {
		y += 360
	}
	return y
}

// AngDiff180 maps x into (-180, 180]. A value of exactly -180 is remapped to
// +180 so that callers never observe the negative boundary.
func AngDiff180(x float64) float64 {
	y := math.Mod(x+180, 360)
	if y < 0 {
		y += 360
	}
	y -= 180
	if y == -180 {
		y = 180
	}
	return y
}

// Unwrap takes a sequence of samples in [0, 360) and returns a continuous
// sequence, adding or subtracting 360 whenever consecutive samples differ by
// more than 180. This converts a phase angle series into a monotone-ish
// curve across new-moon wrap points.
func Unwrap(seq []float64) []float64 {
	if len(seq) == 0 {
		return nil
	}
	out := make([]float64, len(seq))
	out[0] = seq[0]
	offset := 0.0
	for i := 1; i < len(seq); i++ {
		delta := seq[i] - seq[i-1]
		if delta > 180 {
			offset -= 360
		} else if delta < -180 {
			offset += 360
		}
		out[i] = seq[i] + offset
	}
	return out
}
