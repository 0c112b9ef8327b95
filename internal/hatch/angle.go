package hatch

import (
	"math"
	"strconv"
)

// NormalizeAngle folds degrees into [0,180). A hatch line at a and one at
// a+180 are the same line.
func NormalizeAngle(deg float64) float64 {
	return math.Mod(math.Mod(deg, 180)+180, 180)
}

// NormalizeAngles folds every angle and substitutes [0] for an empty list.
func NormalizeAngles(degs []float64) []float64 {
	if len(degs) == 0 {
		return []float64{0}
	}
	out := make([]float64, len(degs))
	for i, a := range degs {
		out[i] = NormalizeAngle(a)
	}
	return out
}

// FormatAngle renders degrees with the shortest exact decimal form.
func FormatAngle(deg float64) string {
	return strconv.FormatFloat(deg, 'f', -1, 64)
}

// Label names the polylines of one layer at one angle.
func Label(layer string, deg float64) string {
	return layer + "_" + FormatAngle(deg) + "deg"
}
