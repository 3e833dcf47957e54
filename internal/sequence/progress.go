package sequence

import "math"

// Progress maps a scroll offset over a scrollable distance to [0, 1].
//
// A distance <= 0 has nothing to scroll over: the result is 1 once the
// offset is positive and 0 otherwise. NaN inputs map to 0.
func Progress(offset, distance float64) float64 {
	if math.IsNaN(offset) || math.IsNaN(distance) {
		return 0
	}
	if distance <= 0 {
		if offset > 0 {
			return 1
		}
		return 0
	}
	p := offset / distance
	if math.IsNaN(p) {
		return 0
	}
	return math.Max(0, math.Min(1, p))
}

// TargetIndex returns floor(p*(n-1)) clamped to [0, n-1]. n must be >= 1.
func TargetIndex(p float64, n int) int {
	if n <= 1 || math.IsNaN(p) {
		return 0
	}
	p = math.Max(0, math.Min(1, p))
	i := int(math.Floor(p * float64(n-1)))
	if i > n-1 {
		return n - 1
	}
	return i
}
