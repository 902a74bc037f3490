package Filters

import "math"

// PowerFloor is the smallest linear power converted to dB. Anything below it
// (including zero and NaN) reads as PowerFloorDB.
const PowerFloor = 1e-20

// PowerFloorDB is PowerFloor expressed in dB.
const PowerFloorDB = -200.0

// LowPass returns beta*prev + (1-beta)*v.
func LowPass(prev, v, beta float64) float64 {
	return prev*beta + v*(1-beta)
}

// PowerDB converts a linear power to dB.
func PowerDB(p float64) float64 {
	if !(p >= PowerFloor) {
		return PowerFloorDB
	}
	return 10 * math.Log10(p)
}

// ArgMax returns the index of the largest element, or -1 for an empty slice.
func ArgMax(x []float64) int {
	if len(x) == 0 {
		return -1
	}
	best := 0
	for i, v := range x[1:] {
		if v > x[best] {
			best = i + 1
		}
	}
	return best
}

// Clamp limits v to [lo, hi]. NaN maps to lo.
func Clamp(v, lo, hi float64) float64 {
	switch {
	case !(v >= lo):
		return lo
	case v > hi:
		return hi
	}
	return v
}
