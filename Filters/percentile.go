package Filters

import "slices"

// Percentile copies src into scratch, sorts the copy and returns the value at
// fraction p of the way up. scratch must hold len(src) values; a shorter one
// is replaced. src is left untouched.
func Percentile(scratch, src []float64, p float64) float64 {
	if len(src) == 0 {
		return 0
	}
	if cap(scratch) < len(src) {
		scratch = make([]float64, len(src))
	}
	data := scratch[:len(src)]
	copy(data, src)
	slices.Sort(data)

	idx := int(float64(len(data)) * Clamp(p, 0, 1))
	if idx >= len(data) {
		idx = len(data) - 1
	}
	return data[idx]
}

// MeanExcludingTop returns the mean of src without its n largest values,
// sorting a copy in scratch. ok is false when nothing is left.
func MeanExcludingTop(scratch, src []float64, n int) (mean float64, ok bool) {
	if len(src) <= n {
		return 0, false
	}
	if cap(scratch) < len(src) {
		scratch = make([]float64, len(src))
	}
	data := scratch[:len(src)]
	copy(data, src)
	slices.Sort(data)

	var sum float64
	for _, v := range data[:len(data)-n] {
		sum += v
	}
	return sum / float64(len(data)-n), true
}
