package Filters

import "math"

// BesselI0 evaluates the zeroth order modified Bessel function of the first kind.
func BesselI0(x float64) float64 {
	sum, term := 1.0, 1.0
	half := x / 2
	for k := 1; k < 64; k++ {
		term *= (half / float64(k)) * (half / float64(k))
		sum += term
		if term < sum*1e-16 {
			break
		}
	}
	return sum
}

// Kaiser returns an n point symmetric Kaiser window with shape parameter beta.
func Kaiser(n int, beta float64) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	den := BesselI0(beta)
	for i := range w {
		r := 2*float64(i)/float64(n-1) - 1
		w[i] = BesselI0(beta*math.Sqrt(1-r*r)) / den
	}
	return w
}

// KaiserBeta returns the shape parameter that reaches the given stopband
// attenuation in dB.
func KaiserBeta(attenuation float64) float64 {
	switch {
	case attenuation > 50:
		return 0.1102 * (attenuation - 8.7)
	case attenuation >= 21:
		return 0.5842*math.Pow(attenuation-21, 0.4) + 0.07886*(attenuation-21)
	}
	return 0
}

// KaiserTaps estimates the filter length for the attenuation in dB and the
// transition width normalized to the sample rate. The result is always odd.
func KaiserTaps(attenuation, transition float64) int {
	n := int(math.Ceil((attenuation-7.95)/(14.36*transition))) + 1
	if n < 3 {
		n = 3
	}
	if n%2 == 0 {
		n++
	}
	return n
}
