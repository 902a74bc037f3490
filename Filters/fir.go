package Filters

import (
	"errors"
	"fmt"
	"math"
)

var ErrFilterDesign = errors.New("filter design")

// DesignLowpass builds a Kaiser windowed sinc with unity DC gain. Cutoff and
// transition are normalized to the sample rate.
func DesignLowpass(cutoff, transition, attenuation float64) ([]float64, error) {
	if cutoff <= 0 || cutoff >= 0.5 || transition <= 0 {
		return nil, fmt.Errorf("%w: cutoff %.4f transition %.4f", ErrFilterDesign, cutoff, transition)
	}
	n := KaiserTaps(attenuation, transition)
	w := Kaiser(n, KaiserBeta(attenuation))
	taps := make([]float64, n)
	mid := float64(n-1) / 2
	var sum float64
	for i := range taps {
		t := float64(i) - mid
		v := 2 * cutoff
		if t != 0 {
			v = math.Sin(2*math.Pi*cutoff*t) / (math.Pi * t)
		}
		taps[i] = v * w[i]
		sum += taps[i]
	}
	for i := range taps {
		taps[i] /= sum
	}
	return taps, nil
}

// Response evaluates the transfer function of taps at f cycles per sample.
func Response(taps []float64, f float64) complex128 {
	var re, im float64
	for k, t := range taps {
		s, c := math.Sincos(-2 * math.Pi * f * float64(k))
		re += t * c
		im += t * s
	}
	return complex(re, im)
}

// Decimator is a complex FIR low-pass followed by keep-one-in-factor.
type Decimator struct {
	taps   []float64
	hist   []complex128
	pos    int
	factor int
	phase  int
}

func NewDecimator(factor int, taps []float64) (*Decimator, error) {
	if factor < 1 || len(taps) == 0 {
		return nil, fmt.Errorf("%w: factor %d with %d taps", ErrFilterDesign, factor, len(taps))
	}
	return &Decimator{
		taps:   taps,
		hist:   make([]complex128, 2*len(taps)),
		factor: factor,
	}, nil
}

// NewKaiserDecimator designs the anti-alias filter for factor, keeping the
// inner 90% of the output band.
func NewKaiserDecimator(factor int, attenuation float64) (*Decimator, error) {
	if factor == 1 {
		return NewDecimator(1, []float64{1})
	}
	m := float64(factor)
	taps, err := DesignLowpass(0.45/m, 0.1/m, attenuation)
	if err != nil {
		return nil, err
	}
	return NewDecimator(factor, taps)
}

func (d *Decimator) Factor() int { return d.factor }

// Delay is the group delay in input samples.
func (d *Decimator) Delay() int { return (len(d.taps) - 1) / 2 }

// Push feeds one sample. The second result reports whether an output sample
// was produced.
func (d *Decimator) Push(x complex128) (complex128, bool) {
	n := len(d.taps)
	d.hist[d.pos] = x
	d.hist[d.pos+n] = x
	d.pos++
	if d.pos == n {
		d.pos = 0
	}
	d.phase++
	if d.phase < d.factor {
		return 0, false
	}
	d.phase = 0

	win := d.hist[d.pos : d.pos+n]
	var re, im float64
	for k, t := range d.taps {
		re += t * real(win[k])
		im += t * imag(win[k])
	}
	return complex(re, im), true
}

// Execute decimates src into dst and returns the filled part of dst.
func (d *Decimator) Execute(dst, src []complex128) []complex128 {
	dst = dst[:0]
	for _, x := range src {
		if y, ok := d.Push(x); ok {
			dst = append(dst, y)
		}
	}
	return dst
}

func (d *Decimator) Reset() {
	clear(d.hist)
	d.pos = 0
	d.phase = 0
}
