package Filters

import (
	"fmt"
	"math"
)

// NCO is a numerically controlled oscillator used to shift a tone to DC.
type NCO struct {
	sampleRate float64
	freq       float64
	phase      float64
	phaseInc   float64
}

func NewNCO(sampleRate, freq float64) *NCO {
	o := &NCO{sampleRate: sampleRate}
	o.SetFrequency(freq)
	return o
}

func (o *NCO) SetFrequency(freq float64) {
	o.freq = freq
	o.updatePhaseInc()
}

func (o *NCO) Frequency() float64 { return o.freq }

func (o *NCO) updatePhaseInc() {
	o.phaseInc = 2 * math.Pi * o.freq / o.sampleRate
}

// MixDown multiplies x by exp(-j*phase) and advances the phase.
func (o *NCO) MixDown(x complex128) complex128 {
	s, c := math.Sincos(o.phase)
	y := x * complex(c, -s)
	o.phase += o.phaseInc
	if o.phase > math.Pi {
		o.phase -= 2 * math.Pi
	} else if o.phase < -math.Pi {
		o.phase += 2 * math.Pi
	}
	return y
}

func (o *NCO) Reset() { o.phase = 0 }

// DDSDecimator mixes a tone at center down to DC and runs it through a chain
// of half-band style decimate-by-two stages. The overall factor is 2^stages.
type DDSDecimator struct {
	nco        *NCO
	stages     []*Decimator
	sampleRate float64
	bandwidth  float64
}

// NewDDSDecimator designs each stage so nothing folds into +-bandwidth/2 of
// the final output.
func NewDDSDecimator(sampleRate float64, stages int, center, bandwidth, attenuation float64) (*DDSDecimator, error) {
	if stages < 1 {
		return nil, fmt.Errorf("%w: %d stages", ErrFilterDesign, stages)
	}
	if out := sampleRate / float64(int(1)<<stages); bandwidth <= 0 || bandwidth >= out {
		return nil, fmt.Errorf("%w: bandwidth %.1f Hz does not fit output rate %.1f Hz", ErrFilterDesign, bandwidth, out)
	}
	d := &DDSDecimator{
		nco:        NewNCO(sampleRate, center),
		sampleRate: sampleRate,
		bandwidth:  bandwidth,
	}
	rate := sampleRate
	for range stages {
		taps, err := DesignLowpass(0.25, 0.5-bandwidth/rate, attenuation)
		if err != nil {
			return nil, err
		}
		st, err := NewDecimator(2, taps)
		if err != nil {
			return nil, err
		}
		d.stages = append(d.stages, st)
		rate /= 2
	}
	return d, nil
}

func (d *DDSDecimator) Factor() int { return 1 << len(d.stages) }

func (d *DDSDecimator) OutputRate() float64 { return d.sampleRate / float64(d.Factor()) }

func (d *DDSDecimator) Center() float64 { return d.nco.Frequency() }

func (d *DDSDecimator) Bandwidth() float64 { return d.bandwidth }

// Push feeds one input sample and reports whether the chain produced output.
func (d *DDSDecimator) Push(x complex128) (complex128, bool) {
	y := d.nco.MixDown(x)
	for _, st := range d.stages {
		var ok bool
		if y, ok = st.Push(y); !ok {
			return 0, false
		}
	}
	return y, true
}

// Response is the gain of the whole chain for an input component at freq Hz,
// the mixing included.
func (d *DDSDecimator) Response(freq float64) complex128 {
	f := freq - d.nco.Frequency()
	rate := d.sampleRate
	g := complex(1, 0)
	for _, st := range d.stages {
		g *= Response(st.taps, f/rate)
		rate /= 2
	}
	return g
}

func (d *DDSDecimator) Reset() {
	d.nco.Reset()
	for _, st := range d.stages {
		st.Reset()
	}
}
