package rxdsp

import (
	"math"
	"math/cmplx"
	"math/rand"
	"time"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

type cwEvent struct {
	on         bool
	durationMs float64
}

// recordingSink keeps everything the pipeline emits.
type recordingSink struct {
	NopSink

	spectrumFrames  int
	waterfallFrames int
	txWaterfall     int
	lastSpectrum    []float64
	lastWaterfall   []float64

	meter   []float64
	specMin []float64
	specMax []float64
	wfMin   []float64
	wfMax   []float64
	notches []int
	cw      []cwEvent
	tunes   []float64

	onCW func(cwEvent)
}

func (s *recordingSink) SpectrumData(psd []float64, tx bool) {
	s.spectrumFrames++
	s.lastSpectrum = append(s.lastSpectrum[:0], psd...)
}

func (s *recordingSink) WaterfallData(psd []float64, tx bool) {
	s.waterfallFrames++
	if tx {
		s.txWaterfall++
	}
	s.lastWaterfall = append(s.lastWaterfall[:0], psd...)
}

func (s *recordingSink) MeterUpdate(db, beta float64) { s.meter = append(s.meter, db) }
func (s *recordingSink) SpectrumUpdateMin(db float64) { s.specMin = append(s.specMin, db) }
func (s *recordingSink) SpectrumUpdateMax(db float64) { s.specMax = append(s.specMax, db) }
func (s *recordingSink) WaterfallUpdateMin(db float64) {
	s.wfMin = append(s.wfMin, db)
}
func (s *recordingSink) WaterfallUpdateMax(db float64) {
	s.wfMax = append(s.wfMax, db)
}
func (s *recordingSink) NotchFrequency(hz int)       { s.notches = append(s.notches, hz) }
func (s *recordingSink) CWTuneFrequency(hz float64) { s.tunes = append(s.tunes, hz) }

func (s *recordingSink) CWSignal(on bool, durationMs float64) {
	ev := cwEvent{on: on, durationMs: durationMs}
	s.cw = append(s.cw, ev)
	if s.onCW != nil {
		s.onCW(ev)
	}
}

// iqSource produces radio blocks as the hardware delivers them, with I and Q
// crossed, so the pipeline sees the sum of tones after its swap.
type iqSource struct {
	rate  float64
	tones []iqTone
	noise float64
	rng   *rand.Rand
	n     int
}

type iqTone struct {
	freq, amp float64
}

func newIQSource(rate int, noise float64, tones ...iqTone) *iqSource {
	return &iqSource{rate: float64(rate), tones: tones, noise: noise, rng: rand.New(rand.NewSource(1))}
}

func (s *iqSource) next(buf []complex64) []complex64 {
	for i := range buf {
		var x complex128
		for _, t := range s.tones {
			x += complex(t.amp, 0) * cmplx.Exp(complex(0, 2*math.Pi*t.freq*float64(s.n)/s.rate))
		}
		if s.noise > 0 {
			x += complex(s.rng.NormFloat64()*s.noise, s.rng.NormFloat64()*s.noise)
		}
		buf[i] = complex64(complex(imag(x), real(x)))
		s.n++
	}
	return buf
}

func audioTone(n int, rate, freq, amp float64, start int) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(amp * 32767 * math.Cos(2*math.Pi*freq*float64(start+i)/rate))
	}
	return out
}

func audioNoise(rng *rand.Rand, n int, sigma float64) []int16 {
	out := make([]int16, n)
	for i := range out {
		v := rng.NormFloat64() * sigma * 32768
		out[i] = int16(math.Max(-32768, math.Min(32767, v)))
	}
	return out
}
