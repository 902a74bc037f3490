package rxdsp

import (
	"math"
	"sync/atomic"

	"rxdsp/Filters"
)

// sMeter reports the strongest waterfall bin inside the receive passband.
type sMeter struct {
	beta   float64
	binHz  float64
	nfft   int
	sink   Sink
	value  float64
	seeded bool
	shown  atomic.Uint64 // value as float64 bits, for readers off the radio goroutine
}

func newSMeter(cfg *Config, sink Sink) *sMeter {
	return &sMeter{
		beta:  cfg.Meter.Beta,
		binHz: float64(cfg.Radio.SampleRate) / float64(cfg.Waterfall.NFFT),
		nfft:  cfg.Waterfall.NFFT,
		sink:  sink,
	}
}

func (m *sMeter) reset() { m.seeded = false }

// Value is the last smoothed reading in dB.
func (m *sMeter) Value() float64 { return math.Float64frombits(m.shown.Load()) }

func (m *sMeter) update(psd []float64, s *Settings) {
	if s.Recording {
		return
	}
	lo, hi := passbandBins(s.FilterLow, s.FilterHigh, m.binHz, m.nfft)
	if hi < lo {
		return
	}
	peak := psd[lo+Filters.ArgMax(psd[lo:hi+1])]
	if m.seeded {
		m.value = Filters.LowPass(m.value, peak, m.beta)
	} else {
		m.value = peak
		m.seeded = true
	}
	m.shown.Store(math.Float64bits(m.value))
	m.sink.MeterUpdate(m.value, m.beta)
}

// passbandBins maps signed offsets from the carrier to the covering range of
// a DC-centred PSD. The range is clamped to the spectrum.
func passbandBins(low, high, binHz float64, nfft int) (lo, hi int) {
	centre := nfft / 2
	lo = centre + int(math.Floor(low/binHz))
	hi = centre + int(math.Ceil(high/binHz))
	lo = max(lo, 0)
	hi = min(hi, nfft-1)
	return lo, hi
}
