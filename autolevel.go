package rxdsp

import (
	"math"

	"rxdsp/Filters"
)

// levelEstimator places the spectrum and waterfall colour grids. In auto
// mode the grid floor follows a low percentile of the waterfall PSD and the
// ceiling sits a fixed headroom above it.
type levelEstimator struct {
	cfg     LevelConfig
	sink    Sink
	scratch []float64

	gridMin float64
	seeded  bool
	delay   int

	manualSent   bool
	manualMin    float64
	manualMax    float64
	lastSpecAuto bool
	lastWfAuto   bool
}

func newLevelEstimator(cfg LevelConfig, nfft int, sink Sink) *levelEstimator {
	return &levelEstimator{
		cfg:     cfg,
		sink:    sink,
		scratch: make([]float64, nfft),
	}
}

// holdOff is called on transmit frames; the next TxDelay receive frames are
// ignored while the receiver recovers.
func (l *levelEstimator) holdOff() {
	l.delay = l.cfg.TxDelay
}

func (l *levelEstimator) reset() {
	l.seeded = false
	l.manualSent = false
}

// Bounds returns the current automatic grid.
func (l *levelEstimator) Bounds() (lo, hi float64) {
	return l.gridMin, l.gridMin + l.cfg.Headroom
}

func (l *levelEstimator) update(psd []float64, s *Settings) {
	l.updateManual(s)
	if !s.SpectrumAuto && !s.WaterfallAuto {
		return
	}
	if l.delay > 0 {
		l.delay--
		return
	}

	floor := Filters.Percentile(l.scratch, psd, l.cfg.Percentile)
	if math.IsNaN(floor) {
		return
	}
	floor = Filters.Clamp(floor, l.cfg.Min, l.cfg.Max-l.cfg.Headroom)
	if l.seeded {
		l.gridMin = Filters.Clamp(Filters.LowPass(l.gridMin, floor, l.cfg.Beta), l.cfg.Min, l.cfg.Max-l.cfg.Headroom)
	} else {
		l.gridMin = floor
		l.seeded = true
	}
	lo, hi := l.Bounds()

	if s.SpectrumAuto {
		l.sink.SpectrumUpdateMin(lo)
		l.sink.SpectrumUpdateMax(hi)
	}
	if s.WaterfallAuto {
		l.sink.WaterfallUpdateMin(lo)
		l.sink.WaterfallUpdateMax(hi)
	}
}

// updateManual pushes the stored bounds to every display that has auto off,
// once per change.
func (l *levelEstimator) updateManual(s *Settings) {
	if s.SpectrumAuto && s.WaterfallAuto {
		l.manualSent = false
		return
	}
	changed := !l.manualSent ||
		s.ManualMin != l.manualMin || s.ManualMax != l.manualMax ||
		s.SpectrumAuto != l.lastSpecAuto || s.WaterfallAuto != l.lastWfAuto
	if !changed {
		return
	}
	l.manualSent = true
	l.manualMin, l.manualMax = s.ManualMin, s.ManualMax
	l.lastSpecAuto, l.lastWfAuto = s.SpectrumAuto, s.WaterfallAuto

	lo := Filters.Clamp(s.ManualMin, l.cfg.Min, l.cfg.Max)
	hi := Filters.Clamp(s.ManualMax, l.cfg.Min, l.cfg.Max)
	if !s.SpectrumAuto {
		l.sink.SpectrumUpdateMin(lo)
		l.sink.SpectrumUpdateMax(hi)
	}
	if !s.WaterfallAuto {
		l.sink.WaterfallUpdateMin(lo)
		l.sink.WaterfallUpdateMax(hi)
	}
}
