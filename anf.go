package rxdsp

import (
	"math"
	"time"

	"rxdsp/Filters"
)

// anfTracker finds a steady carrier inside the receive passband and
// publishes it as the automatic notch frequency. The IQ stream is decimated
// and summed into an accumulating spectrogram that is read and cleared every
// interval.
type anfTracker struct {
	cfg  ANFConfig
	sink Sink

	decim *Filters.Decimator
	buf   []complex128

	spgram  *ChunkedSpgram
	psd     []float64
	scratch []float64
	binHz   float64

	// the last History estimates, 0 meaning no carrier
	history []int
	histPos int
	filled  int

	published    int
	hasPublished bool
	last         time.Time
}

func newANFTracker(cfg *Config, sink Sink) (*anfTracker, error) {
	decim, err := Filters.NewKaiserDecimator(cfg.ANF.Decimation, cfg.Spectrum.Attenuation)
	if err != nil {
		return nil, err
	}
	nfft := cfg.ANFNFFT()
	chunk := cfg.Radio.ChunkSize / cfg.ANF.Decimation
	sp, err := NewChunkedSpgram(chunk, nfft, WindowKaiser)
	if err != nil {
		return nil, err
	}
	if err := sp.SetAlpha(AccumulateAlpha); err != nil {
		return nil, err
	}
	return &anfTracker{
		cfg:     cfg.ANF,
		sink:    sink,
		decim:   decim,
		buf:     make([]complex128, 0, chunk),
		spgram:  sp,
		psd:     make([]float64, nfft),
		scratch: make([]float64, nfft),
		binHz:   float64(cfg.Radio.SampleRate) / float64(cfg.ANF.Decimation) / float64(nfft),
		history: make([]int, cfg.ANF.History),
	}, nil
}

func (a *anfTracker) write(chunk []complex128) {
	a.buf = a.decim.Execute(a.buf, chunk)
	a.spgram.Write(a.buf)
}

func (a *anfTracker) reset() {
	a.decim.Reset()
	a.spgram.Clear()
	clear(a.history)
	a.histPos, a.filled = 0, 0
	a.hasPublished = false
}

// update runs one estimate per interval.
func (a *anfTracker) update(now time.Time, s *Settings) {
	if now.Sub(a.last) < a.cfg.Interval {
		return
	}
	a.last = now
	if a.spgram.NumTransforms() == 0 {
		return
	}
	a.push(a.estimate(s))
}

// estimate returns the carrier offset in display Hz, rounded, or 0 when no
// bin in the passband stands far enough above the rest.
func (a *anfTracker) estimate(s *Settings) int {
	a.spgram.PSD(a.psd)
	a.spgram.Clear()

	nfft := len(a.psd)
	lo, hi := passbandBins(s.FilterLow, s.FilterHigh, a.binHz, nfft)
	if hi < lo {
		return 0
	}
	band := a.psd[lo : hi+1]
	k := Filters.ArgMax(band)
	mean, ok := Filters.MeanExcludingTop(a.scratch, band, a.cfg.ExcludeTop)
	if !ok || band[k]-mean <= a.cfg.Margin {
		return 0
	}

	offset := float64(lo+k-nfft/2) * a.binHz
	step := float64(a.cfg.Rounding)
	hz := int(math.Round(offset/step)) * a.cfg.Rounding
	if s.Mode.LowerSideband() {
		hz = -hz
	}
	return hz
}

// push records an estimate and publishes once History estimates in a row
// agree on a value different from the last published one.
func (a *anfTracker) push(hz int) {
	a.history[a.histPos] = hz
	a.histPos = (a.histPos + 1) % len(a.history)
	if a.filled < len(a.history) {
		a.filled++
	}
	if a.filled < len(a.history) {
		return
	}
	for _, v := range a.history {
		if v != hz {
			return
		}
	}
	if a.hasPublished && a.published == hz {
		return
	}
	a.published = hz
	a.hasPublished = true
	if hz == 0 {
		hz = a.cfg.DefaultHz
	}
	a.sink.NotchFrequency(hz)
}
