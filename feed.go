package rxdsp

import (
	"math"
	"sync/atomic"
	"time"

	"rxdsp/Filters"
)

// spectrumStage is the zoom dependent part of the spectrum path. It is built
// by SetConfig and handed to the radio producer through the settings
// snapshot, so a zoom change never touches objects the producer is using.
type spectrumStage struct {
	zoom    int
	decim   *Filters.Decimator // nil at zoom 1
	spgram  *ChunkedSpgram
	scratch []complex128
	beta    float64 // display smoothing adjusted for the zoomed frame rate
}

func newSpectrumStage(cfg *Config, zoom int) (*spectrumStage, error) {
	chunk := cfg.Radio.ChunkSize / zoom
	sp, err := NewChunkedSpgram(chunk, cfg.Spectrum.NFFT, WindowKaiser)
	if err != nil {
		return nil, err
	}
	if err := sp.SetAlpha(cfg.Spectrum.Alpha); err != nil {
		return nil, err
	}
	st := &spectrumStage{
		zoom:    zoom,
		spgram:  sp,
		scratch: make([]complex128, 0, chunk),
		beta:    math.Pow(cfg.Spectrum.DisplayBeta, float64((zoom-1)/2+1)),
	}
	if zoom > 1 {
		if st.decim, err = Filters.NewKaiserDecimator(zoom, cfg.Spectrum.Attenuation); err != nil {
			return nil, err
		}
	}
	return st, nil
}

func (st *spectrumStage) write(chunk []complex128) {
	if st.decim == nil {
		st.spgram.Write(chunk)
		return
	}
	st.scratch = st.decim.Execute(st.scratch, chunk)
	st.spgram.Write(st.scratch)
}

func (st *spectrumStage) reset() {
	if st.decim != nil {
		st.decim.Reset()
	}
	st.spgram.Clear()
}

// radioPath owns every piece of state the IQ producer touches.
type radioPath struct {
	cfg  *Config
	sink Sink
	clk  Clock

	settings Settings
	resetSeq uint64

	dc   *Filters.DCBlocker
	in   []complex128
	fill int

	stage          *spectrumStage
	spectrumPSD    []float64
	spectrumOut    []float64
	spectrumSeeded bool

	waterfall    *ChunkedSpgram
	waterfallPSD []float64

	anf   *anfTracker
	level *levelEstimator
	meter *sMeter

	psdDelay       int
	lastSpectrum   time.Time
	lastWaterfall  time.Time
	spectrumEvery  time.Duration
	waterfallEvery time.Duration

	frames radioStats
}

type radioStats struct {
	chunks          atomic.Uint64
	spectrumFrames  atomic.Uint64
	waterfallFrames atomic.Uint64
}

func newRadioPath(cfg *Config, sink Sink, clk Clock) (*radioPath, error) {
	wf, err := NewChunkedSpgram(cfg.Radio.ChunkSize, cfg.Waterfall.NFFT, WindowKaiser)
	if err != nil {
		return nil, err
	}
	if err := wf.SetAlpha(cfg.Waterfall.Alpha); err != nil {
		return nil, err
	}
	anf, err := newANFTracker(cfg, sink)
	if err != nil {
		return nil, err
	}
	return &radioPath{
		cfg:            cfg,
		sink:           sink,
		clk:            clk,
		dc:             Filters.NewDCBlocker(cfg.Radio.DCAlpha),
		in:             make([]complex128, cfg.Radio.ChunkSize),
		spectrumPSD:    make([]float64, cfg.Spectrum.NFFT),
		spectrumOut:    make([]float64, cfg.Spectrum.NFFT),
		waterfall:      wf,
		waterfallPSD:   make([]float64, cfg.Waterfall.NFFT),
		anf:            anf,
		level:          newLevelEstimator(cfg.Level, cfg.Waterfall.NFFT, sink),
		meter:          newSMeter(cfg, sink),
		psdDelay:       cfg.Spectrum.PSDDelay,
		spectrumEvery:  time.Duration(float64(time.Second) / cfg.Spectrum.FPS),
		waterfallEvery: time.Duration(float64(time.Second) / cfg.Waterfall.FPS),
	}, nil
}

// adopt takes over the latest snapshot. Objects are compared by identity so
// nothing is rebuilt on the hot path.
func (r *radioPath) adopt(snap *snapshot) {
	r.settings = snap.settings
	if snap.spectrum != r.stage {
		r.stage = snap.spectrum
		r.spectrumSeeded = false
	}
	if snap.resetSeq != r.resetSeq {
		r.resetSeq = snap.resetSeq
		r.reset()
	}
}

func (r *radioPath) reset() {
	r.psdDelay = r.cfg.Spectrum.PSDDelay
	r.dc.Reset()
	r.fill = 0
	r.waterfall.Clear()
	r.stage.reset()
	r.spectrumSeeded = false
	r.anf.reset()
	r.level.reset()
	r.meter.reset()
}

func (r *radioPath) notchActive(tx bool) bool {
	return !tx && r.settings.ANFEnabled && r.settings.Mode.NotchCapable()
}

func (r *radioPath) process(buf []complex64, tx bool) {
	for _, x := range buf {
		v := r.dc.Process(complex128(x))
		// the radio delivers I and Q crossed
		r.in[r.fill] = complex(imag(v), real(v))
		r.fill++
		if r.fill == len(r.in) {
			r.fill = 0
			r.analyze(tx)
		}
	}

	if r.psdDelay > 0 {
		r.psdDelay--
		return
	}
	now := r.clk.Now()
	if now.Sub(r.lastSpectrum) >= r.spectrumEvery {
		r.lastSpectrum = now
		r.emitSpectrum(tx)
	}
	if now.Sub(r.lastWaterfall) >= r.waterfallEvery {
		r.lastWaterfall = now
		r.emitWaterfall(tx)
	}
	if r.notchActive(tx) {
		r.anf.update(now, &r.settings)
	}
}

func (r *radioPath) analyze(tx bool) {
	r.frames.chunks.Add(1)
	r.waterfall.Write(r.in)
	r.stage.write(r.in)
	if r.notchActive(tx) {
		r.anf.write(r.in)
	}
}

func (r *radioPath) emitSpectrum(tx bool) {
	r.stage.spgram.PSD(r.spectrumPSD)
	off := r.cfg.Spectrum.Offset
	for k, v := range r.spectrumPSD {
		v += off
		if r.spectrumSeeded {
			v = Filters.LowPass(r.spectrumOut[k], v, r.stage.beta)
		}
		r.spectrumOut[k] = v
	}
	r.spectrumSeeded = true
	r.frames.spectrumFrames.Add(1)
	r.sink.SpectrumData(r.spectrumOut, tx)
}

func (r *radioPath) emitWaterfall(tx bool) {
	r.waterfall.PSD(r.waterfallPSD)
	r.frames.waterfallFrames.Add(1)
	r.sink.WaterfallData(r.waterfallPSD, tx)

	if tx {
		r.level.holdOff()
		return
	}
	r.level.update(r.waterfallPSD, &r.settings)
	r.meter.update(r.waterfallPSD, &r.settings)
}
