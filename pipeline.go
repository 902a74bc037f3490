package rxdsp

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"rxdsp/Filters"
)

// snapshot is the immutable view of the settings the producers adopt at the
// start of each call. Derived objects are built by SetConfig and shared by
// pointer.
type snapshot struct {
	settings Settings
	spectrum *spectrumStage
	dds      *Filters.DDSDecimator
	resetSeq uint64
}

// Pipeline is the receive signal chain. ProcessIQ and PutAudioSamples may be
// called from two different goroutines; each must only be called from one
// goroutine at a time. SetConfig and Reset may be called from anywhere.
type Pipeline struct {
	cfg *Config
	log *slog.Logger

	mu   sync.Mutex // serializes writers of snap
	snap atomic.Pointer[snapshot]

	radio *radioPath
	audio *audioPath

	iqCalls    atomic.Uint64
	audioCalls atomic.Uint64
}

type Option func(*options)

type options struct {
	clock    Clock
	logger   *slog.Logger
	consumer AudioConsumer
	tracer   SignalTracer
}

// WithClock replaces the wall clock behind the frame rate gates.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithAudioConsumer receives analytic audio while not in a CW mode.
func WithAudioConsumer(c AudioConsumer) Option {
	return func(o *options) { o.consumer = c }
}

// WithTracer records the CW decoder's internal levels.
func WithTracer(t SignalTracer) Option {
	return func(o *options) { o.tracer = t }
}

// NewPipeline validates cfg and settings and allocates everything the hot
// paths need.
func NewPipeline(cfg *Config, settings Settings, sink Sink, opts ...Option) (*Pipeline, error) {
	o := options{clock: systemClock{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if sink == nil {
		sink = NopSink{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := settings.Validate(cfg); err != nil {
		return nil, err
	}

	stage, err := newSpectrumStage(cfg, settings.Zoom)
	if err != nil {
		return nil, fmt.Errorf("spectrum: %w", err)
	}
	dds, err := NewCWDDS(cfg, settings.CWTone)
	if err != nil {
		return nil, fmt.Errorf("cw mixer: %w", err)
	}
	radio, err := newRadioPath(cfg, sink, o.clock)
	if err != nil {
		return nil, fmt.Errorf("radio: %w", err)
	}
	audio, err := newAudioPath(cfg, dds, settings, sink, o.consumer)
	if err != nil {
		return nil, fmt.Errorf("audio: %w", err)
	}
	if o.tracer != nil {
		audio.cw.SetTracer(o.tracer)
	}

	p := &Pipeline{
		cfg:   cfg,
		log:   o.logger,
		radio: radio,
		audio: audio,
	}
	snap := &snapshot{settings: settings, spectrum: stage, dds: dds}
	p.snap.Store(snap)
	radio.adopt(snap)

	p.log.Debug("pipeline ready",
		"iq_rate", cfg.Radio.SampleRate,
		"audio_rate", cfg.Audio.SampleRate,
		"cw_rate", dds.OutputRate(),
		"mode", settings.Mode.String(),
		"zoom", settings.Zoom)
	return p, nil
}

// SetConfig applies new settings. Zoom and CW tone changes rebuild their
// stages here, off the sample paths; band, mode and zoom changes restart
// the analysis. An invalid value leaves the running settings untouched.
func (p *Pipeline) SetConfig(s Settings) error {
	if err := s.Validate(p.cfg); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	prev := p.snap.Load()
	next := *prev
	next.settings = s

	if s.Zoom != prev.settings.Zoom {
		stage, err := newSpectrumStage(p.cfg, s.Zoom)
		if err != nil {
			return fmt.Errorf("spectrum: %w", err)
		}
		next.spectrum = stage
		next.resetSeq++
		p.log.Debug("zoom changed", "from", prev.settings.Zoom, "to", s.Zoom)
	}
	if s.Band != prev.settings.Band || s.Mode != prev.settings.Mode {
		if next.resetSeq == prev.resetSeq {
			next.resetSeq++
		}
		p.log.Debug("band or mode changed", "band", s.Band, "mode", s.Mode.String())
	}
	if s.CWTone != prev.settings.CWTone {
		dds, err := NewCWDDS(p.cfg, s.CWTone)
		if err != nil {
			return fmt.Errorf("cw mixer: %w", err)
		}
		next.dds = dds
		p.log.Debug("cw tone changed", "tone", s.CWTone)
	}

	p.snap.Store(&next)
	return nil
}

// Reset restarts the analysis as a band change would.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	next := *p.snap.Load()
	next.resetSeq++
	p.snap.Store(&next)
}

// Settings returns the settings currently in force.
func (p *Pipeline) Settings() Settings {
	return p.snap.Load().settings
}

// ProcessIQ feeds a block of radio samples. tx marks blocks captured while
// transmitting.
func (p *Pipeline) ProcessIQ(buf []complex64, tx bool) {
	p.iqCalls.Add(1)
	p.radio.adopt(p.snap.Load())
	p.radio.process(buf, tx)
}

// PutAudioSamples feeds a block of demodulated 16 bit audio.
func (p *Pipeline) PutAudioSamples(samples []int16) {
	p.audioCalls.Add(1)
	p.audio.adopt(p.snap.Load())
	p.audio.process(samples)
}

// Stats counts the work done so far. It is safe to read while the producers
// run; CW levels are those of the last analysis block.
type Stats struct {
	IQCalls         uint64
	AudioCalls      uint64
	Chunks          uint64
	SpectrumFrames  uint64
	WaterfallFrames uint64
	Meter           float64
	CW              CWLevels
}

func (p *Pipeline) Stats() Stats {
	return Stats{
		IQCalls:         p.iqCalls.Load(),
		AudioCalls:      p.audioCalls.Load(),
		Chunks:          p.radio.frames.chunks.Load(),
		SpectrumFrames:  p.radio.frames.spectrumFrames.Load(),
		WaterfallFrames: p.radio.frames.waterfallFrames.Load(),
		Meter:           p.radio.meter.Value(),
		CW:              p.audio.cw.Levels(),
	}
}

// audioPath owns the state the audio producer touches.
type audioPath struct {
	cfg      *Config
	hilbert  *Filters.Hilbert
	samples  []float64
	analytic []complex128
	cw       *CWDecoder
	dds      *Filters.DDSDecimator
	consumer AudioConsumer
	settings Settings
}

func newAudioPath(cfg *Config, dds *Filters.DDSDecimator, s Settings, sink CWSink, consumer AudioConsumer) (*audioPath, error) {
	hilbert := Filters.NewHilbert(cfg.Audio.HilbertSemi)
	cw, err := NewCWDecoder(cfg.CW, cfg.Audio.SampleRate, hilbert, dds, thresholdParams(cfg, s), sink)
	if err != nil {
		return nil, err
	}
	return &audioPath{
		cfg:      cfg,
		hilbert:  hilbert,
		samples:  make([]float64, 0, 4096),
		analytic: make([]complex128, 0, 4096),
		cw:       cw,
		dds:      dds,
		consumer: consumer,
		settings: s,
	}, nil
}

func thresholdParams(cfg *Config, s Settings) Filters.ThresholdParams {
	return Filters.ThresholdParams{
		SNR:         s.CWSNR,
		Gist:        s.CWSNRGist,
		PeakBeta:    s.CWPeakBeta,
		NoiseBeta:   s.CWNoiseBeta,
		PeakMargin:  cfg.CW.PeakMargin,
		NoiseOffset: cfg.CW.NoiseOffset,
	}
}

func (a *audioPath) adopt(snap *snapshot) {
	prev := a.settings
	a.settings = snap.settings
	if snap.dds != a.dds {
		a.dds = snap.dds
		a.cw.SetDDS(snap.dds)
	}
	s := snap.settings
	if s.CWSNR != prev.CWSNR || s.CWSNRGist != prev.CWSNRGist ||
		s.CWPeakBeta != prev.CWPeakBeta || s.CWNoiseBeta != prev.CWNoiseBeta {
		a.cw.SetParams(thresholdParams(a.cfg, s))
	}
	if s.Mode.IsCW() != prev.Mode.IsCW() {
		a.cw.Reset()
	}
}

func (a *audioPath) process(samples []int16) {
	a.samples = a.samples[:0]
	for _, x := range samples {
		a.samples = append(a.samples, float64(x)/32768)
	}
	a.analytic = a.hilbert.Execute(a.analytic, a.samples)

	if a.settings.Mode.IsCW() {
		a.cw.Process(a.analytic)
	} else if a.consumer != nil {
		a.consumer.ConsumeAudio(a.analytic)
	}
}
