package rxdsp

import (
	"fmt"
	"math"
	"sync"

	"rxdsp/Filters"
)

// CWLevels is a snapshot of the decoder's trackers, all in dB.
type CWLevels struct {
	Level    float64 // last RMS level fed to the trigger
	BlockAvg float64 // mean RMS level over the last analysis block
	BlockMax float64
	Peak     float64
	Noise    float64
	Pulse    float64
	Silence  float64
}

// CWDecoder turns analytic audio into key up and key down events.
//
// The tone at the configured frequency is mixed to baseband and decimated.
// Every decimated sample updates a short RMS level; every FFT block decides
// whether a tone is present near the strongest bin and moves the pulse and
// silence thresholds. The RMS level is delayed by half a block so it meets
// the thresholds computed from the block around it, then a Schmitt trigger
// produces the key state.
type CWDecoder struct {
	cfg  CWConfig
	sink CWSink

	front    *Filters.Hilbert
	dds      *Filters.DDSDecimator
	spectrum *toneSpectrum
	rms      *Filters.RMS
	delay    *Filters.DelayLine
	levels   *Filters.AdaptiveThresholder
	trigger  *Filters.SchmittTrigger
	tracer   SignalTracer

	audioRate   float64
	msPerSample float64
	smear       int64
	calibration float64 // dB from baseband power to input dBFS

	blockMax   float64
	blockPower float64
	blockCount int
	last       CWLevels

	mu     sync.Mutex
	shared CWLevels
}

// NewCWDecoder builds a decoder for analytic audio at audioRate produced by
// front. dds must be centred on the CW tone; see NewCWDDS.
func NewCWDecoder(cfg CWConfig, audioRate int, front *Filters.Hilbert, dds *Filters.DDSDecimator, params Filters.ThresholdParams, sink CWSink) (*CWDecoder, error) {
	if dds == nil || front == nil {
		return nil, fmt.Errorf("%w: cw decoder needs a mixer and a front end", ErrInvalidConfig)
	}
	if sink == nil {
		sink = NopSink{}
	}
	d := &CWDecoder{
		cfg:         cfg,
		sink:        sink,
		rms:         Filters.NewRMS(cfg.RMSWindow),
		delay:       Filters.NewDelayLine(cfg.RMSDelay),
		levels:      Filters.NewAdaptiveThresholder(params, cfg.InitialNoise),
		trigger:     Filters.NewSchmittTrigger(0, -1),
		front:       front,
		tracer:      NopTracer{},
		audioRate:   float64(audioRate),
		msPerSample: 1000 * float64(dds.Factor()) / float64(audioRate),
		smear:       int64(cfg.RMSWindow - 1),
	}
	d.SetDDS(dds)
	return d, nil
}

// NewCWDDS designs the mixer and decimator chain for a tone.
func NewCWDDS(cfg *Config, tone float64) (*Filters.DDSDecimator, error) {
	return Filters.NewDDSDecimator(float64(cfg.Audio.SampleRate), cfg.CW.Stages, tone, cfg.CW.Bandwidth, cfg.CW.Attenuation)
}

// SetDDS swaps in a mixer built for a new tone and starts tracking afresh.
func (d *CWDecoder) SetDDS(dds *Filters.DDSDecimator) {
	d.dds = dds
	d.spectrum = newToneSpectrum(d.cfg.FFTSize, dds.OutputRate(), d.cfg.WPM)
	d.calibration = levelCalibration(d.audioRate, d.front, dds)
	d.Reset()
}

// levelCalibration returns the dB that brings the baseband power of full band
// white noise back to its power at the input, so levels read in dBFS.
func levelCalibration(audioRate float64, front *Filters.Hilbert, dds *Filters.DDSDecimator) float64 {
	const steps = 2048
	span := dds.OutputRate()
	df := 2 * span / steps
	var gain float64
	for i := range steps + 1 {
		f := dds.Center() - span + float64(i)*df
		g := front.Response(f / audioRate)
		h := dds.Response(f)
		gain += (real(g)*real(g) + imag(g)*imag(g)) * (real(h)*real(h) + imag(h)*imag(h))
	}
	gain *= df / audioRate
	if gain <= 0 {
		return 0
	}
	return -10 * math.Log10(gain)
}

// SetParams changes the tracker tuning without dropping its state.
func (d *CWDecoder) SetParams(p Filters.ThresholdParams) {
	d.levels.SetParams(p)
	d.trigger.SetThresholds(d.levels.Pulse(), d.levels.Silence())
	d.publish()
}

func (d *CWDecoder) SetTracer(t SignalTracer) {
	if t == nil {
		t = NopTracer{}
	}
	d.tracer = t
}

func (d *CWDecoder) Reset() {
	d.dds.Reset()
	d.spectrum.reset()
	d.rms.Reset()
	d.delay.Reset()
	d.levels.Reset()
	d.trigger.Reset()
	d.trigger.SetThresholds(d.levels.Pulse(), d.levels.Silence())
	d.resetBlock()
	d.last = CWLevels{}
	d.publish()
}

func (d *CWDecoder) resetBlock() {
	d.blockMax = Filters.PowerFloorDB
	d.blockPower = 0
	d.blockCount = 0
}

// Tone is the frequency the mixer is centred on.
func (d *CWDecoder) Tone() float64 { return d.dds.Center() }

// On reports the current key state.
func (d *CWDecoder) On() bool { return d.trigger.State() }

// Levels returns the trackers as of the last analysis block. It may be
// called from any goroutine.
func (d *CWDecoder) Levels() CWLevels {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shared
}

func (d *CWDecoder) publish() {
	l := d.last
	l.Peak = d.levels.Peak()
	l.Noise = d.levels.Noise()
	l.Pulse = d.levels.Pulse()
	l.Silence = d.levels.Silence()
	d.mu.Lock()
	d.shared = l
	d.mu.Unlock()
}

// Process consumes a block of analytic audio.
func (d *CWDecoder) Process(block []complex128) {
	for _, x := range block {
		if y, ok := d.dds.Push(x); ok {
			d.processBaseband(y)
		}
	}
}

func (d *CWDecoder) processBaseband(y complex128) {
	p := d.rms.Push(y)
	level := Filters.PowerDB(p) + d.calibration
	d.blockMax = max(d.blockMax, level)
	d.blockPower += p
	d.blockCount++

	if d.spectrum.push(y) {
		d.updateThresholds()
	}

	delayed, ready := d.delay.Push(level)
	if !ready {
		return
	}
	d.last.Level = delayed
	if tr, ok := d.trigger.Feed(delayed); ok {
		d.sink.CWSignal(tr.On, d.duration(tr))
	}
	d.tracer.Record(delayed, d.levels.Noise(), d.levels.Peak(), d.levels.Pulse(), d.levels.Silence(), d.trigger.State())
}

func (d *CWDecoder) updateThresholds() {
	res := d.spectrum.analyze()
	avg := Filters.PowerDB(d.blockPower/float64(d.blockCount)) + d.calibration
	d.last.BlockAvg = avg
	d.last.BlockMax = d.blockMax

	pulse, silence := d.levels.Update(res.InPower > res.OutPower, d.blockMax, avg)
	d.trigger.SetThresholds(pulse, silence)
	d.resetBlock()
	d.publish()

	if d.trigger.State() {
		d.sink.CWTuneFrequency(d.Tone() + res.OffsetHz)
	}
}

// duration converts the length of the state that just ended to ms. The RMS
// window stretches marks by window-1 samples and shortens gaps by the same.
func (d *CWDecoder) duration(tr Filters.Transition) float64 {
	n := tr.Samples
	if tr.On {
		n += d.smear
	} else {
		n -= d.smear
	}
	return float64(max(n, 0)) * d.msPerSample
}
