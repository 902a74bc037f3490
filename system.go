package rxdsp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// consoleSink keeps the latest meter and notch values and turns key events
// into text.
type consoleSink struct {
	NopSink
	morse *MorseDecoder

	mu    sync.Mutex
	meter float64
	notch int
}

func (c *consoleSink) MeterUpdate(db, _ float64) {
	c.mu.Lock()
	c.meter = db
	c.mu.Unlock()
}

func (c *consoleSink) NotchFrequency(hz int) {
	c.mu.Lock()
	c.notch = hz
	c.mu.Unlock()
}

func (c *consoleSink) CWSignal(on bool, durationMs float64) { c.morse.CWSignal(on, durationMs) }
func (c *consoleSink) CWTuneFrequency(hz float64)          { c.morse.CWTuneFrequency(hz) }

func (c *consoleSink) status() (meter float64, notch int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.meter, c.notch
}

// radioState is what the CI-V poller needs from the transceiver.
type radioState interface {
	ReadMode() (Mode, error)
	ReadFrequency() (int, error)
}

// System connects the pipeline to files or hardware and prints decoded text.
type System struct {
	cfg      *Config
	settings Settings
	log      *slog.Logger
	out      io.Writer

	// replay sources
	IQFile    string
	AudioFile string
	Realtime  bool

	// live sources
	AudioDevice string
	SerialPort  string
	BaudRate    int
	RecordFile  string
	PollEvery   time.Duration

	TraceFile string

	sink     *consoleSink
	pipeline *Pipeline
	tracer   SignalTracer
}

func NewSystem(cfg *Config, settings Settings, log *slog.Logger, out io.Writer) *System {
	morse := NewMorseDecoder(cfg.CW.WPM / 2)
	morse.OnDecoded = func(s string) { fmt.Fprint(out, s) }
	return &System{
		cfg:       cfg,
		settings:  settings,
		log:       log,
		out:       out,
		BaudRate:  19200,
		PollEvery: time.Second,
		sink:      &consoleSink{morse: morse},
	}
}

func (s *System) build(clock Clock) error {
	opts := []Option{WithClock(clock), WithLogger(s.log)}
	if s.TraceFile != "" {
		t, err := NewCsvTracer(s.TraceFile)
		if err != nil {
			return fmt.Errorf("trace: %w", err)
		}
		s.tracer = t
		opts = append(opts, WithTracer(t))
	}
	p, err := NewPipeline(s.cfg, s.settings, s.sink, opts...)
	if err != nil {
		return err
	}
	s.pipeline = p
	return nil
}

// Replay feeds IQFile and AudioFile through the pipeline until both end or
// ctx is cancelled. Without Realtime the files run as fast as they decode.
func (s *System) Replay(ctx context.Context) error {
	if s.IQFile == "" && s.AudioFile == "" {
		return errors.New("replay needs an IQ or an audio file")
	}

	var iq, audio *WavReader
	var err error
	if s.IQFile != "" {
		if iq, err = NewWavReader(s.IQFile); err != nil {
			return err
		}
		defer iq.Close()
		if iq.Channels != 2 {
			return fmt.Errorf("%s: IQ file needs 2 channels, has %d", s.IQFile, iq.Channels)
		}
		if iq.SampleRate != s.cfg.Radio.SampleRate {
			s.log.Warn("IQ sample rate differs from config", "file", iq.SampleRate, "config", s.cfg.Radio.SampleRate)
		}
	}
	if s.AudioFile != "" {
		if audio, err = NewWavReader(s.AudioFile); err != nil {
			return err
		}
		defer audio.Close()
		if audio.SampleRate != s.cfg.Audio.SampleRate {
			s.log.Warn("audio sample rate differs from config", "file", audio.SampleRate, "config", s.cfg.Audio.SampleRate)
		}
	}

	clock := NewSampleClock(time.Now(), s.cfg.Radio.SampleRate)
	if err := s.build(clock); err != nil {
		return err
	}
	s.log.Info("replay started", "iq", s.IQFile, "audio", s.AudioFile, "realtime", s.Realtime)

	// 10 ms blocks
	const blocksPerSecond = 100
	var interval time.Duration
	if s.Realtime {
		interval = time.Second / blocksPerSecond
	}

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	if iq != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n := s.cfg.Radio.SampleRate / blocksPerSecond
			errs <- pump(ctx, interval, func() (bool, error) {
				buf, err := iq.ReadIQ(n)
				if errors.Is(err, io.EOF) {
					return false, nil
				}
				if err != nil {
					return false, err
				}
				s.pipeline.ProcessIQ(buf, false)
				clock.Advance(len(buf))
				return true, nil
			})
		}()
	}
	if audio != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n := s.cfg.Audio.SampleRate / blocksPerSecond
			errs <- pump(ctx, interval, func() (bool, error) {
				buf, err := audio.ReadPCM(n)
				if errors.Is(err, io.EOF) {
					return false, nil
				}
				if err != nil {
					return false, err
				}
				s.pipeline.PutAudioSamples(buf)
				return true, nil
			})
		}()
	}
	wg.Wait()
	close(errs)

	s.sink.morse.Flush()
	s.logStatus()
	for err := range errs {
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}
	return nil
}

// pump calls step every interval, or back to back when interval is zero,
// until it reports no more data.
func pump(ctx context.Context, interval time.Duration, step func() (bool, error)) error {
	var tick <-chan time.Time
	if interval > 0 {
		t := time.NewTicker(interval)
		defer t.Stop()
		tick = t.C
	}
	for {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		more, err := step()
		if err != nil || !more {
			return err
		}
	}
}

// Live captures from the sound card and follows the radio's mode over CI-V
// until ctx is cancelled.
func (s *System) Live(ctx context.Context) error {
	if err := s.build(systemClock{}); err != nil {
		return err
	}

	var rec *WavWriter
	if s.RecordFile != "" {
		var err error
		if rec, err = NewWavWriter(s.RecordFile, s.cfg.Audio.SampleRate); err != nil {
			return fmt.Errorf("record: %w", err)
		}
		s.log.Info("recording audio", "file", s.RecordFile)
		defer func() {
			if err := rec.Close(); err != nil {
				s.log.Error("saving recording failed", "err", err)
			}
		}()
	}

	recording := rec != nil
	capture, err := NewAudioCapture(s.cfg.Audio.SampleRate, s.AudioDevice, func(samples []int16) {
		if recording {
			if err := rec.WriteSamples(samples); err != nil {
				s.log.Error("recording stopped", "err", err)
				recording = false
			}
		}
		s.pipeline.PutAudioSamples(samples)
	}, s.log)
	if err != nil {
		return err
	}
	defer capture.Stop()

	var radio radioState
	if s.SerialPort != "" {
		civ := NewCIVClient(s.SerialPort, s.BaudRate)
		if err := civ.Open(); err != nil {
			s.log.Warn("radio not connected", "err", err)
		} else {
			defer civ.Close()
			radio = civ
			s.log.Info("radio connected", "port", s.SerialPort)
		}
	}

	if err := capture.Start(); err != nil {
		return fmt.Errorf("start capture: %w", err)
	}
	s.log.Info("live decoding started", "mode", s.pipeline.Settings().Mode.String())

	poll := time.NewTicker(s.PollEvery)
	defer poll.Stop()
	status := time.NewTicker(10 * time.Second)
	defer status.Stop()
	for {
		select {
		case <-ctx.Done():
			s.sink.morse.Flush()
			s.logStatus()
			return nil
		case <-poll.C:
			if radio == nil {
				continue
			}
			if err := s.syncRadio(radio); err != nil {
				s.log.Warn("radio poll failed", "err", err)
			}
		case <-status.C:
			s.logStatus()
		}
	}
}

// syncRadio copies the radio's mode and band into the pipeline settings.
func (s *System) syncRadio(r radioState) error {
	mode, err := r.ReadMode()
	if err != nil {
		return err
	}
	freq, err := r.ReadFrequency()
	if err != nil {
		return err
	}
	cur := s.pipeline.Settings()
	next := withMode(cur, mode)
	if band := BandForFrequency(freq); band >= 0 {
		next.Band = band
	}
	if next == cur {
		return nil
	}
	s.log.Info("radio state changed", "mode", mode.String(), "freq", freq, "band", next.Band)
	return s.pipeline.SetConfig(next)
}

// withMode sets the mode and mirrors the passband to the sideband it
// belongs on.
func withMode(s Settings, m Mode) Settings {
	s.Mode = m
	if m.LowerSideband() == (s.FilterHigh > 0) {
		s.FilterLow, s.FilterHigh = -s.FilterHigh, -s.FilterLow
	}
	return s
}

func (s *System) logStatus() {
	if s.pipeline == nil {
		return
	}
	meter, notch := s.sink.status()
	st := s.pipeline.Stats()
	s.log.Info("status",
		"meter", fmt.Sprintf("%.1f", meter),
		"notch", notch,
		"wpm", fmt.Sprintf("%.1f", s.sink.morse.WPM()),
		"tone", fmt.Sprintf("%.1f", s.sink.morse.Tune()),
		"spectrum_frames", st.SpectrumFrames,
		"audio_blocks", st.AudioCalls)
}

// Text returns the decoded text so far.
func (s *System) Text() string { return s.sink.morse.Text() }

func (s *System) Stats() Stats {
	if s.pipeline == nil {
		return Stats{}
	}
	return s.pipeline.Stats()
}

func (s *System) Close() error {
	if s.tracer != nil {
		return s.tracer.Close()
	}
	return nil
}
