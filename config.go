package rxdsp

import (
	"errors"
	"fmt"
	"time"

	"gopkg.in/ini.v1"
)

var (
	ErrInvalidSize   = errors.New("invalid size")
	ErrInvalidConfig = errors.New("invalid config")
)

// Config holds the parameters fixed for the lifetime of a Pipeline.
type Config struct {
	Radio     RadioConfig
	Waterfall WaterfallConfig
	Spectrum  SpectrumConfig
	Level     LevelConfig
	Meter     MeterConfig
	ANF       ANFConfig
	Audio     AudioConfig
	CW        CWConfig
}

// RadioConfig describes the IQ stream.
type RadioConfig struct {
	SampleRate int     `ini:"sample_rate"` // IQ samples per second
	ChunkSize  int     `ini:"chunk_size"`  // samples the FFT engines consume per write
	DCAlpha    float64 `ini:"dc_alpha"`    // DC blocker pole distance from 1
}

type WaterfallConfig struct {
	NFFT  int     `ini:"nfft"`
	FPS   float64 `ini:"fps"`
	Alpha float64 `ini:"alpha"` // PSD smoothing, -1 accumulates
}

type SpectrumConfig struct {
	NFFT        int     `ini:"nfft"`
	FPS         float64 `ini:"fps"`
	Alpha       float64 `ini:"alpha"`
	DisplayBeta float64 `ini:"display_beta"` // per-bin display low-pass before zoom scaling
	Offset      float64 `ini:"offset"`       // dB added to every bin
	Attenuation float64 `ini:"attenuation"`  // zoom anti-alias stopband, dB
	PSDDelay    int     `ini:"psd_delay"`    // calls skipped after band, mode or zoom change
	MaxZoom     int     `ini:"max_zoom"`
}

type LevelConfig struct {
	Percentile float64 `ini:"percentile"` // noise floor quantile of the waterfall PSD
	Headroom   float64 `ini:"headroom"`   // grid max above grid min, dB
	Beta       float64 `ini:"beta"`
	Min        float64 `ini:"min"` // lowest grid min, dB
	Max        float64 `ini:"max"` // highest grid max, dB
	TxDelay    int     `ini:"tx_delay"`
}

type MeterConfig struct {
	Beta float64 `ini:"beta"`
}

type ANFConfig struct {
	Decimation int           `ini:"decimation"`
	Resolution float64       `ini:"resolution"` // Hz per bin
	Interval   time.Duration `ini:"interval"`
	Margin     float64       `ini:"margin"` // peak over mean needed for a notch, dB
	ExcludeTop int           `ini:"exclude_top"`
	History    int           `ini:"history"`
	DefaultHz  int           `ini:"default_hz"` // published instead of 0
	Rounding   int           `ini:"rounding"`   // Hz
}

type AudioConfig struct {
	SampleRate  int `ini:"sample_rate"`
	HilbertSemi int `ini:"hilbert_semi"`
}

// CWConfig tunes the tone decoder. Levels are in dB.
type CWConfig struct {
	Stages       int     `ini:"stages"` // decimate-by-2 stages after the NCO
	Bandwidth    float64 `ini:"bandwidth"`
	Attenuation  float64 `ini:"attenuation"`
	FFTSize      int     `ini:"fft_size"`
	WPM          float64 `ini:"wpm"` // fastest expected speed, sets the peak window
	RMSWindow    int     `ini:"rms_window"`
	RMSDelay     int     `ini:"rms_delay"`
	PeakMargin   float64 `ini:"peak_margin"`
	NoiseOffset  float64 `ini:"noise_offset"`
	InitialNoise float64 `ini:"initial_noise"`
}

// DefaultConfig returns the settings the X6100 front end runs with.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Radio.SampleRate = 100000
	cfg.Radio.ChunkSize = 512
	cfg.Radio.DCAlpha = 0.001

	cfg.Waterfall.NFFT = 1024
	cfg.Waterfall.FPS = 25
	cfg.Waterfall.Alpha = 0.25

	cfg.Spectrum.NFFT = 800
	cfg.Spectrum.FPS = 15
	cfg.Spectrum.Alpha = 0.1
	cfg.Spectrum.DisplayBeta = 0.7
	cfg.Spectrum.Offset = -30
	cfg.Spectrum.Attenuation = 60
	cfg.Spectrum.PSDDelay = 5
	cfg.Spectrum.MaxZoom = 16

	cfg.Level.Percentile = 0.15
	cfg.Level.Headroom = 48
	cfg.Level.Beta = 0.8
	cfg.Level.Min = -121
	cfg.Level.Max = -13
	cfg.Level.TxDelay = 2

	cfg.Meter.Beta = 0.8

	cfg.ANF.Decimation = 8
	cfg.ANF.Resolution = 50
	cfg.ANF.Interval = 500 * time.Millisecond
	cfg.ANF.Margin = 8
	cfg.ANF.ExcludeTop = 3
	cfg.ANF.History = 3
	cfg.ANF.DefaultHz = 3000
	cfg.ANF.Rounding = 50

	cfg.Audio.SampleRate = 44100
	cfg.Audio.HilbertSemi = 32

	cfg.CW.Stages = 6
	cfg.CW.Bandwidth = 500
	cfg.CW.Attenuation = 60
	cfg.CW.FFTSize = 128
	cfg.CW.WPM = 30
	cfg.CW.RMSWindow = 8
	cfg.CW.RMSDelay = 64
	cfg.CW.PeakMargin = 3
	cfg.CW.NoiseOffset = 3
	cfg.CW.InitialNoise = -40

	return cfg
}

// Validate reports the first parameter that would make the pipeline
// misbehave. Every error wraps ErrInvalidSize or ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.Radio.SampleRate <= 0:
		return fmt.Errorf("%w: radio sample rate %d", ErrInvalidConfig, c.Radio.SampleRate)
	case c.Radio.ChunkSize <= 0:
		return fmt.Errorf("%w: radio chunk %d", ErrInvalidSize, c.Radio.ChunkSize)
	case c.Radio.DCAlpha <= 0 || c.Radio.DCAlpha >= 1:
		return fmt.Errorf("%w: dc alpha %g", ErrInvalidConfig, c.Radio.DCAlpha)
	case c.Waterfall.NFFT <= 0 || c.Spectrum.NFFT <= 0:
		return fmt.Errorf("%w: nfft waterfall %d spectrum %d", ErrInvalidSize, c.Waterfall.NFFT, c.Spectrum.NFFT)
	case c.Waterfall.FPS <= 0 || c.Spectrum.FPS <= 0:
		return fmt.Errorf("%w: frame rates must be positive", ErrInvalidConfig)
	case c.Spectrum.MaxZoom < 1 || c.Radio.ChunkSize%c.Spectrum.MaxZoom != 0:
		return fmt.Errorf("%w: chunk %d does not divide by max zoom %d", ErrInvalidSize, c.Radio.ChunkSize, c.Spectrum.MaxZoom)
	case c.Spectrum.PSDDelay < 0 || c.Level.TxDelay < 0:
		return fmt.Errorf("%w: negative delay", ErrInvalidConfig)
	case c.Level.Min+c.Level.Headroom > c.Level.Max:
		return fmt.Errorf("%w: level range [%g, %g] narrower than headroom %g", ErrInvalidConfig, c.Level.Min, c.Level.Max, c.Level.Headroom)
	case c.ANF.Decimation < 1 || c.Radio.ChunkSize%c.ANF.Decimation != 0:
		return fmt.Errorf("%w: chunk %d does not divide by anf decimation %d", ErrInvalidSize, c.Radio.ChunkSize, c.ANF.Decimation)
	case c.ANF.Resolution <= 0 || c.ANF.Interval <= 0 || c.ANF.History < 1 || c.ANF.ExcludeTop < 0 || c.ANF.Rounding < 1:
		return fmt.Errorf("%w: anf parameters", ErrInvalidConfig)
	case c.Audio.SampleRate <= 0 || c.Audio.HilbertSemi < 1:
		return fmt.Errorf("%w: audio rate %d hilbert %d", ErrInvalidConfig, c.Audio.SampleRate, c.Audio.HilbertSemi)
	case c.CW.Stages < 1 || c.CW.FFTSize < 8 || c.CW.RMSWindow < 1 || c.CW.RMSDelay < 1:
		return fmt.Errorf("%w: cw stages %d fft %d rms %d/%d", ErrInvalidSize, c.CW.Stages, c.CW.FFTSize, c.CW.RMSWindow, c.CW.RMSDelay)
	case c.CW.WPM <= 0 || c.CW.Bandwidth <= 0:
		return fmt.Errorf("%w: cw wpm %g bandwidth %g", ErrInvalidConfig, c.CW.WPM, c.CW.Bandwidth)
	}
	for _, a := range []float64{c.Waterfall.Alpha, c.Spectrum.Alpha} {
		if a != -1 && (a < 0 || a > 1) {
			return fmt.Errorf("%w: spgram alpha %g", ErrInvalidConfig, a)
		}
	}
	for _, b := range []float64{c.Spectrum.DisplayBeta, c.Level.Beta, c.Meter.Beta} {
		if b < 0 || b >= 1 {
			return fmt.Errorf("%w: smoothing beta %g", ErrInvalidConfig, b)
		}
	}
	return nil
}

// ANFNFFT is the notch finder transform size that gives the configured
// resolution at the decimated rate.
func (c *Config) ANFNFFT() int {
	rate := float64(c.Radio.SampleRate) / float64(c.ANF.Decimation)
	return int(rate/c.ANF.Resolution + 0.5)
}

// Settings are the values a UI changes while the pipeline runs. They are
// applied with Pipeline.SetConfig.
type Settings struct {
	Band       int
	Mode       Mode
	Zoom       int
	FilterLow  float64 // passband edges as signed offsets from the carrier, Hz
	FilterHigh float64
	ANFEnabled bool

	CWTone      float64 // Hz
	CWSNR       float64 // dB
	CWSNRGist   float64 // dB
	CWPeakBeta  float64
	CWNoiseBeta float64

	SpectrumAuto  bool
	WaterfallAuto bool
	ManualMin     float64 // grid bounds used when auto is off, dB
	ManualMax     float64

	Recording bool
}

func DefaultSettings() Settings {
	return Settings{
		Mode:          ModeUSB,
		Zoom:          1,
		FilterLow:     100,
		FilterHigh:    3000,
		CWTone:        700,
		CWSNR:         10,
		CWSNRGist:     3,
		CWPeakBeta:    0.1,
		CWNoiseBeta:   0.8,
		SpectrumAuto:  true,
		WaterfallAuto: true,
		ManualMin:     -100,
		ManualMax:     -40,
	}
}

// Validate checks s against the static configuration.
func (s Settings) Validate(cfg *Config) error {
	if s.Zoom < 1 || s.Zoom > cfg.Spectrum.MaxZoom || s.Zoom&(s.Zoom-1) != 0 {
		return fmt.Errorf("%w: zoom %d", ErrInvalidConfig, s.Zoom)
	}
	if cfg.Radio.ChunkSize%s.Zoom != 0 {
		return fmt.Errorf("%w: chunk %d does not divide by zoom %d", ErrInvalidSize, cfg.Radio.ChunkSize, s.Zoom)
	}
	if s.FilterLow >= s.FilterHigh {
		return fmt.Errorf("%w: passband [%g, %g]", ErrInvalidConfig, s.FilterLow, s.FilterHigh)
	}
	if s.CWTone <= 0 || s.CWTone >= float64(cfg.Audio.SampleRate)/2 {
		return fmt.Errorf("%w: cw tone %g", ErrInvalidConfig, s.CWTone)
	}
	if s.CWSNRGist <= 0 {
		return fmt.Errorf("%w: cw hysteresis %g must be positive", ErrInvalidConfig, s.CWSNRGist)
	}
	for _, b := range []float64{s.CWPeakBeta, s.CWNoiseBeta} {
		if b < 0 || b >= 1 {
			return fmt.Errorf("%w: cw beta %g", ErrInvalidConfig, b)
		}
	}
	if s.ManualMin >= s.ManualMax {
		return fmt.Errorf("%w: manual range [%g, %g]", ErrInvalidConfig, s.ManualMin, s.ManualMax)
	}
	return nil
}

// settingsFile is the [settings] section as it appears on disk.
type settingsFile struct {
	Band          int     `ini:"band"`
	Mode          string  `ini:"mode"`
	Zoom          int     `ini:"zoom"`
	FilterLow     float64 `ini:"filter_low"`
	FilterHigh    float64 `ini:"filter_high"`
	ANF           bool    `ini:"anf"`
	CWTone        float64 `ini:"cw_tone"`
	CWSNR         float64 `ini:"cw_snr"`
	CWSNRGist     float64 `ini:"cw_snr_gist"`
	CWPeakBeta    float64 `ini:"cw_peak_beta"`
	CWNoiseBeta   float64 `ini:"cw_noise_beta"`
	SpectrumAuto  bool    `ini:"spectrum_auto"`
	WaterfallAuto bool    `ini:"waterfall_auto"`
	ManualMin     float64 `ini:"manual_min"`
	ManualMax     float64 `ini:"manual_max"`
}

// LoadConfig reads an INI file over the defaults. Missing sections and keys
// keep their default values.
func LoadConfig(path string) (*Config, Settings, error) {
	cfg := DefaultConfig()
	settings := DefaultSettings()

	f, err := ini.Load(path)
	if err != nil {
		return nil, settings, fmt.Errorf("load %s: %w", path, err)
	}

	sections := []struct {
		name string
		dst  any
	}{
		{"radio", &cfg.Radio},
		{"waterfall", &cfg.Waterfall},
		{"spectrum", &cfg.Spectrum},
		{"level", &cfg.Level},
		{"meter", &cfg.Meter},
		{"anf", &cfg.ANF},
		{"audio", &cfg.Audio},
		{"cw", &cfg.CW},
	}
	for _, sec := range sections {
		if !f.HasSection(sec.name) {
			continue
		}
		if err := f.Section(sec.name).MapTo(sec.dst); err != nil {
			return nil, settings, fmt.Errorf("section [%s]: %w", sec.name, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, settings, err
	}

	if f.HasSection("settings") {
		sf := settingsFile{
			Band:          settings.Band,
			Mode:          settings.Mode.String(),
			Zoom:          settings.Zoom,
			FilterLow:     settings.FilterLow,
			FilterHigh:    settings.FilterHigh,
			ANF:           settings.ANFEnabled,
			CWTone:        settings.CWTone,
			CWSNR:         settings.CWSNR,
			CWSNRGist:     settings.CWSNRGist,
			CWPeakBeta:    settings.CWPeakBeta,
			CWNoiseBeta:   settings.CWNoiseBeta,
			SpectrumAuto:  settings.SpectrumAuto,
			WaterfallAuto: settings.WaterfallAuto,
			ManualMin:     settings.ManualMin,
			ManualMax:     settings.ManualMax,
		}
		if err := f.Section("settings").MapTo(&sf); err != nil {
			return nil, settings, fmt.Errorf("section [settings]: %w", err)
		}
		mode, err := ParseMode(sf.Mode)
		if err != nil {
			return nil, settings, err
		}
		settings = Settings{
			Band:          sf.Band,
			Mode:          mode,
			Zoom:          sf.Zoom,
			FilterLow:     sf.FilterLow,
			FilterHigh:    sf.FilterHigh,
			ANFEnabled:    sf.ANF,
			CWTone:        sf.CWTone,
			CWSNR:         sf.CWSNR,
			CWSNRGist:     sf.CWSNRGist,
			CWPeakBeta:    sf.CWPeakBeta,
			CWNoiseBeta:   sf.CWNoiseBeta,
			SpectrumAuto:  sf.SpectrumAuto,
			WaterfallAuto: sf.WaterfallAuto,
			ManualMin:     sf.ManualMin,
			ManualMax:     sf.ManualMax,
		}
	}
	if err := settings.Validate(cfg); err != nil {
		return nil, settings, err
	}
	return cfg, settings, nil
}
