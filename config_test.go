package rxdsp

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if err := DefaultSettings().Validate(cfg); err != nil {
		t.Fatal(err)
	}
	if n := cfg.ANFNFFT(); n != 250 {
		t.Errorf("anf nfft %d, want 250", n)
	}
}

func TestConfigValidateRejects(t *testing.T) {
	for name, mod := range map[string]func(*Config){
		"chunk":      func(c *Config) { c.Radio.ChunkSize = 0 },
		"zoom":       func(c *Config) { c.Radio.ChunkSize = 520 },
		"alpha":      func(c *Config) { c.Spectrum.Alpha = 2 },
		"headroom":   func(c *Config) { c.Level.Headroom = 200 },
		"decimation": func(c *Config) { c.ANF.Decimation = 7 },
		"stages":     func(c *Config) { c.CW.Stages = 0 },
	} {
		cfg := DefaultConfig()
		mod(cfg)
		err := cfg.Validate()
		if !errors.Is(err, ErrInvalidConfig) && !errors.Is(err, ErrInvalidSize) {
			t.Errorf("%s: got %v", name, err)
		}
	}
}

func TestNewPipelineFailsOnBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Waterfall.NFFT = -1
	if _, err := NewPipeline(cfg, DefaultSettings(), nil); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("got %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rxdsp.ini")
	data := `
[radio]
sample_rate = 96000

[anf]
interval = 250ms
margin = 10

[cw]
wpm = 40

[settings]
mode = cw-r
zoom = 4
filter_low = -800
filter_high = -300
cw_tone = 650
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, s, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Radio.SampleRate != 96000 || cfg.Radio.ChunkSize != 512 {
		t.Errorf("radio %+v", cfg.Radio)
	}
	if cfg.ANF.Interval != 250*time.Millisecond || cfg.ANF.Margin != 10 {
		t.Errorf("anf %+v", cfg.ANF)
	}
	if cfg.CW.WPM != 40 || cfg.CW.FFTSize != 128 {
		t.Errorf("cw %+v", cfg.CW)
	}
	if s.Mode != ModeCWR || s.Zoom != 4 || s.CWTone != 650 || s.FilterLow != -800 {
		t.Errorf("settings %+v", s)
	}
	if !s.SpectrumAuto || s.CWSNR != 10 {
		t.Errorf("defaults lost: %+v", s)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.ini")); err == nil {
		t.Error("missing file accepted")
	}

	path := filepath.Join(t.TempDir(), "bad.ini")
	if err := os.WriteFile(path, []byte("[settings]\nmode = fm-stereo\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := LoadConfig(path); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("bad mode: %v", err)
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{
		"usb":   ModeUSB,
		"LSB-D": ModeLSBD,
		"lsbd":  ModeLSBD,
		"CW-R":  ModeCWR,
		" nfm ": ModeNFM,
	} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %v, %v", in, got, err)
		}
	}
	if !ModeCWR.LowerSideband() || ModeCW.LowerSideband() {
		t.Error("sideband")
	}
	if ModeUSBD.NotchCapable() || !ModeLSB.NotchCapable() {
		t.Error("notch modes")
	}
}
