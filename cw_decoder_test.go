package rxdsp

import (
	"math"
	"math/rand"
	"testing"
)

func cwSettings() Settings {
	s := DefaultSettings()
	s.Mode = ModeCW
	return s
}

func TestCWToneKeysDown(t *testing.T) {
	cfg := DefaultConfig()
	s := cwSettings()
	sink := &recordingSink{}
	fed := 0
	onAt := -1
	sink.onCW = func(ev cwEvent) {
		if ev.on && onAt < 0 {
			onAt = fed
		}
	}
	p := newTestPipeline(t, s, sink, newFakeClock())

	rate := cfg.Audio.SampleRate
	total := rate * 300 / 1000
	const block = 64
	for fed < total {
		p.PutAudioSamples(audioTone(block, float64(rate), s.CWTone, 0.1, fed))
		fed += block
	}

	if len(sink.cw) != 1 || !sink.cw[0].on {
		t.Fatalf("events %+v, want a single key down", sink.cw)
	}
	// one FFT block of decimated samples
	limit := cfg.CW.FFTSize * (1 << cfg.CW.Stages)
	if onAt > limit {
		t.Errorf("key down after %d samples, want within %d", onAt, limit)
	}
	if len(sink.tunes) == 0 {
		t.Fatal("no tune frequency while keyed")
	}
	binHz := float64(rate) / float64(limit)
	for _, f := range sink.tunes {
		if math.Abs(f-s.CWTone) > binHz {
			t.Errorf("tune %.1f Hz, want %.1f", f, s.CWTone)
		}
	}
}

func TestCWNoiseStaysQuiet(t *testing.T) {
	cfg := DefaultConfig()
	sink := &recordingSink{}
	p := newTestPipeline(t, cwSettings(), sink, newFakeClock())
	rng := rand.New(rand.NewSource(11))

	rate := cfg.Audio.SampleRate
	for range 2 * rate / 441 {
		p.PutAudioSamples(audioNoise(rng, 441, 0.01))
	}

	if len(sink.cw) != 0 {
		t.Fatalf("noise produced events %+v", sink.cw)
	}
	if len(sink.tunes) != 0 {
		t.Errorf("tune reported without a tone")
	}
	// white noise at -40 dBFS settles 3 dB below its level
	lv := p.Stats().CW
	if math.Abs(lv.BlockAvg-(-40)) > 2 {
		t.Errorf("block average %.1f dB, want about -40", lv.BlockAvg)
	}
	if math.Abs(lv.Noise-(-43)) > 1.5 {
		t.Errorf("noise %.1f dB, want about -43", lv.Noise)
	}
	if lv.Silence >= lv.Pulse {
		t.Errorf("silence %.1f not below pulse %.1f", lv.Silence, lv.Pulse)
	}
}

func TestCWKeyingDurations(t *testing.T) {
	cfg := DefaultConfig()
	s := cwSettings()
	sink := &recordingSink{}
	p := newTestPipeline(t, s, sink, newFakeClock())
	rate := cfg.Audio.SampleRate
	rng := rand.New(rand.NewSource(5))

	// 200 ms silence, 180 ms key down, 180 ms up, 180 ms down, 300 ms up
	pattern := []struct {
		on bool
		ms int
	}{{false, 200}, {true, 180}, {false, 180}, {true, 180}, {false, 300}}
	fed := 0
	for _, seg := range pattern {
		n := rate * seg.ms / 1000
		var chunk []int16
		if seg.on {
			chunk = audioTone(n, float64(rate), s.CWTone, 0.1, fed)
		} else {
			chunk = audioNoise(rng, n, 0.0005)
		}
		for off := 0; off < n; off += 441 {
			p.PutAudioSamples(chunk[off:min(off+441, n)])
		}
		fed += n
	}

	var marks, gaps []float64
	for i, ev := range sink.cw {
		if ev.on && i > 0 {
			gaps = append(gaps, ev.durationMs)
		}
		if !ev.on {
			marks = append(marks, ev.durationMs)
		}
	}
	if len(marks) != 2 || len(gaps) != 1 {
		t.Fatalf("events %+v", sink.cw)
	}
	for _, d := range append(marks, gaps...) {
		if math.Abs(d-180) > 30 {
			t.Errorf("duration %.1f ms, want about 180", d)
		}
	}
}

func TestCWToneChangeRebuildsMixer(t *testing.T) {
	p := newTestPipeline(t, cwSettings(), nil, newFakeClock())
	s := p.Settings()
	s.CWTone = 600
	if err := p.SetConfig(s); err != nil {
		t.Fatal(err)
	}
	p.PutAudioSamples(make([]int16, 64))
	if got := p.audio.cw.Tone(); got != 600 {
		t.Errorf("mixer at %.0f Hz, want 600", got)
	}
}

func TestCWIdleOutsideCWModes(t *testing.T) {
	cfg := DefaultConfig()
	sink := &recordingSink{}
	consumer := &countingConsumer{}
	p, err := NewPipeline(cfg, DefaultSettings(), sink, WithAudioConsumer(consumer))
	if err != nil {
		t.Fatal(err)
	}
	p.PutAudioSamples(audioTone(4410, float64(cfg.Audio.SampleRate), 700, 0.3, 0))
	if len(sink.cw) != 0 {
		t.Errorf("decoder ran in %s", DefaultSettings().Mode)
	}
	if consumer.samples != 4410 {
		t.Errorf("consumer got %d samples", consumer.samples)
	}
}

type countingConsumer struct {
	samples int
}

func (c *countingConsumer) ConsumeAudio(block []complex128) { c.samples += len(block) }

func TestCWPathDoesNotAllocate(t *testing.T) {
	cfg := DefaultConfig()
	p := newTestPipeline(t, cwSettings(), NopSink{}, newFakeClock())
	tone := audioTone(441, float64(cfg.Audio.SampleRate), 700, 0.1, 0)
	for range 50 {
		p.PutAudioSamples(tone)
	}
	if n := testing.AllocsPerRun(100, func() { p.PutAudioSamples(tone) }); n != 0 {
		t.Errorf("%.1f allocations per audio block", n)
	}
}
