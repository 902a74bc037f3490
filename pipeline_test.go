package rxdsp

import (
	"sync"
	"testing"
)

func TestStatsWhileProducing(t *testing.T) {
	cfg := DefaultConfig()
	p, err := NewPipeline(cfg, cwSettings(), NopSink{})
	if err != nil {
		t.Fatal(err)
	}

	const calls = 200
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		src := newIQSource(cfg.Radio.SampleRate, 0.01)
		buf := make([]complex64, 1000)
		for range calls {
			p.ProcessIQ(src.next(buf), false)
		}
	}()
	go func() {
		defer wg.Done()
		tone := audioTone(441, float64(cfg.Audio.SampleRate), 700, 0.1, 0)
		for range calls {
			p.PutAudioSamples(tone)
		}
	}()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
		}
		st := p.Stats()
		if st.CW.Silence > st.CW.Pulse {
			t.Fatalf("silence %.1f above pulse %.1f", st.CW.Silence, st.CW.Pulse)
		}
	}

	st := p.Stats()
	if st.IQCalls != calls || st.AudioCalls != calls {
		t.Errorf("calls iq %d audio %d, want %d", st.IQCalls, st.AudioCalls, calls)
	}
	if want := uint64(calls * 1000 / cfg.Radio.ChunkSize); st.Chunks != want {
		t.Errorf("chunks %d, want %d", st.Chunks, want)
	}
}
