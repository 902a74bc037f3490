package Filters

import (
	"math"
	"testing"
)

func TestPercentile(t *testing.T) {
	src := []float64{9, 1, 8, 2, 7, 3, 6, 4, 5, 0}
	scratch := make([]float64, len(src))
	if v := Percentile(scratch, src, 0.15); v != 1 {
		t.Errorf("p15 = %v, want 1", v)
	}
	if v := Percentile(scratch, src, 1); v != 9 {
		t.Errorf("p100 = %v, want 9", v)
	}
	if src[0] != 9 {
		t.Error("source reordered")
	}
	if v := Percentile(nil, nil, 0.5); v != 0 {
		t.Errorf("empty = %v", v)
	}
}

func TestMeanExcludingTop(t *testing.T) {
	src := []float64{-60, -59, -61, -20, -30, -40}
	m, ok := MeanExcludingTop(nil, src, 3)
	if !ok || math.Abs(m-(-60)) > 1e-12 {
		t.Errorf("mean %.3f ok %v, want -60", m, ok)
	}
	if _, ok := MeanExcludingTop(nil, src[:3], 3); ok {
		t.Error("expected not ok when nothing remains")
	}
}

func TestRMSAndDelay(t *testing.T) {
	r := NewRMS(4)
	var p float64
	for range 4 {
		p = r.Push(complex(0.5, 0))
	}
	if math.Abs(p-0.25) > 1e-12 {
		t.Errorf("power %.4f, want 0.25", p)
	}
	for range 4 {
		p = r.Push(0)
	}
	if p != 0 {
		t.Errorf("power after silence %.4g", p)
	}

	d := NewDelayLine(3)
	for i := range 3 {
		if _, ok := d.Push(float64(i)); ok {
			t.Fatalf("ready after %d pushes", i+1)
		}
	}
	if v, ok := d.Push(3); !ok || v != 0 {
		t.Errorf("got %v %v, want 0 true", v, ok)
	}
}

func TestPowerDBFloor(t *testing.T) {
	for _, p := range []float64{0, -1, math.NaN(), 1e-30} {
		if v := PowerDB(p); v != PowerFloorDB {
			t.Errorf("PowerDB(%v) = %v", p, v)
		}
	}
	if v := PowerDB(1); v != 0 {
		t.Errorf("PowerDB(1) = %v", v)
	}
}
