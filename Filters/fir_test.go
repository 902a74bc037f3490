package Filters

import (
	"math"
	"math/cmplx"
	"testing"
)

func TestDesignLowpassUnityGain(t *testing.T) {
	taps, err := DesignLowpass(0.1, 0.05, 60)
	if err != nil {
		t.Fatal(err)
	}
	if len(taps)%2 == 0 {
		t.Errorf("expected odd length, got %d", len(taps))
	}
	var sum float64
	for i, v := range taps {
		sum += v
		if math.Abs(v-taps[len(taps)-1-i]) > 1e-12 {
			t.Fatalf("taps not symmetric at %d", i)
		}
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("DC gain %.6f, want 1", sum)
	}
}

func TestDesignLowpassRejectsBadCutoff(t *testing.T) {
	for _, fc := range []float64{0, -0.1, 0.5, 0.7} {
		if _, err := DesignLowpass(fc, 0.05, 60); err == nil {
			t.Errorf("cutoff %.2f accepted", fc)
		}
	}
}

func toneGain(t *testing.T, d *Decimator, freq float64, n int) float64 {
	t.Helper()
	var out []complex128
	for i := range n {
		x := cmplx.Exp(complex(0, 2*math.Pi*freq*float64(i)))
		if y, ok := d.Push(x); ok {
			out = append(out, y)
		}
	}
	// skip the filter's start-up
	tail := out[len(out)/2:]
	var p float64
	for _, y := range tail {
		p += real(y)*real(y) + imag(y)*imag(y)
	}
	return p / float64(len(tail))
}

func TestKaiserDecimatorPassAndStop(t *testing.T) {
	d, err := NewKaiserDecimator(4, 60)
	if err != nil {
		t.Fatal(err)
	}
	if d.Factor() != 4 {
		t.Fatalf("factor %d", d.Factor())
	}

	if g := toneGain(t, d, 0.02, 8000); math.Abs(g-1) > 0.01 {
		t.Errorf("passband power %.4f, want 1", g)
	}

	d.Reset()
	if g := toneGain(t, d, 0.2, 8000); PowerDB(g) > -55 {
		t.Errorf("stopband power %.1f dB, want below -55 dB", PowerDB(g))
	}
}

func TestDecimatorOutputCount(t *testing.T) {
	d, err := NewKaiserDecimator(8, 60)
	if err != nil {
		t.Fatal(err)
	}
	src := make([]complex128, 512)
	dst := make([]complex128, 0, 64)
	for range 5 {
		dst = d.Execute(dst, src)
		if len(dst) != 64 {
			t.Fatalf("got %d outputs, want 64", len(dst))
		}
	}
}

func TestFactorOnePassesThrough(t *testing.T) {
	d, err := NewKaiserDecimator(1, 60)
	if err != nil {
		t.Fatal(err)
	}
	y, ok := d.Push(complex(0.3, -0.2))
	if !ok || y != complex(0.3, -0.2) {
		t.Errorf("got %v %v", y, ok)
	}
}

func TestDCBlockerRemovesOffset(t *testing.T) {
	b := NewDCBlocker(0.001)
	var y complex128
	for range 50000 {
		y = b.Process(complex(0.5, -0.25))
	}
	if cmplx.Abs(y) > 1e-6 {
		t.Errorf("residual DC %v", y)
	}

	b.Reset()
	// a tone well above the corner survives
	var p float64
	for i := range 20000 {
		y = b.Process(cmplx.Exp(complex(0, 2*math.Pi*0.1*float64(i))))
		if i >= 10000 {
			p += real(y)*real(y) + imag(y)*imag(y)
		}
	}
	if g := p / 10000; math.Abs(g-1) > 0.01 {
		t.Errorf("tone power %.4f, want 1", g)
	}
}

func TestKaiserWindowShape(t *testing.T) {
	w := Kaiser(33, 5)
	if math.Abs(w[16]-1) > 1e-12 {
		t.Errorf("centre %.6f, want 1", w[16])
	}
	if w[0] >= w[8] || w[8] >= w[16] {
		t.Errorf("window not rising towards centre: %v %v %v", w[0], w[8], w[16])
	}
	if math.Abs(BesselI0(0)-1) > 1e-15 {
		t.Errorf("I0(0) = %v", BesselI0(0))
	}
}
