package Filters

import (
	"math"
	"math/cmplx"
	"testing"
)

func TestHilbertAnalytic(t *testing.T) {
	h := NewHilbert(32)
	const fs, f = 44100.0, 5000.0
	w := 2 * math.Pi * f / fs

	var prev complex128
	for i := range 2000 {
		z := h.Process(math.Cos(w * float64(i)))
		if i < 4*h.Delay() {
			prev = z
			continue
		}
		if mag := cmplx.Abs(z); math.Abs(mag-1) > 0.02 {
			t.Fatalf("sample %d: magnitude %.4f, want 1", i, mag)
		}
		// positive frequency: the phase advances by w
		step := cmplx.Phase(z / prev)
		if math.Abs(step-w) > 0.02 {
			t.Fatalf("sample %d: phase step %.4f, want %.4f", i, step, w)
		}
		prev = z
	}
}

func TestDDSDecimatorCentresTone(t *testing.T) {
	const fs, center = 44100.0, 700.0
	d, err := NewDDSDecimator(fs, 6, center, 500, 60)
	if err != nil {
		t.Fatal(err)
	}
	if d.Factor() != 64 {
		t.Fatalf("factor %d", d.Factor())
	}
	if math.Abs(d.OutputRate()-fs/64) > 1e-9 {
		t.Errorf("output rate %.3f", d.OutputRate())
	}

	power := func(offset float64) float64 {
		d.Reset()
		var outs []complex128
		for i := range 64 * 600 {
			x := cmplx.Exp(complex(0, 2*math.Pi*(center+offset)*float64(i)/fs))
			if y, ok := d.Push(x); ok {
				outs = append(outs, y)
			}
		}
		var p float64
		for _, y := range outs[300:] {
			p += real(y)*real(y) + imag(y)*imag(y)
		}
		return p / float64(len(outs)-300)
	}

	if p := power(100); math.Abs(p-1) > 0.02 {
		t.Errorf("in-band power %.4f, want 1", p)
	}
	if p := PowerDB(power(5000)); p > -30 {
		t.Errorf("out-of-band power %.1f dB, want below -30", p)
	}
}

func TestDDSDecimatorRejectsWideBand(t *testing.T) {
	if _, err := NewDDSDecimator(44100, 6, 700, 800, 60); err == nil {
		t.Error("bandwidth above the output rate accepted")
	}
}

func TestFrequencyResponses(t *testing.T) {
	h := NewHilbert(32)
	if g := cmplx.Abs(h.Response(0.1)); math.Abs(g-2) > 0.02 {
		t.Errorf("hilbert gain at +0.1 = %.4f, want 2", g)
	}
	if g := cmplx.Abs(h.Response(-0.1)); g > 0.02 {
		t.Errorf("hilbert gain at -0.1 = %.4f, want 0", g)
	}

	d, err := NewDDSDecimator(44100, 6, 700, 500, 60)
	if err != nil {
		t.Fatal(err)
	}
	if g := cmplx.Abs(d.Response(700)); math.Abs(g-1) > 1e-6 {
		t.Errorf("dds gain at the centre = %.6f, want 1", g)
	}
	if g := cmplx.Abs(d.Response(700 + 2000)); g > 2e-3 {
		t.Errorf("dds gain 2 kHz off = %.5f, want stopband", g)
	}
}
