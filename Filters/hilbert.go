package Filters

import "math"

// Hilbert turns a real stream into its analytic signal. The real part is the
// input delayed by the filter's semi-length so it lines up with the
// quadrature branch.
type Hilbert struct {
	taps []float64
	hist []float64
	pos  int
	semi int
}

// NewHilbert builds a 2*semi+1 tap transformer windowed with Kaiser beta 6.
func NewHilbert(semi int) *Hilbert {
	if semi < 1 {
		semi = 1
	}
	n := 2*semi + 1
	w := Kaiser(n, 6)
	taps := make([]float64, n)
	for k := range taps {
		d := k - semi
		if d%2 != 0 {
			taps[k] = 2 / (math.Pi * float64(d)) * w[k]
		}
	}
	return &Hilbert{taps: taps, hist: make([]float64, 2*n), semi: semi}
}

// Delay is the latency of the transformer in samples.
func (h *Hilbert) Delay() int { return h.semi }

func (h *Hilbert) Process(x float64) complex128 {
	n := len(h.taps)
	h.hist[h.pos] = x
	h.hist[h.pos+n] = x
	h.pos++
	if h.pos == n {
		h.pos = 0
	}
	// oldest first; win[n-1] is x
	win := h.hist[h.pos : h.pos+n]
	var q float64
	for k, t := range h.taps {
		if t != 0 {
			q += t * win[n-1-k]
		}
	}
	return complex(win[h.semi], q)
}

// Execute converts src into dst, growing dst when it is too short.
func (h *Hilbert) Execute(dst []complex128, src []float64) []complex128 {
	if cap(dst) < len(src) {
		dst = make([]complex128, len(src))
	}
	dst = dst[:len(src)]
	for i, x := range src {
		dst[i] = h.Process(x)
	}
	return dst
}

// Response is the gain from a real input at f cycles per sample to the
// analytic output. Ideally 2 for 0 < f < 0.5 and 0 for negative f.
func (h *Hilbert) Response(f float64) complex128 {
	s, c := math.Sincos(-2 * math.Pi * f * float64(h.semi))
	return complex(c, s) + 1i*Response(h.taps, f)
}

func (h *Hilbert) Reset() {
	clear(h.hist)
	h.pos = 0
}
