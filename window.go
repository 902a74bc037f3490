package rxdsp

import (
	"math"

	"github.com/mjibson/go-dsp/window"

	"rxdsp/Filters"
)

// WindowKind selects the taper applied to each spectrogram chunk.
type WindowKind int

const (
	WindowKaiser WindowKind = iota
	WindowHann
)

const kaiserBeta = 5.0

// NormalizedWindow returns a chunk long taper scaled so that a frame of
// nfft/chunk consecutive chunks has unit energy. White noise of variance s2
// then reads 10*log10(s2) in every bin whatever the chunk to nfft ratio.
func NormalizedWindow(kind WindowKind, chunk, nfft int) []float64 {
	var w []float64
	switch kind {
	case WindowHann:
		w = window.Hann(chunk)
	default:
		w = Filters.Kaiser(chunk, kaiserBeta)
	}

	var energy float64
	for _, v := range w {
		energy += v * v
	}
	scale := 1 / math.Sqrt(energy*float64(nfft)/float64(chunk))
	for i := range w {
		w[i] *= scale
	}
	return w
}
