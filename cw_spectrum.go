package rxdsp

import (
	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/dsp/fourier"
)

// toneAnalysis is the result of one block of the CW tone spectrum.
type toneAnalysis struct {
	PeakBin  int     // strongest bin, 0..size-1
	OffsetHz float64 // signed distance of PeakBin from the NCO frequency
	InPower  float64 // power inside the window around the peak
	OutPower float64 // power everywhere else
}

// toneSpectrum collects decimated baseband samples and, once per block,
// finds the strongest bin and splits the power into the part near that bin
// and the rest.
type toneSpectrum struct {
	size      int
	binHz     float64
	halfWidth int
	window    []float64
	fft       *fourier.CmplxFFT
	block     []complex128
	windowed  []complex128
	spectrum  []complex128
	power     []float64
	n         int
}

// newToneSpectrum builds a size point analyser for a stream at rate. The
// peak window is wide enough for keying sidebands at wpm.
func newToneSpectrum(size int, rate, wpm float64) *toneSpectrum {
	binHz := rate / float64(size)
	// keying at wpm spreads the tone over roughly wpm*4 Hz on each side
	width := int(wpm * 4 / binHz)
	width = min(max(width, 2), size-1)
	return &toneSpectrum{
		size:      size,
		binHz:     binHz,
		halfWidth: width / 2,
		window:    window.Hann(size),
		fft:       fourier.NewCmplxFFT(size),
		block:     make([]complex128, size),
		windowed:  make([]complex128, size),
		spectrum:  make([]complex128, size),
		power:     make([]float64, size),
	}
}

// push adds a sample and reports whether a block is ready for analyze.
func (ts *toneSpectrum) push(y complex128) bool {
	ts.block[ts.n] = y
	ts.n++
	if ts.n < ts.size {
		return false
	}
	ts.n = 0
	return true
}

func (ts *toneSpectrum) analyze() toneAnalysis {
	for i, y := range ts.block {
		ts.windowed[i] = y * complex(ts.window[i], 0)
	}
	ts.fft.Coefficients(ts.spectrum, ts.windowed)

	var total float64
	peak := 0
	for k, c := range ts.spectrum {
		p := real(c)*real(c) + imag(c)*imag(c)
		ts.power[k] = p
		total += p
		if p > ts.power[peak] {
			peak = k
		}
	}

	var in float64
	for d := -ts.halfWidth; d <= ts.halfWidth; d++ {
		in += ts.power[(peak+d+ts.size)%ts.size]
	}

	bin := peak
	if bin >= ts.size/2 {
		bin -= ts.size
	}
	return toneAnalysis{
		PeakBin:  peak,
		OffsetHz: float64(bin) * ts.binHz,
		InPower:  in,
		OutPower: total - in,
	}
}

func (ts *toneSpectrum) reset() {
	ts.n = 0
}
