package rxdsp

import (
	"fmt"

	"gonum.org/v1/gonum/dsp/fourier"

	"rxdsp/Filters"
)

// AccumulateAlpha switches a ChunkedSpgram from exponential smoothing to a
// plain sum that is averaged on read.
const AccumulateAlpha = -1

// ChunkedSpgram computes a smoothed power spectral density from a stream
// delivered in fixed size chunks. Every chunk is windowed on arrival and one
// transform over the latest nfft samples follows each write.
type ChunkedSpgram struct {
	chunkSize  int
	nfft       int
	bufferSize int

	window []float64
	ring   []complex128
	head   int

	fft     *fourier.CmplxFFT
	timeBuf []complex128
	freqBuf []complex128

	psd           []float64
	alpha, gamma  float64
	accumulate    bool
	numTransforms int
}

func NewChunkedSpgram(chunkSize, nfft int, kind WindowKind) (*ChunkedSpgram, error) {
	if chunkSize <= 0 || nfft <= 0 {
		return nil, fmt.Errorf("%w: spgram chunk %d nfft %d", ErrInvalidSize, chunkSize, nfft)
	}
	bufferSize := (nfft + chunkSize - 1) / chunkSize * chunkSize
	s := &ChunkedSpgram{
		chunkSize:  chunkSize,
		nfft:       nfft,
		bufferSize: bufferSize,
		window:     NormalizedWindow(kind, chunkSize, nfft),
		ring:       make([]complex128, bufferSize),
		fft:        fourier.NewCmplxFFT(nfft),
		timeBuf:    make([]complex128, nfft),
		freqBuf:    make([]complex128, nfft),
		psd:        make([]float64, nfft),
	}
	if err := s.SetAlpha(1); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ChunkedSpgram) ChunkSize() int     { return s.chunkSize }
func (s *ChunkedSpgram) NFFT() int          { return s.nfft }
func (s *ChunkedSpgram) NumTransforms() int { return s.numTransforms }

// SetAlpha sets psd = (1-alpha)*psd + alpha*|X|^2. AccumulateAlpha sums
// instead and divides by the number of transforms on read.
func (s *ChunkedSpgram) SetAlpha(alpha float64) error {
	switch {
	case alpha == AccumulateAlpha:
		s.accumulate = true
		s.alpha, s.gamma = 1, 1
	case alpha >= 0 && alpha <= 1:
		s.accumulate = false
		s.alpha, s.gamma = alpha, 1-alpha
	default:
		return fmt.Errorf("%w: spgram alpha %g", ErrInvalidConfig, alpha)
	}
	return nil
}

// Write windows chunk into the ring and updates the PSD. Only the first
// ChunkSize samples are used; a shorter chunk is ignored.
func (s *ChunkedSpgram) Write(chunk []complex128) {
	if len(chunk) < s.chunkSize {
		return
	}
	for i, x := range chunk[:s.chunkSize] {
		s.ring[s.head] = x * complex(s.window[i], 0)
		s.head++
		if s.head == s.bufferSize {
			s.head = 0
		}
	}

	start := s.head - s.nfft
	if start < 0 {
		start += s.bufferSize
	}
	n := copy(s.timeBuf, s.ring[start:])
	copy(s.timeBuf[n:], s.ring[:s.nfft-n])

	s.fft.Coefficients(s.freqBuf, s.timeBuf)

	for k, c := range s.freqBuf {
		p := real(c)*real(c) + imag(c)*imag(c)
		switch {
		case s.numTransforms == 0:
			s.psd[k] = p
		case s.accumulate:
			s.psd[k] += p
		default:
			s.psd[k] = s.gamma*s.psd[k] + s.alpha*p
		}
	}
	s.numTransforms++
}

// PSD writes the spectrum in dB into out, centred on DC: bin nfft/2 is zero
// frequency and negative frequencies come first. out must hold NFFT values.
func (s *ChunkedSpgram) PSD(out []float64) {
	scale := 1.0
	if s.accumulate && s.numTransforms > 0 {
		scale = 1 / float64(s.numTransforms)
	}
	half := s.nfft / 2
	for k, p := range s.psd {
		out[(k+half)%s.nfft] = Filters.PowerDB(p * scale)
	}
}

// Clear drops all history: the ring, the PSD and the transform count.
func (s *ChunkedSpgram) Clear() {
	clear(s.ring)
	clear(s.psd)
	s.head = 0
	s.numTransforms = 0
}
