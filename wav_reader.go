package rxdsp

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WavReader reads 16 bit PCM files: mono audio recordings or stereo IQ
// captures with I on the left channel.
type WavReader struct {
	file       *os.File
	dec        *wav.Decoder
	buf        audio.IntBuffer
	SampleRate int
	Channels   int
}

func NewWavReader(filename string) (*WavReader, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("%s: invalid wav file", filename)
	}
	if dec.BitDepth != 16 {
		f.Close()
		return nil, fmt.Errorf("%s: %d bit samples, only 16 bit is supported", filename, dec.BitDepth)
	}
	format := dec.Format()
	return &WavReader{
		file:       f,
		dec:        dec,
		buf:        audio.IntBuffer{Format: format},
		SampleRate: format.SampleRate,
		Channels:   format.NumChannels,
	}, nil
}

// read fills the internal buffer with up to frames frames and returns the
// interleaved samples.
func (r *WavReader) read(frames int) ([]int, error) {
	want := frames * r.Channels
	if cap(r.buf.Data) < want {
		r.buf.Data = make([]int, want)
	}
	r.buf.Data = r.buf.Data[:want]
	n, err := r.dec.PCMBuffer(&r.buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if n == 0 {
		return nil, io.EOF
	}
	return r.buf.Data[:n-n%r.Channels], nil
}

// ReadPCM returns up to frames samples of the first channel. It returns
// io.EOF once the file is exhausted.
func (r *WavReader) ReadPCM(frames int) ([]int16, error) {
	data, err := r.read(frames)
	if err != nil {
		return nil, err
	}
	out := make([]int16, len(data)/r.Channels)
	for i := range out {
		out[i] = int16(data[i*r.Channels])
	}
	return out, nil
}

// ReadIQ returns up to frames complex samples scaled to [-1, 1).
func (r *WavReader) ReadIQ(frames int) ([]complex64, error) {
	if r.Channels < 2 {
		return nil, fmt.Errorf("IQ needs two channels, file has %d", r.Channels)
	}
	data, err := r.read(frames)
	if err != nil {
		return nil, err
	}
	out := make([]complex64, len(data)/r.Channels)
	for i := range out {
		re := float32(data[i*r.Channels]) / 32768
		im := float32(data[i*r.Channels+1]) / 32768
		out[i] = complex(re, im)
	}
	return out, nil
}

func (r *WavReader) Close() error {
	return r.file.Close()
}
