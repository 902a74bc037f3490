package rxdsp

import (
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WavWriter records 16 bit mono audio.
type WavWriter struct {
	file *os.File
	enc  *wav.Encoder
	buf  audio.IntBuffer
}

func NewWavWriter(filename string, sampleRate int) (*WavWriter, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	return &WavWriter{
		file: f,
		enc:  wav.NewEncoder(f, sampleRate, 16, 1, 1),
		buf: audio.IntBuffer{
			Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
			SourceBitDepth: 16,
		},
	}, nil
}

func (w *WavWriter) WriteSamples(samples []int16) error {
	w.buf.Data = w.buf.Data[:0]
	for _, s := range samples {
		w.buf.Data = append(w.buf.Data, int(s))
	}
	return w.enc.Write(&w.buf)
}

// Close finalizes the header and closes the file.
func (w *WavWriter) Close() error {
	if err := w.enc.Close(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
