package rxdsp

import (
	"bufio"
	"fmt"
	"os"
)

// SignalTracer receives one row per decimated CW sample. The decoder only
// depends on this interface.
type SignalTracer interface {
	Record(level, noise, peak, pulse, silence float64, on bool)
	Close() error
}

// CsvTracer writes tracer rows to a CSV file for offline tuning.
type CsvTracer struct {
	file   *os.File
	writer *bufio.Writer
}

func NewCsvTracer(filename string) (*CsvTracer, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, err
	}

	w := bufio.NewWriter(f)
	if _, err := w.WriteString("level,noise,peak,pulse,silence,on\n"); err != nil {
		f.Close()
		return nil, err
	}
	return &CsvTracer{file: f, writer: w}, nil
}

func (d *CsvTracer) Record(level, noise, peak, pulse, silence float64, on bool) {
	state := 0
	if on {
		state = 1
	}
	fmt.Fprintf(d.writer, "%.2f,%.2f,%.2f,%.2f,%.2f,%d\n", level, noise, peak, pulse, silence, state)
}

// Close flushes the buffer and closes the file.
func (d *CsvTracer) Close() error {
	if err := d.writer.Flush(); err != nil {
		d.file.Close()
		return err
	}
	return d.file.Close()
}

// NopTracer drops every row.
type NopTracer struct{}

func (NopTracer) Record(level, noise, peak, pulse, silence float64, on bool) {}
func (NopTracer) Close() error                                                { return nil }
