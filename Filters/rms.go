package Filters

// RMS keeps the mean power of the last window complex samples.
type RMS struct {
	buffer []float64
	cursor int
	filled int
	sum    float64
}

func NewRMS(window int) *RMS {
	if window < 1 {
		window = 1
	}
	return &RMS{buffer: make([]float64, window)}
}

// Push adds a sample and returns the mean power over the window.
func (r *RMS) Push(x complex128) float64 {
	p := real(x)*real(x) + imag(x)*imag(x)
	r.sum += p - r.buffer[r.cursor]
	r.buffer[r.cursor] = p
	r.cursor++
	if r.cursor == len(r.buffer) {
		r.cursor = 0
		// drop accumulated rounding once per lap
		r.sum = 0
		for _, v := range r.buffer {
			r.sum += v
		}
	}
	if r.filled < len(r.buffer) {
		r.filled++
	}
	if r.sum < 0 {
		r.sum = 0
	}
	return r.sum / float64(r.filled)
}

func (r *RMS) Window() int { return len(r.buffer) }

func (r *RMS) Reset() {
	clear(r.buffer)
	r.cursor, r.filled, r.sum = 0, 0, 0
}

// DelayLine returns values pushed length steps earlier.
type DelayLine struct {
	buffer []float64
	cursor int
	filled int
}

func NewDelayLine(length int) *DelayLine {
	if length < 1 {
		length = 1
	}
	return &DelayLine{buffer: make([]float64, length)}
}

// Push stores v and returns the value from length pushes ago. The second
// result is false until the line has filled.
func (d *DelayLine) Push(v float64) (float64, bool) {
	out := d.buffer[d.cursor]
	d.buffer[d.cursor] = v
	d.cursor++
	if d.cursor == len(d.buffer) {
		d.cursor = 0
	}
	if d.filled < len(d.buffer) {
		d.filled++
		return 0, false
	}
	return out, true
}

func (d *DelayLine) Reset() {
	clear(d.buffer)
	d.cursor, d.filled = 0, 0
}
