package rxdsp

import (
	"sync"
	"time"
)

// Clock drives the frame rate gates.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SampleClock advances by the duration of the samples fed through it, so
// file replay produces the same frame cadence at any speed.
type SampleClock struct {
	mu         sync.Mutex
	now        time.Time
	sampleRate float64
}

func NewSampleClock(start time.Time, sampleRate int) *SampleClock {
	return &SampleClock{now: start, sampleRate: float64(sampleRate)}
}

func (c *SampleClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by n samples.
func (c *SampleClock) Advance(n int) {
	c.mu.Lock()
	c.now = c.now.Add(time.Duration(float64(n) / c.sampleRate * float64(time.Second)))
	c.mu.Unlock()
}
