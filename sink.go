package rxdsp

// CWSink receives the tone decoder's output.
type CWSink interface {
	// CWSignal fires on every key state change. on is the new state and
	// durationMs is how long the previous state lasted.
	CWSignal(on bool, durationMs float64)
	// CWTuneFrequency reports the tracked tone while the key is down.
	CWTuneFrequency(hz float64)
}

// Sink receives everything the pipeline produces. Slices passed to it are
// only valid for the duration of the call. Methods are called from the
// goroutine that fed the samples, so the radio and audio producers may call
// into a Sink concurrently.
type Sink interface {
	SpectrumData(psd []float64, tx bool)
	WaterfallData(psd []float64, tx bool)
	MeterUpdate(db, beta float64)
	SpectrumUpdateMin(db float64)
	SpectrumUpdateMax(db float64)
	WaterfallUpdateMin(db float64)
	WaterfallUpdateMax(db float64)
	NotchFrequency(hz int)
	CWSink
}

// AudioConsumer receives analytic audio blocks while the receiver is not in a
// CW mode.
type AudioConsumer interface {
	ConsumeAudio(block []complex128)
}

// NopSink ignores everything. Embed it to implement part of Sink.
type NopSink struct{}

func (NopSink) SpectrumData([]float64, bool)  {}
func (NopSink) WaterfallData([]float64, bool) {}
func (NopSink) MeterUpdate(float64, float64)  {}
func (NopSink) SpectrumUpdateMin(float64)     {}
func (NopSink) SpectrumUpdateMax(float64)     {}
func (NopSink) WaterfallUpdateMin(float64)    {}
func (NopSink) WaterfallUpdateMax(float64)    {}
func (NopSink) NotchFrequency(int)            {}
func (NopSink) CWSignal(bool, float64)        {}
func (NopSink) CWTuneFrequency(float64)       {}
