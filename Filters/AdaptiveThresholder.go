package Filters

// ThresholdParams tunes the signal and noise trackers. Levels are in dB.
type ThresholdParams struct {
	SNR         float64 // pulse threshold floor above the noise estimate
	Gist        float64 // hysteresis between pulse and silence
	PeakBeta    float64 // peak smoothing while a tone is present
	NoiseBeta   float64 // noise smoothing, also the peak decay without a tone
	PeakMargin  float64 // pulse sits this far below the peak
	NoiseOffset float64 // noise target below the block average
}

// AdaptiveThresholder follows the tone peak and the noise floor and derives
// the two Schmitt trigger levels from them.
type AdaptiveThresholder struct {
	params       ThresholdParams
	initialNoise float64

	peak    float64
	noise   float64
	pulse   float64
	silence float64
}

func NewAdaptiveThresholder(p ThresholdParams, initialNoise float64) *AdaptiveThresholder {
	at := &AdaptiveThresholder{params: p, initialNoise: initialNoise}
	at.Reset()
	return at
}

func (at *AdaptiveThresholder) SetParams(p ThresholdParams) {
	at.params = p
	at.derive()
}

func (at *AdaptiveThresholder) Params() ThresholdParams { return at.params }

// Update folds in one analysis block. signal says whether the tone window
// held more power than the rest of the spectrum; rmsMax and rmsAvg are the
// block's peak and mean level.
func (at *AdaptiveThresholder) Update(signal bool, rmsMax, rmsAvg float64) (pulse, silence float64) {
	p := at.params
	if signal {
		at.peak = LowPass(at.peak, max(at.noise+p.SNR, rmsMax), p.PeakBeta)
	} else {
		at.noise = LowPass(at.noise, rmsAvg-p.NoiseOffset, p.NoiseBeta)
		at.peak = LowPass(at.peak, at.noise+p.SNR, p.NoiseBeta)
	}
	at.derive()
	return at.pulse, at.silence
}

func (at *AdaptiveThresholder) derive() {
	p := at.params
	at.pulse = max(at.noise+p.SNR, at.peak-p.PeakMargin)
	at.silence = at.pulse - p.Gist
}

func (at *AdaptiveThresholder) Peak() float64    { return at.peak }
func (at *AdaptiveThresholder) Noise() float64   { return at.noise }
func (at *AdaptiveThresholder) Pulse() float64   { return at.pulse }
func (at *AdaptiveThresholder) Silence() float64 { return at.silence }

func (at *AdaptiveThresholder) Reset() {
	at.noise = at.initialNoise
	at.peak = at.noise + at.params.SNR
	at.derive()
}
