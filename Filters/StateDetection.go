package Filters

/*
Schmitt trigger on a level in dB.

The state only flips when the level crosses the far threshold, so a level
sitting between the two thresholds keeps whatever state it had.
*/

// Transition is emitted when the state flips. On is the new state and
// Samples is how long the state that just ended lasted.
type Transition struct {
	On      bool
	Samples int64
}

type SchmittTrigger struct {
	thresholdHigh float64
	thresholdLow  float64

	currentState bool
	run          int64
}

func NewSchmittTrigger(high, low float64) *SchmittTrigger {
	st := &SchmittTrigger{}
	st.SetThresholds(high, low)
	return st
}

// SetThresholds updates both levels. A low level at or above high is pulled
// just below it.
func (st *SchmittTrigger) SetThresholds(high, low float64) {
	if low >= high {
		low = high - 1e-9
	}
	st.thresholdHigh = high
	st.thresholdLow = low
}

func (st *SchmittTrigger) Thresholds() (high, low float64) {
	return st.thresholdHigh, st.thresholdLow
}

// Feed adds one level sample and reports a transition if the state flipped.
func (st *SchmittTrigger) Feed(level float64) (Transition, bool) {
	next := st.currentState
	if st.currentState {
		if level < st.thresholdLow {
			next = false
		}
	} else if level > st.thresholdHigh {
		next = true
	}

	if next == st.currentState {
		st.run++
		return Transition{}, false
	}

	tr := Transition{On: next, Samples: st.run}
	st.currentState = next
	st.run = 1
	return tr, true
}

func (st *SchmittTrigger) State() bool {
	return st.currentState
}

func (st *SchmittTrigger) Reset() {
	st.currentState = false
	st.run = 0
}
