package rxdsp

import (
	"math"
	"strings"
	"sync"
)

// morseTable maps dot/dash patterns to text. Prosigns decode to <XX>.
var morseTable = map[string]string{
	".-": "A", "-...": "B", "-.-.": "C", "-..": "D", ".": "E", "..-.": "F",
	"--.": "G", "....": "H", "..": "I", ".---": "J", "-.-": "K", ".-..": "L",
	"--": "M", "-.": "N", "---": "O", ".--.": "P", "--.-": "Q", ".-.": "R",
	"...": "S", "-": "T", "..-": "U", "...-": "V", ".--": "W", "-..-": "X",
	"-.--": "Y", "--..": "Z",

	"-----": "0", ".----": "1", "..---": "2", "...--": "3", "....-": "4",
	".....": "5", "-....": "6", "--...": "7", "---..": "8", "----.": "9",

	".-.-.-": ".", "--..--": ",", "..--..": "?", "-..-.": "/", "-...-": "=",
	".-.-.": "+", ".--.-.": "@", "-.--.": "(", "-.--.-": ")", "---...": ":",
	".----.": "'", "-....-": "-",

	"...-.-": "<SK>", ".-...": "<AS>", "-.-.-": "<KA>", "...-.": "<VE>",
}

// durationClassifier separates dots from dashes with one Gaussian per class.
// Both means follow the keying speed.
type durationClassifier struct {
	meanDot  float64
	meanDash float64
	alpha    float64
}

func newDurationClassifier(wpm float64) *durationClassifier {
	dot := 1200 / wpm
	return &durationClassifier{meanDot: dot, meanDash: 3 * dot, alpha: 0.1}
}

// logLikelihood of x under N(mean, (0.3*mean)^2), constants dropped.
func logLikelihood(x, mean float64) float64 {
	sd := 0.3 * mean
	d := (x - mean) / sd
	return -0.5*d*d - math.Log(sd)
}

// classify returns '.' or '-' and trains the winning class; 0 for glitches.
func (c *durationClassifier) classify(ms float64) byte {
	if ms < c.meanDot*0.25 {
		return 0
	}
	if logLikelihood(ms, c.meanDot) >= logLikelihood(ms, c.meanDash) {
		c.meanDot += c.alpha * (ms - c.meanDot)
		c.meanDash = max(c.meanDash, 2*c.meanDot)
		return '.'
	}
	c.meanDash += c.alpha * (ms - c.meanDash)
	c.meanDot = min(c.meanDot, c.meanDash/2)
	return '-'
}

// dot is the current unit length in ms, derived from both classes.
func (c *durationClassifier) dot() float64 {
	return (c.meanDot + c.meanDash/3) / 2
}

// MorseDecoder is a CWSink that turns key events into text.
type MorseDecoder struct {
	mu         sync.Mutex
	classifier *durationClassifier
	symbol     []byte
	text       strings.Builder
	wroteText  bool
	tune       float64

	// OnDecoded receives each character or word space as it is decoded.
	OnDecoded func(string)
}

func NewMorseDecoder(wpm float64) *MorseDecoder {
	return &MorseDecoder{classifier: newDurationClassifier(wpm)}
}

func (m *MorseDecoder) CWSignal(on bool, durationMs float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if on {
		m.gap(durationMs)
	} else {
		m.mark(durationMs)
	}
}

func (m *MorseDecoder) CWTuneFrequency(hz float64) {
	m.mu.Lock()
	m.tune = hz
	m.mu.Unlock()
}

func (m *MorseDecoder) mark(ms float64) {
	if sym := m.classifier.classify(ms); sym != 0 {
		m.symbol = append(m.symbol, sym)
	}
}

func (m *MorseDecoder) gap(ms float64) {
	dot := m.classifier.dot()
	switch {
	case ms > 5*dot:
		m.flush()
		if m.wroteText {
			m.emit(" ")
			m.wroteText = false
		}
	case ms > 2*dot:
		m.flush()
	}
}

func (m *MorseDecoder) flush() {
	if len(m.symbol) == 0 {
		return
	}
	ch, ok := morseTable[string(m.symbol)]
	if !ok {
		ch = "*"
	}
	m.symbol = m.symbol[:0]
	m.wroteText = true
	m.emit(ch)
}

func (m *MorseDecoder) emit(s string) {
	m.text.WriteString(s)
	if m.OnDecoded != nil {
		m.OnDecoded(s)
	}
}

// Flush decodes a pending character, as after a long pause.
func (m *MorseDecoder) Flush() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flush()
}

// Text returns everything decoded so far.
func (m *MorseDecoder) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text.String()
}

// WPM is the estimated keying speed.
func (m *MorseDecoder) WPM() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return 1200 / m.classifier.dot()
}

// Tune is the last reported tone frequency.
func (m *MorseDecoder) Tune() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tune
}
