package rxdsp

import (
	"fmt"
	"strings"
)

// Mode is the demodulation mode of the receiver.
type Mode int

const (
	ModeUSB Mode = iota
	ModeLSB
	ModeUSBD
	ModeLSBD
	ModeCW
	ModeCWR
	ModeAM
	ModeNFM
	ModeRTTY
)

var modeNames = map[Mode]string{
	ModeUSB:  "USB",
	ModeLSB:  "LSB",
	ModeUSBD: "USB-D",
	ModeLSBD: "LSB-D",
	ModeCW:   "CW",
	ModeCWR:  "CW-R",
	ModeAM:   "AM",
	ModeNFM:  "NFM",
	ModeRTTY: "RTTY",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode accepts the names String returns, case-insensitive, with or
// without the dash.
func ParseMode(s string) (Mode, error) {
	norm := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), "-", "")
	for m, name := range modeNames {
		if strings.ReplaceAll(name, "-", "") == norm {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, s)
}

// LowerSideband reports whether audio comes from below the carrier, which
// mirrors passband offsets.
func (m Mode) LowerSideband() bool {
	return m == ModeLSB || m == ModeLSBD || m == ModeCWR
}

// NotchCapable reports whether the automatic notch runs in this mode. Only
// plain voice sidebands qualify.
func (m Mode) NotchCapable() bool {
	return m == ModeUSB || m == ModeLSB
}

func (m Mode) IsCW() bool {
	return m == ModeCW || m == ModeCWR
}
