package rxdsp

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

const (
	civPreamble = 0xFE
	civEnd      = 0xFD

	CIVAddrRadio = 0xA4 // transceiver default address
	CIVAddrPC    = 0xE0 // controller default address
)

var ErrNoResponse = errors.New("civ: no response")

// SerialPort is the part of a serial connection the client uses.
type SerialPort interface {
	io.ReadWriteCloser
}

// CIVClient polls an Icom-protocol transceiver for its operating state.
type CIVClient struct {
	Port      string
	BaudRate  int
	RadioAddr byte
	conn      SerialPort
}

func NewCIVClient(port string, baudRate int) *CIVClient {
	return &CIVClient{
		Port:      port,
		BaudRate:  baudRate,
		RadioAddr: CIVAddrRadio,
	}
}

func (c *CIVClient) Open() error {
	s, err := serial.OpenPort(&serial.Config{
		Name:        c.Port,
		Baud:        c.BaudRate,
		ReadTimeout: 500 * time.Millisecond,
	})
	if err != nil {
		return fmt.Errorf("open %s: %w", c.Port, err)
	}
	c.conn = s
	return nil
}

func (c *CIVClient) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// SendCommand writes FE FE <radio> <pc> <cmd> <data...> FD.
func (c *CIVClient) SendCommand(cmd byte, data []byte) error {
	if c.conn == nil {
		return errors.New("civ: connection not open")
	}
	frame := []byte{civPreamble, civPreamble, c.RadioAddr, CIVAddrPC, cmd}
	frame = append(frame, data...)
	frame = append(frame, civEnd)
	_, err := c.conn.Write(frame)
	return err
}

// ReadFrequency returns the operating frequency in Hz.
func (c *CIVClient) ReadFrequency() (int, error) {
	if err := c.SendCommand(0x03, nil); err != nil {
		return 0, err
	}
	resp, err := c.readResponse(0x03)
	if err != nil {
		return 0, err
	}
	// five BCD bytes, least significant pair first
	if len(resp) < 5 {
		return 0, fmt.Errorf("civ: frequency data %X too short", resp)
	}
	freq, mul := 0, 1
	for _, b := range resp[:5] {
		freq += bcdToDecimal(b) * mul
		mul *= 100
	}
	return freq, nil
}

var civModes = map[byte]Mode{
	0x00: ModeLSB,
	0x01: ModeUSB,
	0x02: ModeAM,
	0x03: ModeCW,
	0x04: ModeRTTY,
	0x05: ModeNFM,
	0x07: ModeCWR,
	0x08: ModeRTTY,
}

// ReadMode returns the operating mode. Data variants are reported by the
// radio through a separate command and read here as their voice mode.
func (c *CIVClient) ReadMode() (Mode, error) {
	if err := c.SendCommand(0x04, nil); err != nil {
		return 0, err
	}
	resp, err := c.readResponse(0x04)
	if err != nil {
		return 0, err
	}
	if len(resp) < 1 {
		return 0, errors.New("civ: empty mode data")
	}
	m, ok := civModes[resp[0]]
	if !ok {
		return 0, fmt.Errorf("civ: unknown mode 0x%02X", resp[0])
	}
	return m, nil
}

// readResponse reads until a complete reply to cmd arrives. Echoes of our
// own commands are skipped.
func (c *CIVClient) readResponse(cmd byte) ([]byte, error) {
	if c.conn == nil {
		return nil, errors.New("civ: connection not open")
	}
	header := []byte{civPreamble, civPreamble, CIVAddrPC, c.RadioAddr, cmd}
	var data []byte
	buf := make([]byte, 256)
	for {
		n, err := c.conn.Read(buf)
		data = append(data, buf[:n]...)
		if idx := bytes.Index(data, header); idx >= 0 {
			frame := data[idx+len(header):]
			if end := bytes.IndexByte(frame, civEnd); end >= 0 {
				return frame[:end], nil
			}
		}
		if n == 0 || err != nil {
			if len(data) == 0 {
				return nil, ErrNoResponse
			}
			return nil, fmt.Errorf("%w to 0x%02X in %s", ErrNoResponse, cmd, hex.EncodeToString(data))
		}
	}
}

func bcdToDecimal(b byte) int {
	return int(b>>4)*10 + int(b&0x0F)
}

var hamBands = [][2]int{
	{1800000, 2000000},
	{3500000, 4000000},
	{5330000, 5410000},
	{7000000, 7300000},
	{10100000, 10150000},
	{14000000, 14350000},
	{18068000, 18168000},
	{21000000, 21450000},
	{24890000, 24990000},
	{28000000, 29700000},
	{50000000, 54000000},
}

// BandForFrequency returns the amateur band index containing hz, or -1 when
// hz is outside every band.
func BandForFrequency(hz int) int {
	for i, b := range hamBands {
		if hz >= b[0] && hz <= b[1] {
			return i
		}
	}
	return -1
}
