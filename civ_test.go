package rxdsp

import (
	"bytes"
	"errors"
	"testing"
)

type MockSerialPort struct {
	ReadBuffer  *bytes.Buffer
	WriteBuffer *bytes.Buffer
	Closed      bool
}

func NewMockSerialPort() *MockSerialPort {
	return &MockSerialPort{
		ReadBuffer:  new(bytes.Buffer),
		WriteBuffer: new(bytes.Buffer),
	}
}

// Read hands out at most 4 bytes at a time, like a slow UART.
func (m *MockSerialPort) Read(p []byte) (int, error) {
	if len(p) > 4 {
		p = p[:4]
	}
	return m.ReadBuffer.Read(p)
}

func (m *MockSerialPort) Write(p []byte) (int, error) {
	return m.WriteBuffer.Write(p)
}

func (m *MockSerialPort) Close() error {
	m.Closed = true
	return nil
}

func newMockClient() (*CIVClient, *MockSerialPort) {
	port := NewMockSerialPort()
	c := NewCIVClient("mock", 19200)
	c.conn = port
	return c, port
}

func makeResponseFrame(cmd byte, data []byte) []byte {
	frame := []byte{civPreamble, civPreamble, CIVAddrPC, CIVAddrRadio, cmd}
	frame = append(frame, data...)
	return append(frame, civEnd)
}

func TestSendCommand(t *testing.T) {
	client, port := newMockClient()
	if err := client.SendCommand(0x03, nil); err != nil {
		t.Fatalf("SendCommand failed: %v", err)
	}
	expected := []byte{0xFE, 0xFE, 0xA4, 0xE0, 0x03, 0xFD}
	if !bytes.Equal(port.WriteBuffer.Bytes(), expected) {
		t.Errorf("Expected command frame %X, got %X", expected, port.WriteBuffer.Bytes())
	}
}

func TestReadFrequency(t *testing.T) {
	client, port := newMockClient()
	// 7.050.00 MHz
	port.ReadBuffer.Write(makeResponseFrame(0x03, []byte{0x00, 0x00, 0x05, 0x07, 0x00}))

	freq, err := client.ReadFrequency()
	if err != nil {
		t.Fatalf("ReadFrequency failed: %v", err)
	}
	if freq != 7050000 {
		t.Errorf("Expected frequency 7050000, got %d", freq)
	}
	if BandForFrequency(freq) != 3 {
		t.Errorf("band %d, want 3 (40 m)", BandForFrequency(freq))
	}
}

func TestReadMode(t *testing.T) {
	tests := []struct {
		code byte
		want Mode
	}{
		{0x00, ModeLSB},
		{0x01, ModeUSB},
		{0x03, ModeCW},
		{0x07, ModeCWR},
		{0x05, ModeNFM},
	}
	for _, tt := range tests {
		client, port := newMockClient()
		port.ReadBuffer.Write(makeResponseFrame(0x04, []byte{tt.code, 0x01}))
		mode, err := client.ReadMode()
		if err != nil {
			t.Fatalf("ReadMode(0x%02X) failed: %v", tt.code, err)
		}
		if mode != tt.want {
			t.Errorf("ReadMode(0x%02X) = %v, want %v", tt.code, mode, tt.want)
		}
	}
}

func TestReadMode_Unknown(t *testing.T) {
	client, port := newMockClient()
	port.ReadBuffer.Write(makeResponseFrame(0x04, []byte{0xFF}))
	if _, err := client.ReadMode(); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestReadResponse_EchoFilter(t *testing.T) {
	client, port := newMockClient()
	port.ReadBuffer.Write([]byte{0xFE, 0xFE, 0xA4, 0xE0, 0x03, 0xFD})
	port.ReadBuffer.Write(makeResponseFrame(0x03, []byte{0x00, 0x50, 0x07, 0x14, 0x00}))

	freq, err := client.ReadFrequency()
	if err != nil {
		t.Fatalf("ReadFrequency with echo failed: %v", err)
	}
	if freq != 14075000 {
		t.Errorf("Expected frequency 14075000, got %d", freq)
	}
}

func TestReadResponse_Timeout(t *testing.T) {
	client, port := newMockClient()
	port.ReadBuffer.Write([]byte{0xFE, 0xFE, 0xE0})
	if _, err := client.ReadFrequency(); !errors.Is(err, ErrNoResponse) {
		t.Errorf("got %v, want ErrNoResponse", err)
	}
}

func TestBandForFrequency(t *testing.T) {
	if b := BandForFrequency(1000000); b != -1 {
		t.Errorf("1 MHz band %d", b)
	}
	if b := BandForFrequency(28074000); b != 9 {
		t.Errorf("10 m band %d", b)
	}
}

func TestClose(t *testing.T) {
	client, port := newMockClient()
	if err := client.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !port.Closed {
		t.Error("Expected port to be closed")
	}
}
