package sensor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
)

const (
	DefaultSerialPort = "/dev/ttyS0"
	mhz19Baud         = 9600
	mhz19FrameLen     = 9
	mhz19ReadTimeout  = time.Second
)

var mhz19ReadCmd = []byte{0xFF, 0x01, 0x86, 0x00, 0x00, 0x00, 0x00, 0x00, 0x79}

var errBadFrame = errors.New("mh-z19: malformed response")

// MHZ19 reads CO2 from a Winsen MH-Z19 over UART.
type MHZ19 struct {
	mu   sync.Mutex
	port io.ReadWriteCloser
}

// OpenMHZ19 opens the serial device at 9600 8N1.
func OpenMHZ19(device string) (*MHZ19, error) {
	if device == "" {
		device = DefaultSerialPort
	}
	p, err := serial.Open(device, &serial.Mode{BaudRate: mhz19Baud})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", device, err)
	}
	if err := p.SetReadTimeout(mhz19ReadTimeout); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", device, err)
	}
	return &MHZ19{port: p}, nil
}

// NewMHZ19 wraps an already opened port.
func NewMHZ19(port io.ReadWriteCloser) *MHZ19 { return &MHZ19{port: port} }

func (m *MHZ19) ReadCO2(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.port.Write(mhz19ReadCmd); err != nil {
		return 0, fmt.Errorf("mh-z19 write: %w", err)
	}
	frame := make([]byte, mhz19FrameLen)
	n := 0
	for n < mhz19FrameLen {
		if err := ctx.Err(); err != nil {
			return 0, fmt.Errorf("mh-z19 read after %d bytes: %w", n, err)
		}
		m.limitRead(ctx)
		k, err := m.port.Read(frame[n:])
		if err != nil {
			return 0, fmt.Errorf("mh-z19 read: %w", err)
		}
		if k == 0 {
			// go.bug.st/serial returns 0, nil on read timeout
			return 0, fmt.Errorf("mh-z19 read: timeout after %d bytes", n)
		}
		n += k
	}
	return parseMHZ19(frame)
}

type readTimeoutSetter interface {
	SetReadTimeout(t time.Duration) error
}

// limitRead caps the next port read at what is left before ctx's deadline.
func (m *MHZ19) limitRead(ctx context.Context) {
	p, ok := m.port.(readTimeoutSetter)
	if !ok {
		return
	}
	d := mhz19ReadTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < d {
			d = max(left, time.Millisecond)
		}
	}
	_ = p.SetReadTimeout(d)
}

func parseMHZ19(frame []byte) (int, error) {
	if len(frame) != mhz19FrameLen || frame[0] != 0xFF || frame[1] != 0x86 {
		return 0, errBadFrame
	}
	if mhz19Checksum(frame) != frame[8] {
		return 0, fmt.Errorf("%w: checksum", errBadFrame)
	}
	return int(frame[2])<<8 | int(frame[3]), nil
}

// mhz19Checksum is 0xFF - sum(bytes 1..7) + 1, modulo 256.
func mhz19Checksum(frame []byte) byte {
	var sum byte
	for _, b := range frame[1:8] {
		sum += b
	}
	return 0xFF - sum + 1
}

func (m *MHZ19) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.port.Close()
}
