package sensor

import (
	"context"
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

const (
	DefaultBH1750Addr = 0x23
	bh1750OneTimeHRes = 0x20
	bh1750Conversion  = 180 * time.Millisecond
	bh1750LuxDivisor  = 1.2
)

// tx is the half of conn.Conn the driver needs.
type tx interface {
	Tx(w, r []byte) error
}

// BH1750 reads an ambient light sensor over I2C.
type BH1750 struct {
	dev     tx
	closer  func() error
	convert time.Duration
}

// OpenBH1750 opens the default I2C bus and addresses the sensor.
func OpenBH1750(busName string, addr uint16) (*BH1750, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", busName, err)
	}
	if addr == 0 {
		addr = DefaultBH1750Addr
	}
	return &BH1750{
		dev:     &i2c.Dev{Addr: addr, Bus: bus},
		closer:  bus.Close,
		convert: bh1750Conversion,
	}, nil
}

// NewBH1750 wraps an already addressed device.
func NewBH1750(dev tx) *BH1750 {
	return &BH1750{dev: dev, convert: bh1750Conversion}
}

func (b *BH1750) ReadLight(ctx context.Context) (float64, error) {
	if err := b.dev.Tx([]byte{bh1750OneTimeHRes}, nil); err != nil {
		return 0, fmt.Errorf("bh1750 measure: %w", err)
	}
	t := time.NewTimer(b.convert)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-t.C:
	}
	buf := make([]byte, 2)
	if err := b.dev.Tx(nil, buf); err != nil {
		return 0, fmt.Errorf("bh1750 read: %w", err)
	}
	raw := uint16(buf[0])<<8 | uint16(buf[1])
	return float64(raw) / bh1750LuxDivisor, nil
}

func (b *BH1750) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer()
}
