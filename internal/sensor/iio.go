package sensor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultIIODir is where the kernel dht11 overlay exposes a DHT22.
const DefaultIIODir = "/sys/bus/iio/devices/iio:device0"

// IIOClimate reads a DHT22 through the Linux industrial I/O interface.
// Values are reported in milli-degrees and milli-percent.
type IIOClimate struct {
	Dir string
}

func (c IIOClimate) ReadClimate(ctx context.Context) (float64, float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	temp, err := c.readMilli("in_temp_input")
	if err != nil {
		return 0, 0, err
	}
	hum, err := c.readMilli("in_humidityrelative_input")
	if err != nil {
		return 0, 0, err
	}
	return temp, hum, nil
}

func (c IIOClimate) readMilli(name string) (float64, error) {
	dir := c.Dir
	if dir == "" {
		dir = DefaultIIODir
	}
	b, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", name, err)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return v / 1000, nil
}
