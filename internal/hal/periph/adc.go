package periph

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// IIOChannel reads one channel of a Linux IIO ADC through sysfs
// (in_voltageN_raw) and scales it to 16 bits.
type IIOChannel struct {
	path string
	bits int
}

func NewIIOChannel(path string, bits int) (*IIOChannel, error) {
	if bits < 1 || bits > 16 {
		return nil, fmt.Errorf("adc: unsupported resolution %d bits", bits)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("adc: %w", err)
	}
	return &IIOChannel{path: path, bits: bits}, nil
}

func (c *IIOChannel) ReadU16() (uint16, error) {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		return 0, fmt.Errorf("adc %s: %w", c.path, err)
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(raw)), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("adc %s: %w", c.path, err)
	}
	return scaleTo16(v, c.bits), nil
}

// scaleTo16 maps 0..2^bits-1 onto 0..65535.
func scaleTo16(v uint64, bits int) uint16 {
	full := uint64(1)<<bits - 1
	if v > full {
		v = full
	}
	return uint16(v * 0xFFFF / full)
}
