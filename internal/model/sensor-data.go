package model

import "strconv"

// MoistureReading is a soil reading in raw ADC units (0..65535).
type MoistureReading uint16

// MeanReading returns the floor of the arithmetic mean of two raw samples.
func MeanReading(a, b uint16) MoistureReading {
	return MoistureReading((uint32(a) + uint32(b)) / 2)
}

func (m MoistureReading) String() string { return strconv.FormatUint(uint64(m), 10) }
