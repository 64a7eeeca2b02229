// Package hal defines the device collaborators the controller talks to and
// builds the concrete set selected by configuration.
package hal

// RawSensor yields one raw moisture sample scaled to 16 bits.
type RawSensor interface {
	ReadU16() (uint16, error)
}

// Relay drives the pump line. Write(true) means pump on; wiring polarity is
// the driver's business.
type Relay interface {
	Write(on bool) error
}

// Display is a fixed-width text surface.
type Display interface {
	Clear() error
	Write(text string) error
	MoveTo(col, row int) error
}

// Flusher is implemented by displays that batch writes until a frame is complete.
type Flusher interface {
	Flush() error
}

// Keypad returns the next pressed key, or false when none is pending. Never blocks.
type Keypad interface {
	Poll() (rune, bool)
}

// KeyFlusher is implemented by keypads that buffer presses.
type KeyFlusher interface {
	Flush()
}
