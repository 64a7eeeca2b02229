package periph

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3"
)

// PCF8574 backpack bit layout.
const (
	lcdRS        = 0x01
	lcdEnable    = 0x04
	lcdBacklight = 0x08
)

// HD44780 instructions.
const (
	cmdClear      = 0x01
	cmdEntryMode  = 0x06 // increment, no shift
	cmdDisplayOn  = 0x0C // display on, cursor off
	cmdFunction4b = 0x28 // 4-bit, 2 lines, 5x8
	cmdSetDDRAM   = 0x80
)

var rowOffsets = [...]byte{0x00, 0x40, 0x14, 0x54}

// LCD is an HD44780 character display behind a PCF8574 I2C expander.
type LCD struct {
	mu    sync.Mutex
	dev   conn.Conn
	cols  int
	rows  int
	sleep func(time.Duration)
}

// NewLCD initialises the controller in 4-bit mode and clears the screen.
func NewLCD(dev conn.Conn, cols, rows int) (*LCD, error) {
	l := &LCD{dev: dev, cols: cols, rows: rows, sleep: time.Sleep}
	if err := l.init(); err != nil {
		return nil, fmt.Errorf("lcd init: %w", err)
	}
	return l, nil
}

func (l *LCD) init() error {
	l.sleep(50 * time.Millisecond)
	// force 8-bit mode three times, then switch to 4-bit
	for _, n := range []byte{0x03, 0x03, 0x03, 0x02} {
		if err := l.nibble(n<<4, 0); err != nil {
			return err
		}
		l.sleep(5 * time.Millisecond)
	}
	for _, c := range []byte{cmdFunction4b, cmdDisplayOn, cmdClear, cmdEntryMode} {
		if err := l.command(c); err != nil {
			return err
		}
	}
	l.sleep(2 * time.Millisecond)
	return nil
}

func (l *LCD) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.command(cmdClear); err != nil {
		return err
	}
	l.sleep(2 * time.Millisecond)
	return nil
}

func (l *LCD) MoveTo(col, row int) error {
	if col < 0 || col >= l.cols || row < 0 || row >= l.rows || row >= len(rowOffsets) {
		return fmt.Errorf("lcd: cursor %d,%d outside %dx%d", col, row, l.cols, l.rows)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.command(cmdSetDDRAM | (rowOffsets[row] + byte(col)))
}

func (l *LCD) Write(text string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, b := range EncodeLCD(text) {
		if err := l.send(b, lcdRS); err != nil {
			return err
		}
	}
	return nil
}

func (l *LCD) command(c byte) error { return l.send(c, 0) }

func (l *LCD) send(b, mode byte) error {
	if err := l.nibble(b&0xF0, mode); err != nil {
		return err
	}
	return l.nibble((b<<4)&0xF0, mode)
}

// nibble clocks the upper four bits of data into the controller.
func (l *LCD) nibble(data, mode byte) error {
	v := data | mode | lcdBacklight
	if err := l.dev.Tx([]byte{v | lcdEnable}, nil); err != nil {
		return fmt.Errorf("lcd: %w", err)
	}
	if err := l.dev.Tx([]byte{v}, nil); err != nil {
		return fmt.Errorf("lcd: %w", err)
	}
	return nil
}

// EncodeLCD maps text to the HD44780 A00 character ROM. The right arrow has
// its own glyph; anything else outside printable ASCII becomes '?'.
func EncodeLCD(text string) []byte {
	out := make([]byte, 0, len(text))
	for _, r := range text {
		switch {
		case r == '→':
			out = append(out, 0x7E)
		case r == '←':
			out = append(out, 0x7F)
		case r >= 0x20 && r < 0x7E && r != '\\':
			out = append(out, byte(r))
		default:
			out = append(out, '?')
		}
	}
	return out
}
