package periph

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/LeonardoBeccarini/pot_irrigation/pkg/dedup"
)

var keyMap = [4][4]rune{
	{'1', '2', '3', 'A'},
	{'4', '5', '6', 'B'},
	{'7', '8', '9', 'C'},
	{'*', '0', '#', 'D'},
}

// Keypad scans a 4x4 membrane matrix. Rows are driven low one at a time and
// the pulled-up columns are read back.
type Keypad struct {
	mu       sync.Mutex
	rows     []gpio.PinOut
	cols     []gpio.PinIn
	debounce *dedup.Deduper
	held     rune
}

func NewKeypad(rows []gpio.PinOut, cols []gpio.PinIn, debounce time.Duration) (*Keypad, error) {
	if len(rows) != 4 || len(cols) != 4 {
		return nil, fmt.Errorf("keypad: need 4 rows and 4 columns, got %d and %d", len(rows), len(cols))
	}
	for _, c := range cols {
		if err := c.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("keypad column %s: %w", c, err)
		}
	}
	for _, r := range rows {
		if err := r.Out(gpio.High); err != nil {
			return nil, fmt.Errorf("keypad row %s: %w", r, err)
		}
	}
	return &Keypad{rows: rows, cols: cols, debounce: dedup.New(debounce, 16)}, nil
}

// Poll reports a key once per press; holding it down does not repeat.
func (k *Keypad) Poll() (rune, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	key := k.scan()
	if key == 0 || key == k.held {
		k.held = key
		return 0, false
	}
	k.held = key
	if !k.debounce.ShouldProcess(string(key)) {
		return 0, false
	}
	return key, true
}

// Flush forgets the held key state so the next press is seen.
func (k *Keypad) Flush() {
	k.mu.Lock()
	k.held = k.scan()
	k.mu.Unlock()
}

func (k *Keypad) scan() rune {
	for i, row := range k.rows {
		if err := row.Out(gpio.Low); err != nil {
			continue
		}
		pressed := rune(0)
		for j, col := range k.cols {
			if col.Read() == gpio.Low {
				pressed = keyMap[i][j]
				break
			}
		}
		_ = row.Out(gpio.High)
		if pressed != 0 {
			return pressed
		}
	}
	return 0
}
