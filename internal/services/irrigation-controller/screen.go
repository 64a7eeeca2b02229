package irrigation_controller

import (
	"errors"
	"log"

	"github.com/LeonardoBeccarini/pot_irrigation/internal/hal"
)

// Screen renders two-line messages on a fixed-width display.
type Screen struct {
	d    hal.Display
	cols int
}

func NewScreen(d hal.Display, cols int) *Screen {
	if cols <= 0 {
		cols = 16
	}
	return &Screen{d: d, cols: cols}
}

// Show replaces the whole screen. An empty second line leaves row 1 blank.
func (s *Screen) Show(line1, line2 string) error {
	line1, line2 = s.fit(line1), s.fit(line2)
	log.Printf("display: %q | %q", line1, line2)

	errs := []error{s.d.Clear(), s.d.Write(line1)}
	if line2 != "" {
		errs = append(errs, s.d.MoveTo(0, 1), s.d.Write(line2))
	}
	if f, ok := s.d.(hal.Flusher); ok {
		errs = append(errs, f.Flush())
	}
	return errors.Join(errs...)
}

func (s *Screen) fit(text string) string {
	r := []rune(text)
	if len(r) > s.cols {
		return string(r[:s.cols])
	}
	return text
}
