// Package sim holds in-process stand-ins for the pot hardware: a relay that
// remembers its state, text displays and scripted or stdin keypads.
package sim

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// grid is a fixed-size character buffer with a cursor, as on an HD44780.
type grid struct {
	cols, rows int
	cells      [][]rune
	col, row   int
}

func newGrid(cols, rows int) grid {
	g := grid{cols: cols, rows: rows}
	g.clear()
	return g
}

func (g *grid) clear() {
	g.cells = make([][]rune, g.rows)
	for i := range g.cells {
		g.cells[i] = []rune(strings.Repeat(" ", g.cols))
	}
	g.col, g.row = 0, 0
}

func (g *grid) moveTo(col, row int) error {
	if col < 0 || col >= g.cols || row < 0 || row >= g.rows {
		return fmt.Errorf("cursor %d,%d outside %dx%d", col, row, g.cols, g.rows)
	}
	g.col, g.row = col, row
	return nil
}

func (g *grid) write(text string) {
	for _, r := range text {
		if g.col >= g.cols {
			return
		}
		g.cells[g.row][g.col] = r
		g.col++
	}
}

func (g *grid) lines() []string {
	out := make([]string, g.rows)
	for i, row := range g.cells {
		out[i] = strings.TrimRight(string(row), " ")
	}
	return out
}

// MemoryDisplay keeps the screen in memory and records every flushed frame.
type MemoryDisplay struct {
	mu     sync.Mutex
	g      grid
	frames [][]string
}

func NewMemoryDisplay(cols, rows int) *MemoryDisplay {
	return &MemoryDisplay{g: newGrid(cols, rows)}
}

func (d *MemoryDisplay) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.g.clear()
	return nil
}

func (d *MemoryDisplay) Write(text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.g.write(text)
	return nil
}

func (d *MemoryDisplay) MoveTo(col, row int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.g.moveTo(col, row)
}

func (d *MemoryDisplay) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frames = append(d.frames, d.g.lines())
	return nil
}

// Lines returns the current screen content, trailing blanks trimmed.
func (d *MemoryDisplay) Lines() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.g.lines()
}

// Frames returns every flushed screen, oldest first.
func (d *MemoryDisplay) Frames() [][]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([][]string, len(d.frames))
	copy(out, d.frames)
	return out
}

// ConsoleDisplay draws each flushed frame as a box on w.
type ConsoleDisplay struct {
	mu sync.Mutex
	w  io.Writer
	g  grid
}

func NewConsoleDisplay(w io.Writer, cols, rows int) *ConsoleDisplay {
	return &ConsoleDisplay{w: w, g: newGrid(cols, rows)}
}

func (d *ConsoleDisplay) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.g.clear()
	return nil
}

func (d *ConsoleDisplay) Write(text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.g.write(text)
	return nil
}

func (d *ConsoleDisplay) MoveTo(col, row int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.g.moveTo(col, row)
}

func (d *ConsoleDisplay) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	border := "+" + strings.Repeat("-", d.g.cols) + "+\n"
	var b strings.Builder
	b.WriteString(border)
	for _, row := range d.g.cells {
		b.WriteString("|" + string(row) + "|\n")
	}
	b.WriteString(border)
	_, err := io.WriteString(d.w, b.String())
	return err
}
