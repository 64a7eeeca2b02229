package sim

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/LeonardoBeccarini/pot_irrigation/internal/clock"
)

const validKeys = "0123456789ABCD*#"

// KeyStep is a key that becomes available At after the keypad was created.
type KeyStep struct {
	At  time.Duration
	Key rune
}

// ScriptKeypad replays a fixed key script against a clock.
type ScriptKeypad struct {
	mu    sync.Mutex
	clk   clock.Clock
	start time.Time
	steps []KeyStep
}

// NewScriptKeypad takes steps in chronological order.
func NewScriptKeypad(clk clock.Clock, steps ...KeyStep) *ScriptKeypad {
	return &ScriptKeypad{clk: clk, start: clk.Now(), steps: steps}
}

func (k *ScriptKeypad) Poll() (rune, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if len(k.steps) == 0 || k.clk.Now().Sub(k.start) < k.steps[0].At {
		return 0, false
	}
	key := k.steps[0].Key
	k.steps = k.steps[1:]
	return key, true
}

// Flush drops every key that is already due.
func (k *ScriptKeypad) Flush() {
	k.mu.Lock()
	defer k.mu.Unlock()
	elapsed := k.clk.Now().Sub(k.start)
	for len(k.steps) > 0 && k.steps[0].At <= elapsed {
		k.steps = k.steps[1:]
	}
}

// Remaining reports how many scripted keys were never delivered or flushed.
func (k *ScriptKeypad) Remaining() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.steps)
}

// ReaderKeypad turns characters read from r (typically stdin) into key presses.
type ReaderKeypad struct {
	keys chan rune
}

// NewReaderKeypad starts reading r until ctx is done or r is exhausted.
func NewReaderKeypad(ctx context.Context, r io.Reader) *ReaderKeypad {
	k := &ReaderKeypad{keys: make(chan rune, 32)}
	go k.read(ctx, bufio.NewReader(r))
	return k
}

func (k *ReaderKeypad) read(ctx context.Context, r *bufio.Reader) {
	for ctx.Err() == nil {
		ch, _, err := r.ReadRune()
		if err != nil {
			return
		}
		ch = unicode.ToUpper(ch)
		if !strings.ContainsRune(validKeys, ch) {
			continue
		}
		select {
		case k.keys <- ch:
		default:
			// buffer full: the operator is typing faster than the loop polls
		}
	}
}

func (k *ReaderKeypad) Poll() (rune, bool) {
	select {
	case ch := <-k.keys:
		return ch, true
	default:
		return 0, false
	}
}

func (k *ReaderKeypad) Flush() {
	for {
		select {
		case <-k.keys:
		default:
			return
		}
	}
}
