package irrigation_controller

import (
	"fmt"
	"sync"

	"github.com/LeonardoBeccarini/pot_irrigation/internal/hal"
	"github.com/LeonardoBeccarini/pot_irrigation/internal/model"
)

// KeyOwner hands the keypad to one mode at a time.
type KeyOwner struct {
	mu    sync.Mutex
	kp    hal.Keypad
	owner *KeyLease
}

func NewKeyOwner(kp hal.Keypad) *KeyOwner { return &KeyOwner{kp: kp} }

// KeyLease is the right to poll the keypad, held by a single mode.
type KeyLease struct {
	o    *KeyOwner
	mode model.Mode
}

// Acquire gives the keypad to mode. Presses buffered while nobody was
// listening are dropped. Acquiring while another lease is live is a bug in
// the caller and panics.
func (o *KeyOwner) Acquire(mode model.Mode) *KeyLease {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.owner != nil {
		panic(fmt.Sprintf("keypad: %s acquired input while %s still owns it", mode, o.owner.mode))
	}
	if f, ok := o.kp.(hal.KeyFlusher); ok {
		f.Flush()
	}
	o.owner = &KeyLease{o: o, mode: mode}
	return o.owner
}

// Poll returns the next key without blocking. A released lease sees nothing.
func (l *KeyLease) Poll() (rune, bool) {
	l.o.mu.Lock()
	defer l.o.mu.Unlock()
	if l.o.owner != l {
		return 0, false
	}
	return l.o.kp.Poll()
}

func (l *KeyLease) Release() {
	l.o.mu.Lock()
	defer l.o.mu.Unlock()
	if l.o.owner == l {
		l.o.owner = nil
	}
}
