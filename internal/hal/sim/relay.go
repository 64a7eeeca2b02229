package sim

import (
	"log"
	"sync"
)

// Relay remembers the last commanded state.
type Relay struct {
	mu     sync.Mutex
	on     bool
	writes int
}

func (r *Relay) Write(on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.on != on {
		log.Printf("sim: relay %s", map[bool]string{true: "ON", false: "OFF"}[on])
	}
	r.on = on
	r.writes++
	return nil
}

func (r *Relay) On() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.on
}

// Writes counts every Write call, repeated states included.
func (r *Relay) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}
