package metrics

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/LeonardoBeccarini/pot_irrigation/internal/model"
)

// Health tracks the control loop heartbeat. The loop beats on every tick, so
// a stale heartbeat means it is wedged.
type Health struct {
	mu       sync.RWMutex
	lastBeat time.Time
	mode     model.Mode
	stale    time.Duration
	now      func() time.Time
}

func NewHealth(staleAfter time.Duration, now func() time.Time) *Health {
	if now == nil {
		now = time.Now
	}
	return &Health{stale: staleAfter, now: now}
}

// Beat records that the loop is alive in mode.
func (h *Health) Beat(mode model.Mode) {
	if h == nil {
		return
	}
	h.mu.Lock()
	h.lastBeat = h.now()
	h.mode = mode
	h.mu.Unlock()
}

func (h *Health) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	type status struct {
		Status         string  `json:"status"`
		Mode           string  `json:"mode,omitempty"`
		LastTickAgeSec float64 `json:"last_tick_age_sec"`
	}
	h.mu.RLock()
	last, mode := h.lastBeat, h.mode
	h.mu.RUnlock()

	var st status
	switch {
	case last.IsZero():
		st.Status = "starting"
	case h.now().Sub(last) > h.stale:
		st.Status = "stalled"
		st.Mode = mode.String()
		st.LastTickAgeSec = h.now().Sub(last).Seconds()
	default:
		st.Status = "ok"
		st.Mode = mode.String()
		st.LastTickAgeSec = h.now().Sub(last).Seconds()
	}

	w.Header().Set("Content-Type", "application/json")
	if st.Status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(st)
}
