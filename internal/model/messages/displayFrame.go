package messages

import "time"

// DisplayFrame is published by the MQTT virtual panel each time the screen is flushed.
type DisplayFrame struct {
	Lines     []string  `json:"lines"`
	Timestamp time.Time `json:"timestamp"`
}
