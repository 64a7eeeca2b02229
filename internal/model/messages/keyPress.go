package messages

// KeyPress is what a remote panel sends when a key is pressed.
// ID is optional; when present it is used to drop QoS1 redeliveries.
type KeyPress struct {
	ID  string `json:"id,omitempty"`
	Key string `json:"key"`
}
