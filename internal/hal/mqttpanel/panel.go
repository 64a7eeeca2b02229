// Package mqttpanel is a virtual front panel over MQTT: every rendered screen
// is published as a retained frame and key presses arrive on a topic.
package mqttpanel

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/LeonardoBeccarini/pot_irrigation/internal/hal/sim"
	"github.com/LeonardoBeccarini/pot_irrigation/internal/model/messages"
	"github.com/LeonardoBeccarini/pot_irrigation/pkg/broker"
	"github.com/LeonardoBeccarini/pot_irrigation/pkg/dedup"
)

const validKeys = "0123456789ABCD*#"

func DisplayTopic(prefix string) string { return prefix + "/display" }
func KeysTopic(prefix string) string { return prefix + "/keys" }

// Display buffers writes and publishes the whole screen on Flush.
type Display struct {
	*sim.MemoryDisplay
	pub   broker.IPublisher
	topic string
}

func NewDisplay(pub broker.IPublisher, prefix string, cols, rows int) *Display {
	return &Display{MemoryDisplay: sim.NewMemoryDisplay(cols, rows), pub: pub, topic: DisplayTopic(prefix)}
}

func (d *Display) Flush() error {
	if err := d.MemoryDisplay.Flush(); err != nil {
		return err
	}
	frame := messages.DisplayFrame{Lines: d.Lines(), Timestamp: time.Now()}
	b, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal display frame: %w", err)
	}
	return d.pub.Publish(d.topic, 1, true, string(b))
}

// Keypad queues presses received on the keys topic.
type Keypad struct {
	keys chan rune
	seen *dedup.Deduper
}

func NewKeypad() *Keypad {
	return &Keypad{keys: make(chan rune, 32), seen: dedup.New(10*time.Minute, 1000)}
}

// Subscribe wires the keypad to the keys topic under prefix.
func (k *Keypad) Subscribe(ctx context.Context, client mqtt.Client, prefix string) error {
	c := broker.NewConsumer(client, KeysTopic(prefix), 1, k.HandleMessage)
	return c.Subscribe(ctx)
}

func (k *Keypad) HandleMessage(_ string, message mqtt.Message) error {
	return k.handlePayload(message.Payload())
}

// handlePayload accepts either a KeyPress JSON object or a bare key such as "1".
func (k *Keypad) handlePayload(payload []byte) error {
	raw := strings.TrimSpace(string(payload))
	var press messages.KeyPress
	if strings.HasPrefix(raw, "{") {
		if err := json.Unmarshal([]byte(raw), &press); err != nil {
			return fmt.Errorf("decode key press: %w", err)
		}
	} else {
		press.Key = raw
	}
	if !k.seen.ShouldProcess(press.ID) {
		log.Printf("panel: duplicate key press %s dropped", press.ID)
		return nil
	}
	key := strings.ToUpper(strings.TrimSpace(press.Key))
	r, size := utf8.DecodeRuneInString(key)
	if size == 0 || size != len(key) || !strings.ContainsRune(validKeys, r) {
		return fmt.Errorf("invalid key %q", press.Key)
	}
	select {
	case k.keys <- r:
	default:
		log.Printf("panel: key buffer full, %q dropped", r)
	}
	return nil
}

func (k *Keypad) Poll() (rune, bool) {
	select {
	case r := <-k.keys:
		return r, true
	default:
		return 0, false
	}
}

func (k *Keypad) Flush() {
	for {
		select {
		case <-k.keys:
		default:
			return
		}
	}
}
