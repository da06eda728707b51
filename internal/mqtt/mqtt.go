// Package mqtt drives the LED controller over MQTT and publishes trigger and
// lifecycle events, with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/pir-stairs/internal/stairs"
)

// TopicEvents is the MQTT topic for trigger events.
const TopicEvents = "home/stairs/pir/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "home/stairs/pir/system"

// APISuffix is appended to the WLED device topic to reach its JSON API.
const APISuffix = "/api"

// Publisher applies presets and publishes events.
type Publisher interface {
	// ApplyPreset asks the LED controller to run preset id. It must not block.
	ApplyPreset(id uint8, mode stairs.CallMode) error

	// Publish sends a trigger event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event stairs.TriggerEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, reload).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "RELOAD"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// PresetCommand is the WLED JSON API body that applies a preset.
type PresetCommand struct {
	Preset uint8 `json:"ps"`
}

// FormatPresetCommand creates the JSON body for applying preset id.
func FormatPresetCommand(id uint8) ([]byte, error) {
	return json.Marshal(PresetCommand{Preset: id})
}

// Payload represents the trigger event message.
type Payload struct {
	Trigger TriggerPayload `json:"trigger"`
}

// TriggerPayload contains the trigger details.
type TriggerPayload struct {
	Timestamp string `json:"timestamp"`
	Direction string `json:"direction"`
	Pin       int8   `json:"pin"`
	Preset    uint8  `json:"preset"`
}

// FormatPayload creates the JSON payload for a trigger event.
func FormatPayload(event stairs.TriggerEvent) ([]byte, error) {
	payload := Payload{
		Trigger: TriggerPayload{
			Timestamp: event.Time.UTC().Format(time.RFC3339),
			Direction: string(event.Direction),
			Pin:       event.Pin,
			Preset:    event.PresetID,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
