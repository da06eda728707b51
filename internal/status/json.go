package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event              string           `json:"event,omitempty"`
	Reason             string           `json:"reason,omitempty"`
	State              string           `json:"state"`
	LockoutRemainingMs int64            `json:"lockout_remaining_ms"`
	UptimeSeconds      int64            `json:"uptime_seconds"`
	StartTime          string           `json:"start_time"`
	Timestamp          string           `json:"timestamp"`
	MQTT               MQTTStatus       `json:"mqtt"`
	Stairs             StairsJSON       `json:"stairs"`
	Counts             CountsJSON       `json:"counts"`
	LastTrigger        *LastTriggerJSON `json:"last_trigger,omitempty"`
	Config             ConfigJSON       `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// StairsJSON is the controller configuration.
type StairsJSON struct {
	PinUp      int8   `json:"pin_up"`
	PresetUp   uint8  `json:"preset_up"`
	PinDown    int8   `json:"pin_down"`
	PresetDown uint8  `json:"preset_down"`
	LockoutSec uint16 `json:"lockout_sec"`
}

// CountsJSON is the JSON representation of trigger and fault counts.
type CountsJSON struct {
	Up           int `json:"up"`
	Down         int `json:"down"`
	ReadErrors   int `json:"read_errors"`
	PresetErrors int `json:"preset_errors"`
}

// LastTriggerJSON describes the most recent accepted trigger.
type LastTriggerJSON struct {
	Timestamp string `json:"timestamp"`
	Direction string `json:"direction"`
	Pin       int8   `json:"pin"`
	Preset    uint8  `json:"preset"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs      int64  `json:"poll_ms"`
	Broker      string `json:"broker"`
	WLEDTopic   string `json:"wled_topic"`
	HTTPAddr    string `json:"http_addr"`
	GPIOBackend string `json:"gpio_backend"`
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		State:              string(snap.State),
		LockoutRemainingMs: snap.LockoutRemaining.Milliseconds(),
		UptimeSeconds:      int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:          snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:          snap.Now.UTC().Format(time.RFC3339),
		MQTT:               MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Stairs: StairsJSON{
			PinUp:      snap.Stairs.PinUp,
			PresetUp:   snap.Stairs.PresetUp,
			PinDown:    snap.Stairs.PinDown,
			PresetDown: snap.Stairs.PresetDown,
			LockoutSec: snap.Stairs.LockoutSec,
		},
		Counts: CountsJSON{
			Up:           snap.Counts.Up,
			Down:         snap.Counts.Down,
			ReadErrors:   snap.Counts.ReadErrors,
			PresetErrors: snap.Counts.PresetErrors,
		},
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			Broker:      snap.Config.Broker,
			WLEDTopic:   snap.Config.WLEDTopic,
			HTTPAddr:    snap.Config.HTTPAddr,
			GPIOBackend: snap.Config.GPIOBackend,
		},
	}

	if ev := snap.LastTrigger; ev != nil {
		inner.LastTrigger = &LastTriggerJSON{
			Timestamp: ev.Time.UTC().Format(time.RFC3339),
			Direction: string(ev.Direction),
			Pin:       ev.Pin,
			Preset:    ev.PresetID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
