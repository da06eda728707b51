package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/pir-stairs/internal/stairs"
)

func TestFormatPayload(t *testing.T) {
	event := stairs.TriggerEvent{
		Time:      time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		Direction: stairs.DirectionUp,
		Pin:       4,
		PresetID:  3,
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Trigger.Timestamp != "2026-02-02T22:18:12Z" {
		t.Errorf("unexpected timestamp: %s", parsed.Trigger.Timestamp)
	}
	if parsed.Trigger.Direction != "UP" {
		t.Errorf("unexpected direction: %s", parsed.Trigger.Direction)
	}
	if parsed.Trigger.Pin != 4 {
		t.Errorf("unexpected pin: %d", parsed.Trigger.Pin)
	}
	if parsed.Trigger.Preset != 3 {
		t.Errorf("unexpected preset: %d", parsed.Trigger.Preset)
	}
}

func TestFormatPayloadExactJSON(t *testing.T) {
	event := stairs.TriggerEvent{
		Time:      time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		Direction: stairs.DirectionDown,
		Pin:       5,
		PresetID:  7,
	}

	payload, _ := FormatPayload(event)
	want := `{"trigger":{"timestamp":"2026-02-02T22:18:12Z","direction":"DOWN","pin":5,"preset":7}}`
	if string(payload) != want {
		t.Errorf("payload:\n got  %s\n want %s", payload, want)
	}
}

func TestFormatPayloadTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	event := stairs.TriggerEvent{
		Time:      time.Date(2026, 2, 2, 23, 0, 0, 0, loc),
		Direction: stairs.DirectionUp,
		PresetID:  1,
	}

	payload, _ := FormatPayload(event)
	var parsed Payload
	json.Unmarshal(payload, &parsed)

	if parsed.Trigger.Timestamp != "2026-02-02T22:00:00Z" {
		t.Errorf("expected UTC timestamp, got %s", parsed.Trigger.Timestamp)
	}
}

func TestFormatPresetCommand(t *testing.T) {
	data, err := FormatPresetCommand(12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `{"ps":12}` {
		t.Errorf("unexpected command: %s", data)
	}
}

func TestTopics(t *testing.T) {
	if TopicEvents != "home/stairs/pir/events" {
		t.Errorf("unexpected events topic: %s", TopicEvents)
	}
	if TopicSystem != "home/stairs/pir/system" {
		t.Errorf("unexpected system topic: %s", TopicSystem)
	}
	if APISuffix != "/api" {
		t.Errorf("unexpected api suffix: %s", APISuffix)
	}
}

func TestFormatSystemPayload(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `{"system":{"timestamp":"2026-02-03T10:00:00Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(payload) != want {
		t.Errorf("payload:\n got  %s\n want %s", payload, want)
	}
}

func TestFormatSystemPayloadOmitsEmptyReason(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC),
		Event:     "LWT",
	}

	payload, _ := FormatSystemPayload(event)
	var raw map[string]map[string]any
	json.Unmarshal(payload, &raw)

	if _, ok := raw["system"]["reason"]; ok {
		t.Error("expected reason to be omitted")
	}
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"status":{"event":"STARTUP"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "STARTUP", RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("expected raw payload passthrough, got %s", payload)
	}
}

func TestFakePublisherApplyPreset(t *testing.T) {
	f := NewFakePublisher()

	if err := f.ApplyPreset(3, stairs.CallModeButton); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	presets, _, _ := f.Snapshot()
	if len(presets) != 1 || presets[0].ID != 3 || presets[0].Mode != stairs.CallModeButton {
		t.Errorf("unexpected presets: %+v", presets)
	}

	f.ApplyError = errors.New("no route")
	if err := f.ApplyPreset(4, stairs.CallModeButton); err == nil {
		t.Error("expected error")
	}
	if len(f.Presets) != 1 {
		t.Errorf("failed apply should not be recorded, got %d", len(f.Presets))
	}
}

func TestFakePublisherPublish(t *testing.T) {
	f := NewFakePublisher()

	event := stairs.TriggerEvent{Time: time.Now(), Direction: stairs.DirectionDown, Pin: 5, PresetID: 7}
	if err := f.Publish(event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.Events) != 1 || f.Events[0].PresetID != 7 {
		t.Fatalf("unexpected events: %+v", f.Events)
	}
	if len(f.Payloads) != 1 {
		t.Fatalf("expected 1 payload, got %d", len(f.Payloads))
	}
}

func TestFakePublisherErrors(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("publish failed")
	f.PublishSystemError = errors.New("system failed")

	if err := f.Publish(stairs.TriggerEvent{}); err == nil {
		t.Error("expected publish error")
	}
	if err := f.PublishSystem(SystemEvent{Event: "STARTUP"}); err == nil {
		t.Error("expected publish system error")
	}
	if len(f.Events) != 0 || len(f.SystemEvents) != 0 {
		t.Error("failed publishes should not be recorded")
	}
}

func TestFakePublisherPublishSystem(t *testing.T) {
	f := NewFakePublisher()

	event := SystemEvent{Timestamp: time.Now(), Event: "STARTUP", Retained: true}
	if err := f.PublishSystem(event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, _, sys := f.Snapshot()
	if len(sys) != 1 || sys[0].Event != "STARTUP" || !sys[0].Retained {
		t.Errorf("unexpected system events: %+v", sys)
	}
	if len(f.SystemPayloads) != 1 {
		t.Errorf("expected 1 system payload, got %d", len(f.SystemPayloads))
	}
}

func TestFakePublisherUpdating(t *testing.T) {
	f := NewFakePublisher()
	if f.IsUpdating() {
		t.Error("should not be updating initially")
	}
	f.SetUpdating(true)
	if !f.IsUpdating() {
		t.Error("expected updating after SetUpdating(true)")
	}
}

func TestFakePublisherReset(t *testing.T) {
	f := NewFakePublisher()
	f.ApplyPreset(1, stairs.CallModeButton)
	f.Publish(stairs.TriggerEvent{})
	f.PublishSystem(SystemEvent{Event: "STARTUP"})
	f.Close()
	f.Connected = true
	f.Updating = true
	f.ApplyError = errors.New("x")

	f.Reset()

	if len(f.Presets) != 0 || len(f.Events) != 0 || len(f.SystemEvents) != 0 {
		t.Error("expected recordings cleared")
	}
	if f.Closed || f.Connected || f.Updating || f.ApplyError != nil {
		t.Error("expected flags and errors cleared")
	}

	// Reusable after reset
	if err := f.ApplyPreset(2, stairs.CallModeButton); err != nil {
		t.Errorf("unexpected error after reset: %v", err)
	}
}

func TestFakePublisherImplementsInterfaces(t *testing.T) {
	var _ Publisher = NewFakePublisher()
	var _ ConnectionStatus = NewFakePublisher()
	var _ stairs.PresetRunner = NewFakePublisher()
	var _ stairs.Busy = NewFakePublisher()
}
