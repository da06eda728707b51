package status

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/pir-stairs/internal/stairs"
)

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{PollMs: 50, Broker: "tcp://localhost:1883", HTTPAddr: ":8080"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.PollMs != 50 {
		t.Errorf("Config.PollMs: got %d, want 50", snap.Config.PollMs)
	}
	if snap.State != stairs.StateIdle {
		t.Errorf("expected IDLE initially, got %s", snap.State)
	}
	if snap.Stairs != stairs.DefaultConfig() {
		t.Errorf("expected default stairs config, got %+v", snap.Stairs)
	}
	if snap.LastTrigger != nil {
		t.Error("expected no last trigger initially")
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	cfg := stairs.Config{PinUp: 4, PresetUp: 3, PinDown: 5, PresetDown: 7, LockoutSec: 15}

	tr.Update(cfg, stairs.StateArmed, 0)

	snap := tr.Snapshot()
	if snap.Stairs != cfg {
		t.Errorf("Stairs: got %+v, want %+v", snap.Stairs, cfg)
	}
	if snap.State != stairs.StateArmed {
		t.Errorf("State: got %s, want ARMED", snap.State)
	}
}

func TestRecordTrigger(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tr.RecordTrigger(stairs.TriggerEvent{Time: at, Direction: stairs.DirectionUp, Pin: 4, PresetID: 3})
	tr.RecordTrigger(stairs.TriggerEvent{Time: at.Add(time.Minute), Direction: stairs.DirectionDown, Pin: 5, PresetID: 7})
	tr.RecordTrigger(stairs.TriggerEvent{Time: at.Add(2 * time.Minute), Direction: stairs.DirectionDown, Pin: 5, PresetID: 7})

	snap := tr.Snapshot()
	if snap.Counts.Up != 1 || snap.Counts.Down != 2 {
		t.Errorf("Counts: got up=%d down=%d, want 1/2", snap.Counts.Up, snap.Counts.Down)
	}
	if snap.LastTrigger == nil || !snap.LastTrigger.Time.Equal(at.Add(2*time.Minute)) {
		t.Errorf("unexpected last trigger: %+v", snap.LastTrigger)
	}
}

func TestRecordErrors(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.RecordReadError()
	tr.RecordReadError()
	tr.RecordPresetError()

	snap := tr.Snapshot()
	if snap.Counts.ReadErrors != 2 {
		t.Errorf("ReadErrors: got %d, want 2", snap.Counts.ReadErrors)
	}
	if snap.Counts.PresetErrors != 1 {
		t.Errorf("PresetErrors: got %d, want 1", snap.Counts.PresetErrors)
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestModuleConfig(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	if tr.ModuleConfig() != nil {
		t.Error("expected nil module config initially")
	}

	data := []byte(`{"PIR Stairs":{"pinUp":4}}`)
	tr.SetModuleConfig(data)
	data[0] = 'X'

	got := tr.ModuleConfig()
	if string(got) != `{"PIR Stairs":{"pinUp":4}}` {
		t.Errorf("unexpected module config: %s", got)
	}
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
	}

	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestSnapshotNowIsSet(t *testing.T) {
	tr := NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Config{})

	before := time.Now()
	snap := tr.Snapshot()
	after := time.Now()

	if snap.Now.Before(before) || snap.Now.After(after) {
		t.Errorf("Now (%v) not between %v and %v", snap.Now, before, after)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.RecordTrigger(stairs.TriggerEvent{Direction: stairs.DirectionUp, PresetID: 3})

	snap1 := tr.Snapshot()
	snap1.LastTrigger.PresetID = 99

	tr.RecordTrigger(stairs.TriggerEvent{Direction: stairs.DirectionDown, PresetID: 7})

	if snap1.Counts.Up != 1 || snap1.Counts.Down != 0 {
		t.Error("snapshot should be a copy; counts were modified")
	}
	if got := tr.Snapshot().LastTrigger.PresetID; got != 7 {
		t.Errorf("tracker last trigger: got %d, want 7", got)
	}
}

func testSnapshot() Snapshot {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return Snapshot{
		Stairs:           stairs.Config{PinUp: 4, PresetUp: 3, PinDown: 5, PresetDown: 7, LockoutSec: 15},
		State:            stairs.StateIdle,
		LockoutRemaining: 9500 * time.Millisecond,
		LastTrigger: &stairs.TriggerEvent{
			Time:      start.Add(time.Hour),
			Direction: stairs.DirectionUp,
			Pin:       4,
			PresetID:  3,
		},
		Counts:        Counts{Up: 2, Down: 1},
		StartTime:     start,
		Now:           start.Add(time.Hour + 5500*time.Millisecond),
		MQTTConnected: true,
		Config: Config{
			PollMs:      50,
			Broker:      "tcp://192.168.1.200:1883",
			WLEDTopic:   "wled/stairs",
			HTTPAddr:    ":8080",
			GPIOBackend: "cdev",
		},
	}
}

func TestFormatJSON(t *testing.T) {
	data := FormatJSON(testSnapshot())

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	s := parsed.Status
	if s.State != "IDLE" {
		t.Errorf("State: got %q, want IDLE", s.State)
	}
	if s.LockoutRemainingMs != 9500 {
		t.Errorf("LockoutRemainingMs: got %d, want 9500", s.LockoutRemainingMs)
	}
	if s.UptimeSeconds != 3605 {
		t.Errorf("UptimeSeconds: got %d, want 3605", s.UptimeSeconds)
	}
	if s.StartTime != "2026-01-01T00:00:00Z" {
		t.Errorf("StartTime: got %q", s.StartTime)
	}
	if !s.MQTT.Connected || s.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("MQTT: got %+v", s.MQTT)
	}
	if s.Stairs.PinUp != 4 || s.Stairs.PresetDown != 7 || s.Stairs.LockoutSec != 15 {
		t.Errorf("Stairs: got %+v", s.Stairs)
	}
	if s.Counts.Up != 2 || s.Counts.Down != 1 {
		t.Errorf("Counts: got %+v", s.Counts)
	}
	if s.LastTrigger == nil || s.LastTrigger.Direction != "UP" || s.LastTrigger.Preset != 3 {
		t.Errorf("LastTrigger: got %+v", s.LastTrigger)
	}
	if s.Config.WLEDTopic != "wled/stairs" || s.Config.GPIOBackend != "cdev" {
		t.Errorf("Config: got %+v", s.Config)
	}
	if s.Event != "" || s.Reason != "" {
		t.Error("web JSON should not carry event/reason")
	}
}

func TestFormatJSONNoTrigger(t *testing.T) {
	snap := testSnapshot()
	snap.LastTrigger = nil

	data := FormatJSON(snap)
	if strings.Contains(string(data), "last_trigger") {
		t.Errorf("expected last_trigger omitted, got %s", data)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	data := FormatStatusEvent(testSnapshot(), "SHUTDOWN", "SIGTERM")

	if strings.Contains(string(data), "\n") {
		t.Error("status event should be compact JSON")
	}

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Event != "SHUTDOWN" {
		t.Errorf("Event: got %q, want SHUTDOWN", parsed.Status.Event)
	}
	if parsed.Status.Reason != "SIGTERM" {
		t.Errorf("Reason: got %q, want SIGTERM", parsed.Status.Reason)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	data := FormatStatusEvent(testSnapshot(), "STARTUP", "")

	var raw map[string]map[string]any
	json.Unmarshal(data, &raw)
	if _, ok := raw["status"]["reason"]; ok {
		t.Error("expected reason omitted")
	}
	if raw["status"]["event"] != "STARTUP" {
		t.Errorf("event: got %v", raw["status"]["event"])
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	// Writer
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.Update(stairs.DefaultConfig(), stairs.StateArmed, 0)
			tr.RecordTrigger(stairs.TriggerEvent{Direction: stairs.DirectionUp})
			tr.SetMQTTConnected(i%2 == 0)
		}
	}()

	// Reader
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = FormatJSON(snap)
		}
	}()

	wg.Wait()
}
