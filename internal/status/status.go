// Package status provides a thread-safe status tracker for the pir-stairs daemon.
// It is written from the run loop and read by HTTP handlers and MQTT system events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/pir-stairs/internal/stairs"
)

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	Broker      string
	WLEDTopic   string
	HTTPAddr    string
	GPIOBackend string
}

// Counts tracks accepted triggers and faults since startup.
type Counts struct {
	Up           int
	Down         int
	ReadErrors   int
	PresetErrors int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Stairs           stairs.Config
	State            stairs.State
	LockoutRemaining time.Duration
	LastTrigger      *stairs.TriggerEvent
	Counts           Counts
	StartTime        time.Time
	Now              time.Time
	MQTTConnected    bool
	Config           Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu        sync.RWMutex
	snap      Snapshot
	moduleCfg []byte
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Stairs:    stairs.DefaultConfig(),
			State:     stairs.StateIdle,
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update sets the controller configuration and lockout state.
// Called from the run loop on every tick.
func (t *Tracker) Update(cfg stairs.Config, state stairs.State, lockoutRemaining time.Duration) {
	t.mu.Lock()
	t.snap.Stairs = cfg
	t.snap.State = state
	t.snap.LockoutRemaining = lockoutRemaining
	t.mu.Unlock()
}

// RecordTrigger stores event as the last trigger and counts it.
func (t *Tracker) RecordTrigger(event stairs.TriggerEvent) {
	t.mu.Lock()
	t.snap.LastTrigger = &event
	switch event.Direction {
	case stairs.DirectionUp:
		t.snap.Counts.Up++
	case stairs.DirectionDown:
		t.snap.Counts.Down++
	}
	t.mu.Unlock()
}

// RecordReadError counts a failed sensor read.
func (t *Tracker) RecordReadError() {
	t.mu.Lock()
	t.snap.Counts.ReadErrors++
	t.mu.Unlock()
}

// RecordPresetError counts a failed preset command.
func (t *Tracker) RecordPresetError() {
	t.mu.Lock()
	t.snap.Counts.PresetErrors++
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetModuleConfig stores the exported module config tree as JSON.
// The run loop refreshes it after every load so HTTP readers never touch
// the modules directly.
func (t *Tracker) SetModuleConfig(data []byte) {
	t.mu.Lock()
	t.moduleCfg = append([]byte(nil), data...)
	t.mu.Unlock()
}

// ModuleConfig returns the last stored module config tree, or nil.
func (t *Tracker) ModuleConfig() []byte {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.moduleCfg == nil {
		return nil
	}
	return append([]byte(nil), t.moduleCfg...)
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	if s.LastTrigger != nil {
		ev := *s.LastTrigger
		s.LastTrigger = &ev
	}
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
