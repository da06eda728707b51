package mqtt

import (
	"sync"

	"github.com/sweeney/pir-stairs/internal/stairs"
)

// PresetCall records one ApplyPreset call.
type PresetCall struct {
	ID   uint8
	Mode stairs.CallMode
}

// FakePublisher records published messages for test assertions.
// It is safe for concurrent use so the event dispatcher can share it.
type FakePublisher struct {
	mu sync.Mutex

	// Presets contains every applied preset.
	Presets []PresetCall

	// Events contains all trigger events that were published.
	Events []stairs.TriggerEvent

	// Payloads contains the JSON payloads that were published.
	Payloads [][]byte

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// ApplyError, if set, will be returned by ApplyPreset.
	ApplyError error

	// PublishError, if set, will be returned by Publish.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool

	// Updating controls the return value of IsUpdating.
	Updating bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// ApplyPreset records the preset call.
func (f *FakePublisher) ApplyPreset(id uint8, mode stairs.CallMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ApplyError != nil {
		return f.ApplyError
	}
	f.Presets = append(f.Presets, PresetCall{ID: id, Mode: mode})
	return nil
}

// Publish records the trigger event.
func (f *FakePublisher) Publish(event stairs.TriggerEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}

	payload, err := FormatPayload(event)
	if err != nil {
		return err
	}
	f.Events = append(f.Events, event)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// IsUpdating reports the scripted busy state.
func (f *FakePublisher) IsUpdating() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Updating
}

// SetUpdating changes the busy state.
func (f *FakePublisher) SetUpdating(v bool) {
	f.mu.Lock()
	f.Updating = v
	f.mu.Unlock()
}

// Snapshot returns copies of the recorded presets, events and system events.
func (f *FakePublisher) Snapshot() ([]PresetCall, []stairs.TriggerEvent, []SystemEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]PresetCall(nil), f.Presets...),
		append([]stairs.TriggerEvent(nil), f.Events...),
		append([]SystemEvent(nil), f.SystemEvents...)
}

// Reset clears recorded messages and injected errors.
func (f *FakePublisher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Presets = nil
	f.Events = nil
	f.Payloads = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Closed = false
	f.ApplyError = nil
	f.PublishError = nil
	f.PublishSystemError = nil
	f.Connected = false
	f.Updating = false
}
