// Package stairs contains the motion trigger logic for a two-sensor staircase.
// The Controller has NO external dependencies (no GPIO library, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package stairs

import "time"

// Sentinel values for unconfigured pins and presets.
const (
	NoPin    int8  = -1
	NoPreset uint8 = 0
)

// DefaultLockoutSec is the lockout applied before any configuration is loaded.
const DefaultLockoutSec uint16 = 15

// Direction identifies which sensor caused a trigger.
type Direction string

const (
	DirectionUp   Direction = "UP"
	DirectionDown Direction = "DOWN"
)

// State is the controller state with respect to the lockout window.
type State string

const (
	StateIdle  State = "IDLE"
	StateArmed State = "ARMED"
)

// Pins is the host's pin abstraction as seen by the controller.
type Pins interface {
	// Input configures pin as a digital input.
	Input(pin int) error

	// Read returns true if pin is logically HIGH.
	Read(pin int) (bool, error)
}

// PinReleaser is implemented by pin backends that hold a handle per pin.
// The controller releases pins that a reconfiguration no longer uses.
type PinReleaser interface {
	Release(pin int) error
}

// Config is a full configuration snapshot.
type Config struct {
	PinUp      int8
	PresetUp   uint8
	PinDown    int8
	PresetDown uint8
	LockoutSec uint16
}

// DefaultConfig returns the construction-time defaults: both directions
// disabled and a 15 second lockout.
func DefaultConfig() Config {
	return Config{
		PinUp:      NoPin,
		PresetUp:   NoPreset,
		PinDown:    NoPin,
		PresetDown: NoPreset,
		LockoutSec: DefaultLockoutSec,
	}
}

// Lockout returns the lockout window as a duration.
func (c Config) Lockout() time.Duration {
	return time.Duration(c.LockoutSec) * time.Second
}

// Options is a partial configuration. Nil fields keep the current value.
// The JSON tags match the persisted host schema.
type Options struct {
	PinUp      *int8   `json:"pinUp,omitempty"`
	PresetUp   *uint8  `json:"presetUp,omitempty"`
	PinDown    *int8   `json:"pinDown,omitempty"`
	PresetDown *uint8  `json:"presetDown,omitempty"`
	LockoutSec *uint16 `json:"lockoutSec,omitempty"`
}

// TriggerEvent is emitted when a sensor read is accepted.
type TriggerEvent struct {
	Time      time.Time
	Direction Direction
	Pin       int8
	PresetID  uint8
}

// CallMode tells the preset engine what kind of caller applied the preset.
type CallMode int

const (
	CallModeDirectChange CallMode = 1
	CallModeButton       CallMode = 2
)

func (m CallMode) String() string {
	switch m {
	case CallModeDirectChange:
		return "direct"
	case CallModeButton:
		return "button"
	}
	return "unknown"
}

// PresetRunner applies presets on the LED controller.
type PresetRunner interface {
	ApplyPreset(id uint8, mode CallMode) error
}

// Busy reports whether the host is mid-update and must not be disturbed.
type Busy interface {
	IsUpdating() bool
}
