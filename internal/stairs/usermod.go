package stairs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ModuleID is the registry id of the stairs usermod.
const ModuleID uint16 = 35

// ModuleName is the key of the module's object in the host configuration.
const ModuleName = "PIR Stairs"

// Keys of the persisted configuration object.
const (
	keyPinUp      = "pinUp"
	keyPresetUp   = "presetUp"
	keyPinDown    = "pinDown"
	keyPresetDown = "presetDown"
	keyLockout    = "lockoutSec"
)

// Hooks are optional callbacks invoked from Poll. They run on the poll
// goroutine and must not block.
type Hooks struct {
	OnTrigger     func(TriggerEvent)
	OnReadError   func(error)
	OnPresetError func(TriggerEvent, error)
}

// Usermod adapts a Controller to the host module contract.
type Usermod struct {
	ctrl   *Controller
	runner PresetRunner
	busy   Busy
	hooks  Hooks
	log    zerolog.Logger
}

// NewUsermod creates the stairs module. busy may be nil if the host never
// reports updates.
func NewUsermod(pins Pins, runner PresetRunner, busy Busy, hooks Hooks, logger zerolog.Logger) *Usermod {
	return &Usermod{
		ctrl:   NewController(pins),
		runner: runner,
		busy:   busy,
		hooks:  hooks,
		log:    logger.With().Str("usermod", ModuleName).Logger(),
	}
}

// ID returns the registry id.
func (u *Usermod) ID() uint16 { return ModuleID }

// Name returns the configuration key.
func (u *Usermod) Name() string { return ModuleName }

// Controller exposes the underlying controller for status reporting.
func (u *Usermod) Controller() *Controller { return u.ctrl }

// Initialize configures the sensor pins.
func (u *Usermod) Initialize() {
	if err := u.ctrl.Initialize(); err != nil {
		u.log.Warn().Err(err).Msg("pin setup failed")
	}
	cfg := u.ctrl.Config()
	u.log.Info().
		Int8("pin_up", cfg.PinUp).
		Int8("pin_down", cfg.PinDown).
		Uint8("preset_up", cfg.PresetUp).
		Uint8("preset_down", cfg.PresetDown).
		Uint16("lockout_sec", cfg.LockoutSec).
		Msg("initialized")
}

// Poll runs one controller cycle and applies the selected preset.
func (u *Usermod) Poll(now time.Time) {
	busy := u.busy != nil && u.busy.IsUpdating()

	event, err := u.ctrl.Poll(now, busy)
	if err != nil {
		u.log.Debug().Err(err).Msg("sensor read failed")
		if u.hooks.OnReadError != nil {
			u.hooks.OnReadError(err)
		}
	}
	if event == nil {
		return
	}

	if err := u.runner.ApplyPreset(event.PresetID, CallModeButton); err != nil {
		u.log.Error().Err(err).Uint8("preset", event.PresetID).Msg("apply preset failed")
		if u.hooks.OnPresetError != nil {
			u.hooks.OnPresetError(*event, err)
		}
	}

	u.log.Debug().
		Str("direction", string(event.Direction)).
		Uint8("preset", event.PresetID).
		Dur("lockout", u.ctrl.Config().Lockout()).
		Msg("staircase triggered")

	if u.hooks.OnTrigger != nil {
		u.hooks.OnTrigger(*event)
	}
}

type configJSON struct {
	PinUp      int8   `json:"pinUp"`
	PresetUp   uint8  `json:"presetUp"`
	PinDown    int8   `json:"pinDown"`
	PresetDown uint8  `json:"presetDown"`
	LockoutSec uint16 `json:"lockoutSec"`
}

// ExportConfig writes the module's object into root.
func (u *Usermod) ExportConfig(root map[string]json.RawMessage) error {
	cfg := u.ctrl.Config()
	data, err := json.Marshal(configJSON{
		PinUp:      cfg.PinUp,
		PresetUp:   cfg.PresetUp,
		PinDown:    cfg.PinDown,
		PresetDown: cfg.PresetDown,
		LockoutSec: cfg.LockoutSec,
	})
	if err != nil {
		return fmt.Errorf("encode %s config: %w", ModuleName, err)
	}
	root[ModuleName] = data
	return nil
}

// LoadConfig applies the module's object from root. It returns false if the
// object is missing. A field that is absent or does not fit its type keeps
// the current value.
func (u *Usermod) LoadConfig(root map[string]json.RawMessage) bool {
	raw, ok := root[ModuleName]
	if !ok || string(raw) == "null" {
		return false
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		u.log.Warn().Err(err).Msg("config object is not a JSON object")
		return false
	}

	opts := Options{
		PinUp:      decodeField[int8](u.log, fields, keyPinUp),
		PresetUp:   decodeField[uint8](u.log, fields, keyPresetUp),
		PinDown:    decodeField[int8](u.log, fields, keyPinDown),
		PresetDown: decodeField[uint8](u.log, fields, keyPresetDown),
		LockoutSec: decodeField[uint16](u.log, fields, keyLockout),
	}
	if err := u.ctrl.Configure(opts); err != nil {
		u.log.Warn().Err(err).Msg("pin setup failed after reconfigure")
	}
	return true
}

func decodeField[T any](log zerolog.Logger, fields map[string]json.RawMessage, key string) *T {
	raw, ok := fields[key]
	if !ok || string(raw) == "null" {
		return nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		log.Warn().Err(err).Str("field", key).Msg("ignoring invalid config value")
		return nil
	}
	return &v
}
