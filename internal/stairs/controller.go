package stairs

import (
	"errors"
	"fmt"
	"time"
)

// Controller holds the trigger state for both sensors and applies the lockout.
// Not safe for concurrent use; the host calls Poll and Configure from one goroutine.
type Controller struct {
	pins        Pins
	cfg         Config
	lastTrigger time.Time // zero = never triggered
	initialized bool
	inputs      map[int8]bool // pins configured by the last Initialize
}

// NewController creates a controller with DefaultConfig. Pins are not touched
// until Initialize is called.
func NewController(pins Pins) *Controller {
	return &Controller{
		pins: pins,
		cfg:  DefaultConfig(),
	}
}

// Initialize configures every present pin as a digital input and marks the
// controller initialized. Pins configured by an earlier Initialize that are
// no longer in use are released if the backend supports it. Failures are
// returned for logging but do not keep the controller from running.
func (c *Controller) Initialize() error {
	var errs []error

	want := make(map[int8]bool, 2)
	if c.cfg.PinUp >= 0 {
		want[c.cfg.PinUp] = true
	}
	if c.cfg.PinDown >= 0 {
		want[c.cfg.PinDown] = true
	}
	if r, ok := c.pins.(PinReleaser); ok {
		for pin := range c.inputs {
			if want[pin] {
				continue
			}
			if err := r.Release(int(pin)); err != nil {
				errs = append(errs, fmt.Errorf("release pin %d: %w", pin, err))
			}
		}
	}
	c.inputs = want

	if c.cfg.PinUp >= 0 {
		if err := c.pins.Input(int(c.cfg.PinUp)); err != nil {
			errs = append(errs, fmt.Errorf("configure up pin %d: %w", c.cfg.PinUp, err))
		}
	}
	if c.cfg.PinDown >= 0 {
		if err := c.pins.Input(int(c.cfg.PinDown)); err != nil {
			errs = append(errs, fmt.Errorf("configure down pin %d: %w", c.cfg.PinDown, err))
		}
	}
	c.initialized = true
	return errors.Join(errs...)
}

// Poll samples the sensors once and returns a trigger if one was accepted.
//
// Order matters: the lockout gate runs before any pin is read, the up sensor
// is read before the down sensor, and the preset id is validated last.
// A read error counts as LOW for that pin and is returned alongside the
// result; the down pin is still read when the up read fails.
func (c *Controller) Poll(now time.Time, busy bool) (*TriggerEvent, error) {
	if !c.initialized || busy {
		return nil, nil
	}

	if c.inLockout(now) {
		return nil, nil
	}

	var (
		errs      []error
		triggered bool
		event     TriggerEvent
	)

	if c.cfg.PinUp >= 0 {
		high, err := c.pins.Read(int(c.cfg.PinUp))
		if err != nil {
			errs = append(errs, fmt.Errorf("read up pin %d: %w", c.cfg.PinUp, err))
		} else if high {
			triggered = true
			event = TriggerEvent{Direction: DirectionUp, Pin: c.cfg.PinUp, PresetID: c.cfg.PresetUp}
		}
	}

	// Down is only consulted when up did not fire
	if !triggered && c.cfg.PinDown >= 0 {
		high, err := c.pins.Read(int(c.cfg.PinDown))
		if err != nil {
			errs = append(errs, fmt.Errorf("read down pin %d: %w", c.cfg.PinDown, err))
		} else if high {
			triggered = true
			event = TriggerEvent{Direction: DirectionDown, Pin: c.cfg.PinDown, PresetID: c.cfg.PresetDown}
		}
	}

	if !triggered || event.PresetID == NoPreset {
		return nil, errors.Join(errs...)
	}

	c.lastTrigger = now
	event.Time = now
	return &event, errors.Join(errs...)
}

// Configure applies a partial configuration. Absent fields keep their
// current value. If the controller is already initialized the pins are
// configured again so a changed pin id takes effect immediately.
func (c *Controller) Configure(opts Options) error {
	if opts.PinUp != nil {
		c.cfg.PinUp = *opts.PinUp
	}
	if opts.PresetUp != nil {
		c.cfg.PresetUp = *opts.PresetUp
	}
	if opts.PinDown != nil {
		c.cfg.PinDown = *opts.PinDown
	}
	if opts.PresetDown != nil {
		c.cfg.PresetDown = *opts.PresetDown
	}
	if opts.LockoutSec != nil {
		c.cfg.LockoutSec = *opts.LockoutSec
	}

	if c.initialized {
		return c.Initialize()
	}
	return nil
}

func (c *Controller) inLockout(now time.Time) bool {
	if c.lastTrigger.IsZero() {
		return false
	}
	return now.Sub(c.lastTrigger) < c.cfg.Lockout()
}

// Config returns the current configuration snapshot.
func (c *Controller) Config() Config {
	return c.cfg
}

// Initialized reports whether Initialize has run.
func (c *Controller) Initialized() bool {
	return c.initialized
}

// LastTrigger returns the time of the last accepted trigger, or the zero
// time if none has been accepted.
func (c *Controller) LastTrigger() time.Time {
	return c.lastTrigger
}

// State returns IDLE while uninitialized or inside the lockout window and
// ARMED otherwise.
func (c *Controller) State(now time.Time) State {
	if !c.initialized || c.inLockout(now) {
		return StateIdle
	}
	return StateArmed
}

// LockoutRemaining returns how long until the controller is armed again.
func (c *Controller) LockoutRemaining(now time.Time) time.Duration {
	if !c.inLockout(now) {
		return 0
	}
	return c.cfg.Lockout() - now.Sub(c.lastTrigger)
}
