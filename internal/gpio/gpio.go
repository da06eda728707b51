// Package gpio provides GPIO input reading with hardware abstraction.
// Two real backends use the Linux GPIO character device or periph.io.
// The fake implementation allows testing without hardware.
package gpio

import "fmt"

// Pins configures and reads GPIO inputs by BCM number.
type Pins interface {
	// Input configures pin as a digital input without bias.
	Input(pin int) error

	// Read returns true if the pin is logically HIGH.
	Read(pin int) (bool, error)

	// Release gives up a pin configured by Input. Releasing a pin that is
	// not held is a no-op.
	Release(pin int) error

	// Close releases GPIO resources.
	Close() error
}

// Backend names accepted by Open.
const (
	BackendCdev   = "cdev"
	BackendPeriph = "periph"
)

// DefaultChip is the GPIO chip used by the cdev backend.
const DefaultChip = "gpiochip0"

// Open returns the Pins implementation for the named backend.
func Open(backend, chip string) (Pins, error) {
	switch backend {
	case BackendCdev, "":
		if chip == "" {
			chip = DefaultChip
		}
		p, err := NewCdevPins(chip)
		if err != nil {
			return nil, err
		}
		return p, nil
	case BackendPeriph:
		p, err := NewPeriphPins()
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, fmt.Errorf("unknown gpio backend %q", backend)
}
