//go:build !linux

package gpio

import "errors"

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// CdevPins is not available on non-Linux platforms.
type CdevPins struct{}

// NewCdevPins returns an error on non-Linux platforms.
func NewCdevPins(chip string) (*CdevPins, error) {
	return nil, errUnsupported
}

// Input is not implemented on non-Linux platforms.
func (p *CdevPins) Input(pin int) error { return errUnsupported }

// Read is not implemented on non-Linux platforms.
func (p *CdevPins) Read(pin int) (bool, error) { return false, errUnsupported }

// Release is not implemented on non-Linux platforms.
func (p *CdevPins) Release(pin int) error { return nil }

// Close is not implemented on non-Linux platforms.
func (p *CdevPins) Close() error { return nil }

// PeriphPins is not available on non-Linux platforms.
type PeriphPins struct{}

// NewPeriphPins returns an error on non-Linux platforms.
func NewPeriphPins() (*PeriphPins, error) {
	return nil, errUnsupported
}

// Input is not implemented on non-Linux platforms.
func (p *PeriphPins) Input(pin int) error { return errUnsupported }

// Read is not implemented on non-Linux platforms.
func (p *PeriphPins) Read(pin int) (bool, error) { return false, errUnsupported }

// Release is not implemented on non-Linux platforms.
func (p *PeriphPins) Release(pin int) error { return nil }

// Close is not implemented on non-Linux platforms.
func (p *PeriphPins) Close() error { return nil }
