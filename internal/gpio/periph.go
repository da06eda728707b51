//go:build linux

package gpio

import (
	"fmt"
	"sync"

	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// PeriphPins reads GPIO through periph.io drivers. Useful on boards where
// the character device is not exposed.
type PeriphPins struct {
	mu   sync.Mutex
	pins map[int]pgpio.PinIO
}

// NewPeriphPins initialises the periph host drivers.
func NewPeriphPins() (*PeriphPins, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}
	return &PeriphPins{pins: make(map[int]pgpio.PinIO)}, nil
}

// Input looks the pin up by its BCM name and sets it as input.
func (p *PeriphPins) Input(pin int) error {
	line := gpioreg.ByName(fmt.Sprintf("GPIO%d", pin))
	if line == nil {
		return fmt.Errorf("pin %d: no such gpio", pin)
	}
	if err := line.In(pgpio.PullNoChange, pgpio.NoEdge); err != nil {
		return fmt.Errorf("set pin %d as input: %w", pin, err)
	}

	p.mu.Lock()
	p.pins[pin] = line
	p.mu.Unlock()
	return nil
}

// Read returns true when the pin level is High.
func (p *PeriphPins) Read(pin int) (bool, error) {
	p.mu.Lock()
	line, ok := p.pins[pin]
	p.mu.Unlock()
	if !ok {
		return false, fmt.Errorf("pin %d not configured as input", pin)
	}
	return line.Read() == pgpio.High, nil
}

// Release forgets pin. periph keeps no per-pin handle to close.
func (p *PeriphPins) Release(pin int) error {
	p.mu.Lock()
	delete(p.pins, pin)
	p.mu.Unlock()
	return nil
}

// Close forgets configured pins. periph keeps no per-pin handles to release.
func (p *PeriphPins) Close() error {
	p.mu.Lock()
	p.pins = make(map[int]pgpio.PinIO)
	p.mu.Unlock()
	return nil
}
