//go:build linux

package gpio

import (
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

// CdevPins reads GPIO through the Linux GPIO character device.
// Lines are requested on first use and held until Close.
type CdevPins struct {
	mu    sync.Mutex
	chip  *gpiocdev.Chip
	lines map[int]*gpiocdev.Line
}

// NewCdevPins opens the named chip (e.g. "gpiochip0").
func NewCdevPins(chip string) (*CdevPins, error) {
	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chip, err)
	}
	return &CdevPins{
		chip:  c,
		lines: make(map[int]*gpiocdev.Line),
	}, nil
}

// Input requests the line as an input. A line that is already held is
// reconfigured instead.
func (p *CdevPins) Input(pin int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if l, ok := p.lines[pin]; ok {
		if err := l.Reconfigure(gpiocdev.AsInput); err != nil {
			return fmt.Errorf("reconfigure pin %d: %w", pin, err)
		}
		return nil
	}

	l, err := p.chip.RequestLine(pin, gpiocdev.AsInput)
	if err != nil {
		return fmt.Errorf("request pin %d: %w", pin, err)
	}
	p.lines[pin] = l
	return nil
}

// Read returns the raw level of the line; active (1) is HIGH.
func (p *CdevPins) Read(pin int) (bool, error) {
	p.mu.Lock()
	l, ok := p.lines[pin]
	p.mu.Unlock()
	if !ok {
		return false, fmt.Errorf("pin %d not configured as input", pin)
	}

	v, err := l.Value()
	if err != nil {
		return false, fmt.Errorf("read pin %d: %w", pin, err)
	}
	return v == 1, nil
}

// Release closes the line for pin so another process may request it.
func (p *CdevPins) Release(pin int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	l, ok := p.lines[pin]
	if !ok {
		return nil
	}
	delete(p.lines, pin)
	if err := l.Close(); err != nil {
		return fmt.Errorf("release pin %d: %w", pin, err)
	}
	return nil
}

// Close releases all lines and the chip.
func (p *CdevPins) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for pin, l := range p.lines {
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", pin, err))
		}
		delete(p.lines, pin)
	}
	if p.chip != nil {
		if err := p.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		p.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
