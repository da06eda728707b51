package gpio

// FakePins is a test double that returns scripted levels per pin.
type FakePins struct {
	// Levels contains scripted levels for each pin.
	// Each Read of a pin consumes its next level; the last one repeats.
	Levels map[int][]bool

	// index tracks current position per pin
	index map[int]int

	// Inputs records every pin passed to Input, in call order.
	Inputs []int

	// Reads records every pin passed to Read, in call order.
	Reads []int

	// Released records every pin passed to Release, in call order.
	Released []int

	// InputError, if set, will be returned by Input.
	InputError error

	// ReadErrors, if set for a pin, will be returned by Read for that pin.
	ReadErrors map[int]error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakePins creates a FakePins with no scripted levels.
func NewFakePins() *FakePins {
	return &FakePins{
		Levels:     make(map[int][]bool),
		index:      make(map[int]int),
		ReadErrors: make(map[int]error),
	}
}

// Set makes pin read the given level until changed.
func (f *FakePins) Set(pin int, high bool) {
	f.Levels[pin] = []bool{high}
	f.index[pin] = 0
}

// Script makes successive reads of pin return levels in order.
func (f *FakePins) Script(pin int, levels ...bool) {
	f.Levels[pin] = levels
	f.index[pin] = 0
}

// Input records the call.
func (f *FakePins) Input(pin int) error {
	f.Inputs = append(f.Inputs, pin)
	return f.InputError
}

// Read returns the next scripted level for pin. Unscripted pins read LOW.
func (f *FakePins) Read(pin int) (bool, error) {
	f.Reads = append(f.Reads, pin)

	if err := f.ReadErrors[pin]; err != nil {
		return false, err
	}

	levels := f.Levels[pin]
	if len(levels) == 0 {
		return false, nil
	}

	i := f.index[pin]
	if i < len(levels)-1 {
		f.index[pin] = i + 1
	}
	return levels[i], nil
}

// Release records the call.
func (f *FakePins) Release(pin int) error {
	f.Released = append(f.Released, pin)
	return nil
}

// Close marks the pins as closed.
func (f *FakePins) Close() error {
	f.Closed = true
	return nil
}

// ResetCalls clears the recorded Input and Read calls.
func (f *FakePins) ResetCalls() {
	f.Inputs = nil
	f.Reads = nil
	f.Released = nil
}
