package gpio

import (
	"errors"
	"fmt"
)

// FakeChip is a test double that hands out FakeLines with scripted values.
type FakeChip struct {
	// Lines maps pin numbers to the line returned by RequestInput.
	// Pins without an entry are reported as ErrNoSuchLine.
	Lines map[int]*FakeLine

	// RequestError, if set, will be returned by RequestInput.
	RequestError error

	// Closed tracks if Close was called
	Closed bool

	claimed map[int]bool
}

// NewFakeChip creates a FakeChip with a single line at pin.
func NewFakeChip(pin int, samples []bool) (*FakeChip, *FakeLine) {
	line := NewFakeLine(samples)
	return &FakeChip{Lines: map[int]*FakeLine{pin: line}}, line
}

// RequestInput claims the scripted line for pin.
func (c *FakeChip) RequestInput(pin int) (Line, error) {
	if c.RequestError != nil {
		return nil, c.RequestError
	}
	line, ok := c.Lines[pin]
	if !ok {
		return nil, fmt.Errorf("pin %d: %w", pin, ErrNoSuchLine)
	}
	if c.claimed[pin] {
		return nil, fmt.Errorf("pin %d: %w", pin, ErrLineBusy)
	}
	if c.claimed == nil {
		c.claimed = make(map[int]bool)
	}
	c.claimed[pin] = true
	line.PullUp = true
	line.Closed = false
	line.release = func() { delete(c.claimed, pin) }
	return line, nil
}

// Claimed reports whether pin is currently claimed.
func (c *FakeChip) Claimed(pin int) bool {
	return c.claimed[pin]
}

// Close marks the chip as closed.
func (c *FakeChip) Close() error {
	c.Closed = true
	return nil
}

// FakeLine returns scripted raw values.
type FakeLine struct {
	// Samples contains scripted raw levels to return.
	// Each call to Value() consumes the next sample.
	Samples []bool

	// index tracks current position in Samples
	index int

	// ReadError, if set, will be returned by Value()
	ReadError error

	// PullUp records whether the line was requested with pull-up bias.
	PullUp bool

	// Closed tracks if Close was called
	Closed bool

	// Reads counts calls to Value().
	Reads int

	release func()
}

// NewFakeLine creates a FakeLine with the given samples.
func NewFakeLine(samples []bool) *FakeLine {
	return &FakeLine{Samples: samples}
}

// Value returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (l *FakeLine) Value() (bool, error) {
	l.Reads++
	if l.Closed {
		return false, ErrClosed
	}
	if l.ReadError != nil {
		return false, l.ReadError
	}

	if len(l.Samples) == 0 {
		return false, errors.New("no samples configured")
	}

	if l.index < len(l.Samples) {
		v := l.Samples[l.index]
		l.index++
		return v, nil
	}
	return l.Samples[len(l.Samples)-1], nil
}

// Push appends samples to the script.
func (l *FakeLine) Push(samples ...bool) {
	l.Samples = append(l.Samples, samples...)
}

// Close releases the claim held on the line.
func (l *FakeLine) Close() error {
	if l.Closed {
		return nil
	}
	l.Closed = true
	if l.release != nil {
		l.release()
		l.release = nil
	}
	return nil
}

// Reset rewinds the line to the beginning of samples.
func (l *FakeLine) Reset() {
	l.index = 0
	l.Reads = 0
}
