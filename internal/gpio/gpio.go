// Package gpio provides digital input lines with hardware abstraction.
// The real implementations use the Linux GPIO character device or the
// BCM283x register interface. The fake implementation allows testing
// without hardware.
package gpio

import (
	"errors"
	"fmt"
)

var (
	// ErrLineBusy is returned when a line is already claimed.
	ErrLineBusy = errors.New("gpio: line busy")

	// ErrNoSuchLine is returned for a pin the chip does not have.
	ErrNoSuchLine = errors.New("gpio: no such line")

	// ErrClosed is returned when reading a released line.
	ErrClosed = errors.New("gpio: line closed")
)

// Line is a single claimed input line.
type Line interface {
	// Value returns the raw level of the line (true = high).
	Value() (bool, error)

	// Close releases the line so it can be claimed again.
	Close() error
}

// Chip hands out exclusive input lines.
type Chip interface {
	// RequestInput claims pin as an input with the pull-up bias enabled.
	// Returns ErrLineBusy if the pin is already claimed and ErrNoSuchLine
	// if the chip has no such pin.
	RequestInput(pin int) (Line, error)

	// Close releases chip resources.
	Close() error
}

// Backend names accepted by Open.
const (
	BackendCdev = "cdev"
	BackendRPIO = "rpio"
)

// DefaultChip is the character device chip name used by the cdev backend.
const DefaultChip = "gpiochip0"

// DefaultPin is the BCM pin the button is wired to.
const DefaultPin = 17

// Open returns a Chip for the named backend.
func Open(backend, chip string) (Chip, error) {
	switch backend {
	case BackendCdev, "":
		if chip == "" {
			chip = DefaultChip
		}
		c, err := NewCdevChip(chip)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendRPIO:
		c, err := NewRPIOChip()
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("gpio: unknown backend %q", backend)
	}
}
