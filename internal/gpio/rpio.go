//go:build linux

package gpio

import (
	"fmt"
	"sync"

	"github.com/stianeikeland/go-rpio/v4"
)

// rpioPins is the number of BCM GPIOs exposed on the 40-pin header.
const rpioPins = 28

// RPIOChip drives pins through /dev/gpiomem. The register interface has no
// notion of ownership, so claims are tracked here.
type RPIOChip struct {
	mu      sync.Mutex
	claimed map[int]bool
}

// NewRPIOChip maps the GPIO registers.
func NewRPIOChip() (*RPIOChip, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("open gpiomem: %w", err)
	}
	return &RPIOChip{claimed: make(map[int]bool)}, nil
}

// RequestInput claims pin as input with pull-up.
func (c *RPIOChip) RequestInput(pin int) (Line, error) {
	if pin < 0 || pin >= rpioPins {
		return nil, fmt.Errorf("pin %d: %w", pin, ErrNoSuchLine)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.claimed[pin] {
		return nil, fmt.Errorf("pin %d: %w", pin, ErrLineBusy)
	}
	c.claimed[pin] = true

	p := rpio.Pin(pin)
	p.Input()
	p.PullUp()
	return &rpioLine{chip: c, pin: p}, nil
}

func (c *RPIOChip) release(pin int) {
	c.mu.Lock()
	delete(c.claimed, pin)
	c.mu.Unlock()
}

// Close unmaps the GPIO registers.
func (c *RPIOChip) Close() error {
	return rpio.Close()
}

type rpioLine struct {
	chip   *RPIOChip
	pin    rpio.Pin
	closed bool
}

func (l *rpioLine) Value() (bool, error) {
	if l.closed {
		return false, ErrClosed
	}
	return l.pin.Read() == rpio.High, nil
}

func (l *rpioLine) Close() error {
	if l.closed {
		return nil
	}
	l.pin.PullOff()
	l.closed = true
	l.chip.release(int(l.pin))
	return nil
}
