//go:build linux

package gpio

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/warthog618/go-gpiocdev"
)

// CdevChip hands out lines from the Linux GPIO character device.
type CdevChip struct {
	chip *gpiocdev.Chip
}

// NewCdevChip opens the named chip (e.g. "gpiochip0").
func NewCdevChip(name string) (*CdevChip, error) {
	chip, err := gpiocdev.NewChip(name)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	return &CdevChip{chip: chip}, nil
}

// RequestInput requests pin as input with pull-up.
// The kernel enforces exclusivity; EBUSY is reported as ErrLineBusy.
func (c *CdevChip) RequestInput(pin int) (Line, error) {
	if pin < 0 || pin >= c.chip.Lines() {
		return nil, fmt.Errorf("pin %d: %w", pin, ErrNoSuchLine)
	}
	l, err := c.chip.RequestLine(pin, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		if errors.Is(err, syscall.EBUSY) {
			return nil, fmt.Errorf("pin %d: %w", pin, ErrLineBusy)
		}
		return nil, fmt.Errorf("request pin %d: %w", pin, err)
	}
	return &cdevLine{line: l, pin: pin}, nil
}

// Close releases the chip.
func (c *CdevChip) Close() error {
	return c.chip.Close()
}

type cdevLine struct {
	line *gpiocdev.Line
	pin  int
}

func (l *cdevLine) Value() (bool, error) {
	if l.line == nil {
		return false, ErrClosed
	}
	v, err := l.line.Value()
	if err != nil {
		return false, fmt.Errorf("read pin %d: %w", l.pin, err)
	}
	return v != 0, nil
}

// Close drops the pull-up before releasing so the pin is left as a plain
// input, matching the Pi's boot state.
func (l *cdevLine) Close() error {
	if l.line == nil {
		return nil
	}
	var errs []error
	if err := l.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithBiasDisabled); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", l.pin, err))
	}
	if err := l.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close pin %d: %w", l.pin, err))
	}
	l.line = nil
	return errors.Join(errs...)
}
