//go:build !linux

package gpio

import "errors"

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// CdevChip is not available on non-Linux platforms.
type CdevChip struct{}

// NewCdevChip returns an error on non-Linux platforms.
func NewCdevChip(name string) (*CdevChip, error) {
	return nil, errUnsupported
}

// RequestInput is not implemented on non-Linux platforms.
func (c *CdevChip) RequestInput(pin int) (Line, error) {
	return nil, errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (c *CdevChip) Close() error {
	return nil
}

// RPIOChip is not available on non-Linux platforms.
type RPIOChip struct{}

// NewRPIOChip returns an error on non-Linux platforms.
func NewRPIOChip() (*RPIOChip, error) {
	return nil, errUnsupported
}

// RequestInput is not implemented on non-Linux platforms.
func (c *RPIOChip) RequestInput(pin int) (Line, error) {
	return nil, errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (c *RPIOChip) Close() error {
	return nil
}
