// Package debounce filters a noisy digital input into a stable value with
// one-shot edge flags. A Debouncer is polled: the caller invokes Update on a
// cadence short relative to the interval, then reads Value, Rose and Fell.
//
// A Debouncer is not safe for concurrent use.
package debounce

import (
	"errors"
	"fmt"

	"github.com/sweeney/button-sensor/internal/gpio"
)

// DefaultIntervalMs is the stability interval used when none is given.
const DefaultIntervalMs = 10

var (
	// ErrResourceUnavailable is returned by New when the pin cannot be claimed.
	ErrResourceUnavailable = errors.New("debounce: pin unavailable")

	// ErrDeinitialized is returned by any operation on a released Debouncer.
	ErrDeinitialized = errors.New("debounce: deinitialized")
)

// Option configures a Debouncer.
type Option func(*Debouncer)

// WithIntervalMs sets how long, in milliseconds, a raw sample must hold
// before it is accepted.
func WithIntervalMs(ms uint64) Option {
	return func(d *Debouncer) { d.intervalMs = ms }
}

// WithClock replaces the monotonic clock.
func WithClock(c Clock) Option {
	return func(d *Debouncer) { d.now = c }
}

// Debouncer tracks one pull-up input line.
type Debouncer struct {
	line       gpio.Line
	intervalMs uint64
	now        Clock

	debounced bool // last accepted value
	unstable  bool // last raw sample, being timed for stability
	changed   bool // debounced flipped during the last Update

	lastTransition uint64
}

// New claims pin on chip as a pull-up input and seeds the debounced value
// from one immediate sample.
func New(chip gpio.Chip, pin int, opts ...Option) (*Debouncer, error) {
	d := &Debouncer{intervalMs: DefaultIntervalMs}
	for _, opt := range opts {
		opt(d)
	}
	if d.now == nil {
		d.now = MonotonicClock()
	}

	line, err := chip.RequestInput(pin)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResourceUnavailable, err)
	}

	v, err := line.Value()
	if err != nil {
		return nil, errors.Join(fmt.Errorf("initial read: %w", err), line.Close())
	}

	d.line = line
	d.debounced = v
	d.unstable = v
	d.lastTransition = d.now()
	return d, nil
}

// Update samples the line once and advances the stability timer. The raw
// value is accepted only after it has held for the full interval; any change
// in between restarts the timer.
func (d *Debouncer) Update() error {
	if d.line == nil {
		return ErrDeinitialized
	}

	now := d.now()
	d.changed = false

	current, err := d.line.Value()
	if err != nil {
		return fmt.Errorf("sample: %w", err)
	}

	if current != d.unstable {
		d.lastTransition = now
		d.unstable = current
		return nil
	}

	if now-d.lastTransition >= d.intervalMs && current != d.debounced {
		d.debounced = current
		d.lastTransition = now
		d.changed = true
	}
	return nil
}

// Value returns the debounced value.
func (d *Debouncer) Value() (bool, error) {
	if d.line == nil {
		return false, ErrDeinitialized
	}
	return d.debounced, nil
}

// Rose reports whether the last Update moved the value from low to high.
func (d *Debouncer) Rose() (bool, error) {
	if d.line == nil {
		return false, ErrDeinitialized
	}
	return d.debounced && d.changed, nil
}

// Fell reports whether the last Update moved the value from high to low.
func (d *Debouncer) Fell() (bool, error) {
	if d.line == nil {
		return false, ErrDeinitialized
	}
	return !d.debounced && d.changed, nil
}

// IntervalMs returns the configured stability interval.
func (d *Debouncer) IntervalMs() uint64 {
	return d.intervalMs
}

// IsDeinited reports whether the line has been released.
func (d *Debouncer) IsDeinited() bool {
	return d.line == nil
}

// Deinit releases the line. Calling it again is a no-op.
func (d *Debouncer) Deinit() error {
	if d.line == nil {
		return nil
	}
	line := d.line
	d.line = nil
	d.changed = false
	if err := line.Close(); err != nil {
		return fmt.Errorf("release line: %w", err)
	}
	return nil
}

// Close is Deinit, so a Debouncer can be used as an io.Closer.
func (d *Debouncer) Close() error {
	return d.Deinit()
}

// With claims pin, runs fn with the Debouncer and releases the line exactly
// once however fn returns, including by panic.
func With(chip gpio.Chip, pin int, fn func(*Debouncer) error, opts ...Option) (err error) {
	d, err := New(chip, pin, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if derr := d.Deinit(); derr != nil {
			err = errors.Join(err, derr)
		}
	}()
	return fn(d)
}
