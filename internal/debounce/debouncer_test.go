package debounce

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/button-sensor/internal/gpio"
)

const testPin = 17

// manualClock is a Clock the test advances by hand.
type manualClock struct {
	ms uint64
}

func (c *manualClock) now() uint64 { return c.ms }

func (c *manualClock) advance(ms uint64) { c.ms += ms }

// newTestDebouncer builds a Debouncer over a scripted line. The first sample
// is consumed by New.
func newTestDebouncer(t *testing.T, interval uint64, samples ...bool) (*Debouncer, *gpio.FakeLine, *manualClock) {
	t.Helper()
	chip, line := gpio.NewFakeChip(testPin, samples)
	clk := &manualClock{ms: 1000}
	d, err := New(chip, testPin, WithIntervalMs(interval), WithClock(clk.now))
	require.NoError(t, err)
	return d, line, clk
}

type reading struct {
	value, rose, fell bool
}

func read(t *testing.T, d *Debouncer) reading {
	t.Helper()
	v, err := d.Value()
	require.NoError(t, err)
	r, err := d.Rose()
	require.NoError(t, err)
	f, err := d.Fell()
	require.NoError(t, err)
	return reading{value: v, rose: r, fell: f}
}

func TestNewDefaults(t *testing.T) {
	chip, line := gpio.NewFakeChip(testPin, []bool{false})
	d, err := New(chip, testPin)
	require.NoError(t, err)

	assert.Equal(t, uint64(DefaultIntervalMs), d.IntervalMs())
	assert.True(t, line.PullUp, "line must be requested with pull-up")
	assert.True(t, chip.Claimed(testPin))
	assert.False(t, d.IsDeinited())
	assert.Equal(t, reading{}, read(t, d))
}

func TestNewInitialHigh(t *testing.T) {
	d, _, _ := newTestDebouncer(t, 10, true)

	got := read(t, d)
	assert.True(t, got.value)
	assert.False(t, got.rose, "no edge at construction")
	assert.False(t, got.fell, "no edge at construction")
}

func TestNewResourceUnavailable(t *testing.T) {
	chip, _ := gpio.NewFakeChip(testPin, []bool{true})

	first, err := New(chip, testPin)
	require.NoError(t, err)

	second, err := New(chip, testPin)
	assert.Nil(t, second)
	assert.ErrorIs(t, err, ErrResourceUnavailable)
	assert.ErrorIs(t, err, gpio.ErrLineBusy)

	require.NoError(t, first.Deinit())
	third, err := New(chip, testPin)
	require.NoError(t, err, "pin should be claimable after deinit")
	assert.NotNil(t, third)
}

func TestNewInvalidPin(t *testing.T) {
	chip, _ := gpio.NewFakeChip(testPin, []bool{true})

	d, err := New(chip, 99)
	assert.Nil(t, d)
	assert.ErrorIs(t, err, ErrResourceUnavailable)
	assert.ErrorIs(t, err, gpio.ErrNoSuchLine)
}

func TestNewInitialReadFailureReleasesLine(t *testing.T) {
	chip, line := gpio.NewFakeChip(testPin, []bool{true})
	line.ReadError = errors.New("bus fault")

	d, err := New(chip, testPin)
	assert.Nil(t, d)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrResourceUnavailable)
	assert.False(t, chip.Claimed(testPin), "line must be released when construction fails")
}

func TestStableInputNoEdges(t *testing.T) {
	d, _, clk := newTestDebouncer(t, 10, false)

	for i := 0; i < 20; i++ {
		clk.advance(5)
		require.NoError(t, d.Update())
		assert.Equal(t, reading{}, read(t, d), "update %d", i)
	}
}

func TestRiseAcceptedAfterInterval(t *testing.T) {
	d, line, clk := newTestDebouncer(t, 10, false)

	// Raw goes high at t=1000: timer restarts, nothing accepted yet.
	line.Push(true)
	require.NoError(t, d.Update())
	assert.Equal(t, reading{}, read(t, d))

	// Held for 9ms: still below the interval.
	clk.advance(9)
	require.NoError(t, d.Update())
	assert.Equal(t, reading{}, read(t, d))

	// 10ms since the raw change: accepted on this call, not before.
	clk.advance(1)
	require.NoError(t, d.Update())
	assert.Equal(t, reading{value: true, rose: true}, read(t, d))

	// Edge flag lasts exactly one update.
	clk.advance(1)
	require.NoError(t, d.Update())
	assert.Equal(t, reading{value: true}, read(t, d))
}

func TestFallAcceptedAfterInterval(t *testing.T) {
	d, line, clk := newTestDebouncer(t, 10, true)

	line.Push(false)
	require.NoError(t, d.Update())
	clk.advance(10)
	require.NoError(t, d.Update())
	assert.Equal(t, reading{value: false, fell: true}, read(t, d))

	clk.advance(10)
	require.NoError(t, d.Update())
	assert.Equal(t, reading{}, read(t, d))
}

func TestBounceRestartsTimer(t *testing.T) {
	d, line, clk := newTestDebouncer(t, 10, false)

	// 0,1,0,1,0,1 with each level held for less than the interval.
	for i, raw := range []bool{false, true, false, true, false, true} {
		line.Push(raw)
		require.NoError(t, d.Update())
		assert.Equal(t, reading{}, read(t, d), "bounce sample %d", i)
		clk.advance(4)
	}

	// Final high level was first seen 4ms ago; hold it.
	line.Push(true)
	var roseAt []uint64
	for clk.ms < 1100 {
		require.NoError(t, d.Update())
		got := read(t, d)
		if got.rose {
			roseAt = append(roseAt, clk.ms)
		}
		assert.False(t, got.fell)
		clk.advance(1)
	}

	// The last raw change happened at t=1020, so the flip lands at t=1030.
	require.Len(t, roseAt, 1)
	assert.Equal(t, uint64(1030), roseAt[0])
	v, err := d.Value()
	require.NoError(t, err)
	assert.True(t, v)
}

func TestShortGlitchIgnored(t *testing.T) {
	d, line, clk := newTestDebouncer(t, 10, false)

	line.Push(true, false)
	for i := 0; i < 2; i++ {
		require.NoError(t, d.Update())
		clk.advance(3)
	}
	for i := 0; i < 10; i++ {
		clk.advance(5)
		require.NoError(t, d.Update())
		assert.Equal(t, reading{}, read(t, d))
	}
}

func TestNeverBothEdges(t *testing.T) {
	samples := []bool{false}
	pattern := []bool{true, true, false, true, true, true, false, false, false, true}
	for i := 0; i < 30; i++ {
		samples = append(samples, pattern...)
	}
	d, _, clk := newTestDebouncer(t, 3, samples...)

	edges := 0
	prev := false
	for i := 0; i < len(samples)-1; i++ {
		clk.advance(2)
		require.NoError(t, d.Update())
		got := read(t, d)
		assert.False(t, got.rose && got.fell, "update %d: rose and fell both set", i)
		if got.rose || got.fell {
			edges++
			assert.NotEqual(t, prev, got.value, "update %d: edge without value change", i)
		} else {
			assert.Equal(t, prev, got.value, "update %d: value changed without edge", i)
		}
		prev = got.value
	}
	assert.Positive(t, edges)
}

func TestUpdateSameTimestampIdempotent(t *testing.T) {
	d, line, clk := newTestDebouncer(t, 10, false)

	line.Push(true)
	require.NoError(t, d.Update())
	clk.advance(10)
	require.NoError(t, d.Update())
	require.Equal(t, reading{value: true, rose: true}, read(t, d))

	// Same timestamp, same raw value.
	require.NoError(t, d.Update())
	assert.Equal(t, reading{value: true}, read(t, d))
	assert.False(t, d.changed)
	assert.Equal(t, uint64(1010), d.lastTransition)
}

func TestZeroInterval(t *testing.T) {
	d, line, _ := newTestDebouncer(t, 0, false)

	// First sight of the new level only arms the candidate.
	line.Push(true, true)
	require.NoError(t, d.Update())
	assert.Equal(t, reading{}, read(t, d))
	require.NoError(t, d.Update())
	assert.Equal(t, reading{value: true, rose: true}, read(t, d))
}

func TestClockWraparound(t *testing.T) {
	chip, line := gpio.NewFakeChip(testPin, []bool{false})
	clk := &manualClock{ms: math.MaxUint64 - 4}
	d, err := New(chip, testPin, WithIntervalMs(10), WithClock(clk.now))
	require.NoError(t, err)

	line.Push(true)
	require.NoError(t, d.Update())

	clk.advance(9) // wraps past zero
	require.NoError(t, d.Update())
	assert.Equal(t, reading{}, read(t, d))

	clk.advance(1)
	require.NoError(t, d.Update())
	assert.Equal(t, reading{value: true, rose: true}, read(t, d))
}

func TestUpdateReadError(t *testing.T) {
	d, line, clk := newTestDebouncer(t, 10, false)

	line.Push(true)
	require.NoError(t, d.Update())
	clk.advance(10)
	require.NoError(t, d.Update())
	require.True(t, read(t, d).rose)

	line.ReadError = errors.New("bus fault")
	clk.advance(1)
	err := d.Update()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDeinitialized)
	assert.Equal(t, reading{value: true}, read(t, d), "edge flag cleared, value kept")

	line.ReadError = nil
	require.NoError(t, d.Update())
}

func TestDeinit(t *testing.T) {
	chip, line := gpio.NewFakeChip(testPin, []bool{true})
	d, err := New(chip, testPin)
	require.NoError(t, err)

	require.NoError(t, d.Deinit())
	assert.True(t, d.IsDeinited())
	assert.True(t, line.Closed)
	assert.False(t, chip.Claimed(testPin))

	_, err = d.Value()
	assert.ErrorIs(t, err, ErrDeinitialized)
	_, err = d.Rose()
	assert.ErrorIs(t, err, ErrDeinitialized)
	_, err = d.Fell()
	assert.ErrorIs(t, err, ErrDeinitialized)

	reads := line.Reads
	assert.ErrorIs(t, d.Update(), ErrDeinitialized)
	assert.Equal(t, reads, line.Reads, "no sampling after deinit")

	// Second deinit is not an error.
	assert.NoError(t, d.Deinit())
	assert.NoError(t, d.Close())
	assert.True(t, d.IsDeinited())
}

// closeErrLine fails its first Close.
type closeErrLine struct {
	*gpio.FakeLine
	closes int
}

func (l *closeErrLine) Close() error {
	l.closes++
	return errors.New("release failed")
}

type lineChip struct {
	line gpio.Line
}

func (c lineChip) RequestInput(int) (gpio.Line, error) { return c.line, nil }
func (c lineChip) Close() error                        { return nil }

func TestDeinitReleaseErrorStillDeinits(t *testing.T) {
	line := &closeErrLine{FakeLine: gpio.NewFakeLine([]bool{false})}
	d, err := New(lineChip{line: line}, testPin)
	require.NoError(t, err)

	assert.Error(t, d.Deinit())
	assert.True(t, d.IsDeinited())
	assert.NoError(t, d.Deinit())
	assert.Equal(t, 1, line.closes)
}

func TestWithReleasesOnReturn(t *testing.T) {
	chip, line := gpio.NewFakeChip(testPin, []bool{false})

	var seen *Debouncer
	err := With(chip, testPin, func(d *Debouncer) error {
		seen = d
		assert.True(t, chip.Claimed(testPin))
		return d.Update()
	})
	require.NoError(t, err)
	assert.True(t, seen.IsDeinited())
	assert.True(t, line.Closed)
	assert.False(t, chip.Claimed(testPin))
}

func TestWithReleasesOnError(t *testing.T) {
	chip, _ := gpio.NewFakeChip(testPin, []bool{false})
	boom := errors.New("boom")

	err := With(chip, testPin, func(d *Debouncer) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, chip.Claimed(testPin))
}

func TestWithReleasesOnPanic(t *testing.T) {
	chip, _ := gpio.NewFakeChip(testPin, []bool{false})

	assert.Panics(t, func() {
		_ = With(chip, testPin, func(d *Debouncer) error {
			panic("boom")
		})
	})
	assert.False(t, chip.Claimed(testPin))
}

func TestWithExplicitDeinitInside(t *testing.T) {
	line := &closeErrLine{FakeLine: gpio.NewFakeLine([]bool{false})}

	err := With(lineChip{line: line}, testPin, func(d *Debouncer) error {
		d.Deinit()
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, line.closes, "release happens exactly once")
}

func TestWithClaimFailure(t *testing.T) {
	chip, _ := gpio.NewFakeChip(testPin, []bool{false})
	called := false

	err := With(chip, 3, func(d *Debouncer) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrResourceUnavailable)
	assert.False(t, called)
}

func TestMonotonicClock(t *testing.T) {
	clk := MonotonicClock()
	a := clk()
	b := clk()
	assert.GreaterOrEqual(t, b, a)
}
