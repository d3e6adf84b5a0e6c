package debounce

import "time"

// Clock returns a monotonic timestamp in milliseconds. Callers compare
// readings by unsigned subtraction, so a clock that wraps is fine as long
// as intervals stay well below the wrap period.
type Clock func() uint64

// MonotonicClock returns a Clock counting milliseconds since it was created,
// backed by the runtime's monotonic time source.
func MonotonicClock() Clock {
	start := time.Now()
	return func() uint64 {
		return uint64(time.Since(start).Milliseconds())
	}
}
