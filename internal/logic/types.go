// Package logic turns debounced pin readings into edge events.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// State represents the debounced level of the pin.
type State string

const (
	StateHigh State = "HIGH"
	StateLow  State = "LOW"
)

// EventType represents a debounced edge.
type EventType string

const (
	EventRose EventType = "ROSE"
	EventFell EventType = "FELL"
)

// Event represents an edge to be published.
type Event struct {
	Timestamp time.Time
	Pin       int
	Type      EventType
	State     State
}

// Input is one reading of the debouncer after an update.
type Input struct {
	Value bool
	Rose  bool
	Fell  bool
	Time  time.Time
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	Rose int
	Fell int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}

// StateOf maps a pin level to its State.
func StateOf(high bool) State {
	if high {
		return StateHigh
	}
	return StateLow
}
