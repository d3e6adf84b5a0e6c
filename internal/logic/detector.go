package logic

import "time"

// Detector turns debouncer readings into events and keeps running counts.
type Detector struct {
	pin           int
	state         State
	startTime     time.Time
	eventCounts   EventCounts
	lastHeartbeat time.Time
}

// NewDetector creates a detector for pin, seeded with the debounced value read
// at construction. The startTime is used for calculating uptime in heartbeat
// events.
func NewDetector(pin int, initial bool, startTime time.Time) *Detector {
	return &Detector{
		pin:           pin,
		state:         StateOf(initial),
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Process takes one reading and returns the event it carries, if any.
// Rose takes precedence should a reading ever claim both edges.
func (d *Detector) Process(input Input) []Event {
	d.state = StateOf(input.Value)

	var typ EventType
	switch {
	case input.Rose:
		typ = EventRose
		d.eventCounts.Rose++
	case input.Fell:
		typ = EventFell
		d.eventCounts.Fell++
	default:
		return nil
	}

	return []Event{{
		Timestamp: input.Time,
		Pin:       d.pin,
		Type:      typ,
		State:     d.state,
	}}
}

// CurrentState returns the last debounced state.
func (d *Detector) CurrentState() State {
	return d.state
}

// EventCountsSnapshot returns a copy of the counts.
func (d *Detector) EventCountsSnapshot() EventCounts {
	return d.eventCounts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed,
// or if interval is <= 0 (disabled).
func (d *Detector) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if now.Sub(d.lastHeartbeat) < interval {
		return nil
	}

	d.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(d.startTime),
		Counts:    d.eventCounts,
	}
}
