package logic

import (
	"testing"
	"time"
)

func TestNewDetector(t *testing.T) {
	startTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDetector(17, true, startTime)
	if d == nil {
		t.Fatal("NewDetector returned nil")
	}
	if d.pin != 17 {
		t.Errorf("expected pin 17, got %d", d.pin)
	}
	if d.CurrentState() != StateHigh {
		t.Errorf("expected initial state HIGH, got %s", d.CurrentState())
	}
	if !d.startTime.Equal(startTime) {
		t.Errorf("expected startTime %v, got %v", startTime, d.startTime)
	}
	if !d.lastHeartbeat.Equal(startTime) {
		t.Errorf("expected lastHeartbeat %v, got %v", startTime, d.lastHeartbeat)
	}
}

func TestNoEventsForStableState(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDetector(17, true, now)

	for i := 0; i < 10; i++ {
		events := d.Process(Input{Value: true, Time: now.Add(time.Duration(i) * 10 * time.Millisecond)})
		if len(events) != 0 {
			t.Errorf("iteration %d: expected no events for stable state, got %d", i, len(events))
		}
	}
	if d.CurrentState() != StateHigh {
		t.Errorf("expected HIGH, got %s", d.CurrentState())
	}
}

func TestFellEvent(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDetector(17, true, now)

	events := d.Process(Input{Value: false, Fell: true, Time: now})
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	e := events[0]
	if e.Type != EventFell {
		t.Errorf("expected FELL event, got %s", e.Type)
	}
	if e.State != StateLow {
		t.Errorf("expected State=LOW, got %s", e.State)
	}
	if e.Pin != 17 {
		t.Errorf("expected Pin=17, got %d", e.Pin)
	}
	if !e.Timestamp.Equal(now) {
		t.Errorf("unexpected timestamp: %v", e.Timestamp)
	}
	if d.CurrentState() != StateLow {
		t.Errorf("expected LOW, got %s", d.CurrentState())
	}
}

func TestRoseEvent(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDetector(4, false, now)

	events := d.Process(Input{Value: true, Rose: true, Time: now})
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Type != EventRose {
		t.Errorf("expected ROSE event, got %s", events[0].Type)
	}
	if events[0].State != StateHigh {
		t.Errorf("expected State=HIGH, got %s", events[0].State)
	}
}

func TestAtMostOneEventPerInput(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDetector(17, false, now)

	events := d.Process(Input{Value: true, Rose: true, Fell: true, Time: now})
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Type != EventRose {
		t.Errorf("expected ROSE to win, got %s", events[0].Type)
	}
}

func TestStateFollowsValueWithoutEdge(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDetector(17, false, now)

	d.Process(Input{Value: true, Time: now})
	if d.CurrentState() != StateHigh {
		t.Errorf("expected HIGH, got %s", d.CurrentState())
	}
}

func TestStateOf(t *testing.T) {
	if StateOf(true) != StateHigh {
		t.Error("StateOf(true) should be HIGH")
	}
	if StateOf(false) != StateLow {
		t.Error("StateOf(false) should be LOW")
	}
}

func TestEventCountsIncrementOnTransition(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDetector(17, true, now)

	d.Process(Input{Value: false, Fell: true, Time: now})
	d.Process(Input{Value: false, Time: now.Add(10 * time.Millisecond)})
	d.Process(Input{Value: true, Rose: true, Time: now.Add(20 * time.Millisecond)})
	d.Process(Input{Value: false, Fell: true, Time: now.Add(30 * time.Millisecond)})

	counts := d.EventCountsSnapshot()
	if counts.Rose != 1 || counts.Fell != 2 {
		t.Errorf("expected Rose=1 Fell=2, got Rose=%d Fell=%d", counts.Rose, counts.Fell)
	}
}

func TestEventCountsSnapshotIsCopy(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDetector(17, true, now)

	snap := d.EventCountsSnapshot()
	d.Process(Input{Value: false, Fell: true, Time: now})
	if snap.Fell != 0 {
		t.Error("snapshot should not change after later events")
	}
}

func TestCheckHeartbeatDisabledWithZeroInterval(t *testing.T) {
	startTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDetector(17, false, startTime)

	// Should return nil with zero interval (disabled)
	hb := d.CheckHeartbeat(startTime.Add(15*time.Minute), 0)
	if hb != nil {
		t.Error("should not return heartbeat when interval is 0 (disabled)")
	}

	// Should also return nil with negative interval
	hb = d.CheckHeartbeat(startTime.Add(15*time.Minute), -1*time.Minute)
	if hb != nil {
		t.Error("should not return heartbeat when interval is negative")
	}
}

func TestCheckHeartbeatBeforeInterval(t *testing.T) {
	startTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDetector(17, false, startTime)

	hb := d.CheckHeartbeat(startTime.Add(14*time.Minute), 15*time.Minute)
	if hb != nil {
		t.Error("should not return heartbeat before interval")
	}
}

func TestCheckHeartbeatAtInterval(t *testing.T) {
	startTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDetector(17, false, startTime)

	checkTime := startTime.Add(15 * time.Minute)
	hb := d.CheckHeartbeat(checkTime, 15*time.Minute)
	if hb == nil {
		t.Fatal("should return heartbeat at interval")
	}

	if !hb.Timestamp.Equal(checkTime) {
		t.Errorf("expected timestamp %v, got %v", checkTime, hb.Timestamp)
	}
	if hb.Uptime != 15*time.Minute {
		t.Errorf("expected uptime 15m, got %v", hb.Uptime)
	}
}

func TestCheckHeartbeatUpdatesLastTime(t *testing.T) {
	startTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDetector(17, false, startTime)

	// First heartbeat
	t1 := startTime.Add(15 * time.Minute)
	if hb := d.CheckHeartbeat(t1, 15*time.Minute); hb == nil {
		t.Fatal("should return first heartbeat")
	}

	// Check immediately after - should return nil
	if hb := d.CheckHeartbeat(t1.Add(time.Second), 15*time.Minute); hb != nil {
		t.Error("should not return heartbeat immediately after previous")
	}

	// Second heartbeat after interval from first
	t2 := t1.Add(15 * time.Minute)
	hb := d.CheckHeartbeat(t2, 15*time.Minute)
	if hb == nil {
		t.Fatal("should return second heartbeat")
	}
	if hb.Uptime != 30*time.Minute {
		t.Errorf("expected uptime 30m, got %v", hb.Uptime)
	}
}

func TestMultipleHeartbeatsAccumulateCounts(t *testing.T) {
	startTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDetector(17, true, startTime)

	d.Process(Input{Value: false, Fell: true, Time: startTime.Add(time.Second)})

	hb1 := d.CheckHeartbeat(startTime.Add(15*time.Minute), 15*time.Minute)
	if hb1.Counts.Fell != 1 {
		t.Errorf("first heartbeat: expected Fell=1, got %d", hb1.Counts.Fell)
	}

	d.Process(Input{Value: true, Rose: true, Time: startTime.Add(16 * time.Minute)})

	// Second heartbeat - counts should include all events
	hb2 := d.CheckHeartbeat(startTime.Add(30*time.Minute), 15*time.Minute)
	if hb2.Counts.Fell != 1 {
		t.Errorf("second heartbeat: expected Fell=1, got %d", hb2.Counts.Fell)
	}
	if hb2.Counts.Rose != 1 {
		t.Errorf("second heartbeat: expected Rose=1, got %d", hb2.Counts.Rose)
	}
}
