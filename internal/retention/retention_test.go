package retention

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestManual_FiresWhenDue(t *testing.T) {
	var m Manual
	var fired int
	m.Schedule(30*time.Second, func() { fired++ })

	m.Advance(29 * time.Second)
	if fired != 0 {
		t.Fatalf("fired early")
	}
	m.Advance(time.Second)
	if fired != 1 {
		t.Fatalf("want 1 call, got %d", fired)
	}
	m.Advance(time.Minute)
	if fired != 1 {
		t.Errorf("task fired twice")
	}
}

func TestManual_CancelIsIdempotent(t *testing.T) {
	var m Manual
	var fired bool
	task := m.Schedule(time.Second, func() { fired = true })
	task.Cancel()
	task.Cancel()
	m.Advance(time.Hour)
	if fired {
		t.Error("cancelled task fired")
	}
	if m.Pending() != 0 {
		t.Errorf("pending: want 0, got %d", m.Pending())
	}
}

func TestManual_DueOrder(t *testing.T) {
	var m Manual
	var order []string
	m.Schedule(3*time.Second, func() { order = append(order, "c") })
	m.Schedule(time.Second, func() { order = append(order, "a") })
	m.Schedule(2*time.Second, func() { order = append(order, "b") })
	m.Advance(5 * time.Second)
	if got := len(order); got != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Errorf("order: %v", order)
	}
}

func TestManual_TaskIDsAreUnique(t *testing.T) {
	var m Manual
	a := m.Schedule(time.Second, func() {})
	b := m.Schedule(time.Second, func() {})
	if a.ID() == "" || a.ID() == b.ID() {
		t.Errorf("ids: %q %q", a.ID(), b.ID())
	}
}

func TestTimerScheduler_CancelAfterFire(t *testing.T) {
	var n atomic.Int32
	done := make(chan struct{})
	task := TimerScheduler{}.Schedule(time.Millisecond, func() {
		n.Add(1)
		close(done)
	})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}
	task.Cancel()
	task.Cancel()
	if n.Load() != 1 {
		t.Errorf("want 1 call, got %d", n.Load())
	}
}

func TestTimerScheduler_CancelBeforeFire(t *testing.T) {
	var n atomic.Int32
	task := TimerScheduler{}.Schedule(50*time.Millisecond, func() { n.Add(1) })
	task.Cancel()
	time.Sleep(100 * time.Millisecond)
	if n.Load() != 0 {
		t.Error("cancelled timer fired")
	}
}
