// Package retention schedules the delayed clear of an ended match.
package retention

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Task is a pending delayed call. Cancel is safe to call more than once and
// after the call has fired.
type Task interface {
	ID() string
	Cancel()
}

// Scheduler runs fn once after d.
type Scheduler interface {
	Schedule(d time.Duration, fn func()) Task
}

// TimerScheduler is the wall-clock Scheduler.
type TimerScheduler struct{}

type timerTask struct {
	id    string
	once  sync.Once
	timer *time.Timer
}

func (t *timerTask) ID() string { return t.id }

func (t *timerTask) Cancel() {
	t.once.Do(func() { t.timer.Stop() })
}

// Schedule starts a timer for fn.
func (TimerScheduler) Schedule(d time.Duration, fn func()) Task {
	t := &timerTask{id: uuid.NewString()}
	t.timer = time.AfterFunc(d, fn)
	return t
}

// Manual is a Scheduler whose clock only moves when Advance is called.
type Manual struct {
	mu    sync.Mutex
	now   time.Duration
	tasks []*manualTask
}

type manualTask struct {
	id        string
	due       time.Duration
	fn        func()
	cancelled bool
	owner     *Manual
}

func (t *manualTask) ID() string { return t.id }

func (t *manualTask) Cancel() {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	t.cancelled = true
}

// Schedule registers fn to run once the manual clock passes d from now.
func (m *Manual) Schedule(d time.Duration, fn func()) Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTask{id: uuid.NewString(), due: m.now + d, fn: fn, owner: m}
	m.tasks = append(m.tasks, t)
	return t
}

// Advance moves the clock forward by d and runs every task that came due, in
// due order. Callbacks run without the scheduler lock held.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now += d
	var due []*manualTask
	pending := m.tasks[:0]
	for _, t := range m.tasks {
		switch {
		case t.cancelled:
		case t.due <= m.now:
			due = append(due, t)
		default:
			pending = append(pending, t)
		}
	}
	m.tasks = pending
	m.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].due < due[j].due })
	for _, t := range due {
		t.fn()
	}
}

// Pending reports how many tasks are scheduled and not yet fired or cancelled.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tasks {
		if !t.cancelled {
			n++
		}
	}
	return n
}
