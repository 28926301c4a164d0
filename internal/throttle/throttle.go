package throttle

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const DefaultCooldown = 100 * time.Millisecond

// Throttle absorbs rapid repeated user triggers (double-taps, stacked
// navigation intents) so an action dispatches at most once per cooldown
// window.
type Throttle struct {
	mu             sync.Mutex
	cooldown       time.Duration
	lastExecutedAt time.Time
	clock          clockwork.Clock
	pending        clockwork.Timer
	pendingSeq     uint64
}

func New(cooldown time.Duration, clock clockwork.Clock) *Throttle {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Throttle{cooldown: cooldown, clock: clock}
}

// Attempt executes action synchronously unless a prior execution happened
// within the cooldown window. Returns whether the action ran.
func (t *Throttle) Attempt(action func(), now time.Time) bool {
	t.mu.Lock()
	if !t.lastExecutedAt.IsZero() && now.Sub(t.lastExecutedAt) < t.cooldown {
		t.mu.Unlock()
		return false
	}
	t.lastExecutedAt = now
	t.mu.Unlock()

	action()
	return true
}

// AttemptDeferred schedules action after delay, replacing any outstanding
// deferred invocation. CancelPending guarantees nothing fires afterwards.
func (t *Throttle) AttemptDeferred(action func(), delay time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pending != nil {
		t.pending.Stop()
	}
	t.pendingSeq++
	seq := t.pendingSeq
	t.pending = t.clock.AfterFunc(delay, func() {
		t.mu.Lock()
		if seq != t.pendingSeq {
			// Superseded or cancelled while the timer was firing.
			t.mu.Unlock()
			return
		}
		t.pending = nil
		t.lastExecutedAt = t.clock.Now()
		t.mu.Unlock()
		action()
	})
}

// CancelPending clears an outstanding deferred invocation, if any.
func (t *Throttle) CancelPending() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
	t.pendingSeq++
}
