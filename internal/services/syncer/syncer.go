package syncer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
)

const DefaultInterval = 30 * time.Second

// FetchFunc pulls a remote snapshot. It is the only suspension point the
// synchronizer has; timeouts belong to the collaborator behind it.
type FetchFunc func(ctx context.Context) (any, error)

// ApplyFunc merges an applied snapshot into local state. Called with
// completions in issue order, never concurrently for one key.
type ApplyFunc func(snapshot any)

// Events receives lifecycle notifications. All methods must be cheap and
// non-blocking; implementations fan out to metrics and the event stream.
type Events interface {
	SnapshotApplied(key string, seq uint64)
	FetchFailed(key string, err error)
	StaleDiscarded(key string, seq uint64)
}

type noopEvents struct{}

func (noopEvents) SnapshotApplied(string, uint64) {}
func (noopEvents) FetchFailed(string, error)      {}
func (noopEvents) StaleDiscarded(string, uint64)  {}

// Synchronizer owns one repeating fetch loop per subscribed resource key
// and keeps client-visible state reconciled with the backend.
type Synchronizer struct {
	clock  clockwork.Clock
	events Events

	mu   sync.Mutex
	subs map[string]*subscription
}

func New(clock clockwork.Clock, events Events) *Synchronizer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if events == nil {
		events = noopEvents{}
	}
	return &Synchronizer{
		clock:  clock,
		events: events,
		subs:   map[string]*subscription{},
	}
}

type subscription struct {
	key      string
	interval time.Duration
	fetch    FetchFunc
	apply    ApplyFunc

	clock  clockwork.Clock
	events Events

	cancel  context.CancelFunc
	done    chan struct{}
	trigger chan struct{}

	mu            sync.Mutex
	stopped       bool
	inFlight      bool
	issuedSeq     uint64
	appliedSeq    uint64
	startedAt     time.Time
	lastFetchedAt time.Time
	lastError     string
	fetches       int64
	errCount      int64
	stale         int64
}

// Start subscribes key: one immediate fetch, then one every interval until
// Stop or ctx cancellation. Starting an already-subscribed key is an error.
func (s *Synchronizer) Start(ctx context.Context, key string, interval time.Duration, fetch FetchFunc, apply ApplyFunc) error {
	if key == "" {
		return errors.New("resource key is required")
	}
	if fetch == nil || apply == nil {
		return errors.New("fetch and apply are required")
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.subs[key]; ok && !prev.isStopped() {
		return errors.Errorf("subscription %q already started", key)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		key:       key,
		interval:  interval,
		fetch:     fetch,
		apply:     apply,
		clock:     s.clock,
		events:    s.events,
		cancel:    cancel,
		done:      make(chan struct{}),
		trigger:   make(chan struct{}, 1),
		startedAt: s.clock.Now().UTC(),
	}
	s.subs[key] = sub

	go sub.run(loopCtx)
	return nil
}

// RefreshNow requests an out-of-band fetch for key. Coalesced into a no-op
// when a fetch is already in flight: single-flight per key.
func (s *Synchronizer) RefreshNow(key string) {
	s.mu.Lock()
	sub, ok := s.subs[key]
	s.mu.Unlock()
	if !ok {
		return
	}

	sub.mu.Lock()
	busy := sub.inFlight || sub.stopped
	sub.mu.Unlock()
	if busy {
		slog.Debug("refresh coalesced, fetch already in flight", "resource", key)
		return
	}

	select {
	case sub.trigger <- struct{}{}:
	default:
	}
}

// Stop is idempotent. After it returns the loop timer cannot fire again and
// any in-flight completion is discarded on arrival instead of applied.
func (s *Synchronizer) Stop(key string) {
	s.mu.Lock()
	sub, ok := s.subs[key]
	s.mu.Unlock()
	if !ok {
		return
	}

	sub.mu.Lock()
	already := sub.stopped
	sub.stopped = true
	sub.mu.Unlock()

	sub.cancel()
	if !already {
		<-sub.done
	}
}

// StopAll tears down every subscription; used on session shutdown.
func (s *Synchronizer) StopAll() {
	s.mu.Lock()
	keys := make([]string, 0, len(s.subs))
	for k := range s.subs {
		keys = append(keys, k)
	}
	s.mu.Unlock()
	for _, k := range keys {
		s.Stop(k)
	}
}

func (sub *subscription) run(ctx context.Context) {
	defer close(sub.done)

	sub.fetchOnce(ctx)

	t := sub.clock.NewTicker(sub.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.Chan():
			sub.fetchOnce(ctx)
		case <-sub.trigger:
			sub.fetchOnce(ctx)
		}
	}
}

func (sub *subscription) fetchOnce(ctx context.Context) {
	sub.mu.Lock()
	if sub.stopped || sub.inFlight {
		sub.mu.Unlock()
		return
	}
	sub.inFlight = true
	sub.issuedSeq++
	seq := sub.issuedSeq
	sub.mu.Unlock()

	// Cleanup is unconditional so the refreshing flag can never stick.
	defer func() {
		sub.mu.Lock()
		sub.inFlight = false
		sub.mu.Unlock()
	}()

	snap, err := sub.fetch(ctx)

	sub.mu.Lock()
	sub.lastFetchedAt = sub.clock.Now().UTC()

	if err != nil {
		// Keep the last good snapshot; the next scheduled tick retries.
		sub.errCount++
		sub.lastError = err.Error()
		sub.mu.Unlock()
		slog.Error("fetch resource snapshot", "resource", sub.key, "seq", seq, "error", err.Error())
		sub.events.FetchFailed(sub.key, err)
		return
	}

	if sub.stopped || seq <= sub.appliedSeq {
		sub.stale++
		sub.mu.Unlock()
		slog.Warn("stale snapshot discarded", "resource", sub.key, "seq", seq)
		sub.events.StaleDiscarded(sub.key, seq)
		return
	}

	sub.appliedSeq = seq
	sub.fetches++
	sub.lastError = ""
	// Apply under the subscription lock: a Stop that wins the lock first
	// marks stopped and this result is discarded above, never half-applied.
	sub.apply(snap)
	sub.mu.Unlock()

	sub.events.SnapshotApplied(sub.key, seq)
}

func (sub *subscription) isStopped() bool {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.stopped
}
