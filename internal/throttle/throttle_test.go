package throttle

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

func TestThrottle_CooldownWindow(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	th := New(100*time.Millisecond, nil)

	calls := 0
	inc := func() { calls++ }

	require.True(t, th.Attempt(inc, base))
	require.False(t, th.Attempt(inc, base.Add(50*time.Millisecond)))
	require.True(t, th.Attempt(inc, base.Add(150*time.Millisecond)))
	require.Equal(t, 2, calls)
}

func TestThrottle_DefaultCooldown(t *testing.T) {
	th := New(0, nil)
	require.Equal(t, DefaultCooldown, th.cooldown)
}

func TestThrottle_FirstAttemptAlwaysExecutes(t *testing.T) {
	th := New(time.Hour, nil)
	ran := false
	require.True(t, th.Attempt(func() { ran = true }, time.Now()))
	require.True(t, ran)
}

func TestThrottle_DeferredFires(t *testing.T) {
	fc := clockwork.NewFakeClock()
	th := New(100*time.Millisecond, fc)

	done := make(chan struct{})
	th.AttemptDeferred(func() { close(done) }, 300*time.Millisecond)

	fc.BlockUntil(1)
	fc.Advance(300 * time.Millisecond)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("deferred action did not fire")
	}
}

func TestThrottle_CancelPending(t *testing.T) {
	fc := clockwork.NewFakeClock()
	th := New(100*time.Millisecond, fc)

	ran := make(chan struct{}, 1)
	th.AttemptDeferred(func() { ran <- struct{}{} }, 300*time.Millisecond)
	fc.BlockUntil(1)

	th.CancelPending()
	fc.Advance(time.Second)

	select {
	case <-ran:
		t.Fatal("action fired after cancellation")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestThrottle_DeferredReplacesOutstanding(t *testing.T) {
	fc := clockwork.NewFakeClock()
	th := New(100*time.Millisecond, fc)

	got := make(chan string, 2)
	th.AttemptDeferred(func() { got <- "first" }, 300*time.Millisecond)
	fc.BlockUntil(1)
	th.AttemptDeferred(func() { got <- "second" }, 300*time.Millisecond)
	fc.BlockUntil(1)

	fc.Advance(time.Second)

	select {
	case v := <-got:
		require.Equal(t, "second", v)
	case <-time.After(2 * time.Second):
		t.Fatal("no deferred action fired")
	}
	select {
	case v := <-got:
		t.Fatalf("superseded action fired: %s", v)
	case <-time.After(50 * time.Millisecond):
	}
}
