package syncer

import (
	"sort"
	"time"
)

// SubscriptionStats is the operational view served by the agent API.
type SubscriptionStats struct {
	ResourceKey    string     `json:"resourceKey"`
	IntervalMs     int64      `json:"intervalMs"`
	StartedAt      time.Time  `json:"startedAt"`
	LastFetchedAt  *time.Time `json:"lastFetchedAt,omitempty"`
	IsRefreshing   bool       `json:"isRefreshing"`
	LastError      string     `json:"lastError,omitempty"`
	Fetches        int64      `json:"fetches"`
	Errors         int64      `json:"errors"`
	StaleDiscarded int64      `json:"staleDiscarded"`
	Stopped        bool       `json:"stopped"`
}

func (s *Synchronizer) Stats() []SubscriptionStats {
	s.mu.Lock()
	subs := make([]*subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	out := make([]SubscriptionStats, 0, len(subs))
	for _, sub := range subs {
		sub.mu.Lock()
		st := SubscriptionStats{
			ResourceKey:    sub.key,
			IntervalMs:     sub.interval.Milliseconds(),
			StartedAt:      sub.startedAt,
			IsRefreshing:   sub.inFlight,
			LastError:      sub.lastError,
			Fetches:        sub.fetches,
			Errors:         sub.errCount,
			StaleDiscarded: sub.stale,
			Stopped:        sub.stopped,
		}
		if !sub.lastFetchedAt.IsZero() {
			t := sub.lastFetchedAt
			st.LastFetchedAt = &t
		}
		sub.mu.Unlock()
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ResourceKey < out[j].ResourceKey })
	return out
}

// KeyStats returns the stats for one subscription key.
func (s *Synchronizer) KeyStats(key string) (SubscriptionStats, bool) {
	for _, st := range s.Stats() {
		if st.ResourceKey == key {
			return st, true
		}
	}
	return SubscriptionStats{}, false
}
