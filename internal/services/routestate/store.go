package routestate

import (
	"sync"

	"github.com/HaulBid/BidBox/internal/models"
)

// Store holds the client's view of the route collection. Single-writer:
// only the synchronizer's apply step mutates it, everything else reads.
type Store struct {
	mu      sync.RWMutex
	byID    map[string]models.Route
	order   []string
	bids    map[string]models.Bid // keyed by bid ID
	applied int64
}

func NewStore() *Store {
	return &Store{
		byID: map[string]models.Route{},
		bids: map[string]models.Bid{},
	}
}

// ApplySnapshot merges a remote snapshot keyed by route ID. First-seen order
// is kept so list rendering stays stable; re-applying the same snapshot is a
// no-op beyond bumping the applied counter.
func (s *Store) ApplySnapshot(routes []models.Route) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range routes {
		if r.ID == "" {
			continue
		}
		if _, ok := s.byID[r.ID]; !ok {
			s.order = append(s.order, r.ID)
		}
		s.byID[r.ID] = r
	}
	s.applied++
}

// UpsertBid records a bid the session placed or observed.
func (s *Store) UpsertBid(b models.Bid) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bids[b.ID] = b
}

func (s *Store) Route(id string) (models.Route, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	return r, ok
}

// Routes returns the collection in first-seen order.
func (s *Store) Routes() []models.Route {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Route, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// SnapshotsApplied counts apply calls; used by the status API.
func (s *Store) SnapshotsApplied() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.applied
}

// BidOutcome resolves a bid's status against the owning route: WON when the
// route booked this bid, LOST when it booked another or closed out, ACTIVE
// otherwise. acceptedBidID comes from the route snapshot and may be empty.
func (s *Store) BidOutcome(b models.Bid, acceptedBidID string) string {
	s.mu.RLock()
	r, ok := s.byID[b.RouteID]
	s.mu.RUnlock()
	if !ok {
		return b.Status
	}
	switch r.Status {
	case models.RouteStatusBooked:
		if acceptedBidID == b.ID {
			return models.BidStatusWon
		}
		return models.BidStatusLost
	case models.RouteStatusCancelled, models.RouteStatusCompleted:
		if b.Status == models.BidStatusWon {
			return models.BidStatusWon
		}
		return models.BidStatusLost
	default:
		return models.BidStatusActive
	}
}
