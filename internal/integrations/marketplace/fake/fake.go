package fake

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/HaulBid/BidBox/internal/integrations/marketplace"
	"github.com/HaulBid/BidBox/internal/models"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

var cityPairs = [][2]string{
	{"Colombo", "Kandy"},
	{"Galle", "Jaffna"},
	{"Kurunegala", "Badulla"},
	{"Anuradhapura", "Ratnapura"},
	{"Batticaloa", "Polonnaruwa"},
}

// FakeClient is an in-process stand-in for the hosted backend, used in demos
// and tests. Routes and statuses are deterministic per driver ID so repeated
// fetches reconcile cleanly.
type FakeClient struct {
	clock clockwork.Clock

	mu     sync.Mutex
	booked map[string]bool // routeID -> booked via SubmitBid acceptance elsewhere
}

func New(clock clockwork.Clock) *FakeClient {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &FakeClient{clock: clock, booked: map[string]bool{}}
}

func (f *FakeClient) FetchRoutes(ctx context.Context, driverID, statusFilter string) ([]models.Route, error) {
	now := f.clock.Now().UTC()

	out := make([]models.Route, 0, len(cityPairs))
	for i, pair := range cityPairs {
		id := routeID(driverID, i)

		// Deterministic spread: every 5th route is booked, the rest open
		// with staggered windows.
		status := models.RouteStatusOpen
		if hash(id)%5 == 0 {
			status = models.RouteStatusBooked
		}
		f.mu.Lock()
		if f.booked[id] {
			status = models.RouteStatusBooked
		}
		f.mu.Unlock()

		r := models.Route{
			ID:             id,
			Origin:         pair[0],
			Destination:    pair[1],
			BiddingEndTime: now.Add(time.Duration(i+1) * time.Hour),
			EstimatedPrice: float64(1500 + 500*i),
			Status:         status,
			CreatedAt:      now.Add(-24 * time.Hour),
			UpdatedAt:      now,
		}
		if statusFilter != "" && statusFilter != r.Status {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *FakeClient) FetchVerificationProfile(ctx context.Context, userID string) (models.VerificationProfile, error) {
	// 3/4 of drivers come back approved, the next pending, deterministically.
	status := models.VerificationApproved
	if hash(userID)%4 == 0 {
		status = models.VerificationPending
	}
	return models.VerificationProfile{
		UserID:             userID,
		Role:               models.RoleDriver,
		VerificationStatus: status,
	}, nil
}

func (f *FakeClient) SubmitBid(ctx context.Context, req marketplace.BidRequest) (models.BidReceipt, error) {
	f.mu.Lock()
	booked := f.booked[req.RouteID]
	f.mu.Unlock()
	if booked {
		return models.BidReceipt{}, &marketplace.DomainRejectionError{Reason: "route already booked"}
	}

	now := f.clock.Now().UTC()
	return models.BidReceipt{
		BidID:       uuid.NewString(),
		RouteID:     req.RouteID,
		Reference:   uuid.NewString(),
		SubmittedAt: now,
	}, nil
}

// MarkBooked simulates the backend accepting some other driver's bid.
func (f *FakeClient) MarkBooked(routeID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.booked[routeID] = true
}

func routeID(driverID string, i int) string {
	return fmt.Sprintf("route-%s-%d", driverID, i+1)
}

func hash(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}
