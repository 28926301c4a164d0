package bidding

import (
	"context"
	"log/slog"
	"math"
	"strconv"

	"github.com/HaulBid/BidBox/internal/countdown"
	"github.com/HaulBid/BidBox/internal/integrations/marketplace"
	"github.com/HaulBid/BidBox/internal/models"
	"github.com/HaulBid/BidBox/internal/services/routestate"
	"github.com/HaulBid/BidBox/internal/throttle"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
)

// AccessGate is the slice of the verification gate the flow consumes.
type AccessGate interface {
	CanAccess() bool
}

// Notifier observes successful submissions; fans out to the event stream.
type Notifier interface {
	BidPlaced(receipt models.BidReceipt, req marketplace.BidRequest)
}

// Flow validates and submits bids. Preconditions are checked in a fixed
// order with first failure winning; the final dispatch is throttled so a
// double-tap cannot submit twice.
type Flow struct {
	client   marketplace.Client
	gate     AccessGate
	store    *routestate.Store
	throttle *throttle.Throttle
	clock    clockwork.Clock
	notifier Notifier

	driverID string
}

func NewFlow(client marketplace.Client, driverID string, g AccessGate, store *routestate.Store, th *throttle.Throttle, clock clockwork.Clock) *Flow {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if th == nil {
		th = throttle.New(throttle.DefaultCooldown, clock)
	}
	return &Flow{
		client:   client,
		gate:     g,
		store:    store,
		throttle: th,
		clock:    clock,
		driverID: driverID,
	}
}

func (f *Flow) WithNotifier(n Notifier) *Flow {
	f.notifier = n
	return f
}

// PlaceBid checks the gate, then amount, window, and route status in that
// order, and dispatches through the throttle. The returned receipt carries
// a reference token unique per successful submission.
func (f *Flow) PlaceBid(ctx context.Context, route models.Route, amount, notes string) (models.BidReceipt, error) {
	if f.gate != nil && !f.gate.CanAccess() {
		return models.BidReceipt{}, ErrVerificationRequired
	}

	parsed, err := strconv.ParseFloat(amount, 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) || parsed <= 0 {
		return models.BidReceipt{}, ErrInvalidAmount
	}

	now := f.clock.Now().UTC()
	if !countdown.IsOpenForBidding(now, route.BiddingEndTime) {
		return models.BidReceipt{}, ErrBiddingClosed
	}
	if !route.IsBiddable() {
		return models.BidReceipt{}, ErrRouteNotBiddable
	}

	req := marketplace.BidRequest{
		RouteID:  route.ID,
		DriverID: f.driverID,
		Amount:   parsed,
		Notes:    notes,
	}

	var receipt models.BidReceipt
	var submitErr error
	executed := f.throttle.Attempt(func() {
		receipt, submitErr = f.client.SubmitBid(ctx, req)
	}, now)
	if !executed {
		return models.BidReceipt{}, ErrDuplicateDispatch
	}
	if submitErr != nil {
		// DomainRejectionError passes through untouched for errors.As.
		return models.BidReceipt{}, errors.Wrap(submitErr, "submit bid")
	}

	if receipt.Reference == "" {
		receipt.Reference = uuid.NewString()
	}
	if receipt.SubmittedAt.IsZero() {
		receipt.SubmittedAt = now
	}

	if f.store != nil {
		f.store.UpsertBid(models.Bid{
			ID:       receipt.BidID,
			RouteID:  route.ID,
			DriverID: f.driverID,
			Amount:   parsed,
			Notes:    notes,
			PlacedAt: now,
			Status:   models.BidStatusActive,
		})
	}

	slog.Info("bid placed", "route_id", route.ID, "driver_id", f.driverID, "reference", receipt.Reference)
	if f.notifier != nil {
		f.notifier.BidPlaced(receipt, req)
	}
	return receipt, nil
}

// CancelPending clears any deferred dispatch, e.g. when the owning screen
// unmounts mid-confirmation.
func (f *Flow) CancelPending() {
	f.throttle.CancelPending()
}
