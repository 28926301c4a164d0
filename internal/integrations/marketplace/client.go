package marketplace

import (
	"context"
	"fmt"

	"github.com/HaulBid/BidBox/internal/models"
)

// BidRequest is what the engine hands to the backend on submission.
type BidRequest struct {
	RouteID  string
	DriverID string
	Amount   float64
	Notes    string
}

// Client is the hosted-backend collaborator. Transport failures come back
// as ordinary (transient) errors; a backend that accepts the request but
// refuses the bid returns *DomainRejectionError.
type Client interface {
	FetchRoutes(ctx context.Context, driverID, statusFilter string) ([]models.Route, error)
	FetchVerificationProfile(ctx context.Context, userID string) (models.VerificationProfile, error)
	SubmitBid(ctx context.Context, req BidRequest) (models.BidReceipt, error)
}

// DomainRejectionError means the backend independently refused a bid
// (window already closed server-side, route already booked). Terminal for
// that submission attempt, never retried automatically.
type DomainRejectionError struct {
	Reason string
}

func (e *DomainRejectionError) Error() string {
	return fmt.Sprintf("bid rejected by backend: %s", e.Reason)
}
