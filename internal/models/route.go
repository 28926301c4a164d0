package models

import "time"

// Route statuses as the backend reports them. The client only ever observes
// transitions via polling, it never originates one.
const (
	RouteStatusOpen      = "OPEN"
	RouteStatusInitiated = "INITIATED"
	RouteStatusBooked    = "BOOKED"
	RouteStatusCompleted = "COMPLETED"
	RouteStatusCancelled = "CANCELLED"
)

type Route struct {
	ID             string
	Origin         string
	Destination    string
	BiddingEndTime time.Time
	EstimatedPrice float64
	Status         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsBiddable reports whether the backend status still accepts bids.
// Window expiry is checked separately against BiddingEndTime.
func (r *Route) IsBiddable() bool {
	switch r.Status {
	case RouteStatusOpen, RouteStatusInitiated:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status admits no further bid transitions.
func (r *Route) IsTerminal() bool {
	switch r.Status {
	case RouteStatusBooked, RouteStatusCompleted, RouteStatusCancelled:
		return true
	default:
		return false
	}
}
