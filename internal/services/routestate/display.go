package routestate

import (
	"strings"
	"time"

	"github.com/HaulBid/BidBox/internal/countdown"
	"github.com/HaulBid/BidBox/internal/models"
)

// DisplayStatus is the presentation label plus the color tokens the mobile
// screens use for the status pill.
type DisplayStatus struct {
	Label      string
	Color      string
	Background string
}

// DeriveDisplayStatus maps a backend status to its presentation form.
// An OPEN/INITIATED route past its deadline still shows as Active: the
// client never fabricates a terminal status from expiry alone, the backend
// snapshot has to confirm it. Unknown statuses pass through as-is.
func DeriveDisplayStatus(r models.Route, now time.Time) DisplayStatus {
	switch strings.ToUpper(r.Status) {
	case models.RouteStatusOpen, models.RouteStatusInitiated:
		return DisplayStatus{Label: "Active", Color: "orange", Background: "orange-light"}
	case models.RouteStatusBooked:
		return DisplayStatus{Label: "Booked", Color: "blue", Background: "blue-light"}
	case models.RouteStatusCompleted:
		return DisplayStatus{Label: "Completed", Color: "green", Background: "green-light"}
	case models.RouteStatusCancelled:
		return DisplayStatus{Label: "Cancelled", Color: "red", Background: "red-light"}
	default:
		return DisplayStatus{Label: r.Status, Color: "gray", Background: "gray-light"}
	}
}

// WindowClosed is the derived presentation flag for an elapsed bidding
// window. It does not change DeriveDisplayStatus; submission-time checks
// enforce closure.
func WindowClosed(r models.Route, now time.Time) bool {
	return !countdown.IsOpenForBidding(now, r.BiddingEndTime)
}
