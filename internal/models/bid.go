package models

import "time"

const (
	BidStatusActive = "ACTIVE"
	BidStatusWon    = "WON"
	BidStatusLost   = "LOST"
)

type Bid struct {
	ID       string
	RouteID  string
	DriverID string
	Amount   float64
	Notes    string
	PlacedAt time.Time
	Status   string
}

// BidReceipt is returned for every accepted submission. Reference is unique
// per submission and is what support asks the driver for.
type BidReceipt struct {
	BidID       string
	RouteID     string
	Reference   string
	SubmittedAt time.Time
}
