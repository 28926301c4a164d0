package messages

import "time"

// Events published to the marketplace activity topic, consumed by the admin
// panel's live feed.

type BidPlaced struct {
	BidID     string    `json:"bid_id"`
	RouteID   string    `json:"route_id"`
	DriverID  string    `json:"driver_id"`
	Amount    float64   `json:"amount"`
	Reference string    `json:"reference"`
	PlacedAt  time.Time `json:"placed_at"`
}

type SnapshotApplied struct {
	ResourceKey string    `json:"resource_key"`
	FetchSeq    uint64    `json:"fetch_seq"`
	AppliedAt   time.Time `json:"applied_at"`
}

type StaleSnapshotDiscarded struct {
	ResourceKey string    `json:"resource_key"`
	FetchSeq    uint64    `json:"fetch_seq"`
	DiscardedAt time.Time `json:"discarded_at"`
}
