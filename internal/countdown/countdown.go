package countdown

import (
	"fmt"
	"time"
)

// Countdown is the bidding-window time remaining, split for display.
// Always recomputed from absolute timestamps so repeated calls cannot drift.
type Countdown struct {
	Days    int
	Hours   int
	Minutes int
	Seconds int
	Expired bool
}

// Remaining evaluates deadline against now. A deadline at or before now is
// the terminal Expired marker.
func Remaining(now, deadline time.Time) Countdown {
	diff := deadline.Sub(now)
	if diff <= 0 {
		return Countdown{Expired: true}
	}
	return Countdown{
		Days:    int(diff / (24 * time.Hour)),
		Hours:   int(diff % (24 * time.Hour) / time.Hour),
		Minutes: int(diff % time.Hour / time.Minute),
		Seconds: int(diff % time.Minute / time.Second),
	}
}

// String renders "Ended", "HH:MM:SS", or "Nd HH:MM:SS" when a day segment
// is present.
func (c Countdown) String() string {
	if c.Expired {
		return "Ended"
	}
	if c.Days > 0 {
		return fmt.Sprintf("%dd %02d:%02d:%02d", c.Days, c.Hours, c.Minutes, c.Seconds)
	}
	return fmt.Sprintf("%02d:%02d:%02d", c.Hours, c.Minutes, c.Seconds)
}

// IsOpenForBidding reports whether the window is still open. Strictly
// monotonic in now: once closed it stays closed.
func IsOpenForBidding(now, deadline time.Time) bool {
	return deadline.After(now)
}
