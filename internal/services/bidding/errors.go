package bidding

import "github.com/pkg/errors"

// Local validation failures. Surfaced as field-level messages and never
// propagated past the caller.
var (
	ErrInvalidAmount    = errors.New("bid amount must be a positive number")
	ErrBiddingClosed    = errors.New("bidding window has closed")
	ErrRouteNotBiddable = errors.New("route no longer accepts bids")
)

// ErrVerificationRequired means the access gate withheld restricted
// features for this driver.
var ErrVerificationRequired = errors.New("driver verification required")

// ErrDuplicateDispatch means the throttle absorbed a repeated trigger; the
// first submission is still the only one dispatched.
var ErrDuplicateDispatch = errors.New("duplicate submission absorbed")

// IsValidation reports whether err is a local precondition failure rather
// than a transport or backend problem.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrBiddingClosed) ||
		errors.Is(err, ErrRouteNotBiddable)
}
