package gate

import (
	"log/slog"
	"sync"

	"github.com/HaulBid/BidBox/internal/models"
)

// Fixed driver-facing messages per verification status.
const (
	msgPending  = "Your verification is pending. You can explore the app but cannot access earnings, routes, or chats until verified."
	msgRejected = "Your verification was rejected. Please contact support or resubmit your documents."
	msgApproved = "You are verified and have full access to all features."
	msgDefault  = "Please complete your verification to access all features."
)

// Session is the explicit handle for the signed-in user; the gate never
// reads ambient global auth state.
type Session struct {
	UserID string
	Role   string
}

// Refresher triggers an out-of-band profile fetch; satisfied by the
// synchronizer.
type Refresher interface {
	RefreshNow(key string)
}

// Decision is the feature-access verdict for one profile snapshot.
type Decision struct {
	IsDriver                    bool   `json:"isDriver"`
	IsVerified                  bool   `json:"isVerified"`
	CanAccessRestrictedFeatures bool   `json:"canAccessRestrictedFeatures"`
	Message                     string `json:"message"`
}

// Gate computes feature-access decisions from verification profile
// snapshots. Evaluation is memoized on profile identity so per-render-tick
// calls cost nothing when the profile has not changed, and it never fetches.
type Gate struct {
	session   Session
	refresher Refresher
	key       string

	mu      sync.Mutex
	profile models.VerificationProfile
	have    bool

	memoIn  models.VerificationProfile
	memoOut Decision
	memoSet bool

	active bool
}

// New binds a gate to a session. key is the synchronizer resource key for
// the profile subscription; refresher may be nil for gates that never
// refresh (pure evaluation and tests).
func New(session Session, refresher Refresher, key string) *Gate {
	return &Gate{session: session, refresher: refresher, key: key}
}

// ApplyProfile is the synchronizer's apply step for the profile resource.
func (g *Gate) ApplyProfile(p models.VerificationProfile) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.profile = p
	g.have = true
}

// Evaluate computes the decision for a profile snapshot. Pure given the
// snapshot; repeated calls with an unchanged profile return the memoized
// result.
func (g *Gate) Evaluate(p models.VerificationProfile) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.evaluateLocked(p)
}

func (g *Gate) evaluateLocked(p models.VerificationProfile) Decision {
	if g.memoSet && p == g.memoIn {
		return g.memoOut
	}
	d := compute(p)
	g.memoIn, g.memoOut, g.memoSet = p, d, true
	return d
}

// Decision evaluates the currently held profile snapshot. Before the first
// snapshot arrives the session role is used, so non-drivers are never
// locked out while the profile loads.
func (g *Gate) Decision() Decision {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.have {
		return g.evaluateLocked(models.VerificationProfile{
			UserID: g.session.UserID,
			Role:   g.session.Role,
		})
	}
	return g.evaluateLocked(g.profile)
}

// CanAccess is the lightweight accessor for callers that only need the
// boolean (icon styling and the like). Never triggers a refresh.
func (g *Gate) CanAccess() bool {
	return g.Decision().CanAccessRestrictedFeatures
}

// OnScreenActive refreshes a bound driver's profile at most once per
// activation transition. Non-drivers never refresh: the gate is a no-op
// for them.
func (g *Gate) OnScreenActive() {
	g.mu.Lock()
	if g.active {
		g.mu.Unlock()
		return
	}
	g.active = true
	isDriver := g.session.Role == models.RoleDriver
	g.mu.Unlock()

	if !isDriver || g.refresher == nil {
		return
	}
	slog.Debug("verification gate refreshing on screen activation", "user_id", g.session.UserID)
	g.refresher.RefreshNow(g.key)
}

// OnScreenInactive ends the activation so the next OnScreenActive may
// refresh again.
func (g *Gate) OnScreenInactive() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.active = false
}

func compute(p models.VerificationProfile) Decision {
	d := Decision{IsDriver: p.IsDriver()}
	if !d.IsDriver {
		return d
	}

	d.IsVerified = p.VerificationStatus == models.VerificationApproved
	d.CanAccessRestrictedFeatures = d.IsVerified

	switch p.VerificationStatus {
	case models.VerificationPending:
		d.Message = msgPending
	case models.VerificationRejected:
		d.Message = msgRejected
	case models.VerificationApproved:
		d.Message = msgApproved
	default:
		d.Message = msgDefault
	}
	return d
}
