package agentapi

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/HaulBid/BidBox/internal/countdown"
	"github.com/HaulBid/BidBox/internal/integrations/marketplace"
	"github.com/HaulBid/BidBox/internal/metrics"
	"github.com/HaulBid/BidBox/internal/models"
	"github.com/HaulBid/BidBox/internal/services/bidding"
	"github.com/HaulBid/BidBox/internal/services/gate"
	"github.com/HaulBid/BidBox/internal/services/routestate"
	"github.com/HaulBid/BidBox/internal/services/syncer"
	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Options wires the engine into the agent's HTTP surface.
type Options struct {
	Syncer  *syncer.Synchronizer
	Store   *routestate.Store
	Gate    *gate.Gate
	Flow    *bidding.Flow
	Metrics *metrics.Metrics
	Clock   clockwork.Clock

	RoutesKey string
	// ManualRefresh runs before the out-of-band fetch is triggered; wired
	// to snapshot-cache invalidation so the fetch goes to the network.
	ManualRefresh func()

	SwaggerPath string
}

type routeView struct {
	ID             string    `json:"id"`
	Origin         string    `json:"origin"`
	Destination    string    `json:"destination"`
	EstimatedPrice float64   `json:"estimatedPrice"`
	Status         string    `json:"status"`
	DisplayLabel   string    `json:"displayLabel"`
	DisplayColor   string    `json:"displayColor"`
	BiddingEndTime time.Time `json:"biddingEndTime"`
	Countdown      string    `json:"countdown"`
	WindowClosed   bool      `json:"windowClosed"`
}

type placeBidRequest struct {
	RouteID string `json:"routeId"`
	Amount  string `json:"amount"`
	Notes   string `json:"notes,omitempty"`
}

type placeBidResponse struct {
	BidID       string    `json:"bidId"`
	RouteID     string    `json:"routeId"`
	Reference   string    `json:"reference"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// NewRouter builds the agent's status and control API.
func NewRouter(opts Options) chi.Router {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})

	r.Get("/stats", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		out := map[string]any{
			"subscriptions": opts.Syncer.Stats(),
		}
		if opts.Store != nil {
			out["snapshotsApplied"] = opts.Store.SnapshotsApplied()
			out["routesHeld"] = opts.Store.Len()
		}
		_ = json.NewEncoder(w).Encode(out)
	})

	r.Get("/routes", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		now := clock.Now().UTC()
		routes := opts.Store.Routes()
		views := make([]routeView, 0, len(routes))
		for _, rt := range routes {
			views = append(views, toView(rt, now))
		}
		_ = json.NewEncoder(w).Encode(views)
	})

	r.Get("/gate", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(opts.Gate.Decision())
	})

	r.Post("/refresh", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if opts.ManualRefresh != nil {
			opts.ManualRefresh()
		}
		opts.Syncer.RefreshNow(opts.RoutesKey)
		_, _ = w.Write([]byte(`{"triggered":true}`))
	})

	// The external lifecycle hook: whatever owns the agent reports screen
	// activation here, which is what drives the gate's refresh policy.
	r.Post("/screen/active", func(w http.ResponseWriter, req *http.Request) {
		opts.Gate.OnScreenActive()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"active":true}`))
	})
	r.Post("/screen/inactive", func(w http.ResponseWriter, req *http.Request) {
		opts.Gate.OnScreenInactive()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"active":false}`))
	})

	r.Post("/bids", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		var body placeBidRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		route, ok := opts.Store.Route(body.RouteID)
		if !ok {
			writeError(w, http.StatusNotFound, "unknown route")
			return
		}

		receipt, err := opts.Flow.PlaceBid(req.Context(), route, body.Amount, body.Notes)
		if err != nil {
			writeBidError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(placeBidResponse{
			BidID:       receipt.BidID,
			RouteID:     receipt.RouteID,
			Reference:   receipt.Reference,
			SubmittedAt: receipt.SubmittedAt,
		})
	})

	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics.Handler())
	}

	if opts.SwaggerPath != "" {
		if _, err := os.Stat(opts.SwaggerPath); err == nil {
			r.Get("/swagger.json", func(w http.ResponseWriter, req *http.Request) {
				w.Header().Set("Cache-Control", "no-store")
				http.ServeFile(w, req, opts.SwaggerPath)
			})
			r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/swagger.json")))
		}
	}

	return r
}

func toView(rt models.Route, now time.Time) routeView {
	ds := routestate.DeriveDisplayStatus(rt, now)
	return routeView{
		ID:             rt.ID,
		Origin:         rt.Origin,
		Destination:    rt.Destination,
		EstimatedPrice: rt.EstimatedPrice,
		Status:         rt.Status,
		DisplayLabel:   ds.Label,
		DisplayColor:   ds.Color,
		BiddingEndTime: rt.BiddingEndTime,
		Countdown:      countdown.Remaining(now, rt.BiddingEndTime).String(),
		WindowClosed:   routestate.WindowClosed(rt, now),
	}
}

func writeBidError(w http.ResponseWriter, err error) {
	var rejection *marketplace.DomainRejectionError
	switch {
	case bidding.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, bidding.ErrVerificationRequired):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, bidding.ErrDuplicateDispatch):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.As(err, &rejection):
		writeError(w, http.StatusConflict, rejection.Reason)
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
