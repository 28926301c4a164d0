package resthttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/HaulBid/BidBox/internal/cache"
	"github.com/HaulBid/BidBox/internal/integrations/marketplace"
	"github.com/HaulBid/BidBox/internal/models"
	"github.com/pkg/errors"
)

// RateLimiter caps outbound fetches per resource key.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

// Client talks to the hosted marketplace backend over REST. Route lists can
// be served from a short-TTL snapshot cache; a manual refresh calls
// InvalidateRoutes first so the next fetch goes to the network.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client

	cache    cache.BytesCache
	cacheTTL time.Duration

	rl            RateLimiter
	fetchesPerMin int64
}

func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) WithCache(bc cache.BytesCache, ttl time.Duration) *Client {
	if bc != nil && ttl > 0 {
		c.cache = bc
		c.cacheTTL = ttl
	}
	return c
}

func (c *Client) WithRateLimiter(rl RateLimiter, perMinute int64) *Client {
	if rl != nil && perMinute > 0 {
		c.rl = rl
		c.fetchesPerMin = perMinute
	}
	return c
}

type routeDTO struct {
	ID             string    `json:"id"`
	Origin         string    `json:"origin"`
	Destination    string    `json:"destination"`
	BiddingEndTime time.Time `json:"biddingEndTime"`
	EstimatedPrice float64   `json:"estimatedPrice"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type profileDTO struct {
	UserID             string `json:"userId"`
	Role               string `json:"role"`
	VerificationStatus string `json:"verificationStatus"`
}

type bidReceiptDTO struct {
	BidID       string    `json:"bidId"`
	RouteID     string    `json:"routeId"`
	Reference   string    `json:"reference"`
	SubmittedAt time.Time `json:"submittedAt"`
}

type errorDTO struct {
	Error string `json:"error"`
}

func (c *Client) FetchRoutes(ctx context.Context, driverID, statusFilter string) ([]models.Route, error) {
	key := routesCacheKey(driverID, statusFilter)

	if c.cache != nil {
		if b, ok, err := c.cache.Get(ctx, key); err == nil && ok {
			var dtos []routeDTO
			if json.Unmarshal(b, &dtos) == nil {
				return toRoutes(dtos), nil
			}
		}
	}

	if c.rl != nil {
		allowed, n, err := c.rl.Allow(ctx, "rl:"+key, c.fetchesPerMin, 70*time.Second)
		switch {
		case err != nil:
			// Redis being down must not take the fetch path with it.
			slog.Error("route fetch rate limit check", "driver_id", driverID, "error", err.Error())
		case !allowed:
			slog.Warn("route fetch rate limited", "driver_id", driverID, "count", n)
			return nil, errors.Errorf("route fetch rate limited (%d in window)", n)
		}
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	u.Path = "/api/v1/routes/my"
	q := u.Query()
	q.Set("driverId", driverID)
	if statusFilter != "" {
		q.Set("status", statusFilter)
	}
	u.RawQuery = q.Encode()

	var dtos []routeDTO
	if err := c.getJSON(ctx, u.String(), &dtos); err != nil {
		return nil, err
	}

	if c.cache != nil {
		if b, err := json.Marshal(dtos); err == nil {
			_ = c.cache.Set(ctx, key, b, c.cacheTTL)
		}
	}
	return toRoutes(dtos), nil
}

// InvalidateRoutes drops the cached snapshot so the next FetchRoutes hits
// the network. No-op without a cache.
func (c *Client) InvalidateRoutes(ctx context.Context, driverID, statusFilter string) {
	if c.cache == nil {
		return
	}
	_ = c.cache.Del(ctx, routesCacheKey(driverID, statusFilter))
}

func (c *Client) FetchVerificationProfile(ctx context.Context, userID string) (models.VerificationProfile, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return models.VerificationProfile{}, errors.Wrap(err, "parse base url")
	}
	u.Path = fmt.Sprintf("/api/v1/users/%s/verification", userID)

	var dto profileDTO
	if err := c.getJSON(ctx, u.String(), &dto); err != nil {
		return models.VerificationProfile{}, err
	}
	return models.VerificationProfile{
		UserID:             dto.UserID,
		Role:               dto.Role,
		VerificationStatus: dto.VerificationStatus,
	}, nil
}

func (c *Client) SubmitBid(ctx context.Context, req marketplace.BidRequest) (models.BidReceipt, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return models.BidReceipt{}, errors.Wrap(err, "parse base url")
	}
	u.Path = "/api/v1/bids"

	body, err := json.Marshal(map[string]any{
		"routeId":  req.RouteID,
		"driverId": req.DriverID,
		"amount":   req.Amount,
		"notes":    req.Notes,
	})
	if err != nil {
		return models.BidReceipt{}, errors.Wrap(err, "marshal bid")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return models.BidReceipt{}, errors.Wrap(err, "new request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.auth(httpReq)

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return models.BidReceipt{}, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	// 409/422: the backend refused the bid on its own authority.
	if resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusUnprocessableEntity {
		var e errorDTO
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = fmt.Sprintf("http %d", resp.StatusCode)
		}
		return models.BidReceipt{}, &marketplace.DomainRejectionError{Reason: e.Error}
	}
	if resp.StatusCode/100 != 2 {
		return models.BidReceipt{}, fmt.Errorf("marketplace http %d", resp.StatusCode)
	}

	var dto bidReceiptDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return models.BidReceipt{}, errors.Wrap(err, "decode receipt")
	}
	return models.BidReceipt{
		BidID:       dto.BidID,
		RouteID:     dto.RouteID,
		Reference:   dto.Reference,
		SubmittedAt: dto.SubmittedAt,
	}, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return errors.Wrap(err, "new request")
	}
	c.auth(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("marketplace http %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode")
	}
	return nil
}

func (c *Client) auth(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func toRoutes(dtos []routeDTO) []models.Route {
	out := make([]models.Route, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, models.Route{
			ID:             d.ID,
			Origin:         d.Origin,
			Destination:    d.Destination,
			BiddingEndTime: d.BiddingEndTime,
			EstimatedPrice: d.EstimatedPrice,
			Status:         d.Status,
			CreatedAt:      d.CreatedAt,
			UpdatedAt:      d.UpdatedAt,
		})
	}
	return out
}

func routesCacheKey(driverID, statusFilter string) string {
	if statusFilter == "" {
		return fmt.Sprintf("routes:%s", driverID)
	}
	return fmt.Sprintf("routes:%s:%s", driverID, statusFilter)
}
