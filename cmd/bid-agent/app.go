package main

import (
	"context"
	"fmt"
	"time"

	"github.com/HaulBid/BidBox/config"
	"github.com/HaulBid/BidBox/internal/api/agentapi"
	"github.com/HaulBid/BidBox/internal/broker/kafka"
	"github.com/HaulBid/BidBox/internal/cache/rediscache"
	"github.com/HaulBid/BidBox/internal/events"
	"github.com/HaulBid/BidBox/internal/integrations/marketplace"
	"github.com/HaulBid/BidBox/internal/integrations/marketplace/fake"
	"github.com/HaulBid/BidBox/internal/integrations/marketplace/resthttp"
	"github.com/HaulBid/BidBox/internal/metrics"
	"github.com/HaulBid/BidBox/internal/models"
	"github.com/HaulBid/BidBox/internal/services/bidding"
	"github.com/HaulBid/BidBox/internal/services/gate"
	"github.com/HaulBid/BidBox/internal/services/routestate"
	"github.com/HaulBid/BidBox/internal/services/syncer"
	"github.com/HaulBid/BidBox/internal/throttle"
	"github.com/jonboulle/clockwork"
)

// routesInvalidator drops any cached route snapshot before a manual refresh.
// Nil when the marketplace client does not cache.
type routesInvalidator func(ctx context.Context, driverID, statusFilter string)

type agentFactories struct {
	newMarketplaceClient func(cfg *config.Config, clock clockwork.Clock) (marketplace.Client, routesInvalidator)
	newPublisher         func(cfg *config.Config) events.Publisher
	newClock             func() clockwork.Clock
	onListen             func(httpAddr string)
}

func defaultAgentFactories() agentFactories {
	return agentFactories{
		newMarketplaceClient: func(cfg *config.Config, clock clockwork.Clock) (marketplace.Client, routesInvalidator) {
			if cfg.Marketplace.Mode == "fake" || cfg.Marketplace.BaseURL == "" {
				return fake.New(clock), nil
			}
			c := resthttp.New(cfg.Marketplace.BaseURL, cfg.Marketplace.APIKey)
			redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
			if cfg.BidBox.SnapshotCacheTTLSeconds > 0 {
				ttl := time.Duration(cfg.BidBox.SnapshotCacheTTLSeconds) * time.Second
				c = c.WithCache(rediscache.New(redisAddr), ttl)
			}
			if cfg.BidBox.FetchRateLimitPerMinute > 0 {
				c = c.WithRateLimiter(rediscache.NewRateLimiter(redisAddr), int64(cfg.BidBox.FetchRateLimitPerMinute))
			}
			return c, c.InvalidateRoutes
		},
		newPublisher: func(cfg *config.Config) events.Publisher {
			brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
			return kafka.NewProducer(brokers)
		},
		newClock: clockwork.NewRealClock,
	}
}

func RunBidAgent(ctx context.Context, cfg *config.Config, f agentFactories) error {
	topic := cfg.Kafka.EventsTopicName
	if topic == "" {
		topic = "marketplace.events"
	}

	routesInterval := time.Duration(cfg.BidBox.RoutesPollIntervalSeconds) * time.Second
	if routesInterval <= 0 {
		routesInterval = syncer.DefaultInterval
	}
	profileInterval := time.Duration(cfg.BidBox.ProfilePollIntervalSeconds) * time.Second
	if profileInterval <= 0 {
		profileInterval = 2 * syncer.DefaultInterval
	}
	cooldown := time.Duration(cfg.BidBox.BidThrottleCooldownMs) * time.Millisecond
	if cooldown <= 0 {
		cooldown = throttle.DefaultCooldown
	}

	driverID := cfg.BidBox.DriverID
	if driverID == "" {
		return fmt.Errorf("bidbox driver_id is required")
	}
	userID := cfg.BidBox.UserID
	if userID == "" {
		userID = driverID
	}
	statusFilter := cfg.BidBox.RouteStatusFilter

	clock := f.newClock()
	m := metrics.New()
	sink := events.NewSink(f.newPublisher(cfg), topic, m, clock)

	client, invalidate := f.newMarketplaceClient(cfg, clock)

	store := routestate.NewStore()
	sync := syncer.New(clock, sink)
	defer sync.StopAll()

	routesKey := "routes:" + driverID
	profileKey := "profile:" + userID

	g := gate.New(gate.Session{UserID: userID, Role: cfg.BidBox.Role}, sync, profileKey)

	flow := bidding.NewFlow(client, driverID, g, store, throttle.New(cooldown, clock), clock).
		WithNotifier(sink)
	defer flow.CancelPending()

	err := sync.Start(ctx, routesKey, routesInterval,
		func(ctx context.Context) (any, error) {
			return client.FetchRoutes(ctx, driverID, statusFilter)
		},
		func(snapshot any) {
			if routes, ok := snapshot.([]models.Route); ok {
				store.ApplySnapshot(routes)
			}
		})
	if err != nil {
		return err
	}

	err = sync.Start(ctx, profileKey, profileInterval,
		func(ctx context.Context) (any, error) {
			return client.FetchVerificationProfile(ctx, userID)
		},
		func(snapshot any) {
			if p, ok := snapshot.(models.VerificationProfile); ok {
				g.ApplyProfile(p)
			}
		})
	if err != nil {
		return err
	}

	router := agentapi.NewRouter(agentapi.Options{
		Syncer:    sync,
		Store:     store,
		Gate:      g,
		Flow:      flow,
		Metrics:   m,
		Clock:     clock,
		RoutesKey: routesKey,
		ManualRefresh: func() {
			if invalidate != nil {
				invalidate(ctx, driverID, statusFilter)
			}
		},
		SwaggerPath: cfg.BidBox.SwaggerPath,
	})

	return runAgentHTTPServer(ctx, agentHTTPOpts{
		httpAddr: cfg.BidBox.HTTPAddr,
		handler:  router,
		onListen: f.onListen,
	})
}
