package main

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/HaulBid/BidBox/config"
	"github.com/HaulBid/BidBox/internal/events"
	"github.com/HaulBid/BidBox/internal/integrations/marketplace"
	"github.com/HaulBid/BidBox/internal/integrations/marketplace/fake"
	"github.com/HaulBid/BidBox/internal/integrations/marketplace/resthttp"
	"github.com/HaulBid/BidBox/internal/services/syncer"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

type noopPublisher struct{}

func (noopPublisher) Publish(ctx context.Context, topic string, key, value []byte) error {
	return nil
}

func TestDefaultAgentFactories_SelectMarketplaceClient(t *testing.T) {
	f := defaultAgentFactories()
	clock := clockwork.NewRealClock()

	cfgFake := &config.Config{
		Marketplace: config.MarketplaceConfig{Mode: "fake"},
	}
	c1, inv1 := f.newMarketplaceClient(cfgFake, clock)
	_, ok := c1.(*fake.FakeClient)
	require.True(t, ok)
	require.Nil(t, inv1)

	// Missing base_url falls back to the fake regardless of mode.
	cfgNoURL := &config.Config{
		Marketplace: config.MarketplaceConfig{Mode: "rest"},
	}
	c2, _ := f.newMarketplaceClient(cfgNoURL, clock)
	_, ok = c2.(*fake.FakeClient)
	require.True(t, ok)

	cfgRest := &config.Config{
		Marketplace: config.MarketplaceConfig{
			BaseURL: "http://localhost:9000",
			APIKey:  "k",
			Mode:    "rest",
		},
		BidBox: config.BidBoxConfig{
			SnapshotCacheTTLSeconds: 20,
			FetchRateLimitPerMinute: 120,
		},
	}
	c3, inv3 := f.newMarketplaceClient(cfgRest, clock)
	_, ok = c3.(*resthttp.Client)
	require.True(t, ok)
	require.NotNil(t, inv3)
}

func TestDefaultAgentFactories_Publisher_NonNil(t *testing.T) {
	f := defaultAgentFactories()
	cfg := &config.Config{
		Kafka: config.KafkaConfig{Host: "localhost", Port: 9092},
	}
	require.NotNil(t, f.newPublisher(cfg))
}

func TestRunBidAgent_RequiresDriverID(t *testing.T) {
	cfg := &config.Config{
		Marketplace: config.MarketplaceConfig{Mode: "fake"},
	}
	err := RunBidAgent(context.Background(), cfg, defaultAgentFactories())
	require.Error(t, err)
}

func TestRunBidAgent_RefreshEndpointTriggersFetch(t *testing.T) {
	addrCh := make(chan string, 1)
	f := agentFactories{
		newMarketplaceClient: func(cfg *config.Config, clock clockwork.Clock) (marketplace.Client, routesInvalidator) {
			return fake.New(clock), nil
		},
		newPublisher: func(cfg *config.Config) events.Publisher {
			return noopPublisher{}
		},
		newClock: clockwork.NewRealClock,
		onListen: func(httpAddr string) { addrCh <- httpAddr },
	}

	cfg := &config.Config{
		BidBox: config.BidBoxConfig{
			HTTPAddr: "127.0.0.1:0",
			DriverID: "driver-1",
			UserID:   "user-1",
			Role:     "DRIVER",
			// Long enough that no scheduled tick fires during the test.
			RoutesPollIntervalSeconds:  3600,
			ProfilePollIntervalSeconds: 3600,
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- RunBidAgent(ctx, cfg, f) }()

	var addr string
	select {
	case addr = <-addrCh:
	case <-time.After(5 * time.Second):
		t.Fatal("agent did not start listening")
	}
	base := "http://" + addr

	routesFetches := func() int64 {
		resp, err := http.Get(base + "/stats")
		require.NoError(t, err)
		defer resp.Body.Close()
		var out struct {
			Subscriptions []syncer.SubscriptionStats `json:"subscriptions"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		for _, st := range out.Subscriptions {
			if st.ResourceKey == "routes:driver-1" {
				return st.Fetches
			}
		}
		return 0
	}

	waitFetches := func(want int64) {
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			if routesFetches() >= want {
				return
			}
			time.Sleep(20 * time.Millisecond)
		}
		t.Fatalf("routes subscription never reached %d fetches", want)
	}

	waitFetches(1) // immediate fetch on start
	before := routesFetches()

	resp, err := http.Post(base+"/refresh", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	waitFetches(before + 1)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("agent did not shut down")
	}
}

func TestRunBidAgent_ContextCanceled(t *testing.T) {
	f := agentFactories{
		newMarketplaceClient: func(cfg *config.Config, clock clockwork.Clock) (marketplace.Client, routesInvalidator) {
			return fake.New(clock), nil
		},
		newPublisher: func(cfg *config.Config) events.Publisher {
			return noopPublisher{}
		},
		newClock: clockwork.NewRealClock,
	}

	cfg := &config.Config{
		Kafka: config.KafkaConfig{EventsTopicName: "marketplace.events"},
		BidBox: config.BidBoxConfig{
			HTTPAddr: "127.0.0.1:0",
			DriverID: "driver-1",
			UserID:   "user-1",
			Role:     "DRIVER",
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RunBidAgent(ctx, cfg, f)
	require.ErrorIs(t, err, context.Canceled)
}
