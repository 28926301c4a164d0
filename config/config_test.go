package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	content := `
marketplace:
  base_url: "https://marketplace.example.com"
  api_key: "secret-key"
  mode: "rest"

kafka:
  host: "localhost"
  port: 9092
  events_topic_name: "marketplace.events"

redis:
  host: "localhost"
  port: 6379

bidbox:
  http_addr: ":8085"
  user_id: "user-17"
  driver_id: "driver-17"
  role: "DRIVER"
  routes_poll_interval_seconds: 30
  profile_poll_interval_seconds: 60
  route_status_filter: "OPEN"
  snapshot_cache_ttl_seconds: 20
  fetch_rate_limit_per_minute: 120
  bid_throttle_cooldown_ms: 100
  swagger_path: "docs/swagger.json"
`

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, "https://marketplace.example.com", cfg.Marketplace.BaseURL)
	require.Equal(t, "secret-key", cfg.Marketplace.APIKey)
	require.Equal(t, "rest", cfg.Marketplace.Mode)

	require.Equal(t, "localhost", cfg.Kafka.Host)
	require.Equal(t, 9092, cfg.Kafka.Port)
	require.Equal(t, "marketplace.events", cfg.Kafka.EventsTopicName)

	require.Equal(t, "localhost", cfg.Redis.Host)
	require.Equal(t, 6379, cfg.Redis.Port)

	require.Equal(t, ":8085", cfg.BidBox.HTTPAddr)
	require.Equal(t, "user-17", cfg.BidBox.UserID)
	require.Equal(t, "driver-17", cfg.BidBox.DriverID)
	require.Equal(t, "DRIVER", cfg.BidBox.Role)
	require.Equal(t, 30, cfg.BidBox.RoutesPollIntervalSeconds)
	require.Equal(t, 60, cfg.BidBox.ProfilePollIntervalSeconds)
	require.Equal(t, "OPEN", cfg.BidBox.RouteStatusFilter)
	require.Equal(t, 20, cfg.BidBox.SnapshotCacheTTLSeconds)
	require.Equal(t, 120, cfg.BidBox.FetchRateLimitPerMinute)
	require.Equal(t, 100, cfg.BidBox.BidThrottleCooldownMs)
	require.Equal(t, "docs/swagger.json", cfg.BidBox.SwaggerPath)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bidbox: [not: a map"), 0o600))

	_, err := LoadConfig(path)
	require.Error(t, err)
}
