package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Marketplace MarketplaceConfig `yaml:"marketplace"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	Redis       RedisConfig       `yaml:"redis"`
	BidBox      BidBoxConfig      `yaml:"bidbox"`
}

type MarketplaceConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	// Mode "fake" runs against the in-process backend, anything else uses
	// the REST client.
	Mode string `yaml:"mode"`
}

type KafkaConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	EventsTopicName string `yaml:"events_topic_name"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type BidBoxConfig struct {
	HTTPAddr string `yaml:"http_addr"`

	// Session identity: the driver account this agent serves.
	UserID   string `yaml:"user_id"`
	DriverID string `yaml:"driver_id"`
	Role     string `yaml:"role"`

	RoutesPollIntervalSeconds  int    `yaml:"routes_poll_interval_seconds"`
	ProfilePollIntervalSeconds int    `yaml:"profile_poll_interval_seconds"`
	RouteStatusFilter          string `yaml:"route_status_filter"`

	SnapshotCacheTTLSeconds int `yaml:"snapshot_cache_ttl_seconds"`
	FetchRateLimitPerMinute int `yaml:"fetch_rate_limit_per_minute"`

	BidThrottleCooldownMs int `yaml:"bid_throttle_cooldown_ms"`

	SwaggerPath string `yaml:"swagger_path"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}
