// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists config file locations in priority order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/runfeed/config.yaml",
	"/etc/runfeed/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              3000,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			Environment:       "development",
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     120,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Database: DatabaseConfig{
			Path:      "/data/runfeed.duckdb",
			MaxMemory: "512MB",
			Threads:   0,
		},
		Cache: CacheConfig{
			Persistent:      "duckdb",
			BadgerPath:      "/data/cache",
			CleanupInterval: 5 * time.Minute,
			PruneInterval:   time.Hour,
		},
		Sources: SourcesConfig{
			HTTPTimeout: 15 * time.Second,
			ChannelTTL:  24 * time.Hour,
			PaceMan: PaceManConfig{
				BaseURL:           "https://paceman.gg",
				RequestsPerSecond: 2,
				Burst:             4,
				RecentHours:       168,
				RecentLimit:       20,
			},
			Twitch: TwitchConfig{
				BaseURL:           "https://api.twitch.tv/helix",
				AuthURL:           "https://id.twitch.tv/oauth2/token",
				RequestsPerSecond: 10,
				Burst:             10,
			},
			YouTube: YouTubeConfig{
				BaseURL:           "https://www.googleapis.com/youtube/v3",
				RequestsPerSecond: 5,
				Burst:             5,
				UploadsPerChannel: 15,
			},
		},
		Feed: FeedConfig{
			LiveRunsTTL:            30 * time.Second,
			RecentPacesTTL:         time.Hour,
			TwitchStreamsTTL:       time.Minute,
			YouTubeVideosTTL:       10 * time.Minute,
			YouTubeLiveTTL:         time.Minute,
			FailureTTL:             10 * time.Second,
			VideosLimit:            50,
			RecentPacesConcurrency: 4,
		},
		Refresh: RefreshConfig{
			Timeout:          5 * time.Minute,
			Internal:         false,
			DiscoverInterval: 6 * time.Hour,
			VerifyInterval:   12 * time.Hour,
			LiveInterval:     2 * time.Minute,
		},
		Events: EventsConfig{
			Backend: "memory",
			NATSURL: "nats://127.0.0.1:4222",
			Topic:   "runfeed.cache.invalidate",
		},
	}
}

// LoadWithKoanf loads configuration from defaults, the first config file
// found, and the environment, then validates it.
func LoadWithKoanf() (*Config, error) {
	return LoadFrom(findConfigFile())
}

// LoadFrom is LoadWithKoanf with an explicit config file path. An empty path
// skips the file layer.
func LoadFrom(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma separated env values.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lowercase environment variable names to koanf paths.
// Variables not listed are ignored.
var envMappings = map[string]string{
	"http_host":           "server.host",
	"http_port":           "server.port",
	"http_read_timeout":   "server.read_timeout",
	"http_write_timeout":  "server.write_timeout",
	"http_idle_timeout":   "server.idle_timeout",
	"shutdown_timeout":    "server.shutdown_timeout",
	"environment":         "server.environment",
	"cors_origins":        "server.cors_origins",
	"rate_limit_requests": "server.rate_limit_reqs",
	"rate_limit_window":   "server.rate_limit_window",
	"disable_rate_limit":  "server.rate_limit_disabled",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	"cache_persistent":       "cache.persistent",
	"cache_badger_path":      "cache.badger_path",
	"cache_cleanup_interval": "cache.cleanup_interval",
	"cache_prune_interval":   "cache.prune_interval",

	"upstream_http_timeout": "sources.http_timeout",
	"channel_cache_ttl":     "sources.channel_ttl",

	"paceman_base_url":             "sources.paceman.base_url",
	"paceman_include_unregistered": "sources.paceman.include_unregistered",
	"paceman_rps":                  "sources.paceman.requests_per_second",
	"paceman_recent_hours":         "sources.paceman.recent_hours",
	"paceman_recent_limit":         "sources.paceman.recent_limit",

	"twitch_client_id":     "sources.twitch.client_id",
	"twitch_client_secret": "sources.twitch.client_secret",
	"twitch_base_url":      "sources.twitch.base_url",
	"twitch_auth_url":      "sources.twitch.auth_url",
	"twitch_rps":           "sources.twitch.requests_per_second",

	"youtube_api_key":             "sources.youtube.api_key",
	"youtube_base_url":            "sources.youtube.base_url",
	"youtube_rps":                 "sources.youtube.requests_per_second",
	"youtube_uploads_per_channel": "sources.youtube.uploads_per_channel",

	"feed_live_runs_ttl":      "feed.live_runs_ttl",
	"feed_recent_paces_ttl":   "feed.recent_paces_ttl",
	"feed_twitch_streams_ttl": "feed.twitch_streams_ttl",
	"feed_youtube_videos_ttl": "feed.youtube_videos_ttl",
	"feed_youtube_live_ttl":   "feed.youtube_live_ttl",
	"feed_failure_ttl":        "feed.failure_ttl",
	"feed_videos_limit":       "feed.videos_limit",

	"cron_secret":               "refresh.cron_secret",
	"refresh_timeout":           "refresh.timeout",
	"refresh_internal":          "refresh.internal",
	"refresh_discover_interval": "refresh.discover_interval",
	"refresh_verify_interval":   "refresh.verify_interval",
	"refresh_live_interval":     "refresh.live_interval",

	"events_backend": "events.backend",
	"nats_url":       "events.nats_url",
	"events_topic":   "events.topic",
}

// envTransformFunc maps an environment variable name to its koanf path, or
// "" to skip it.
//
//	HTTP_PORT     -> server.port
//	TWITCH_CLIENT_ID -> sources.twitch.client_id
//	CRON_SECRET   -> refresh.cron_secret
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
