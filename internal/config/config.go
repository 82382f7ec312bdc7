// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

// Package config loads Runfeed configuration with Koanf.
//
// Precedence is environment > YAML file > built-in defaults. The YAML file is
// optional and located through CONFIG_PATH or DefaultConfigPaths.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
	Database DatabaseConfig `koanf:"database"`
	Cache    CacheConfig    `koanf:"cache"`
	Sources  SourcesConfig  `koanf:"sources"`
	Feed     FeedConfig     `koanf:"feed"`
	Refresh  RefreshConfig  `koanf:"refresh"`
	Events   EventsConfig   `koanf:"events"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `koanf:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	Environment     string        `koanf:"environment" validate:"oneof=development production test"`

	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs" validate:"min=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// DatabaseConfig holds DuckDB settings. Path ":memory:" runs without a file.
type DatabaseConfig struct {
	Path      string `koanf:"path" validate:"required"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads" validate:"min=0"`
}

// CacheConfig selects the persistent cache backend and memory tier upkeep.
type CacheConfig struct {
	// Persistent is duckdb, badger or memory.
	Persistent      string        `koanf:"persistent" validate:"oneof=duckdb badger memory"`
	BadgerPath      string        `koanf:"badger_path"`
	CleanupInterval time.Duration `koanf:"cleanup_interval" validate:"gt=0"`
	PruneInterval   time.Duration `koanf:"prune_interval" validate:"gt=0"`
}

// SourcesConfig groups upstream adapter settings.
type SourcesConfig struct {
	HTTPTimeout time.Duration `koanf:"http_timeout" validate:"gt=0"`
	ChannelTTL  time.Duration `koanf:"channel_ttl" validate:"gt=0"`

	PaceMan PaceManConfig `koanf:"paceman"`
	Twitch  TwitchConfig  `koanf:"twitch"`
	YouTube YouTubeConfig `koanf:"youtube"`
}

// PaceManConfig configures the live-run tracker adapter.
type PaceManConfig struct {
	BaseURL             string  `koanf:"base_url" validate:"required,url"`
	IncludeUnregistered bool    `koanf:"include_unregistered"`
	RequestsPerSecond   float64 `koanf:"requests_per_second" validate:"gt=0"`
	Burst               int     `koanf:"burst" validate:"min=1"`
	RecentHours         int     `koanf:"recent_hours" validate:"min=1,max=720"`
	RecentLimit         int     `koanf:"recent_limit" validate:"min=1,max=100"`
}

// TwitchConfig configures the Helix adapter. Empty credentials disable it.
type TwitchConfig struct {
	ClientID          string  `koanf:"client_id"`
	ClientSecret      string  `koanf:"client_secret"`
	BaseURL           string  `koanf:"base_url" validate:"required,url"`
	AuthURL           string  `koanf:"auth_url" validate:"required,url"`
	RequestsPerSecond float64 `koanf:"requests_per_second" validate:"gt=0"`
	Burst             int     `koanf:"burst" validate:"min=1"`
}

// Enabled reports whether credentials are configured.
func (t TwitchConfig) Enabled() bool {
	return t.ClientID != "" && t.ClientSecret != ""
}

// YouTubeConfig configures the Data API v3 adapter. An empty key disables it.
type YouTubeConfig struct {
	APIKey            string  `koanf:"api_key"`
	BaseURL           string  `koanf:"base_url" validate:"required,url"`
	RequestsPerSecond float64 `koanf:"requests_per_second" validate:"gt=0"`
	Burst             int     `koanf:"burst" validate:"min=1"`
	UploadsPerChannel int     `koanf:"uploads_per_channel" validate:"min=1,max=50"`
}

// Enabled reports whether an API key is configured.
func (y YouTubeConfig) Enabled() bool {
	return y.APIKey != ""
}

// FeedConfig holds per-feed TTLs and list sizes.
type FeedConfig struct {
	LiveRunsTTL      time.Duration `koanf:"live_runs_ttl" validate:"gt=0"`
	RecentPacesTTL   time.Duration `koanf:"recent_paces_ttl" validate:"gt=0"`
	TwitchStreamsTTL time.Duration `koanf:"twitch_streams_ttl" validate:"gt=0"`
	YouTubeVideosTTL time.Duration `koanf:"youtube_videos_ttl" validate:"gt=0"`
	YouTubeLiveTTL   time.Duration `koanf:"youtube_live_ttl" validate:"gt=0"`

	// FailureTTL bounds how long an empty result caused by an upstream
	// failure stays cached.
	FailureTTL time.Duration `koanf:"failure_ttl" validate:"gt=0"`

	VideosLimit            int `koanf:"videos_limit" validate:"min=1,max=200"`
	RecentPacesConcurrency int `koanf:"recent_paces_concurrency" validate:"min=1,max=32"`
}

// RefreshConfig holds scheduler settings.
type RefreshConfig struct {
	CronSecret string        `koanf:"cron_secret"`
	Timeout    time.Duration `koanf:"timeout" validate:"gt=0"`

	// Internal runs the actions on in-process tickers in addition to the
	// cron endpoints.
	Internal         bool          `koanf:"internal"`
	DiscoverInterval time.Duration `koanf:"discover_interval" validate:"gt=0"`
	VerifyInterval   time.Duration `koanf:"verify_interval" validate:"gt=0"`
	LiveInterval     time.Duration `koanf:"live_interval" validate:"gt=0"`
}

// EventsConfig selects the cache invalidation bus.
type EventsConfig struct {
	// Backend is memory (in-process) or nats (shared across instances).
	Backend string `koanf:"backend" validate:"oneof=memory nats"`
	NATSURL string `koanf:"nats_url"`
	Topic   string `koanf:"topic" validate:"required"`
}

// Addr returns host:port for the HTTP listener.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// IsProduction reports whether the server runs in production mode.
func (s ServerConfig) IsProduction() bool {
	return s.Environment == "production"
}
