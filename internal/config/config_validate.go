// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

package config

import (
	"fmt"

	"github.com/tomtom215/runfeed/internal/logging"
	"github.com/tomtom215/runfeed/internal/validation"
)

// minCronSecretLength applies in production only.
const minCronSecretLength = 16

// Validate runs the struct tag rules and then the cross-field checks.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}

	validators := []func() error{
		c.validateLogging,
		c.validateCache,
		c.validateSources,
		c.validateRefresh,
		c.validateEvents,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.Persistent == "badger" && c.Cache.BadgerPath == "" {
		return fmt.Errorf("CACHE_BADGER_PATH is required when CACHE_PERSISTENT=badger")
	}
	return nil
}

func (c *Config) validateSources() error {
	tw := c.Sources.Twitch
	if (tw.ClientID == "") != (tw.ClientSecret == "") {
		return fmt.Errorf("TWITCH_CLIENT_ID and TWITCH_CLIENT_SECRET must be set together")
	}
	return nil
}

func (c *Config) validateRefresh() error {
	secret := c.Refresh.CronSecret
	if c.Server.IsProduction() {
		if secret == "" {
			return fmt.Errorf("CRON_SECRET is required when ENVIRONMENT=production")
		}
		if len(secret) < minCronSecretLength {
			return fmt.Errorf("CRON_SECRET must be at least %d characters in production", minCronSecretLength)
		}
	}
	if c.Refresh.LiveInterval > c.Refresh.DiscoverInterval {
		return fmt.Errorf("refresh.live_interval (%s) must not exceed refresh.discover_interval (%s)",
			c.Refresh.LiveInterval, c.Refresh.DiscoverInterval)
	}
	return nil
}

func (c *Config) validateEvents() error {
	if c.Events.Backend == "nats" && c.Events.NATSURL == "" {
		return fmt.Errorf("NATS_URL is required when EVENTS_BACKEND=nats")
	}
	return nil
}
