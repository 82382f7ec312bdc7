// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

//go:build !nats

package events

import (
	"errors"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/runfeed/internal/config"
)

// ErrNATSUnavailable is returned by binaries built without -tags=nats.
var ErrNATSUnavailable = errors.New("NATS event backend not available: build with -tags=nats")

func newNATSBackend(config.EventsConfig, watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	return nil, nil, ErrNATSUnavailable
}
