// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

package events

import (
	"context"
	"fmt"

	"github.com/tomtom215/runfeed/internal/logging"
	"github.com/tomtom215/runfeed/internal/metrics"
)

// Handler reacts to one notice. A returned error is logged; the notice is
// acknowledged either way because notices are never redelivered usefully.
type Handler func(ctx context.Context, e Invalidation) error

// Consumer delivers the notices of a bus to a handler. It implements
// suture.Service.
type Consumer struct {
	name    string
	bus     *Bus
	handler Handler
}

// NewConsumer creates a consumer.
func NewConsumer(name string, bus *Bus, handler Handler) *Consumer {
	return &Consumer{name: name, bus: bus, handler: handler}
}

// Serve consumes until ctx is canceled.
func (c *Consumer) Serve(ctx context.Context) error {
	messages, err := c.bus.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("%s: subscribe: %w", c.name, err)
	}

	logger := logging.WithComponent(c.name)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("%s: subscription closed", c.name)
			}

			e, err := fromMessage(msg)
			if err != nil {
				metrics.InvalidationEvents.WithLabelValues("failed").Inc()
				logger.Warn().Err(err).Str("message_id", msg.UUID).Msg("Dropping undecodable event")
				msg.Ack()
				continue
			}

			if err := c.handler(ctx, e); err != nil {
				logger.Warn().Err(err).Str("event_id", e.ID).Strs("feeds", e.Feeds).Msg("Invalidation handler failed")
			}
			metrics.InvalidationEvents.WithLabelValues("consumed").Inc()
			msg.Ack()
		}
	}
}

// String names the service in supervisor logs.
func (c *Consumer) String() string { return c.name }
