// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"github.com/tomtom215/runfeed/internal/config"
	"github.com/tomtom215/runfeed/internal/logging"
	"github.com/tomtom215/runfeed/internal/metrics"
)

// ErrBusClosed is returned when publishing on a closed bus.
var ErrBusClosed = errors.New("event bus closed")

// Backend names.
const (
	BackendMemory = "memory"
	BackendNATS   = "nats"
)

// Bus publishes and delivers invalidation notices on one topic.
type Bus struct {
	pub    message.Publisher
	sub    message.Subscriber
	topic  string
	origin string
	logger watermill.LoggerAdapter

	// shared is set when pub and sub are the same object.
	shared bool

	mu     sync.RWMutex
	closed bool
}

// NewBus creates the bus selected by cfg.Backend.
func NewBus(cfg config.EventsConfig) (*Bus, error) {
	logger := watermill.NewSlogLogger(slog.New(logging.NewSlogHandler()).With("component", "events"))

	b := &Bus{topic: cfg.Topic, origin: uuid.NewString(), logger: logger}
	switch cfg.Backend {
	case BackendMemory, "":
		gc := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, logger)
		b.pub, b.sub, b.shared = gc, gc, true
	case BackendNATS:
		pub, sub, err := newNATSBackend(cfg, logger)
		if err != nil {
			return nil, err
		}
		b.pub, b.sub = pub, sub
	default:
		return nil, fmt.Errorf("unknown event backend %q", cfg.Backend)
	}
	return b, nil
}

// Origin identifies this process in the notices it publishes.
func (b *Bus) Origin() string { return b.origin }

// Publish announces that feeds changed because of source.
func (b *Bus) Publish(ctx context.Context, source string, feeds ...string) error {
	if len(feeds) == 0 {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}

	msg, err := newInvalidation(b.origin, source, feeds).toMessage()
	if err != nil {
		return err
	}
	msg.SetContext(ctx)
	if err := b.pub.Publish(b.topic, msg); err != nil {
		metrics.InvalidationEvents.WithLabelValues("failed").Inc()
		return fmt.Errorf("publish invalidation: %w", err)
	}
	metrics.InvalidationEvents.WithLabelValues("published").Inc()
	return nil
}

// Subscribe returns the raw message stream of the topic. Each call gets its
// own copy of every message. The channel closes when ctx ends or the bus
// closes.
func (b *Bus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrBusClosed
	}
	return b.sub.Subscribe(ctx, b.topic)
}

// Close shuts the bus down. It is safe to call more than once.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	var errs []error
	if err := b.pub.Close(); err != nil {
		errs = append(errs, err)
	}
	if !b.shared {
		if err := b.sub.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
