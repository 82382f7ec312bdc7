// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

package events

import (
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// ErrInvalidEvent is returned when a message does not decode into an
// Invalidation.
var ErrInvalidEvent = errors.New("invalid invalidation event")

// Invalidation reports that the data behind Feeds changed.
type Invalidation struct {
	ID         string    `json:"id"`
	Feeds      []string  `json:"feeds"`
	Source     string    `json:"source"`
	Origin     string    `json:"origin"`
	OccurredAt time.Time `json:"occurredAt"`
}

// newInvalidation stamps a notice from origin.
func newInvalidation(origin, source string, feeds []string) Invalidation {
	return Invalidation{
		ID:         uuid.NewString(),
		Feeds:      feeds,
		Source:     source,
		Origin:     origin,
		OccurredAt: time.Now().UTC(),
	}
}

func (e Invalidation) toMessage() (*message.Message, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode invalidation: %w", err)
	}
	msg := message.NewMessage(e.ID, payload)
	msg.Metadata.Set("source", e.Source)
	msg.Metadata.Set("origin", e.Origin)
	return msg, nil
}

func fromMessage(msg *message.Message) (Invalidation, error) {
	var e Invalidation
	if err := json.Unmarshal(msg.Payload, &e); err != nil {
		return Invalidation{}, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	if len(e.Feeds) == 0 {
		return Invalidation{}, fmt.Errorf("%w: no feeds", ErrInvalidEvent)
	}
	return e, nil
}
