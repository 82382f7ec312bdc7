// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/runfeed/internal/logging"
)

// Tiered puts a fast front store (normally Memory) before a persistent back
// store. Reads try the front first; a back hit is copied forward with its
// remaining TTL so both tiers expire together. Writes and deletes go to both.
type Tiered struct {
	front Store
	back  Store
	now   func() time.Time
}

// NewTiered combines front and back.
func NewTiered(front, back Store) *Tiered {
	return &Tiered{front: front, back: back, now: time.Now}
}

// Name implements Store.
func (t *Tiered) Name() string {
	return t.front.Name() + "+" + t.back.Name()
}

// Get implements Store.
func (t *Tiered) Get(ctx context.Context, key string) (Entry, error) {
	entry, err := t.front.Get(ctx, key)
	if err == nil {
		return entry, nil
	}
	if !errors.Is(err, ErrMiss) {
		logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("front cache tier failed, falling back")
	}

	entry, err = t.back.Get(ctx, key)
	if err != nil {
		return Entry{}, err
	}

	if remaining := entry.Remaining(t.now()); remaining > 0 {
		if ferr := t.front.Set(ctx, key, entry.Value, remaining); ferr != nil {
			logging.Ctx(ctx).Warn().Err(ferr).Str("key", key).Msg("failed to back-fill front cache tier")
		}
	}
	return entry, nil
}

// Set implements Store. The back tier is written first; a back failure is
// returned but the front tier is still updated so this process serves the
// fresh value.
func (t *Tiered) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	backErr := t.back.Set(ctx, key, value, ttl)
	if err := t.front.Set(ctx, key, value, ttl); err != nil {
		return fmt.Errorf("front tier: %w", err)
	}
	if backErr != nil {
		return fmt.Errorf("back tier: %w", backErr)
	}
	return nil
}

// Delete implements Store.
func (t *Tiered) Delete(ctx context.Context, key string) error {
	return errors.Join(t.front.Delete(ctx, key), t.back.Delete(ctx, key))
}

// Prune prunes whichever tiers support it.
func (t *Tiered) Prune(ctx context.Context) (int, error) {
	total := 0
	var errs []error
	for _, s := range []Store{t.front, t.back} {
		p, ok := s.(Pruner)
		if !ok {
			continue
		}
		n, err := p.Prune(ctx)
		total += n
		if err != nil {
			errs = append(errs, fmt.Errorf("prune %s: %w", s.Name(), err))
		}
	}
	return total, errors.Join(errs...)
}
