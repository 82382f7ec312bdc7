// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

// Package cachetest holds the behavioural tests every cache.Store backend
// must pass, plus a manual clock for driving expiry deterministically.
package cachetest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/runfeed/internal/cache"
)

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts a clock at a fixed instant.
func NewClock() *Clock {
	return &Clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Factory builds a fresh, empty store whose notion of time is now.
type Factory func(t *testing.T, now func() time.Time) cache.Store

// RunStoreContract runs the shared Store behaviour against a backend.
func RunStoreContract(t *testing.T, factory Factory) {
	t.Helper()

	t.Run("MissOnUnknownKey", func(t *testing.T) {
		s := factory(t, NewClock().Now)
		if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, cache.ErrMiss) {
			t.Errorf("Get(unknown) error = %v, want ErrMiss", err)
		}
	})

	t.Run("SetThenGet", func(t *testing.T) {
		clock := NewClock()
		s := factory(t, clock.Now)
		ctx := context.Background()

		if err := s.Set(ctx, "feed:live-runs:v1", []byte(`{"liveRuns":[]}`), time.Minute); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		entry, err := s.Get(ctx, "feed:live-runs:v1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if !bytes.Equal(entry.Value, []byte(`{"liveRuns":[]}`)) {
			t.Errorf("Value = %q", entry.Value)
		}
		if want := clock.Now().Add(time.Minute); !entry.ExpiresAt.Equal(want) {
			t.Errorf("ExpiresAt = %v, want %v", entry.ExpiresAt, want)
		}
	})

	t.Run("ExpiredReadIsMiss", func(t *testing.T) {
		clock := NewClock()
		s := factory(t, clock.Now)
		ctx := context.Background()

		if err := s.Set(ctx, "k", []byte("stale"), 30*time.Second); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		clock.Advance(29 * time.Second)
		if _, err := s.Get(ctx, "k"); err != nil {
			t.Fatalf("Get() before expiry error = %v", err)
		}
		clock.Advance(time.Second)
		if _, err := s.Get(ctx, "k"); !errors.Is(err, cache.ErrMiss) {
			t.Errorf("Get() at expiry error = %v, want ErrMiss", err)
		}
		clock.Advance(time.Hour)
		if _, err := s.Get(ctx, "k"); !errors.Is(err, cache.ErrMiss) {
			t.Errorf("Get() long after expiry error = %v, want ErrMiss", err)
		}
	})

	t.Run("OverwriteIsLastWriteWins", func(t *testing.T) {
		clock := NewClock()
		s := factory(t, clock.Now)
		ctx := context.Background()

		_ = s.Set(ctx, "k", []byte("first"), time.Minute)
		_ = s.Set(ctx, "k", []byte("second"), 2*time.Minute)

		entry, err := s.Get(ctx, "k")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if string(entry.Value) != "second" {
			t.Errorf("Value = %q, want second", entry.Value)
		}
		clock.Advance(90 * time.Second)
		if _, err := s.Get(ctx, "k"); err != nil {
			t.Errorf("overwrite should carry the new TTL, got %v", err)
		}
	})

	t.Run("NonPositiveTTLRemoves", func(t *testing.T) {
		s := factory(t, NewClock().Now)
		ctx := context.Background()

		_ = s.Set(ctx, "k", []byte("v"), time.Minute)
		if err := s.Set(ctx, "k", []byte("v"), 0); err != nil {
			t.Fatalf("Set(ttl=0) error = %v", err)
		}
		if _, err := s.Get(ctx, "k"); !errors.Is(err, cache.ErrMiss) {
			t.Errorf("Get() error = %v, want ErrMiss", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		s := factory(t, NewClock().Now)
		ctx := context.Background()

		_ = s.Set(ctx, "k", []byte("v"), time.Minute)
		if err := s.Delete(ctx, "k"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if err := s.Delete(ctx, "never-set"); err != nil {
			t.Errorf("Delete(unknown) error = %v", err)
		}
		if _, err := s.Get(ctx, "k"); !errors.Is(err, cache.ErrMiss) {
			t.Errorf("Get() after delete error = %v, want ErrMiss", err)
		}
	})

	t.Run("ReturnedValueIsACopy", func(t *testing.T) {
		s := factory(t, NewClock().Now)
		ctx := context.Background()

		value := []byte("abc")
		_ = s.Set(ctx, "k", value, time.Minute)
		value[0] = 'X'

		entry, _ := s.Get(ctx, "k")
		entry.Value[1] = 'Y'

		again, err := s.Get(ctx, "k")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if string(again.Value) != "abc" {
			t.Errorf("stored value was aliased: %q", again.Value)
		}
	})

	t.Run("ConcurrentWritersSameKey", func(t *testing.T) {
		s := factory(t, NewClock().Now)
		ctx := context.Background()

		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_ = s.Set(ctx, "shared", []byte(fmt.Sprintf("writer-%02d", i)), time.Minute)
			}(i)
		}
		wg.Wait()

		entry, err := s.Get(ctx, "shared")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if len(entry.Value) != len("writer-00") || !bytes.HasPrefix(entry.Value, []byte("writer-")) {
			t.Errorf("torn write: %q", entry.Value)
		}
	})

	t.Run("Prune", func(t *testing.T) {
		clock := NewClock()
		s := factory(t, clock.Now)
		p, ok := s.(cache.Pruner)
		if !ok {
			t.Skip("store does not implement Pruner")
		}
		ctx := context.Background()

		_ = s.Set(ctx, "short", []byte("1"), time.Second)
		_ = s.Set(ctx, "long", []byte("2"), time.Hour)
		clock.Advance(time.Minute)

		n, err := p.Prune(ctx)
		if err != nil {
			t.Fatalf("Prune() error = %v", err)
		}
		if n < 1 {
			t.Errorf("Prune() removed %d, want at least 1", n)
		}
		if _, err := s.Get(ctx, "long"); err != nil {
			t.Errorf("live entry pruned: %v", err)
		}
	})
}
