// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

package cache

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/runfeed/internal/metrics"
)

const memoryTier = "memory"

// Memory is a thread-safe in-process Store.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]Entry
	stats   Stats
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// Stats tracks cache performance.
type Stats struct {
	mu          sync.RWMutex
	Hits        int64
	Misses      int64
	Evictions   int64
	TotalKeys   int64
	LastCleanup time.Time
}

// NewMemory creates an in-memory store.
//
// When cleanupInterval is positive a background goroutine removes expired
// entries on that interval until Close is called. Expired entries are
// always invisible to Get, whether or not the cleanup has run yet.
//
// Example:
//
//	mem := cache.NewMemory(5 * time.Minute)
//	defer mem.Close()
//	_ = mem.Set(ctx, "feed:live-runs:v1", payload, 30*time.Second)
func NewMemory(cleanupInterval time.Duration) *Memory {
	m := &Memory{
		entries: make(map[string]Entry),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	m.stats.LastCleanup = m.now()

	if cleanupInterval > 0 {
		go m.cleanupLoop(cleanupInterval)
	}
	return m
}

// Name implements Store.
func (m *Memory) Name() string { return memoryTier }

// Get returns the entry for key, or ErrMiss when it is unknown or expired.
//
// Behavior:
//   - An expired entry is deleted and counted as a miss and an eviction
//   - The returned Value is a copy; callers may modify it
func (m *Memory) Get(_ context.Context, key string) (Entry, error) {
	m.mu.RLock()
	entry, exists := m.entries[key]
	m.mu.RUnlock()

	if !exists {
		m.recordMiss()
		return Entry{}, ErrMiss
	}

	if entry.Expired(m.now()) {
		m.mu.Lock()
		// Re-check under the write lock: a concurrent Set may have replaced it.
		if cur, ok := m.entries[key]; ok && cur.Expired(m.now()) {
			delete(m.entries, key)
			m.recordEviction(1)
		}
		m.mu.Unlock()
		m.recordMiss()
		return Entry{}, ErrMiss
	}

	m.recordHit()
	entry.Value = cloneBytes(entry.Value)
	return entry, nil
}

// Set stores a copy of value under key for ttl.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ttl <= 0 {
		delete(m.entries, key)
	} else {
		m.entries[key] = Entry{
			Key:       key,
			Value:     cloneBytes(value),
			ExpiresAt: m.now().Add(ttl),
		}
	}
	m.setTotalKeys(len(m.entries))
	return nil
}

// Delete removes key.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	if _, ok := m.entries[key]; ok {
		delete(m.entries, key)
		m.recordEviction(1)
	}
	m.setTotalKeys(len(m.entries))
	m.mu.Unlock()
	return nil
}

// Clear removes every entry.
func (m *Memory) Clear() {
	m.mu.Lock()
	evicted := len(m.entries)
	m.entries = make(map[string]Entry)
	m.setTotalKeys(0)
	m.mu.Unlock()

	m.recordEviction(evicted)
}

// Len returns the number of stored entries, expired ones not yet cleaned
// included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Prune removes all expired entries and returns how many were removed.
func (m *Memory) Prune(_ context.Context) (int, error) {
	now := m.now()

	m.mu.Lock()
	removed := 0
	for key, entry := range m.entries {
		if entry.Expired(now) {
			delete(m.entries, key)
			removed++
		}
	}
	m.setTotalKeys(len(m.entries))
	m.mu.Unlock()

	m.stats.mu.Lock()
	m.stats.LastCleanup = now
	m.stats.mu.Unlock()
	m.recordEviction(removed)

	return removed, nil
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (m *Memory) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
}

// GetStats returns a snapshot of the statistics.
func (m *Memory) GetStats() Stats {
	m.stats.mu.RLock()
	defer m.stats.mu.RUnlock()

	return Stats{
		Hits:        m.stats.Hits,
		Misses:      m.stats.Misses,
		Evictions:   m.stats.Evictions,
		TotalKeys:   m.stats.TotalKeys,
		LastCleanup: m.stats.LastCleanup,
	}
}

// HitRate returns hits / (hits + misses) as a percentage.
func (m *Memory) HitRate() float64 {
	stats := m.GetStats()
	total := stats.Hits + stats.Misses
	if total == 0 {
		return 0.0
	}
	return float64(stats.Hits) / float64(total) * 100.0
}

func (m *Memory) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			_, _ = m.Prune(context.Background())
		}
	}
}

func (m *Memory) recordHit() {
	m.stats.mu.Lock()
	m.stats.Hits++
	m.stats.mu.Unlock()
	metrics.CacheHits.WithLabelValues(memoryTier).Inc()
}

func (m *Memory) recordMiss() {
	m.stats.mu.Lock()
	m.stats.Misses++
	m.stats.mu.Unlock()
	metrics.CacheMisses.WithLabelValues(memoryTier).Inc()
}

func (m *Memory) recordEviction(n int) {
	if n == 0 {
		return
	}
	m.stats.mu.Lock()
	m.stats.Evictions += int64(n)
	m.stats.mu.Unlock()
	metrics.CacheEvictions.WithLabelValues(memoryTier).Add(float64(n))
}

// setTotalKeys must be called with m.mu held.
func (m *Memory) setTotalKeys(n int) {
	m.stats.mu.Lock()
	m.stats.TotalKeys = int64(n)
	m.stats.mu.Unlock()
	metrics.CacheSize.WithLabelValues(memoryTier).Set(float64(n))
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
