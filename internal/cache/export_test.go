// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

package cache

import (
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Test hooks for the external cache_test package.

func SetMemoryClock(m *Memory, now func() time.Time) { m.now = now }

func SetBadgerClock(b *Badger, now func() time.Time) { b.now = now }

func SetTieredClock(t *Tiered, now func() time.Time) { t.now = now }

func EncodeBadgerValue(expiresAt time.Time, payload []byte) []byte {
	return encodeBadgerValue(expiresAt, payload)
}

func PutRawBadger(b *Badger, key string, raw []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(badgerKeyPrefix+key), raw)
	})
}
