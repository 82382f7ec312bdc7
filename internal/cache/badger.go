// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/runfeed/internal/logging"
	"github.com/tomtom215/runfeed/internal/metrics"
)

const (
	badgerTier      = "badger"
	badgerKeyPrefix = "cache:"

	// expiryHeaderLen is the big-endian UnixNano expiry stored before each
	// value. Badger's own TTL has second resolution; the header gives exact
	// expiry on read.
	expiryHeaderLen = 8
)

// Badger is a persistent Store backed by BadgerDB.
type Badger struct {
	db       *badger.DB
	ownsDB   bool
	inMemory bool
	now      func() time.Time
}

// OpenBadger opens (or creates) a BadgerDB at path. An empty path opens an
// in-memory database, which tests use.
func OpenBadger(path string) (*Badger, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	inMemory := path == ""
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache: %w", err)
	}
	return &Badger{db: db, ownsDB: true, inMemory: inMemory, now: time.Now}, nil
}

// NewBadger wraps an already open database. Close does not close it.
func NewBadger(db *badger.DB) *Badger {
	return &Badger{db: db, now: time.Now}
}

// Name implements Store.
func (b *Badger) Name() string { return badgerTier }

// Get implements Store.
func (b *Badger) Get(_ context.Context, key string) (Entry, error) {
	var entry Entry
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerKeyPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrMiss
		}
		if err != nil {
			return fmt.Errorf("get %s: %w", key, err)
		}
		return item.Value(func(val []byte) error {
			expiresAt, payload, ok := decodeBadgerValue(val)
			if !ok {
				return ErrMalformedPayload
			}
			entry = Entry{Key: key, Value: cloneBytes(payload), ExpiresAt: expiresAt}
			return nil
		})
	})

	switch {
	case errors.Is(err, ErrMiss):
		metrics.CacheMisses.WithLabelValues(badgerTier).Inc()
		return Entry{}, ErrMiss
	case errors.Is(err, ErrMalformedPayload):
		logging.Warn().Str("key", key).Msg("dropping malformed badger cache entry")
		_ = b.Delete(context.Background(), key)
		metrics.CacheMisses.WithLabelValues(badgerTier).Inc()
		return Entry{}, ErrMiss
	case err != nil:
		return Entry{}, err
	}

	if entry.Expired(b.now()) {
		metrics.CacheMisses.WithLabelValues(badgerTier).Inc()
		return Entry{}, ErrMiss
	}
	metrics.CacheHits.WithLabelValues(badgerTier).Inc()
	return entry, nil
}

// Set implements Store. Each write is its own transaction, so concurrent
// writers to one key resolve last-write-wins.
func (b *Badger) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return b.Delete(ctx, key)
	}

	expiresAt := b.now().Add(ttl)
	// Badger expires at second granularity; round up so it never drops an
	// entry before the header says it is stale.
	badgerTTL := ttl.Truncate(time.Second) + time.Second

	return b.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(badgerKeyPrefix+key), encodeBadgerValue(expiresAt, value)).WithTTL(badgerTTL)
		if err := txn.SetEntry(e); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
		return nil
	})
}

// Delete implements Store.
func (b *Badger) Delete(_ context.Context, key string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(badgerKeyPrefix + key)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete %s: %w", key, err)
		}
		return nil
	})
}

// Prune deletes entries whose header says they expired and runs value log
// garbage collection on disk-backed databases.
func (b *Badger) Prune(ctx context.Context) (int, error) {
	now := b.now()
	var expired [][]byte

	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(badgerKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			err := item.Value(func(val []byte) error {
				expiresAt, _, ok := decodeBadgerValue(val)
				if !ok || !now.Before(expiresAt) {
					expired = append(expired, item.KeyCopy(nil))
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan badger cache: %w", err)
	}

	if len(expired) > 0 {
		err = b.db.Update(func(txn *badger.Txn) error {
			for _, k := range expired {
				if err := txn.Delete(k); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return 0, fmt.Errorf("delete expired badger entries: %w", err)
		}
		metrics.CacheEvictions.WithLabelValues(badgerTier).Add(float64(len(expired)))
	}

	if !b.inMemory {
		if err := b.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
			logging.Warn().Err(err).Msg("badger value log GC failed")
		}
	}
	return len(expired), nil
}

// Close closes the database when this store opened it.
func (b *Badger) Close() error {
	if !b.ownsDB {
		return nil
	}
	return b.db.Close()
}

func encodeBadgerValue(expiresAt time.Time, payload []byte) []byte {
	buf := make([]byte, expiryHeaderLen+len(payload))
	binary.BigEndian.PutUint64(buf, uint64(expiresAt.UnixNano()))
	copy(buf[expiryHeaderLen:], payload)
	return buf
}

func decodeBadgerValue(val []byte) (time.Time, []byte, bool) {
	if len(val) < expiryHeaderLen {
		return time.Time{}, nil, false
	}
	nanos := int64(binary.BigEndian.Uint64(val[:expiryHeaderLen]))
	return time.Unix(0, nanos), val[expiryHeaderLen:], true
}
