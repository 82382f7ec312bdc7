// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

package models

import (
	"sort"
	"strings"
)

// Keyed is implemented by feed entries that belong to a player.
type Keyed interface {
	PlayerKey() string
}

// FavoriteSet holds the lowercase identifiers a caller marked as favourite.
// It only affects ordering, never filtering.
type FavoriteSet map[string]struct{}

// NewFavoriteSet builds a set from ids. Blank ids are ignored.
func NewFavoriteSet(ids ...string) FavoriteSet {
	set := make(FavoriteSet, len(ids))
	for _, id := range ids {
		if k := strings.ToLower(strings.TrimSpace(id)); k != "" {
			set[k] = struct{}{}
		}
	}
	return set
}

// Has reports whether id is a favourite, ignoring case.
func (f FavoriteSet) Has(id string) bool {
	if len(f) == 0 {
		return false
	}
	_, ok := f[strings.ToLower(id)]
	return ok
}

// SortFavoritesFirst returns a copy of items with favourites moved ahead of
// everything else. Relative order inside each group is preserved.
func SortFavoritesFirst[T Keyed](items []T, favorites FavoriteSet) []T {
	out := make([]T, len(items))
	copy(out, items)
	if len(favorites) == 0 {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		return favorites.Has(out[i].PlayerKey()) && !favorites.Has(out[j].PlayerKey())
	})
	return out
}
