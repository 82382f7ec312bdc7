// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

package api

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/runfeed/internal/feed"
	"github.com/tomtom215/runfeed/internal/logging"
	"github.com/tomtom215/runfeed/internal/models"
	"github.com/tomtom215/runfeed/internal/validation"
)

const (
	// FavoritesCookie holds the caller's favourite players.
	FavoritesCookie = "favorites"

	// maxFavorites caps how many cookie entries are honoured.
	maxFavorites = 200
)

// FeedRequest holds the query parameters of GET /api/feed.
type FeedRequest struct {
	Type string `query:"type" validate:"required"`
}

// Feed handles GET /api/feed?type=<feed>.
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	req := FeedRequest{Type: r.URL.Query().Get("type")}
	if ve := validation.ValidateStruct(&req); ve != nil {
		respondValidation(w, ve)
		return
	}

	t, err := feed.ParseType(req.Type)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation,
			"type must be one of: "+strings.Join(feed.TypeNames(), ", "), nil)
		return
	}

	resp, remaining, err := h.feeds.GetFeed(r.Context(), t, parseFavorites(r))
	switch {
	case errors.Is(err, feed.ErrUnknownType):
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, err.Error(), nil)
		return
	case err != nil:
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to load feed", err)
		return
	}

	w.Header().Set("Cache-Control", h.feeds.CacheControl(t, remaining))
	writeJSON(w, http.StatusOK, resp)
}

// parseFavorites reads the favourites cookie. Malformed values yield an
// empty set; favourites only influence ordering.
func parseFavorites(r *http.Request) models.FavoriteSet {
	cookie, err := r.Cookie(FavoritesCookie)
	if err != nil || cookie.Value == "" {
		return nil
	}

	ids := parseFavoritesValue(cookie.Value)
	if len(ids) > maxFavorites {
		logging.Ctx(r.Context()).Debug().Int("count", len(ids)).Msg("Truncating favourites cookie")
		ids = ids[:maxFavorites]
	}
	return models.NewFavoriteSet(ids...)
}

// parseFavoritesValue accepts a JSON array or a comma separated list, either
// of them optionally URL-encoded.
func parseFavoritesValue(raw string) []string {
	value := strings.TrimSpace(raw)
	if decoded, err := url.QueryUnescape(value); err == nil {
		value = strings.TrimSpace(decoded)
	}
	if value == "" {
		return nil
	}

	if strings.HasPrefix(value, "[") {
		var ids []string
		if err := json.Unmarshal([]byte(value), &ids); err == nil {
			return ids
		}
		return nil
	}

	parts := strings.Split(value, ",")
	ids := make([]string, 0, len(parts))
	for _, part := range parts {
		if id := strings.Trim(strings.TrimSpace(part), `"`); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
