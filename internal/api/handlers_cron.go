// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/runfeed/internal/logging"
	"github.com/tomtom215/runfeed/internal/refresh"
)

const bearerPrefix = "Bearer "

// cronWriteSlack is added to refresh.timeout when extending the write
// deadline of a cron response.
const cronWriteSlack = 30 * time.Second

// Cron handles GET|POST /api/cron/{action}. The action runs to completion
// even if the caller disconnects; the runner applies its own timeout and
// the response may outlive server.write_timeout by as much.
func (h *Handler) Cron(w http.ResponseWriter, r *http.Request) {
	if err := h.authorizeCron(r); err != nil {
		logging.Ctx(r.Context()).Warn().
			Err(err).
			Str("remote_addr", sanitizeLogValue(r.RemoteAddr)).
			Msg("Rejected cron request")
		respondError(w, r, http.StatusUnauthorized, ErrCodeUnauthorized, "Invalid or missing cron secret", nil)
		return
	}

	action, err := refresh.ParseAction(chi.URLParam(r, "action"))
	if err != nil {
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, err.Error(), nil)
		return
	}

	h.extendWriteDeadline(w, r)
	result, err := h.runner.Run(context.WithoutCancel(r.Context()), action, refresh.TriggerCron)
	w.Header().Set("Cache-Control", "no-store")
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"action":  string(action),
			"error":   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, cronSuccess(action, result))
}

func (h *Handler) extendWriteDeadline(w http.ResponseWriter, r *http.Request) {
	timeout := h.refreshTimeout()
	if timeout <= 0 {
		return
	}
	deadline := time.Now().Add(timeout + cronWriteSlack)
	if err := http.NewResponseController(w).SetWriteDeadline(deadline); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Cannot extend cron write deadline")
	}
}

// authorizeCron compares the bearer token with the configured secret in
// constant time.
func (h *Handler) authorizeCron(r *http.Request) error {
	secret := h.cronSecret()
	if secret == "" {
		return ErrCronDisabled
	}

	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return ErrInvalidCronAuth
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
		return ErrInvalidCronAuth
	}
	return nil
}

// cronSuccess flattens the action result next to "success".
func cronSuccess(action refresh.Action, result any) map[string]interface{} {
	body := map[string]interface{}{}
	if data, err := json.Marshal(result); err == nil {
		_ = json.Unmarshal(data, &body)
	}
	body["success"] = true
	body["action"] = string(action)
	return body
}
