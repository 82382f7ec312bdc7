// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

package sources

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrCircuitOpen is wrapped by UpstreamError when a breaker rejects a call.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrChannelNotFound is returned when a handle resolves to no channel.
	ErrChannelNotFound = errors.New("channel not found")
)

// UpstreamError reports that a remote API was unreachable or answered with
// a non-success status. StatusCode is 0 when no response was received.
type UpstreamError struct {
	Source     string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: upstream status %d: %v", e.Source, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: upstream unavailable: %v", e.Source, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// IsUpstreamError reports whether err (or anything it wraps) is an
// UpstreamError.
func IsUpstreamError(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsUnauthorized reports whether err is an upstream 401.
func IsUnauthorized(err error) bool {
	return hasStatus(err, http.StatusUnauthorized)
}

func hasStatus(err error, status int) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.StatusCode == status
}

var errEmptyToken = errors.New("token endpoint returned no access_token")
