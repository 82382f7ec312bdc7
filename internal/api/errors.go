// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

package api

import "errors"

var (
	// ErrInvalidCronAuth indicates a missing or wrong cron bearer secret.
	ErrInvalidCronAuth = errors.New("invalid cron authorization")

	// ErrCronDisabled indicates no cron secret is configured, so every
	// cron request is refused.
	ErrCronDisabled = errors.New("cron secret not configured")
)

// Error codes used in the error envelope.
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	ErrCodeRateLimited      = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal         = "INTERNAL_ERROR"
	ErrCodeUnavailable      = "SERVICE_UNAVAILABLE"
)
