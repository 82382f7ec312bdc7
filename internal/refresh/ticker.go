// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

package refresh

import (
	"context"
	"time"
)

// Ticker runs one action on an interval. It implements suture.Service.
//
// The first run happens one interval after start so a restart loop cannot
// hammer upstream quotas. A failed run is logged by Runner.Run and does not
// stop the ticker.
type Ticker struct {
	runner   *Runner
	action   Action
	interval time.Duration
}

// NewTicker creates a ticker service for action.
func NewTicker(runner *Runner, action Action, interval time.Duration) *Ticker {
	return &Ticker{runner: runner, action: action, interval: interval}
}

// Serve implements suture.Service.
func (t *Ticker) Serve(ctx context.Context) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_, _ = t.runner.Run(ctx, t.action, TriggerInternal)
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (t *Ticker) String() string {
	return "refresh-" + string(t.action)
}
