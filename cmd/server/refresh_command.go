// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

package main

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/runfeed/internal/refresh"
)

func newRefreshCommand(cmdCtx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Run a refresh action once and print its result",
	}

	for _, action := range []refresh.Action{refresh.ActionDiscover, refresh.ActionVerify, refresh.ActionLive} {
		cmd.AddCommand(newRefreshActionCommand(cmdCtx, action))
	}
	return cmd
}

func newRefreshActionCommand(cmdCtx *commandContext, action refresh.Action) *cobra.Command {
	short := map[refresh.Action]string{
		refresh.ActionDiscover: "Catalogue recent uploads of registered YouTube channels",
		refresh.ActionVerify:   "Re-check catalogued videos and prune expired cache entries",
		refresh.ActionLive:     "Refresh live status and rebuild the live feeds",
	}[action]

	return &cobra.Command{
		Use:   string(action),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = a.close() }()

			result, err := a.runner.Run(cmd.Context(), action, refresh.TriggerCLI)
			if err != nil {
				return fmt.Errorf("%s failed: %w", action, err)
			}
			return writeResult(cmd.OutOrStdout(), result)
		},
	}
}

// writeResult prints v as indented JSON.
func writeResult(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
