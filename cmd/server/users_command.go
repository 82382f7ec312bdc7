// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"

	"github.com/tomtom215/runfeed/internal/database"
	"github.com/tomtom215/runfeed/internal/logging"
	"github.com/tomtom215/runfeed/internal/models"
	"github.com/tomtom215/runfeed/internal/validation"
)

func newUsersCommand(cmdCtx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage registered players",
	}
	cmd.AddCommand(newUsersImportCommand(cmdCtx))
	cmd.AddCommand(newUsersListCommand(cmdCtx))
	return cmd
}

func newUsersImportCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Create or update players from a YAML file",
		Long: `Reads a YAML file of the form

  users:
    - username: Feinberg
      display_name: Feinberg
      twitch_login: feinberg
      youtube_handle: "@feinberg"

and upserts each entry by username. Invalid entries abort the import before
anything is written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			users, err := loadUsersFile(args[0])
			if err != nil {
				return err
			}

			db, err := database.New(&cfg.Database)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			created, updated, err := importUsers(cmd.Context(), db, users)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %d users (%d created, %d updated)\n", created+updated, created, updated)
			return err
		},
	}
}

func newUsersListCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered players",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			db, err := database.New(&cfg.Database)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			users, err := db.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "USERNAME\tDISPLAY NAME\tTWITCH\tYOUTUBE")
			for _, u := range users {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.Username, u.Summary().DisplayName, u.TwitchLogin, u.YouTubeHandle)
			}
			return tw.Flush()
		},
	}
}

type usersFile struct {
	Users []models.RegisteredUser `koanf:"users"`
}

// loadUsersFile parses and validates a users YAML file.
func loadUsersFile(path string) ([]models.RegisteredUser, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var f usersFile
	if err := k.Unmarshal("", &f); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(f.Users) == 0 {
		return nil, fmt.Errorf("%s: no users found", path)
	}

	for i := range f.Users {
		if verr := validation.ValidateStruct(&f.Users[i]); verr != nil {
			return nil, fmt.Errorf("user %d (%q): %w", i+1, f.Users[i].Username, verr)
		}
	}
	return f.Users, nil
}

func importUsers(ctx context.Context, db *database.DB, users []models.RegisteredUser) (created, updated int, err error) {
	for i := range users {
		isNew, err := db.UpsertUser(ctx, &users[i])
		if err != nil {
			return created, updated, fmt.Errorf("failed to import %q: %w", users[i].Username, err)
		}
		if isNew {
			created++
		} else {
			updated++
		}
		logging.Debug().Str("username", users[i].Username).Bool("created", isNew).Msg("Imported user")
	}
	return created, updated, nil
}
