// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/tomtom215/runfeed/internal/models"
)

const userColumns = `id, username, display_name, avatar_url, twitch_login, youtube_handle, created_at, updated_at`

// UpsertUser inserts a user or updates the profile of an existing one with
// the same username (case-insensitive). It reports whether a row was created.
func (db *DB) UpsertUser(ctx context.Context, u *models.RegisteredUser) (bool, error) {
	key := u.Key()
	if key == "" {
		return false, fmt.Errorf("upsert user: empty username")
	}
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var created bool
	err := db.withConflictRetry(ctx, "upsert_user", func() error {
		tx, err := db.conn.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		var existing int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE username_key = ?`, key).Scan(&existing); err != nil {
			return err
		}

		now := db.now().UTC()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO users (username, username_key, display_name, avatar_url, twitch_login, youtube_handle, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (username_key) DO UPDATE SET
				username = excluded.username,
				display_name = excluded.display_name,
				avatar_url = excluded.avatar_url,
				twitch_login = excluded.twitch_login,
				youtube_handle = excluded.youtube_handle,
				updated_at = excluded.updated_at`,
			strings.TrimSpace(u.Username), key, u.DisplayName, u.AvatarURL,
			normalizeHandle(u.TwitchLogin), normalizeHandle(u.YouTubeHandle), now, now)
		if err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		created = existing == 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("upsert user %s: %w", key, err)
	}
	return created, nil
}

// ListUsers returns every registered user ordered by username.
func (db *DB) ListUsers(ctx context.Context) ([]models.RegisteredUser, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY username_key`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.RegisteredUser
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// GetUser looks a user up by username, ignoring case.
func (db *DB) GetUser(ctx context.Context, username string) (*models.RegisteredUser, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username_key = ?`,
		strings.ToLower(strings.TrimSpace(username)))
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", username, err)
	}
	return &u, nil
}

// DeleteUser removes a user. Catalogued videos are kept until Verify or
// the next Discover no longer finds their channel.
func (db *DB) DeleteUser(ctx context.Context, username string) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, `DELETE FROM users WHERE username_key = ?`,
		strings.ToLower(strings.TrimSpace(username)))
	if err != nil {
		return fmt.Errorf("delete user %s: %w", username, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// CountUsers returns the number of registered users.
func (db *DB) CountUsers(ctx context.Context) (int, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (models.RegisteredUser, error) {
	var u models.RegisteredUser
	err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &u.AvatarURL,
		&u.TwitchLogin, &u.YouTubeHandle, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// normalizeHandle trims whitespace and a leading "@" and lowercases.
func normalizeHandle(h string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(h), "@"))
}
