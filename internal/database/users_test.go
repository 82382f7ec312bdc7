// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

package database

import (
	"context"
	"errors"
	"testing"

	"github.com/tomtom215/runfeed/internal/models"
)

func TestUpsertUser(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	created, err := db.UpsertUser(ctx, &models.RegisteredUser{
		Username:      "Steve",
		DisplayName:   "Steve",
		TwitchLogin:   " SteveTV ",
		YouTubeHandle: "@SteveRuns",
	})
	if err != nil || !created {
		t.Fatalf("UpsertUser() = %v, %v; want created", created, err)
	}

	created, err = db.UpsertUser(ctx, &models.RegisteredUser{Username: "STEVE", DisplayName: "Steve S."})
	if err != nil || created {
		t.Fatalf("second UpsertUser() = %v, %v; want update", created, err)
	}

	n, err := db.CountUsers(ctx)
	if err != nil || n != 1 {
		t.Fatalf("CountUsers() = %d, %v; want 1", n, err)
	}

	u, err := db.GetUser(ctx, "steve")
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if u.DisplayName != "Steve S." || u.Username != "STEVE" {
		t.Errorf("GetUser() = %+v", u)
	}
	if u.TwitchLogin != "" {
		t.Errorf("TwitchLogin = %q, want cleared by update", u.TwitchLogin)
	}
}

func TestUpsertUserNormalizesHandles(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.UpsertUser(ctx, &models.RegisteredUser{Username: "alex", TwitchLogin: " AlexTV", YouTubeHandle: "@AlexRuns"}); err != nil {
		t.Fatal(err)
	}
	u, err := db.GetUser(ctx, "alex")
	if err != nil {
		t.Fatal(err)
	}
	if u.TwitchLogin != "alextv" || u.YouTubeHandle != "alexruns" {
		t.Errorf("handles = %q, %q", u.TwitchLogin, u.YouTubeHandle)
	}
	if u.ID == 0 || u.CreatedAt.IsZero() {
		t.Errorf("generated fields not set: %+v", u)
	}
}

func TestUpsertUserRejectsEmptyUsername(t *testing.T) {
	db := setupTestDB(t)
	if _, err := db.UpsertUser(context.Background(), &models.RegisteredUser{Username: "  "}); err == nil {
		t.Error("expected an error for an empty username")
	}
}

func TestListAndDeleteUsers(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for _, name := range []string{"zed", "Alex", "steve"} {
		if _, err := db.UpsertUser(ctx, &models.RegisteredUser{Username: name}); err != nil {
			t.Fatal(err)
		}
	}

	users, err := db.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	got := []string{users[0].Username, users[1].Username, users[2].Username}
	if got[0] != "Alex" || got[1] != "steve" || got[2] != "zed" {
		t.Errorf("ListUsers() order = %v", got)
	}

	if err := db.DeleteUser(ctx, "ZED"); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}
	if err := db.DeleteUser(ctx, "zed"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("DeleteUser(missing) = %v, want ErrUserNotFound", err)
	}
	if _, err := db.GetUser(ctx, "zed"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetUser(deleted) = %v, want ErrUserNotFound", err)
	}
}
