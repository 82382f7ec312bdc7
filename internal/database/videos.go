// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

/*
videos.go - YouTube Catalogue Operations

The catalogue is written only by the refresh actions and read by the
youtube-videos and youtube-live feeds.

Idempotence:
  - UpsertVideos inserts unknown ids and updates known ones in place, so
    repeating a discovery with the same uploads leaves the row count unchanged
  - playlist listings carry no live state, so an upsert never overwrites it
  - UpdateVideoDetails only touches rows whose values actually changed and
    reports that number
*/

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/runfeed/internal/models"
)

const videoColumns = `video_id, channel_id, player, title, published_at, thumbnail_url, live_status,
	scheduled_start, actual_start, concurrent_viewers, updated_at`

// UpsertVideos writes videos into the catalogue and returns how many were
// new. Existing rows only get their channel, owner, title and thumbnail
// replaced; live fields belong to UpdateVideoDetails.
func (db *DB) UpsertVideos(ctx context.Context, videos []models.Video) (int, error) {
	if len(videos) == 0 {
		return 0, nil
	}
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var inserted int
	err := db.withConflictRetry(ctx, "upsert_videos", func() error {
		inserted = 0
		tx, err := db.conn.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		now := db.now().UTC()
		for i := range videos {
			v := &videos[i]
			var exists int
			if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM youtube_videos WHERE video_id = ?`, v.VideoID).Scan(&exists); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO youtube_videos (`+videoColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (video_id) DO UPDATE SET
					channel_id = excluded.channel_id,
					player = excluded.player,
					title = excluded.title,
					thumbnail_url = excluded.thumbnail_url,
					updated_at = excluded.updated_at`,
				v.VideoID, v.ChannelID, v.Player, v.Title, v.PublishedAt.UTC(), v.ThumbnailURL,
				string(statusOrNone(v.LiveStatus)), nullTime(v.ScheduledStart), nullTime(v.ActualStart),
				nullInt64(v.ConcurrentViewers), now)
			if err != nil {
				return fmt.Errorf("video %s: %w", v.VideoID, err)
			}
			if exists == 0 {
				inserted++
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, fmt.Errorf("upsert videos: %w", err)
	}
	return inserted, nil
}

// UpdateVideoDetails refreshes title, thumbnail and live fields of catalogued
// videos and returns how many rows changed. Unknown ids are ignored.
func (db *DB) UpdateVideoDetails(ctx context.Context, videos []models.Video) (int, error) {
	if len(videos) == 0 {
		return 0, nil
	}
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var updated int
	err := db.withConflictRetry(ctx, "update_video_details", func() error {
		updated = 0
		tx, err := db.conn.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		now := db.now().UTC()
		for i := range videos {
			v := &videos[i]
			status := string(statusOrNone(v.LiveStatus))
			scheduled, actual, viewers := nullTime(v.ScheduledStart), nullTime(v.ActualStart), nullInt64(v.ConcurrentViewers)
			res, err := tx.ExecContext(ctx, `
				UPDATE youtube_videos SET
					title = ?, thumbnail_url = ?, live_status = ?,
					scheduled_start = ?, actual_start = ?, concurrent_viewers = ?, updated_at = ?
				WHERE video_id = ? AND (
					title IS DISTINCT FROM ? OR thumbnail_url IS DISTINCT FROM ? OR live_status IS DISTINCT FROM ?
					OR scheduled_start IS DISTINCT FROM ? OR actual_start IS DISTINCT FROM ?
					OR concurrent_viewers IS DISTINCT FROM ?)`,
				v.Title, v.ThumbnailURL, status, scheduled, actual, viewers, now,
				v.VideoID,
				v.Title, v.ThumbnailURL, status, scheduled, actual, viewers)
			if err != nil {
				return fmt.Errorf("video %s: %w", v.VideoID, err)
			}
			n, _ := res.RowsAffected()
			updated += int(n)
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, fmt.Errorf("update video details: %w", err)
	}
	return updated, nil
}

// DeleteVideos removes videos by id and returns how many rows were deleted.
func (db *DB) DeleteVideos(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	var deleted int
	err := db.withConflictRetry(ctx, "delete_videos", func() error {
		res, err := db.conn.ExecContext(ctx,
			`DELETE FROM youtube_videos WHERE video_id IN (`+placeholders(len(ids))+`)`, args...)
		if err != nil {
			return err
		}
		n, _ := res.RowsAffected()
		deleted = int(n)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete videos: %w", err)
	}
	return deleted, nil
}

// ListVideos returns the newest non-broadcast videos, newest first.
func (db *DB) ListVideos(ctx context.Context, limit int) ([]models.Video, error) {
	return db.queryVideos(ctx, `
		SELECT `+videoColumns+` FROM youtube_videos
		WHERE live_status IN ('none', 'completed')
		ORDER BY published_at DESC, video_id
		LIMIT ?`, limit)
}

// ListBroadcasts returns live videos first, then upcoming ones by start time.
func (db *DB) ListBroadcasts(ctx context.Context) ([]models.Video, error) {
	return db.queryVideos(ctx, `
		SELECT `+videoColumns+` FROM youtube_videos
		WHERE live_status IN ('live', 'upcoming')
		ORDER BY CASE live_status WHEN 'live' THEN 0 ELSE 1 END,
			COALESCE(actual_start, scheduled_start, published_at) DESC, video_id`)
}

// ListVideoIDs returns the id of every catalogued video.
func (db *DB) ListVideoIDs(ctx context.Context) ([]string, error) {
	return db.queryIDs(ctx, `SELECT video_id FROM youtube_videos ORDER BY video_id`)
}

// ListLiveCandidates returns ids whose live state may change soon: current
// broadcasts plus anything published after since.
func (db *DB) ListLiveCandidates(ctx context.Context, since time.Time) ([]string, error) {
	return db.queryIDs(ctx, `
		SELECT video_id FROM youtube_videos
		WHERE live_status IN ('live', 'upcoming') OR published_at >= ?
		ORDER BY video_id`, since.UTC())
}

// CountVideos returns the catalogue size.
func (db *DB) CountVideos(ctx context.Context) (int, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM youtube_videos`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count videos: %w", err)
	}
	return n, nil
}

func (db *DB) queryVideos(ctx context.Context, query string, args ...any) ([]models.Video, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	videos := make([]models.Video, 0)
	for rows.Next() {
		var (
			v         models.Video
			status    string
			scheduled sql.NullTime
			actual    sql.NullTime
			viewers   sql.NullInt64
		)
		if err := rows.Scan(&v.VideoID, &v.ChannelID, &v.Player, &v.Title, &v.PublishedAt, &v.ThumbnailURL,
			&status, &scheduled, &actual, &viewers, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		v.LiveStatus = models.ParseLiveStatus(status)
		if scheduled.Valid {
			t := scheduled.Time
			v.ScheduledStart = &t
		}
		if actual.Valid {
			t := actual.Time
			v.ActualStart = &t
		}
		if viewers.Valid {
			n := viewers.Int64
			v.ConcurrentViewers = &n
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

func (db *DB) queryIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query video ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan video id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func statusOrNone(s models.LiveStatus) models.LiveStatus {
	if s == "" {
		return models.LiveStatusNone
	}
	return s
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullInt64(n *int64) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *n, Valid: true}
}
