package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// UpsertVideoParams represents parameters for inserting or refreshing a video
type UpsertVideoParams struct {
	CreatorID    *uuid.UUID
	SubmittedBy  *uuid.UUID
	Platform     string
	CanonicalURL string
	SnapshotID   *string
	ScrapeStatus string
	TotalViews   int64
	LikeCount    int64
	CommentCount int64
	ShareCount   int64
	SaveCount    int64
	RawPayload   JSONB
}

// ListVideosParams represents pagination and filters for video listing
type ListVideosParams struct {
	Platform  string
	CreatorID *uuid.UUID
	Limit     int
	Offset    int
}

const sqlUpsertVideo = `
INSERT INTO videos_hot (creator_id, submitted_by, platform, canonical_url, snapshot_id, scrape_status, total_views, like_count, comment_count, share_count, save_count, raw_payload)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (canonical_url) DO UPDATE
SET creator_id    = COALESCE(EXCLUDED.creator_id, videos_hot.creator_id),
    snapshot_id   = COALESCE(EXCLUDED.snapshot_id, videos_hot.snapshot_id),
    scrape_status = EXCLUDED.scrape_status,
    total_views   = EXCLUDED.total_views,
    like_count    = EXCLUDED.like_count,
    comment_count = EXCLUDED.comment_count,
    share_count   = EXCLUDED.share_count,
    save_count    = EXCLUDED.save_count,
    raw_payload   = COALESCE(EXCLUDED.raw_payload, videos_hot.raw_payload),
    updated_at    = NOW()
RETURNING id, creator_id, submitted_by, platform, canonical_url, snapshot_id, scrape_status, total_views, like_count, comment_count, share_count, save_count, raw_payload, created_at, updated_at`

// UpsertVideo inserts a video or refreshes its metrics, keyed by canonical
// URL so resubmissions of the same video never duplicate.
func (s *Store) UpsertVideo(ctx context.Context, params UpsertVideoParams) (Video, error) {
	var video Video
	err := s.db.GetContext(ctx, &video, sqlUpsertVideo,
		params.CreatorID,
		params.SubmittedBy,
		params.Platform,
		params.CanonicalURL,
		params.SnapshotID,
		params.ScrapeStatus,
		params.TotalViews,
		params.LikeCount,
		params.CommentCount,
		params.ShareCount,
		params.SaveCount,
		params.RawPayload)
	if err != nil {
		s.logger.Error(ctx, "failed to upsert video", err)
		return Video{}, fmt.Errorf("failed to upsert video: %w", err)
	}
	return video, nil
}

const sqlGetVideoByID = `
SELECT id, creator_id, submitted_by, platform, canonical_url, snapshot_id, scrape_status, total_views, like_count, comment_count, share_count, save_count, raw_payload, created_at, updated_at
FROM videos_hot
WHERE id = $1`

func (s *Store) GetVideoByID(ctx context.Context, videoID uuid.UUID) (Video, error) {
	var video Video
	err := s.db.GetContext(ctx, &video, sqlGetVideoByID, videoID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Video{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to get video", err)
		return Video{}, fmt.Errorf("failed to get video: %w", err)
	}
	return video, nil
}

const sqlGetVideoByCanonicalURL = `
SELECT id, creator_id, submitted_by, platform, canonical_url, snapshot_id, scrape_status, total_views, like_count, comment_count, share_count, save_count, raw_payload, created_at, updated_at
FROM videos_hot
WHERE canonical_url = $1`

func (s *Store) GetVideoByCanonicalURL(ctx context.Context, canonicalURL string) (Video, error) {
	var video Video
	err := s.db.GetContext(ctx, &video, sqlGetVideoByCanonicalURL, canonicalURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Video{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to get video by canonical url", err)
		return Video{}, fmt.Errorf("failed to get video by canonical url: %w", err)
	}
	return video, nil
}

const sqlListVideos = `
SELECT id, creator_id, submitted_by, platform, canonical_url, snapshot_id, scrape_status, total_views, like_count, comment_count, share_count, save_count, raw_payload, created_at, updated_at
FROM videos_hot
WHERE ($1 = '' OR platform = $1)
  AND ($2::uuid IS NULL OR creator_id = $2)
ORDER BY total_views DESC, created_at DESC
LIMIT $3 OFFSET $4`

func (s *Store) ListVideos(ctx context.Context, params ListVideosParams) ([]Video, error) {
	if params.Limit <= 0 {
		params.Limit = 50
	}
	videos := []Video{}
	err := s.db.SelectContext(ctx, &videos, sqlListVideos,
		params.Platform, params.CreatorID, params.Limit, params.Offset)
	if err != nil {
		s.logger.Error(ctx, "failed to list videos", err)
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	return videos, nil
}

const sqlGetVideoBySnapshotID = `
SELECT id, creator_id, submitted_by, platform, canonical_url, snapshot_id, scrape_status, total_views, like_count, comment_count, share_count, save_count, raw_payload, created_at, updated_at
FROM videos_hot
WHERE snapshot_id = $1`

func (s *Store) GetVideoBySnapshotID(ctx context.Context, snapshotID string) (Video, error) {
	var video Video
	err := s.db.GetContext(ctx, &video, sqlGetVideoBySnapshotID, snapshotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Video{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to get video by snapshot", err)
		return Video{}, fmt.Errorf("failed to get video by snapshot: %w", err)
	}
	return video, nil
}
