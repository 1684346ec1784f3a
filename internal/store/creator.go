package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// UpsertCreatorParams represents parameters for a creator directory rollup
type UpsertCreatorParams struct {
	Platform      string
	Username      string
	ProfileURL    string
	FollowerCount int64
}

const sqlUpsertCreator = `
INSERT INTO creators_hot (platform, username, profile_url, follower_count)
VALUES ($1, $2, $3, $4)
ON CONFLICT (platform, username) DO UPDATE
SET profile_url    = EXCLUDED.profile_url,
    follower_count = GREATEST(EXCLUDED.follower_count, creators_hot.follower_count),
    updated_at     = NOW()
RETURNING id, platform, username, profile_url, follower_count, video_count, total_views, total_likes, created_at, updated_at`

func (s *Store) UpsertCreator(ctx context.Context, params UpsertCreatorParams) (Creator, error) {
	var creator Creator
	err := s.db.GetContext(ctx, &creator, sqlUpsertCreator,
		params.Platform, params.Username, params.ProfileURL, params.FollowerCount)
	if err != nil {
		s.logger.Error(ctx, "failed to upsert creator", err)
		return Creator{}, fmt.Errorf("failed to upsert creator: %w", err)
	}
	return creator, nil
}

const sqlGetCreatorByID = `
SELECT id, platform, username, profile_url, follower_count, video_count, total_views, total_likes, created_at, updated_at
FROM creators_hot
WHERE id = $1`

func (s *Store) GetCreatorByID(ctx context.Context, creatorID uuid.UUID) (Creator, error) {
	var creator Creator
	err := s.db.GetContext(ctx, &creator, sqlGetCreatorByID, creatorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Creator{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to get creator", err)
		return Creator{}, fmt.Errorf("failed to get creator: %w", err)
	}
	return creator, nil
}

const sqlListCreators = `
SELECT id, platform, username, profile_url, follower_count, video_count, total_views, total_likes, created_at, updated_at
FROM creators_hot
WHERE ($1 = '' OR platform = $1)
ORDER BY total_views DESC, follower_count DESC
LIMIT $2 OFFSET $3`

func (s *Store) ListCreators(ctx context.Context, platform string, limit, offset int) ([]Creator, error) {
	if limit <= 0 {
		limit = 50
	}
	creators := []Creator{}
	err := s.db.SelectContext(ctx, &creators, sqlListCreators, platform, limit, offset)
	if err != nil {
		s.logger.Error(ctx, "failed to list creators", err)
		return nil, fmt.Errorf("failed to list creators: %w", err)
	}
	return creators, nil
}

const sqlRefreshCreatorRollup = `
UPDATE creators_hot c
SET video_count = agg.video_count,
    total_views = agg.total_views,
    total_likes = agg.total_likes,
    updated_at  = NOW()
FROM (SELECT creator_id,
             COUNT(*)           AS video_count,
             COALESCE(SUM(total_views), 0) AS total_views,
             COALESCE(SUM(like_count), 0)  AS total_likes
      FROM videos_hot
      WHERE creator_id = $1
      GROUP BY creator_id) agg
WHERE c.id = agg.creator_id
RETURNING c.id, c.platform, c.username, c.profile_url, c.follower_count, c.video_count, c.total_views, c.total_likes, c.created_at, c.updated_at`

// RefreshCreatorRollup recomputes the creator's aggregates from its videos.
func (s *Store) RefreshCreatorRollup(ctx context.Context, creatorID uuid.UUID) (Creator, error) {
	var creator Creator
	err := s.db.GetContext(ctx, &creator, sqlRefreshCreatorRollup, creatorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Creator{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to refresh creator rollup", err)
		return Creator{}, fmt.Errorf("failed to refresh creator rollup: %w", err)
	}
	return creator, nil
}
