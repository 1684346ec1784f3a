package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateContestParams represents parameters for creating a contest
type CreateContestParams struct {
	CommunityID uuid.UUID
	Name        string
	Description *string
	StartsAt    time.Time
	EndsAt      time.Time
	CreatedBy   uuid.UUID
}

const sqlCreateContest = `
INSERT INTO contests (community_id, name, description, status, starts_at, ends_at, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, community_id, name, description, status, starts_at, ends_at, created_by, created_at, updated_at, deleted_at`

func (s *Store) CreateContest(ctx context.Context, params CreateContestParams) (Contest, error) {
	var contest Contest
	err := s.db.GetContext(ctx, &contest, sqlCreateContest,
		params.CommunityID,
		params.Name,
		params.Description,
		ContestStatusDraft,
		params.StartsAt,
		params.EndsAt,
		params.CreatedBy)
	if err != nil {
		s.logger.Error(ctx, "failed to create contest", err)
		return Contest{}, fmt.Errorf("failed to create contest: %w", err)
	}
	return contest, nil
}

const sqlGetContestByID = `
SELECT id, community_id, name, description, status, starts_at, ends_at, created_by, created_at, updated_at, deleted_at
FROM contests
WHERE id = $1
  AND deleted_at IS NULL`

func (s *Store) GetContestByID(ctx context.Context, contestID uuid.UUID) (Contest, error) {
	var contest Contest
	err := s.db.GetContext(ctx, &contest, sqlGetContestByID, contestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Contest{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to get contest", err)
		return Contest{}, fmt.Errorf("failed to get contest: %w", err)
	}
	return contest, nil
}

const sqlListContestsByCommunity = `
SELECT id, community_id, name, description, status, starts_at, ends_at, created_by, created_at, updated_at, deleted_at
FROM contests
WHERE community_id = $1
  AND deleted_at IS NULL
ORDER BY starts_at DESC
LIMIT $2 OFFSET $3`

func (s *Store) ListContestsByCommunity(ctx context.Context, communityID uuid.UUID, limit, offset int) ([]Contest, error) {
	if limit <= 0 {
		limit = 50
	}
	contests := []Contest{}
	err := s.db.SelectContext(ctx, &contests, sqlListContestsByCommunity, communityID, limit, offset)
	if err != nil {
		s.logger.Error(ctx, "failed to list contests", err)
		return nil, fmt.Errorf("failed to list contests: %w", err)
	}
	return contests, nil
}

const sqlUpdateContestStatus = `
UPDATE contests
SET status = $2,
    updated_at = NOW()
WHERE id = $1
  AND deleted_at IS NULL
RETURNING id, community_id, name, description, status, starts_at, ends_at, created_by, created_at, updated_at, deleted_at`

func (s *Store) UpdateContestStatus(ctx context.Context, contestID uuid.UUID, status string) (Contest, error) {
	var contest Contest
	err := s.db.GetContext(ctx, &contest, sqlUpdateContestStatus, contestID, status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Contest{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to update contest status", err)
		return Contest{}, fmt.Errorf("failed to update contest status: %w", err)
	}
	return contest, nil
}

const sqlCreateContestEntry = `
INSERT INTO contest_entries (contest_id, video_id, user_id)
VALUES ($1, $2, $3)
ON CONFLICT (contest_id, video_id) DO NOTHING
RETURNING id, contest_id, video_id, user_id, created_at`

func (s *Store) CreateContestEntry(ctx context.Context, contestID, videoID, userID uuid.UUID) (ContestEntry, error) {
	var entry ContestEntry
	err := s.db.GetContext(ctx, &entry, sqlCreateContestEntry, contestID, videoID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ContestEntry{}, ErrAlreadyExists
		}
		s.logger.Error(ctx, "failed to create contest entry", err)
		return ContestEntry{}, fmt.Errorf("failed to create contest entry: %w", err)
	}
	return entry, nil
}

const sqlListContestEntries = `
SELECT id, contest_id, video_id, user_id, created_at
FROM contest_entries
WHERE contest_id = $1
ORDER BY created_at ASC`

func (s *Store) ListContestEntries(ctx context.Context, contestID uuid.UUID) ([]ContestEntry, error) {
	entries := []ContestEntry{}
	err := s.db.SelectContext(ctx, &entries, sqlListContestEntries, contestID)
	if err != nil {
		s.logger.Error(ctx, "failed to list contest entries", err)
		return nil, fmt.Errorf("failed to list contest entries: %w", err)
	}
	return entries, nil
}

const sqlGetContestLeaderboard = `
SELECT ROW_NUMBER() OVER (ORDER BY v.total_views DESC, e.created_at ASC) AS rank,
       e.id            AS entry_id,
       v.id            AS video_id,
       e.user_id       AS user_id,
       v.canonical_url AS canonical_url,
       v.platform      AS platform,
       v.total_views   AS total_views,
       v.like_count    AS like_count
FROM contest_entries e
JOIN videos_hot v ON v.id = e.video_id
WHERE e.contest_id = $1
ORDER BY v.total_views DESC, e.created_at ASC
LIMIT $2`

// GetContestLeaderboard ranks entries by normalized total views. This is the
// source of truth; the redis zset is a cache over it.
func (s *Store) GetContestLeaderboard(ctx context.Context, contestID uuid.UUID, limit int) ([]LeaderboardRow, error) {
	if limit <= 0 {
		limit = 25
	}
	rows := []LeaderboardRow{}
	err := s.db.SelectContext(ctx, &rows, sqlGetContestLeaderboard, contestID, limit)
	if err != nil {
		s.logger.Error(ctx, "failed to get contest leaderboard", err)
		return nil, fmt.Errorf("failed to get contest leaderboard: %w", err)
	}
	return rows, nil
}

const sqlListActiveContestIDsByVideo = `
SELECT DISTINCT e.contest_id
FROM contest_entries e
JOIN contests c ON c.id = e.contest_id
WHERE e.video_id = $1
  AND c.status = $2
  AND c.deleted_at IS NULL`

// ListActiveContestIDsByVideo returns the active contests a video is entered
// in, so fresh scrape metrics can be pushed to their leaderboards.
func (s *Store) ListActiveContestIDsByVideo(ctx context.Context, videoID uuid.UUID) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	err := s.db.SelectContext(ctx, &ids, sqlListActiveContestIDsByVideo, videoID, ContestStatusActive)
	if err != nil {
		s.logger.Error(ctx, "failed to list contests for video", err)
		return nil, fmt.Errorf("failed to list contests for video: %w", err)
	}
	return ids, nil
}
