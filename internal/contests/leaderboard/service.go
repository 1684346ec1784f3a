package leaderboard

import (
	"context"
	"errors"
	"fmt"

	"fanforge-server/internal/clients/redis"
	"fanforge-server/internal/observability"
	"fanforge-server/internal/store"

	"github.com/google/uuid"
	redisLib "github.com/redis/go-redis/v9"
)

// ErrNotRanked means the entry is absent from the cached zset.
var ErrNotRanked = errors.New("entry not on leaderboard")

// Service keeps per-contest leaderboards in Redis ZSETs, scored by total
// views. Postgres stays the source of truth; callers fall back to it when
// Redis is disabled or cold.
type Service struct {
	redis  *redis.Client
	logger *observability.Logger
}

// Entry is a ranked zset member.
type Entry struct {
	EntryID    uuid.UUID `json:"entry_id"`
	TotalViews int64     `json:"total_views"`
	Rank       int64     `json:"rank"`
}

func New(redisClient *redis.Client, logger *observability.Logger) *Service {
	return &Service{redis: redisClient, logger: logger}
}

func (s *Service) IsEnabled() bool {
	return s.redis.IsEnabled()
}

func (s *Service) key(contestID uuid.UUID) string {
	return fmt.Sprintf("contest:lb:%s", contestID.String())
}

// UpdateScore records an entry's current view count.
func (s *Service) UpdateScore(ctx context.Context, contestID, entryID uuid.UUID, totalViews int64) error {
	if !s.redis.IsEnabled() {
		return fmt.Errorf("redis is not enabled")
	}

	ctx = observability.WithFields(ctx,
		observability.Field{Key: "contest_id", Value: contestID.String()},
		observability.Field{Key: "entry_id", Value: entryID.String()},
	)

	err := s.redis.ZAdd(ctx, s.key(contestID), redisLib.Z{
		Score:  float64(totalViews),
		Member: entryID.String(),
	})
	if err != nil {
		s.logger.Error(ctx, "failed to update leaderboard score", err)
		return fmt.Errorf("failed to update leaderboard score: %w", err)
	}
	return nil
}

// Top returns the highest-viewed entries, best first.
func (s *Service) Top(ctx context.Context, contestID uuid.UUID, limit int64) ([]Entry, error) {
	if !s.redis.IsEnabled() {
		return nil, fmt.Errorf("redis is not enabled")
	}
	if limit <= 0 {
		limit = 25
	}

	members, err := s.redis.ZRevRangeWithScores(ctx, s.key(contestID), 0, limit-1)
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}

	entries := make([]Entry, 0, len(members))
	for i, member := range members {
		id, err := uuid.Parse(fmt.Sprint(member.Member))
		if err != nil {
			// Not an entry id, drop the stale member.
			if remErr := s.redis.ZRem(ctx, s.key(contestID), member.Member); remErr != nil {
				s.logger.InfoWithError(ctx, "failed to prune leaderboard member", remErr)
			}
			continue
		}
		entries = append(entries, Entry{
			EntryID:    id,
			TotalViews: int64(member.Score),
			Rank:       int64(i) + 1,
		})
	}
	return entries, nil
}

// Rank returns an entry's 1-indexed position.
func (s *Service) Rank(ctx context.Context, contestID, entryID uuid.UUID) (int64, error) {
	if !s.redis.IsEnabled() {
		return 0, fmt.Errorf("redis is not enabled")
	}

	rank, err := s.redis.ZRevRank(ctx, s.key(contestID), entryID.String())
	if err == redisLib.Nil {
		return 0, ErrNotRanked
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read rank: %w", err)
	}
	return rank + 1, nil
}

// Standing returns a single entry's position and cached view count.
func (s *Service) Standing(ctx context.Context, contestID, entryID uuid.UUID) (Entry, error) {
	rank, err := s.Rank(ctx, contestID, entryID)
	if err != nil {
		return Entry{}, err
	}

	score, err := s.redis.ZScore(ctx, s.key(contestID), entryID.String())
	if err == redisLib.Nil {
		return Entry{}, ErrNotRanked
	}
	if err != nil {
		return Entry{}, fmt.Errorf("failed to read score: %w", err)
	}

	return Entry{EntryID: entryID, TotalViews: int64(score), Rank: rank}, nil
}

// IsWarm reports whether the contest's zset has been populated.
func (s *Service) IsWarm(ctx context.Context, contestID uuid.UUID) (bool, error) {
	if !s.redis.IsEnabled() {
		return false, fmt.Errorf("redis is not enabled")
	}
	n, err := s.redis.Exists(ctx, s.key(contestID))
	if err != nil {
		return false, fmt.Errorf("failed to check leaderboard key: %w", err)
	}
	return n > 0, nil
}

// Rebuild reloads the zset from ranked Postgres rows.
func (s *Service) Rebuild(ctx context.Context, contestID uuid.UUID, rows []store.LeaderboardRow) error {
	if !s.redis.IsEnabled() {
		return fmt.Errorf("redis is not enabled")
	}

	key := s.key(contestID)
	if err := s.redis.Del(ctx, key); err != nil {
		return fmt.Errorf("failed to clear leaderboard: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	members := make([]redisLib.Z, 0, len(rows))
	for _, row := range rows {
		members = append(members, redisLib.Z{
			Score:  float64(row.TotalViews),
			Member: row.EntryID.String(),
		})
	}
	if err := s.redis.ZAdd(ctx, key, members...); err != nil {
		return fmt.Errorf("failed to rebuild leaderboard: %w", err)
	}
	return nil
}

// Remove drops a contest's leaderboard, e.g. when the contest is archived.
func (s *Service) Remove(ctx context.Context, contestID uuid.UUID) error {
	if !s.redis.IsEnabled() {
		return fmt.Errorf("redis is not enabled")
	}
	return s.redis.Del(ctx, s.key(contestID))
}
