package ratelimit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"fanforge-server/internal/clients/redis"
	"fanforge-server/internal/observability"
	"fanforge-server/internal/store"

	goredis "github.com/redis/go-redis/v9"
	"github.com/google/uuid"
)

// RateLimitResult represents the result of a rate limit check
type RateLimitResult struct {
	Allowed      bool      `json:"allowed"`
	Limit        int       `json:"limit"`
	Remaining    int       `json:"remaining"`
	ResetAt      time.Time `json:"reset_at"`
	RetryAfterMs int       `json:"retry_after_ms,omitempty"`
}

const window = time.Minute

// Service handles per-user rate limiting on scrape-triggering endpoints
type Service struct {
	redis  *redis.Client
	store  store.Store
	logger *observability.Logger
}

// NewService creates a new rate limiting service
func NewService(redisClient *redis.Client, st store.Store, logger *observability.Logger) *Service {
	return &Service{
		redis:  redisClient,
		store:  st,
		logger: logger,
	}
}

// CheckRateLimit checks whether a user is within their per-minute limit.
// Redis-backed sliding window when available, Postgres fixed window otherwise.
func (s *Service) CheckRateLimit(ctx context.Context, userID uuid.UUID, rateLimit int) (RateLimitResult, error) {
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "user_id", Value: userID.String()},
		observability.Field{Key: "rate_limit", Value: rateLimit},
	)

	if s.redis.IsEnabled() {
		result, err := s.checkRateLimitRedis(ctx, userID, rateLimit)
		if err != nil {
			s.logger.Warn(ctx, "redis rate limit check failed, falling back to postgres")
			return s.checkRateLimitPostgres(ctx, userID, rateLimit)
		}
		return result, nil
	}

	return s.checkRateLimitPostgres(ctx, userID, rateLimit)
}

// checkRateLimitRedis implements a sliding window over a sorted set keyed by
// request timestamps.
func (s *Service) checkRateLimitRedis(ctx context.Context, userID uuid.UUID, rateLimit int) (RateLimitResult, error) {
	key := fmt.Sprintf("rl:%s", userID.String())
	now := time.Now()
	windowStartMs := now.Add(-window).UnixMilli()

	if err := s.redis.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStartMs, 10)); err != nil {
		return RateLimitResult{}, fmt.Errorf("failed to remove old entries: %w", err)
	}

	count, err := s.redis.ZCard(ctx, key)
	if err != nil {
		return RateLimitResult{}, fmt.Errorf("failed to count requests: %w", err)
	}

	if int(count) >= rateLimit {
		return RateLimitResult{
			Allowed:      false,
			Limit:        rateLimit,
			Remaining:    0,
			ResetAt:      now.Add(window),
			RetryAfterMs: int(window.Milliseconds()),
		}, nil
	}

	nowMs := now.UnixMilli()
	err = s.redis.ZAdd(ctx, key, goredis.Z{
		Score:  float64(nowMs),
		Member: strconv.FormatInt(nowMs, 10),
	})
	if err != nil {
		return RateLimitResult{}, fmt.Errorf("failed to add request: %w", err)
	}

	if err := s.redis.Expire(ctx, key, 2*window); err != nil {
		s.logger.Warn(ctx, "failed to set expiration on rate limit key")
	}

	return RateLimitResult{
		Allowed:   true,
		Limit:     rateLimit,
		Remaining: rateLimit - int(count) - 1,
		ResetAt:   now.Add(window),
	}, nil
}

// checkRateLimitPostgres implements a fixed window counter as the fallback
func (s *Service) checkRateLimitPostgres(ctx context.Context, userID uuid.UUID, rateLimit int) (RateLimitResult, error) {
	now := time.Now()
	windowStart := now.Truncate(window)
	windowEnd := windowStart.Add(window)

	var record store.RateLimit
	query := `
		SELECT id, user_id, window_start, window_end, requests_count, requests_limit,
		       is_throttled, created_at, updated_at
		FROM rate_limits
		WHERE user_id = $1 AND window_start = $2
	`

	err := s.store.DB().GetContext(ctx, &record, query, userID, windowStart)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return RateLimitResult{}, fmt.Errorf("failed to get rate limit record: %w", err)
	}

	if err != nil {
		createQuery := `
			INSERT INTO rate_limits (user_id, window_start, window_end, requests_count, requests_limit, is_throttled)
			VALUES ($1, $2, $3, 1, $4, false)
			ON CONFLICT (user_id, window_start) DO UPDATE SET requests_count = rate_limits.requests_count + 1
			RETURNING id, user_id, window_start, window_end, requests_count, requests_limit,
			          is_throttled, created_at, updated_at
		`

		err = s.store.DB().GetContext(ctx, &record, createQuery, userID, windowStart, windowEnd, rateLimit)
		if err != nil {
			return RateLimitResult{}, fmt.Errorf("failed to create rate limit record: %w", err)
		}

		return RateLimitResult{
			Allowed:   record.RequestsCount <= rateLimit,
			Limit:     rateLimit,
			Remaining: max(rateLimit-record.RequestsCount, 0),
			ResetAt:   windowEnd,
		}, nil
	}

	if record.RequestsCount >= rateLimit {
		retryAfter := windowEnd.Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}
		return RateLimitResult{
			Allowed:      false,
			Limit:        rateLimit,
			Remaining:    0,
			ResetAt:      windowEnd,
			RetryAfterMs: int(retryAfter.Milliseconds()),
		}, nil
	}

	updateQuery := `
		UPDATE rate_limits
		SET requests_count = requests_count + 1,
		    is_throttled = (requests_count + 1 >= requests_limit),
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING requests_count
	`
	if err := s.store.DB().GetContext(ctx, &record.RequestsCount, updateQuery, record.ID); err != nil {
		return RateLimitResult{}, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	return RateLimitResult{
		Allowed:   true,
		Limit:     rateLimit,
		Remaining: rateLimit - record.RequestsCount,
		ResetAt:   windowEnd,
	}, nil
}
