package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fanforge-server/internal/contests/leaderboard"
	"fanforge-server/internal/observability"
	"fanforge-server/internal/store"

	"github.com/google/uuid"
)

var (
	ErrContestNotFound   = errors.New("contest not found")
	ErrCommunityNotFound = errors.New("community not found")
	ErrNotCommunityOwner = errors.New("only the community owner can manage contests")
	ErrNotMember         = errors.New("user is not a member of the community")
	ErrContestNotActive  = errors.New("contest is not accepting entries")
	ErrDuplicateEntry    = errors.New("video is already entered in this contest")
	ErrVideoNotFound     = errors.New("video not found")
	ErrInvalidSchedule   = errors.New("contest must end after it starts")
	ErrInvalidTransition = errors.New("invalid contest status transition")
	ErrEntryNotFound     = errors.New("contest entry not found")
)

// Store lists the persistence operations contests depend on.
type Store interface {
	CreateContest(ctx context.Context, params store.CreateContestParams) (store.Contest, error)
	GetContestByID(ctx context.Context, contestID uuid.UUID) (store.Contest, error)
	ListContestsByCommunity(ctx context.Context, communityID uuid.UUID, limit, offset int) ([]store.Contest, error)
	UpdateContestStatus(ctx context.Context, contestID uuid.UUID, status string) (store.Contest, error)
	CreateContestEntry(ctx context.Context, contestID, videoID, userID uuid.UUID) (store.ContestEntry, error)
	ListContestEntries(ctx context.Context, contestID uuid.UUID) ([]store.ContestEntry, error)
	GetContestLeaderboard(ctx context.Context, contestID uuid.UUID, limit int) ([]store.LeaderboardRow, error)
	GetCommunityByID(ctx context.Context, communityID uuid.UUID) (store.Community, error)
	GetCommunityMember(ctx context.Context, communityID, userID uuid.UUID) (store.CommunityMember, error)
	GetVideoByID(ctx context.Context, videoID uuid.UUID) (store.Video, error)
	ListActiveContestIDsByVideo(ctx context.Context, videoID uuid.UUID) ([]uuid.UUID, error)
}

// Leaderboard is the Redis-backed ranking cache. All of its methods error
// when Redis is disabled; the processor treats that as a cache miss.
type Leaderboard interface {
	UpdateScore(ctx context.Context, contestID, entryID uuid.UUID, totalViews int64) error
	Top(ctx context.Context, contestID uuid.UUID, limit int64) ([]leaderboard.Entry, error)
	Standing(ctx context.Context, contestID, entryID uuid.UUID) (leaderboard.Entry, error)
	IsWarm(ctx context.Context, contestID uuid.UUID) (bool, error)
	Rebuild(ctx context.Context, contestID uuid.UUID, rows []store.LeaderboardRow) error
	Remove(ctx context.Context, contestID uuid.UUID) error
	IsEnabled() bool
}

type ContestProcessor struct {
	store       Store
	leaderboard Leaderboard
	logger      *observability.Logger
}

func New(s Store, lb Leaderboard, logger *observability.Logger) *ContestProcessor {
	return &ContestProcessor{
		store:       s,
		leaderboard: lb,
		logger:      logger,
	}
}

type CreateContestParams struct {
	CommunityID uuid.UUID
	Name        string
	Description *string
	StartsAt    time.Time
	EndsAt      time.Time
}

// CreateContest creates a draft contest. Only the community owner can do so.
func (p *ContestProcessor) CreateContest(ctx context.Context, userID uuid.UUID, params CreateContestParams) (store.Contest, error) {
	if !params.EndsAt.After(params.StartsAt) {
		return store.Contest{}, ErrInvalidSchedule
	}

	if _, err := p.store.GetCommunityByID(ctx, params.CommunityID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Contest{}, ErrCommunityNotFound
		}
		return store.Contest{}, fmt.Errorf("failed to get community: %w", err)
	}

	if err := p.requireOwner(ctx, params.CommunityID, userID); err != nil {
		return store.Contest{}, err
	}

	contest, err := p.store.CreateContest(ctx, store.CreateContestParams{
		CommunityID: params.CommunityID,
		Name:        params.Name,
		Description: params.Description,
		StartsAt:    params.StartsAt,
		EndsAt:      params.EndsAt,
		CreatedBy:   userID,
	})
	if err != nil {
		return store.Contest{}, fmt.Errorf("failed to create contest: %w", err)
	}

	ctx = observability.WithFields(ctx,
		observability.Field{Key: "contest_id", Value: contest.ID.String()},
		observability.Field{Key: "community_id", Value: params.CommunityID.String()},
	)
	p.logger.Info(ctx, "contest created")

	return contest, nil
}

func (p *ContestProcessor) GetContest(ctx context.Context, contestID uuid.UUID) (store.Contest, error) {
	contest, err := p.store.GetContestByID(ctx, contestID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Contest{}, ErrContestNotFound
		}
		return store.Contest{}, fmt.Errorf("failed to get contest: %w", err)
	}
	return contest, nil
}

func (p *ContestProcessor) ListContests(ctx context.Context, communityID uuid.UUID, limit, offset int) ([]store.Contest, error) {
	contests, err := p.store.ListContestsByCommunity(ctx, communityID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list contests: %w", err)
	}
	return contests, nil
}

// allowed status transitions
var contestTransitions = map[string][]string{
	store.ContestStatusDraft:  {store.ContestStatusActive, store.ContestStatusArchived},
	store.ContestStatusActive: {store.ContestStatusEnded},
	store.ContestStatusEnded:  {store.ContestStatusArchived},
}

// TransitionContest moves a contest through its lifecycle. Archiving drops
// the cached leaderboard; the ranked rows remain queryable from Postgres.
func (p *ContestProcessor) TransitionContest(ctx context.Context, userID, contestID uuid.UUID, status string) (store.Contest, error) {
	contest, err := p.GetContest(ctx, contestID)
	if err != nil {
		return store.Contest{}, err
	}

	if err := p.requireOwner(ctx, contest.CommunityID, userID); err != nil {
		return store.Contest{}, err
	}

	allowed := false
	for _, next := range contestTransitions[contest.Status] {
		if next == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return store.Contest{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, contest.Status, status)
	}

	updated, err := p.store.UpdateContestStatus(ctx, contestID, status)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Contest{}, ErrContestNotFound
		}
		return store.Contest{}, fmt.Errorf("failed to update contest status: %w", err)
	}

	if status == store.ContestStatusArchived && p.leaderboard.IsEnabled() {
		if err := p.leaderboard.Remove(ctx, contestID); err != nil {
			p.logger.InfoWithError(ctx, "failed to drop cached leaderboard", err)
		}
	}

	return updated, nil
}

// EnterVideo submits a video into an active contest. The submitter must be
// a member of the hosting community.
func (p *ContestProcessor) EnterVideo(ctx context.Context, userID, contestID, videoID uuid.UUID) (store.ContestEntry, error) {
	contest, err := p.GetContest(ctx, contestID)
	if err != nil {
		return store.ContestEntry{}, err
	}

	now := time.Now()
	if contest.Status != store.ContestStatusActive || now.Before(contest.StartsAt) || now.After(contest.EndsAt) {
		return store.ContestEntry{}, ErrContestNotActive
	}

	if _, err := p.store.GetCommunityMember(ctx, contest.CommunityID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.ContestEntry{}, ErrNotMember
		}
		return store.ContestEntry{}, fmt.Errorf("failed to get community member: %w", err)
	}

	video, err := p.store.GetVideoByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.ContestEntry{}, ErrVideoNotFound
		}
		return store.ContestEntry{}, fmt.Errorf("failed to get video: %w", err)
	}

	entry, err := p.store.CreateContestEntry(ctx, contestID, videoID, userID)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return store.ContestEntry{}, ErrDuplicateEntry
		}
		return store.ContestEntry{}, fmt.Errorf("failed to create contest entry: %w", err)
	}

	// Seed the cached ranking with the views we already know about.
	if p.leaderboard.IsEnabled() {
		if err := p.leaderboard.UpdateScore(ctx, contestID, entry.ID, video.TotalViews); err != nil {
			p.logger.InfoWithError(ctx, "failed to seed leaderboard score", err)
		}
	}

	ctx = observability.WithFields(ctx,
		observability.Field{Key: "contest_id", Value: contestID.String()},
		observability.Field{Key: "entry_id", Value: entry.ID.String()},
	)
	p.logger.Info(ctx, "video entered into contest")

	return entry, nil
}

func (p *ContestProcessor) ListEntries(ctx context.Context, contestID uuid.UUID) ([]store.ContestEntry, error) {
	if _, err := p.GetContest(ctx, contestID); err != nil {
		return nil, err
	}
	entries, err := p.store.ListContestEntries(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contest entries: %w", err)
	}
	return entries, nil
}

// GetLeaderboard returns ranked entries. Postgres is the source of truth;
// successful reads repopulate the Redis cache so rank lookups and the live
// stream stay cheap.
func (p *ContestProcessor) GetLeaderboard(ctx context.Context, contestID uuid.UUID, limit int) ([]store.LeaderboardRow, error) {
	if _, err := p.GetContest(ctx, contestID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	rows, err := p.store.GetContestLeaderboard(ctx, contestID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}

	if p.leaderboard.IsEnabled() {
		if err := p.leaderboard.Rebuild(ctx, contestID, rows); err != nil {
			p.logger.InfoWithError(ctx, "failed to refresh cached leaderboard", err)
		}
	}

	return rows, nil
}

// LiveScores reads the cached ranking without touching Postgres. Returns
// empty when Redis is disabled or the cache is cold; callers fall back to
// GetLeaderboard.
func (p *ContestProcessor) LiveScores(ctx context.Context, contestID uuid.UUID, limit int) ([]leaderboard.Entry, error) {
	if !p.leaderboard.IsEnabled() {
		return nil, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	entries, err := p.leaderboard.Top(ctx, contestID, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to read cached leaderboard: %w", err)
	}
	return entries, nil
}

// EntryStanding returns one entry's rank and view count. Served from the
// cache when it is warm, warming it first when it is not; falls back to the
// ranked Postgres rows when Redis is disabled.
func (p *ContestProcessor) EntryStanding(ctx context.Context, contestID, entryID uuid.UUID) (leaderboard.Entry, error) {
	if _, err := p.GetContest(ctx, contestID); err != nil {
		return leaderboard.Entry{}, err
	}

	if p.leaderboard.IsEnabled() {
		warm, err := p.leaderboard.IsWarm(ctx, contestID)
		if err != nil {
			p.logger.InfoWithError(ctx, "failed to check cached leaderboard", err)
		} else if !warm {
			if err := p.SyncScores(ctx, contestID); err != nil {
				p.logger.InfoWithError(ctx, "failed to warm cached leaderboard", err)
			}
		}

		entry, err := p.leaderboard.Standing(ctx, contestID, entryID)
		if err == nil {
			return entry, nil
		}
		if errors.Is(err, leaderboard.ErrNotRanked) {
			return leaderboard.Entry{}, ErrEntryNotFound
		}
		p.logger.InfoWithError(ctx, "failed to read cached standing", err)
	}

	rows, err := p.store.GetContestLeaderboard(ctx, contestID, 100)
	if err != nil {
		return leaderboard.Entry{}, fmt.Errorf("failed to get leaderboard: %w", err)
	}
	for _, row := range rows {
		if row.EntryID == entryID {
			return leaderboard.Entry{EntryID: entryID, TotalViews: row.TotalViews, Rank: row.Rank}, nil
		}
	}
	return leaderboard.Entry{}, ErrEntryNotFound
}

// SyncScores pushes fresh view counts into the cached ranking after a
// metrics refresh, without touching the ranked rows in Postgres.
func (p *ContestProcessor) SyncScores(ctx context.Context, contestID uuid.UUID) error {
	if !p.leaderboard.IsEnabled() {
		return nil
	}
	rows, err := p.store.GetContestLeaderboard(ctx, contestID, 100)
	if err != nil {
		return fmt.Errorf("failed to load leaderboard rows: %w", err)
	}
	return p.leaderboard.Rebuild(ctx, contestID, rows)
}

// SyncVideoScores refreshes the cached rankings of every active contest the
// video is entered in. Called after a scrape lands new view counts.
func (p *ContestProcessor) SyncVideoScores(ctx context.Context, videoID uuid.UUID) error {
	if !p.leaderboard.IsEnabled() {
		return nil
	}
	contestIDs, err := p.store.ListActiveContestIDsByVideo(ctx, videoID)
	if err != nil {
		return fmt.Errorf("failed to list contests for video: %w", err)
	}
	for _, contestID := range contestIDs {
		if err := p.SyncScores(ctx, contestID); err != nil {
			p.logger.InfoWithError(ctx, "failed to sync contest scores", err)
		}
	}
	return nil
}

func (p *ContestProcessor) requireOwner(ctx context.Context, communityID, userID uuid.UUID) error {
	member, err := p.store.GetCommunityMember(ctx, communityID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotCommunityOwner
		}
		return fmt.Errorf("failed to get community member: %w", err)
	}
	if member.Role != store.CommunityRoleOwner {
		return ErrNotCommunityOwner
	}
	return nil
}
