package processor

import (
	"context"
	"errors"

	"fanforge-server/internal/config"
	"fanforge-server/internal/metrics"
	"fanforge-server/internal/observability"
	"fanforge-server/internal/platform"
	"fanforge-server/internal/store"

	"github.com/google/uuid"
)

var (
	ErrInvalidVideoURL      = errors.New("invalid video url")
	ErrWatchURLNotSupported = errors.New("youtube watch urls are not supported")
	ErrVideoNotFound        = errors.New("video not found")
)

// Store is the persistence surface the processor needs.
type Store interface {
	UpsertVideo(ctx context.Context, params store.UpsertVideoParams) (store.Video, error)
	GetVideoByID(ctx context.Context, videoID uuid.UUID) (store.Video, error)
	GetVideoByCanonicalURL(ctx context.Context, canonicalURL string) (store.Video, error)
	GetVideoBySnapshotID(ctx context.Context, snapshotID string) (store.Video, error)
	ListVideos(ctx context.Context, params store.ListVideosParams) ([]store.Video, error)
	UpsertCreator(ctx context.Context, params store.UpsertCreatorParams) (store.Creator, error)
	RefreshCreatorRollup(ctx context.Context, creatorID uuid.UUID) (store.Creator, error)
}

// ScrapeClient triggers vendor scrape jobs for submitted videos.
type ScrapeClient interface {
	TriggerCollection(ctx context.Context, datasetID, targetURL string) (string, error)
}

// ScoreSync pushes refreshed view counts into contest leaderboards.
type ScoreSync interface {
	SyncVideoScores(ctx context.Context, videoID uuid.UUID) error
}

type Processor struct {
	store     Store
	scraper   ScrapeClient
	cfg       config.BrightDataConfig
	scoreSync ScoreSync
	logger    *observability.Logger
}

func New(st Store, scraper ScrapeClient, cfg config.BrightDataConfig, logger *observability.Logger) Processor {
	return Processor{
		store:   st,
		scraper: scraper,
		cfg:     cfg,
		logger:  logger,
	}
}

// SetScoreSync attaches the contest score hook. Without it ingestion still
// works; leaderboard caches catch up on the next read.
func (p *Processor) SetScoreSync(s ScoreSync) {
	p.scoreSync = s
}

// SubmitVideo validates and canonicalizes a video URL, dedupes on the
// canonical form, and kicks off a metrics scrape for new submissions.
// Resubmitting a known video returns the existing row untouched.
func (p *Processor) SubmitVideo(ctx context.Context, userID uuid.UUID, rawURL string) (store.Video, error) {
	if !platform.IsValidVideoURL(rawURL) {
		if _, err := platform.StandardizeURL(rawURL); errors.Is(err, platform.ErrYouTubeWatchURL) {
			return store.Video{}, ErrWatchURLNotSupported
		}
		return store.Video{}, ErrInvalidVideoURL
	}

	canonical, err := platform.StandardizeURL(rawURL)
	if err != nil {
		return store.Video{}, ErrWatchURLNotSupported
	}
	detected := platform.Detect(canonical)

	ctx = observability.WithFields(ctx,
		observability.Field{Key: "platform", Value: string(detected)},
		observability.Field{Key: "canonical_url", Value: canonical},
	)

	if existing, err := p.store.GetVideoByCanonicalURL(ctx, canonical); err == nil {
		p.logger.Info(ctx, "video already submitted")
		return existing, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return store.Video{}, err
	}

	datasetID := p.datasetFor(string(detected))
	var snapshotID *string
	if p.scraper != nil && datasetID != "" {
		id, err := p.scraper.TriggerCollection(ctx, datasetID, canonical)
		if err != nil {
			// The submission survives a vendor outage, metrics arrive later.
			p.logger.InfoWithError(ctx, "failed to trigger video scrape", err)
		} else {
			snapshotID = &id
		}
	}

	video, err := p.store.UpsertVideo(ctx, store.UpsertVideoParams{
		SubmittedBy:  &userID,
		Platform:     string(detected),
		CanonicalURL: canonical,
		SnapshotID:   snapshotID,
		ScrapeStatus: store.ScrapeStatusPending,
	})
	if err != nil {
		return store.Video{}, err
	}

	p.logger.Info(ctx, "video submitted")
	return video, nil
}

func (p *Processor) GetVideo(ctx context.Context, videoID uuid.UUID) (store.Video, error) {
	video, err := p.store.GetVideoByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Video{}, ErrVideoNotFound
		}
		return store.Video{}, err
	}
	return video, nil
}

func (p *Processor) ListVideos(ctx context.Context, params store.ListVideosParams) ([]store.Video, error) {
	return p.store.ListVideos(ctx, params)
}

// CompleteFromWebhook ingests the finished scrape payload for a snapshot.
func (p *Processor) CompleteFromWebhook(ctx context.Context, snapshotID string, records []map[string]any) (store.Video, error) {
	video, err := p.store.GetVideoBySnapshotID(ctx, snapshotID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Video{}, ErrVideoNotFound
		}
		return store.Video{}, err
	}

	var payload map[string]any
	if len(records) > 0 {
		payload = records[0]
	}
	return p.IngestRecord(ctx, video, payload)
}

// IngestRecord normalizes a raw vendor record onto the video and refreshes
// the creator rollup. Normalization never fails; unmatched metrics stay 0.
func (p *Processor) IngestRecord(ctx context.Context, video store.Video, payload map[string]any) (store.Video, error) {
	enriched := metrics.AttachNormalizedMetrics(payload, platform.Platform(video.Platform))
	_, normalized := metrics.NormalizeRecord(payload, platform.Platform(video.Platform))

	ctx = observability.WithFields(ctx,
		observability.Field{Key: "video_id", Value: video.ID.String()},
		observability.Field{Key: "total_views", Value: normalized.TotalViews},
	)

	creatorID := video.CreatorID
	if creator, ok := p.upsertCreatorFromRecord(ctx, video.Platform, payload); ok {
		creatorID = &creator.ID
	}

	updated, err := p.store.UpsertVideo(ctx, store.UpsertVideoParams{
		CreatorID:    creatorID,
		SubmittedBy:  video.SubmittedBy,
		Platform:     video.Platform,
		CanonicalURL: video.CanonicalURL,
		SnapshotID:   video.SnapshotID,
		ScrapeStatus: store.ScrapeStatusCompleted,
		TotalViews:   normalized.TotalViews,
		LikeCount:    normalized.LikeCount,
		CommentCount: normalized.CommentCount,
		ShareCount:   normalized.ShareCount,
		SaveCount:    normalized.SaveCount,
		RawPayload:   store.JSONB(enriched),
	})
	if err != nil {
		return store.Video{}, err
	}

	if updated.CreatorID != nil {
		if _, err := p.store.RefreshCreatorRollup(ctx, *updated.CreatorID); err != nil {
			p.logger.InfoWithError(ctx, "failed to refresh creator rollup", err)
		}
	}

	if p.scoreSync != nil {
		if err := p.scoreSync.SyncVideoScores(ctx, updated.ID); err != nil {
			p.logger.InfoWithError(ctx, "failed to push scores to contest leaderboards", err)
		}
	}

	p.logger.Info(ctx, "video metrics ingested")
	return updated, nil
}

// upsertCreatorFromRecord pulls author identity out of the payload when the
// vendor included one.
func (p *Processor) upsertCreatorFromRecord(ctx context.Context, videoPlatform string, payload map[string]any) (store.Creator, bool) {
	username, profileURL, followers := authorFromRecord(payload)
	if username == "" {
		return store.Creator{}, false
	}
	if profileURL == "" {
		profileURL = profileURLFor(videoPlatform, username)
	}

	creator, err := p.store.UpsertCreator(ctx, store.UpsertCreatorParams{
		Platform:      videoPlatform,
		Username:      username,
		ProfileURL:    profileURL,
		FollowerCount: followers,
	})
	if err != nil {
		p.logger.InfoWithError(ctx, "failed to upsert creator", err)
		return store.Creator{}, false
	}
	return creator, true
}

func authorFromRecord(payload map[string]any) (username, profileURL string, followers int64) {
	if payload == nil {
		return "", "", 0
	}

	if author, ok := payload["author"].(map[string]any); ok {
		for _, key := range []string{"unique_id", "username", "nickname"} {
			if s, ok := author[key].(string); ok && s != "" {
				username = s
				break
			}
		}
		if s, ok := author["profile_url"].(string); ok {
			profileURL = s
		}
		followers = metrics.ParseCount(author["followers"])
	}

	if username == "" {
		for _, key := range []string{"author_name", "username", "account_id", "channel_name"} {
			if s, ok := payload[key].(string); ok && s != "" {
				username = s
				break
			}
		}
	}
	if profileURL == "" {
		if s, ok := payload["profile_url"].(string); ok {
			profileURL = s
		}
	}
	if followers == 0 {
		followers = metrics.ParseCount(payload["followers"])
	}

	if profileURL != "" {
		profileURL = platform.StandardizeProfileURL(profileURL)
	}
	return username, profileURL, followers
}

func profileURLFor(videoPlatform, username string) string {
	switch videoPlatform {
	case store.PlatformTikTok:
		return "https://www.tiktok.com/@" + username
	case store.PlatformInstagram:
		return "https://www.instagram.com/" + username
	case store.PlatformYouTube:
		return "https://www.youtube.com/@" + username
	default:
		return ""
	}
}

func (p *Processor) datasetFor(videoPlatform string) string {
	switch videoPlatform {
	case store.PlatformTikTok:
		return p.cfg.TikTokDatasetID
	case store.PlatformInstagram:
		return p.cfg.InstagramDatasetID
	case store.PlatformYouTube:
		return p.cfg.YouTubeDatasetID
	default:
		return ""
	}
}
