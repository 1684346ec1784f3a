package processor

import (
	"context"
	"errors"
	"testing"

	"fanforge-server/internal/config"
	"fanforge-server/internal/observability"
	"fanforge-server/internal/store"

	"github.com/google/uuid"
)

type fakeStore struct {
	videos   map[string]store.Video
	creators map[string]store.Creator
	rollups  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		videos:   map[string]store.Video{},
		creators: map[string]store.Creator{},
	}
}

func (f *fakeStore) UpsertVideo(ctx context.Context, params store.UpsertVideoParams) (store.Video, error) {
	video, exists := f.videos[params.CanonicalURL]
	if !exists {
		video = store.Video{ID: uuid.New(), CanonicalURL: params.CanonicalURL}
	}
	if params.CreatorID != nil {
		video.CreatorID = params.CreatorID
	}
	if params.SubmittedBy != nil {
		video.SubmittedBy = params.SubmittedBy
	}
	if params.SnapshotID != nil {
		video.SnapshotID = params.SnapshotID
	}
	video.Platform = params.Platform
	video.ScrapeStatus = params.ScrapeStatus
	video.TotalViews = params.TotalViews
	video.LikeCount = params.LikeCount
	video.CommentCount = params.CommentCount
	video.ShareCount = params.ShareCount
	video.SaveCount = params.SaveCount
	if params.RawPayload != nil {
		video.RawPayload = params.RawPayload
	}
	f.videos[params.CanonicalURL] = video
	return video, nil
}

func (f *fakeStore) GetVideoByID(ctx context.Context, videoID uuid.UUID) (store.Video, error) {
	for _, video := range f.videos {
		if video.ID == videoID {
			return video, nil
		}
	}
	return store.Video{}, store.ErrNotFound
}

func (f *fakeStore) GetVideoByCanonicalURL(ctx context.Context, canonicalURL string) (store.Video, error) {
	video, ok := f.videos[canonicalURL]
	if !ok {
		return store.Video{}, store.ErrNotFound
	}
	return video, nil
}

func (f *fakeStore) GetVideoBySnapshotID(ctx context.Context, snapshotID string) (store.Video, error) {
	for _, video := range f.videos {
		if video.SnapshotID != nil && *video.SnapshotID == snapshotID {
			return video, nil
		}
	}
	return store.Video{}, store.ErrNotFound
}

func (f *fakeStore) ListVideos(ctx context.Context, params store.ListVideosParams) ([]store.Video, error) {
	var out []store.Video
	for _, video := range f.videos {
		if params.Platform != "" && video.Platform != params.Platform {
			continue
		}
		out = append(out, video)
	}
	return out, nil
}

func (f *fakeStore) UpsertCreator(ctx context.Context, params store.UpsertCreatorParams) (store.Creator, error) {
	key := params.Platform + "/" + params.Username
	creator, exists := f.creators[key]
	if !exists {
		creator = store.Creator{ID: uuid.New(), Platform: params.Platform, Username: params.Username}
	}
	creator.ProfileURL = params.ProfileURL
	if params.FollowerCount > creator.FollowerCount {
		creator.FollowerCount = params.FollowerCount
	}
	f.creators[key] = creator
	return creator, nil
}

func (f *fakeStore) RefreshCreatorRollup(ctx context.Context, creatorID uuid.UUID) (store.Creator, error) {
	f.rollups++
	return store.Creator{ID: creatorID}, nil
}

type fakeScraper struct {
	snapshotID string
	err        error
	triggered  []string
}

func (f *fakeScraper) TriggerCollection(ctx context.Context, datasetID, targetURL string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.triggered = append(f.triggered, targetURL)
	return f.snapshotID, nil
}

func newTestProcessor(st *fakeStore, scraper *fakeScraper) Processor {
	cfg := config.BrightDataConfig{
		TikTokDatasetID:    "ds-tiktok",
		InstagramDatasetID: "ds-instagram",
		YouTubeDatasetID:   "ds-youtube",
	}
	return New(st, scraper, cfg, observability.NewLogger())
}

func TestSubmitVideoCanonicalizesAndTriggers(t *testing.T) {
	st := newFakeStore()
	scraper := &fakeScraper{snapshotID: "snap-1"}
	p := newTestProcessor(st, scraper)
	userID := uuid.New()

	video, err := p.SubmitVideo(context.Background(), userID, "https://www.tiktok.com/@user/video/12345?is_from_webapp=1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if video.CanonicalURL != "https://www.tiktok.com/@user/video/12345" {
		t.Errorf("canonical url = %q", video.CanonicalURL)
	}
	if video.Platform != store.PlatformTikTok {
		t.Errorf("platform = %q", video.Platform)
	}
	if video.ScrapeStatus != store.ScrapeStatusPending {
		t.Errorf("scrape status = %q", video.ScrapeStatus)
	}
	if video.SnapshotID == nil || *video.SnapshotID != "snap-1" {
		t.Errorf("snapshot id = %v", video.SnapshotID)
	}
	if len(scraper.triggered) != 1 || scraper.triggered[0] != video.CanonicalURL {
		t.Errorf("scrape should target the canonical url, got %v", scraper.triggered)
	}
}

func TestSubmitVideoDedupes(t *testing.T) {
	st := newFakeStore()
	scraper := &fakeScraper{snapshotID: "snap-1"}
	p := newTestProcessor(st, scraper)
	userID := uuid.New()

	first, err := p.SubmitVideo(context.Background(), userID, "https://www.tiktok.com/@user/video/12345")
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	second, err := p.SubmitVideo(context.Background(), userID, "https://www.tiktok.com/@user/video/12345?utm_source=share")
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("resubmission should return the existing video")
	}
	if len(scraper.triggered) != 1 {
		t.Errorf("resubmission should not trigger another scrape, got %d", len(scraper.triggered))
	}
}

func TestSubmitVideoRejectsWatchURL(t *testing.T) {
	p := newTestProcessor(newFakeStore(), &fakeScraper{})
	_, err := p.SubmitVideo(context.Background(), uuid.New(), "https://www.youtube.com/watch?v=abc123")
	if !errors.Is(err, ErrWatchURLNotSupported) {
		t.Errorf("expected ErrWatchURLNotSupported, got %v", err)
	}
}

func TestSubmitVideoRejectsNonVideoURL(t *testing.T) {
	p := newTestProcessor(newFakeStore(), &fakeScraper{})
	_, err := p.SubmitVideo(context.Background(), uuid.New(), "https://www.tiktok.com/@justaprofile")
	if !errors.Is(err, ErrInvalidVideoURL) {
		t.Errorf("expected ErrInvalidVideoURL, got %v", err)
	}
}

func TestSubmitVideoSurvivesScrapeOutage(t *testing.T) {
	st := newFakeStore()
	p := newTestProcessor(st, &fakeScraper{err: errors.New("vendor down")})

	video, err := p.SubmitVideo(context.Background(), uuid.New(), "https://www.instagram.com/reel/Cxyz123")
	if err != nil {
		t.Fatalf("submission should survive vendor outage: %v", err)
	}
	if video.SnapshotID != nil {
		t.Errorf("snapshot id should be empty when trigger fails")
	}
}

func TestCompleteFromWebhookNormalizesMetrics(t *testing.T) {
	st := newFakeStore()
	scraper := &fakeScraper{snapshotID: "snap-2"}
	p := newTestProcessor(st, scraper)

	if _, err := p.SubmitVideo(context.Background(), uuid.New(), "https://www.tiktok.com/@user/video/999"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	payload := map[string]any{
		"play_count":    float64(1234567),
		"digg_count":    float64(89000),
		"comment_count": float64(1234),
		"share_count":   float64(567),
		"collect_count": float64(890),
		"author":        map[string]any{"unique_id": "user", "followers": float64(42000)},
	}

	updated, err := p.CompleteFromWebhook(context.Background(), "snap-2", []map[string]any{payload})
	if err != nil {
		t.Fatalf("webhook: %v", err)
	}
	if updated.TotalViews != 1234567 || updated.LikeCount != 89000 || updated.CommentCount != 1234 ||
		updated.ShareCount != 567 || updated.SaveCount != 890 {
		t.Errorf("metrics not normalized: %+v", updated)
	}
	if updated.ScrapeStatus != store.ScrapeStatusCompleted {
		t.Errorf("scrape status = %q", updated.ScrapeStatus)
	}
	if updated.CreatorID == nil {
		t.Fatalf("creator should be linked from payload author")
	}
	if st.rollups != 1 {
		t.Errorf("creator rollup refreshes = %d, want 1", st.rollups)
	}
	if _, ok := updated.RawPayload["normalized_metrics"]; !ok {
		t.Errorf("raw payload should carry normalized_metrics")
	}

	if _, err := p.CompleteFromWebhook(context.Background(), "snap-unknown", nil); !errors.Is(err, ErrVideoNotFound) {
		t.Errorf("expected ErrVideoNotFound, got %v", err)
	}
}

func TestIngestRecordWithoutAuthorKeepsVideo(t *testing.T) {
	st := newFakeStore()
	p := newTestProcessor(st, &fakeScraper{snapshotID: "snap-3"})

	video, _ := p.SubmitVideo(context.Background(), uuid.New(), "https://www.youtube.com/shorts/abc123")
	updated, err := p.IngestRecord(context.Background(), video, map[string]any{"view_count": "1.2k"})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if updated.TotalViews != 1200 {
		t.Errorf("TotalViews = %d, want 1200", updated.TotalViews)
	}
	if updated.CreatorID != nil {
		t.Errorf("creator should stay unset without author data")
	}
}
