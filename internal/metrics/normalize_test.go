package metrics

import (
	"testing"

	"fanforge-server/internal/platform"
)

func TestNormalizeRecordTikTok(t *testing.T) {
	payload := map[string]any{
		"play_count":    float64(1234567),
		"digg_count":    float64(89000),
		"comment_count": float64(1234),
		"share_count":   float64(567),
		"collect_count": float64(890),
	}

	p, n := NormalizeRecord(payload, platform.PlatformTikTok)
	if p != platform.PlatformTikTok {
		t.Errorf("platform = %v, want tiktok", p)
	}
	want := Normalized{TotalViews: 1234567, LikeCount: 89000, CommentCount: 1234, ShareCount: 567, SaveCount: 890}
	if n != want {
		t.Errorf("normalized = %+v, want %+v", n, want)
	}
}

func TestNormalizeRecordInstagramPrefersVideoPlayCount(t *testing.T) {
	payload := map[string]any{
		"platform":         "instagram",
		"views":            float64(10),
		"video_play_count": float64(5000),
		"likes":            float64(321),
	}

	p, n := NormalizeRecord(payload, platform.PlatformUnknown)
	if p != platform.PlatformInstagram {
		t.Errorf("platform = %v, want instagram", p)
	}
	if n.TotalViews != 5000 {
		t.Errorf("TotalViews = %d, want 5000 (video_play_count over views)", n.TotalViews)
	}
	if n.LikeCount != 321 {
		t.Errorf("LikeCount = %d, want 321", n.LikeCount)
	}
}

func TestNormalizeRecordNestedStats(t *testing.T) {
	payload := map[string]any{
		"url": "https://www.tiktok.com/@user/video/123",
		"stats": map[string]any{
			"play_count": float64(42000),
			"digg_count": float64(300),
		},
		"profile": map[string]any{
			"stats": map[string]any{
				"comment_count": float64(17),
			},
		},
	}

	p, n := NormalizeRecord(payload, platform.PlatformUnknown)
	if p != platform.PlatformTikTok {
		t.Errorf("platform = %v, want tiktok from URL detection", p)
	}
	if n.TotalViews != 42000 || n.LikeCount != 300 || n.CommentCount != 17 {
		t.Errorf("normalized = %+v", n)
	}
}

func TestNormalizeRecordMetricsCollection(t *testing.T) {
	payload := map[string]any{
		"platform": "youtube",
		"data": []any{
			map[string]any{"label": "View Count", "value": "1.2m"},
			map[string]any{"name": "likes", "count": float64(4400)},
		},
	}

	_, n := NormalizeRecord(payload, platform.PlatformUnknown)
	if n.TotalViews != 1200000 {
		t.Errorf("TotalViews = %d, want 1200000", n.TotalViews)
	}
	if n.LikeCount != 4400 {
		t.Errorf("LikeCount = %d, want 4400", n.LikeCount)
	}
}

func TestNormalizeRecordFlattenedAffixStripping(t *testing.T) {
	payload := map[string]any{
		"statistics": map[string]any{
			"num_comment": float64(73),
		},
	}

	_, n := NormalizeRecord(payload, platform.PlatformTikTok)
	if n.CommentCount != 73 {
		t.Errorf("CommentCount = %d, want 73 via affix stripping", n.CommentCount)
	}
}

func TestNormalizeRecordUnresolvedDefaultsToZero(t *testing.T) {
	p, n := NormalizeRecord(map[string]any{"caption": "hello"}, platform.PlatformUnknown)
	if p != platform.PlatformUnknown {
		t.Errorf("platform = %v, want unknown", p)
	}
	if n != (Normalized{}) {
		t.Errorf("expected all-zero metrics, got %+v", n)
	}
}

func TestNormalizeRecordNilPayload(t *testing.T) {
	p, n := NormalizeRecord(nil, platform.PlatformInstagram)
	if p != platform.PlatformInstagram {
		t.Errorf("platform = %v", p)
	}
	if n != (Normalized{}) {
		t.Errorf("expected zero metrics, got %+v", n)
	}
}

func TestAttachNormalizedMetrics(t *testing.T) {
	payload := map[string]any{
		"play_count": float64(500),
		"caption":    "game day",
	}

	out := AttachNormalizedMetrics(payload, platform.PlatformTikTok)
	if out["normalized_platform"] != "tiktok" {
		t.Errorf("normalized_platform = %v", out["normalized_platform"])
	}
	nm, ok := out["normalized_metrics"].(map[string]any)
	if !ok {
		t.Fatalf("normalized_metrics missing or wrong type: %T", out["normalized_metrics"])
	}
	if nm["total_views"] != int64(500) {
		t.Errorf("total_views = %v", nm["total_views"])
	}
	if out["caption"] != "game day" {
		t.Errorf("original fields must be preserved")
	}
	if _, exists := payload["normalized_platform"]; exists {
		t.Errorf("input payload must not be mutated")
	}
}

func TestParseCount(t *testing.T) {
	cases := []struct {
		in   any
		want int64
	}{
		{float64(2345), 2345},
		{int(17), 17},
		{"2,345", 2345},
		{"1.2k", 1200},
		{"3m", 3000000},
		{"2b", 2000000000},
		{"1.5M", 1500000},
		{" 880 ", 880},
		{"n/a", 0},
		{nil, 0},
		{true, 0},
	}
	for _, tc := range cases {
		if got := ParseCount(tc.in); got != tc.want {
			t.Errorf("ParseCount(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
