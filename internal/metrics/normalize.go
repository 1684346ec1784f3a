package metrics

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"fanforge-server/internal/platform"
)

// Normalized is the canonical metric set derived from a raw vendor record.
// Metrics that cannot be resolved are zero, so a zero is ambiguous between
// "vendor reported zero" and "field absent".
type Normalized struct {
	TotalViews   int64 `json:"total_views"`
	LikeCount    int64 `json:"like_count"`
	CommentCount int64 `json:"comment_count"`
	ShareCount   int64 `json:"share_count"`
	SaveCount    int64 `json:"save_count"`
}

// Vendor responses nest stats in a handful of known places depending on the
// dataset version.
var nestedStatKeys = []string{"stats", "statistics", "metrics", "author_stats", "video_info", "engagement"}

var platformFieldKeys = []string{"platform", "source", "site", "dataset"}

var urlFieldKeys = []string{"url", "post_url", "video_url", "input_url", "profile_url", "share_url", "link", "web_video_url", "webVideoUrl"}

// Candidate key orderings per metric. Platform-specific lists take priority
// over the generic list when the record's platform is known.
var (
	viewKeys = map[platform.Platform][]string{
		platform.PlatformInstagram: {"video_play_count", "video_view_count", "play_count", "views", "view_count", "plays"},
		platform.PlatformTikTok:    {"play_count", "playCount", "views", "view_count", "video_view_count"},
		platform.PlatformYouTube:   {"view_count", "views", "viewCount", "play_count"},
		platform.PlatformUnknown:   {"play_count", "views", "view_count", "video_view_count", "video_play_count", "plays"},
	}
	likeKeys = map[platform.Platform][]string{
		platform.PlatformTikTok:  {"digg_count", "diggCount", "likes", "like_count", "likes_count"},
		platform.PlatformUnknown: {"likes", "like_count", "likes_count", "digg_count", "num_likes"},
	}
	commentKeys = map[platform.Platform][]string{
		platform.PlatformUnknown: {"comment_count", "comments", "comments_count", "num_comments", "commentCount"},
	}
	shareKeys = map[platform.Platform][]string{
		platform.PlatformUnknown: {"share_count", "shares", "shares_count", "num_shares", "shareCount"},
	}
	saveKeys = map[platform.Platform][]string{
		platform.PlatformUnknown: {"collect_count", "save_count", "saves", "saved_count", "collectCount", "num_saves"},
	}
)

// NormalizeRecord maps a raw vendor payload onto the canonical metric schema.
// The platform hint wins when set; otherwise the record's own platform/source
// fields are consulted, then any URL-shaped field. Extraction never fails.
func NormalizeRecord(payload map[string]any, platformHint platform.Platform) (platform.Platform, Normalized) {
	p := resolvePlatform(payload, platformHint)

	r := newResolver(payload)
	n := Normalized{
		TotalViews:   r.resolve(candidatesFor(viewKeys, p)),
		LikeCount:    r.resolve(candidatesFor(likeKeys, p)),
		CommentCount: r.resolve(candidatesFor(commentKeys, p)),
		ShareCount:   r.resolve(candidatesFor(shareKeys, p)),
		SaveCount:    r.resolve(candidatesFor(saveKeys, p)),
	}
	return p, n
}

// AttachNormalizedMetrics returns a copy of the payload with
// normalized_platform and normalized_metrics merged in.
func AttachNormalizedMetrics(payload map[string]any, platformHint platform.Platform) map[string]any {
	p, n := NormalizeRecord(payload, platformHint)

	out := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		out[k] = v
	}
	out["normalized_platform"] = string(p)
	out["normalized_metrics"] = map[string]any{
		"total_views":   n.TotalViews,
		"like_count":    n.LikeCount,
		"comment_count": n.CommentCount,
		"share_count":   n.ShareCount,
		"save_count":    n.SaveCount,
	}
	return out
}

func candidatesFor(keys map[platform.Platform][]string, p platform.Platform) []string {
	if specific, ok := keys[p]; ok {
		return specific
	}
	return keys[platform.PlatformUnknown]
}

func resolvePlatform(payload map[string]any, hint platform.Platform) platform.Platform {
	if hint != "" && hint != platform.PlatformUnknown {
		return hint
	}

	for _, key := range platformFieldKeys {
		if s, ok := payload[key].(string); ok {
			switch p := platform.Platform(strings.ToLower(strings.TrimSpace(s))); p {
			case platform.PlatformTikTok, platform.PlatformInstagram, platform.PlatformYouTube:
				return p
			}
			if p := platform.Detect(s); p != platform.PlatformUnknown {
				return p
			}
		}
	}

	for _, key := range urlFieldKeys {
		if s, ok := payload[key].(string); ok {
			if p := platform.Detect(s); p != platform.PlatformUnknown {
				return p
			}
		}
	}

	return platform.PlatformUnknown
}

// resolver walks one payload through the lookup tiers: direct keys on the
// record and its known nested stat objects, then label-matched metric
// collections, then a flattened index with prefix/suffix stripping.
type resolver struct {
	scopes      []map[string]any
	collections [][]map[string]any
	flattened   map[string]int64
}

func newResolver(payload map[string]any) *resolver {
	r := &resolver{}
	if payload == nil {
		return r
	}

	r.scopes = append(r.scopes, payload)
	for _, key := range nestedStatKeys {
		if m, ok := payload[key].(map[string]any); ok {
			r.scopes = append(r.scopes, m)
		}
	}
	if prof, ok := payload["profile"].(map[string]any); ok {
		if m, ok := prof["stats"].(map[string]any); ok {
			r.scopes = append(r.scopes, m)
		}
	}

	for _, v := range payload {
		if entries := metricCollection(v); entries != nil {
			r.collections = append(r.collections, entries)
		}
	}

	r.flattened = flatten(r.scopes, r.collections)
	return r
}

func (r *resolver) resolve(candidates []string) int64 {
	for _, key := range candidates {
		for _, scope := range r.scopes {
			if v, ok := scope[key]; ok {
				if n, ok := parseCountValue(v); ok {
					return n
				}
			}
		}
	}

	for _, key := range candidates {
		for _, entries := range r.collections {
			for _, entry := range entries {
				if labelMatches(entryLabel(entry), key) {
					if n, ok := parseCountValue(entryValue(entry)); ok {
						return n
					}
				}
			}
		}
	}

	for _, key := range candidates {
		norm := normalizeKey(key)
		if n, ok := r.flattened[norm]; ok {
			return n
		}
		if n, ok := r.flattened[stripAffixes(norm)]; ok {
			return n
		}
	}
	for _, key := range candidates {
		stripped := stripAffixes(normalizeKey(key))
		for flat, n := range r.flattened {
			if stripAffixes(flat) == stripped {
				return n
			}
		}
	}

	return 0
}

// metricCollection recognizes arrays of {label, value}-shaped entries.
func metricCollection(v any) []map[string]any {
	arr, ok := v.([]any)
	if !ok || len(arr) == 0 {
		return nil
	}
	var entries []map[string]any
	for _, item := range arr {
		m, ok := item.(map[string]any)
		if !ok || entryLabel(m) == "" {
			return nil
		}
		entries = append(entries, m)
	}
	return entries
}

func entryLabel(entry map[string]any) string {
	for _, k := range []string{"label", "name", "metric", "key"} {
		if s, ok := entry[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func entryValue(entry map[string]any) any {
	for _, k := range []string{"value", "count", "total"} {
		if v, ok := entry[k]; ok {
			return v
		}
	}
	return nil
}

func labelMatches(label, candidate string) bool {
	l, c := normalizeKey(label), normalizeKey(candidate)
	if l == c {
		return true
	}
	if stripAffixes(l) == stripAffixes(c) {
		return true
	}
	lc, cc := strings.ReplaceAll(l, "_", ""), strings.ReplaceAll(c, "_", "")
	return strings.Contains(lc, cc) || strings.Contains(cc, lc)
}

func flatten(scopes []map[string]any, collections [][]map[string]any) map[string]int64 {
	flat := make(map[string]int64)
	put := func(key string, v any) {
		norm := normalizeKey(key)
		if _, exists := flat[norm]; exists {
			return
		}
		if n, ok := parseCountValue(v); ok {
			flat[norm] = n
		}
	}

	for _, scope := range scopes {
		for k, v := range scope {
			put(k, v)
		}
	}
	for _, entries := range collections {
		for _, entry := range entries {
			if label := entryLabel(entry); label != "" {
				put(label, entryValue(entry))
			}
		}
	}
	return flat
}

func normalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	key = strings.ReplaceAll(key, " ", "_")
	return strings.ReplaceAll(key, "-", "_")
}

func stripAffixes(key string) string {
	key = strings.TrimPrefix(key, "num_")
	return strings.TrimSuffix(key, "_count")
}

// ParseCount coerces a vendor count into an integer. It understands raw
// numbers, comma-grouped strings ("2,345") and k/m/b suffixes ("1.2k").
// Anything unparseable is 0.
func ParseCount(v any) int64 {
	n, _ := parseCountValue(v)
	return n
}

func parseCountValue(v any) (int64, bool) {
	switch val := v.(type) {
	case int:
		return int64(val), true
	case int64:
		return val, true
	case float64:
		return int64(val), true
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return int64(f), true
		}
		return 0, false
	case string:
		return parseCountString(val)
	default:
		return 0, false
	}
}

func parseCountString(s string) (int64, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", "")

	multiplier := 1.0
	switch {
	case strings.HasSuffix(s, "k"):
		multiplier, s = 1e3, strings.TrimSuffix(s, "k")
	case strings.HasSuffix(s, "m"):
		multiplier, s = 1e6, strings.TrimSuffix(s, "m")
	case strings.HasSuffix(s, "b"):
		multiplier, s = 1e9, strings.TrimSuffix(s, "b")
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return int64(math.Round(f * multiplier)), true
}
