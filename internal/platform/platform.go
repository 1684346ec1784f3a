package platform

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

// Platform identifies a supported short-form video platform.
type Platform string

const (
	PlatformTikTok    Platform = "tiktok"
	PlatformInstagram Platform = "instagram"
	PlatformYouTube   Platform = "youtube"
	PlatformUnknown   Platform = "unknown"
)

// ErrYouTubeWatchURL is returned for long-form /watch URLs, which cannot be
// submitted. Only YouTube Shorts are supported.
var ErrYouTubeWatchURL = errors.New("youtube watch URLs are not supported, only Shorts")

var (
	tiktokVideoPattern    = regexp.MustCompile(`@([A-Za-z0-9_.\-]+)/video/(\d+)`)
	instagramPostPattern  = regexp.MustCompile(`/(p|reel)/([A-Za-z0-9_\-]+)`)
	youtubeShortsPattern  = regexp.MustCompile(`/shorts/([A-Za-z0-9_\-]+)`)
	tiktokUsernamePattern = regexp.MustCompile(`tiktok\.com/@([A-Za-z0-9_.\-]+)/?$`)
)

// Detect classifies a URL by hostname. Short-link and CDN hosts count as
// their parent platform. Unrecognized or unparseable input is "unknown".
func Detect(rawURL string) Platform {
	host := hostOf(rawURL)
	if host == "" {
		return PlatformUnknown
	}

	switch {
	case host == "tiktok.com" || strings.HasSuffix(host, ".tiktok.com") || strings.Contains(host, "tiktokcdn"):
		return PlatformTikTok
	case host == "instagram.com" || strings.HasSuffix(host, ".instagram.com") ||
		host == "instagr.am" || strings.Contains(host, "cdninstagram"):
		return PlatformInstagram
	case host == "youtube.com" || strings.HasSuffix(host, ".youtube.com") ||
		host == "youtu.be" || strings.Contains(host, "googlevideo"):
		return PlatformYouTube
	default:
		return PlatformUnknown
	}
}

// StandardizeURL rewrites a video URL into its canonical platform form with
// tracking parameters stripped. It only fails for rejected YouTube long-form
// URLs; anything else it cannot recognize degrades to best-effort cleanup.
func StandardizeURL(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)

	switch Detect(trimmed) {
	case PlatformTikTok:
		return standardizeTikTokURL(trimmed), nil
	case PlatformInstagram:
		return standardizeInstagramURL(trimmed), nil
	case PlatformYouTube:
		return StandardizeYouTubeURL(trimmed)
	default:
		return stripQuery(trimmed), nil
	}
}

func standardizeTikTokURL(rawURL string) string {
	if m := tiktokVideoPattern.FindStringSubmatch(rawURL); m != nil {
		return "https://www.tiktok.com/@" + m[1] + "/video/" + m[2]
	}

	// Short links (vm/vt hosts) carry an opaque path that only the redirect
	// target can resolve; rewrite by path alone.
	host := hostOf(rawURL)
	if host == "vm.tiktok.com" || host == "vt.tiktok.com" {
		u, err := url.Parse(ensureScheme(rawURL))
		if err != nil {
			return stripQuery(rawURL)
		}
		return "https://" + host + strings.TrimSuffix(u.Path, "/")
	}

	return stripQuery(rawURL)
}

func standardizeInstagramURL(rawURL string) string {
	if m := instagramPostPattern.FindStringSubmatch(rawURL); m != nil {
		return "https://www.instagram.com/" + m[1] + "/" + m[2]
	}
	return stripQuery(rawURL)
}

// StandardizeYouTubeURL normalizes youtu.be and Shorts variants to the
// canonical Shorts form, rejecting long-form /watch URLs outright.
func StandardizeYouTubeURL(rawURL string) (string, error) {
	u, err := url.Parse(ensureScheme(strings.TrimSpace(rawURL)))
	if err != nil {
		return stripQuery(rawURL), nil
	}

	if strings.HasPrefix(u.Path, "/watch") {
		return "", ErrYouTubeWatchURL
	}

	if strings.EqualFold(u.Hostname(), "youtu.be") {
		id := strings.Trim(u.Path, "/")
		if id != "" {
			return "https://www.youtube.com/shorts/" + id, nil
		}
	}

	if m := youtubeShortsPattern.FindStringSubmatch(u.Path); m != nil {
		return "https://www.youtube.com/shorts/" + m[1], nil
	}

	return stripQuery(rawURL), nil
}

// IsValidTikTokURL reports whether the string structurally matches a TikTok
// video URL (canonical or short-link form).
func IsValidTikTokURL(rawURL string) bool {
	if Detect(rawURL) != PlatformTikTok {
		return false
	}
	if tiktokVideoPattern.MatchString(rawURL) {
		return true
	}
	host := hostOf(rawURL)
	if host == "vm.tiktok.com" || host == "vt.tiktok.com" {
		u, err := url.Parse(ensureScheme(rawURL))
		return err == nil && strings.Trim(u.Path, "/") != ""
	}
	return false
}

// IsValidInstagramURL reports whether the string structurally matches an
// Instagram post or reel URL.
func IsValidInstagramURL(rawURL string) bool {
	return Detect(rawURL) == PlatformInstagram && instagramPostPattern.MatchString(rawURL)
}

// IsValidYouTubeURL reports whether the string structurally matches a YouTube
// Shorts URL. Long-form /watch URLs are not valid submissions.
func IsValidYouTubeURL(rawURL string) bool {
	if Detect(rawURL) != PlatformYouTube {
		return false
	}
	u, err := url.Parse(ensureScheme(strings.TrimSpace(rawURL)))
	if err != nil {
		return false
	}
	if strings.HasPrefix(u.Path, "/watch") {
		return false
	}
	if strings.EqualFold(u.Hostname(), "youtu.be") {
		return strings.Trim(u.Path, "/") != ""
	}
	return youtubeShortsPattern.MatchString(u.Path)
}

// IsValidVideoURL reports whether the string is a submittable video URL for
// any supported platform.
func IsValidVideoURL(rawURL string) bool {
	return IsValidTikTokURL(rawURL) || IsValidInstagramURL(rawURL) || IsValidYouTubeURL(rawURL)
}

// StandardizeProfileURL normalizes a profile URL for ownership records:
// strips query, fragment and trailing slash, and adds https:// if missing.
func StandardizeProfileURL(rawURL string) string {
	s := ensureScheme(strings.TrimSpace(rawURL))
	if idx := strings.IndexAny(s, "?#"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSuffix(s, "/")
}

// UsernameFromProfileURL extracts the handle from a TikTok-style profile URL
// when present, otherwise the last path segment. Returns "" when nothing
// resembling a handle is found.
func UsernameFromProfileURL(rawURL string) string {
	if m := tiktokUsernamePattern.FindStringSubmatch(rawURL); m != nil {
		return m[1]
	}
	u, err := url.Parse(ensureScheme(strings.TrimSpace(rawURL)))
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) == 0 {
		return ""
	}
	last := segments[len(segments)-1]
	return strings.TrimPrefix(last, "@")
}

func hostOf(rawURL string) string {
	u, err := url.Parse(ensureScheme(strings.TrimSpace(rawURL)))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func ensureScheme(rawURL string) string {
	if strings.HasPrefix(rawURL, "http://") || strings.HasPrefix(rawURL, "https://") {
		return rawURL
	}
	return "https://" + rawURL
}

func stripQuery(rawURL string) string {
	if idx := strings.Index(rawURL, "?"); idx >= 0 {
		return rawURL[:idx]
	}
	return rawURL
}
