package platform

import (
	"errors"
	"testing"
)

func TestDetect(t *testing.T) {
	cases := []struct {
		url  string
		want Platform
	}{
		{"https://www.tiktok.com/@someuser/video/7123456789012345678", PlatformTikTok},
		{"https://vm.tiktok.com/ZM8abcdef/", PlatformTikTok},
		{"https://vt.tiktok.com/ZS2xyz/", PlatformTikTok},
		{"https://p16-sign.tiktokcdn-us.com/obj/some-thumb.jpeg", PlatformTikTok},
		{"https://www.instagram.com/reel/Cxyz123/", PlatformInstagram},
		{"https://instagr.am/p/Cabc/", PlatformInstagram},
		{"https://www.youtube.com/shorts/dQw4w9WgXcQ", PlatformYouTube},
		{"https://youtu.be/dQw4w9WgXcQ", PlatformYouTube},
		{"youtube.com/shorts/abc123", PlatformYouTube},
		{"https://example.com/video/123", PlatformUnknown},
		{"not a url at all", PlatformUnknown},
		{"", PlatformUnknown},
	}
	for _, tc := range cases {
		if got := Detect(tc.url); got != tc.want {
			t.Errorf("Detect(%q) = %v, want %v", tc.url, got, tc.want)
		}
	}
}

func TestStandardizeURLTikTok(t *testing.T) {
	got, err := StandardizeURL("https://www.tiktok.com/@someuser/video/7123456789012345678?is_from_webapp=1&sender_device=pc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "https://www.tiktok.com/@someuser/video/7123456789012345678"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestStandardizeURLTikTokShortLink(t *testing.T) {
	got, err := StandardizeURL("https://vm.tiktok.com/ZM8abcdef/?utm_source=share")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "https://vm.tiktok.com/ZM8abcdef"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestStandardizeURLInstagram(t *testing.T) {
	cases := []struct{ in, want string }{
		{"https://www.instagram.com/reel/Cxyz123abc/?igshid=aabbcc", "https://www.instagram.com/reel/Cxyz123abc"},
		{"https://instagram.com/p/Cabc_-99/", "https://www.instagram.com/p/Cabc_-99"},
	}
	for _, tc := range cases {
		got, err := StandardizeURL(tc.in)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("StandardizeURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestStandardizeURLYouTube(t *testing.T) {
	cases := []struct{ in, want string }{
		{"https://youtu.be/dQw4w9WgXcQ?si=tracking", "https://www.youtube.com/shorts/dQw4w9WgXcQ"},
		{"https://www.youtube.com/shorts/dQw4w9WgXcQ?feature=share", "https://www.youtube.com/shorts/dQw4w9WgXcQ"},
	}
	for _, tc := range cases {
		got, err := StandardizeURL(tc.in)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("StandardizeURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestStandardizeURLRejectsYouTubeWatch(t *testing.T) {
	_, err := StandardizeURL("https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	if !errors.Is(err, ErrYouTubeWatchURL) {
		t.Errorf("expected ErrYouTubeWatchURL, got %v", err)
	}
}

func TestStandardizeURLUnknownPlatform(t *testing.T) {
	got, err := StandardizeURL("https://example.com/watch?v=abc&t=2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "https://example.com/watch" {
		t.Errorf("got %q", got)
	}
}

func TestStandardizeURLIdempotent(t *testing.T) {
	inputs := []string{
		"https://www.tiktok.com/@someuser/video/7123456789012345678?q=1",
		"https://vm.tiktok.com/ZM8abcdef/",
		"https://www.instagram.com/p/Cabc123/?igshid=x",
		"https://youtu.be/dQw4w9WgXcQ",
	}
	for _, in := range inputs {
		once, err := StandardizeURL(in)
		if err != nil {
			t.Fatalf("first pass %q: %v", in, err)
		}
		twice, err := StandardizeURL(once)
		if err != nil {
			t.Fatalf("second pass %q: %v", once, err)
		}
		if once != twice {
			t.Errorf("not idempotent: %q -> %q -> %q", in, once, twice)
		}
	}
}

func TestIsValidTikTokURL(t *testing.T) {
	if !IsValidTikTokURL("https://www.tiktok.com/@user.name/video/123456") {
		t.Error("canonical video URL should be valid")
	}
	if !IsValidTikTokURL("https://vt.tiktok.com/ZSabc/") {
		t.Error("short link should be valid")
	}
	if IsValidTikTokURL("https://www.tiktok.com/@user.name") {
		t.Error("profile URL should not be a valid video URL")
	}
	if IsValidTikTokURL("https://www.instagram.com/p/Cabc/") {
		t.Error("instagram URL should not be valid tiktok")
	}
}

func TestIsValidInstagramURL(t *testing.T) {
	if !IsValidInstagramURL("https://www.instagram.com/reel/Cxyz/") {
		t.Error("reel URL should be valid")
	}
	if IsValidInstagramURL("https://www.instagram.com/someuser/") {
		t.Error("profile URL should not be valid")
	}
}

func TestIsValidYouTubeURL(t *testing.T) {
	if !IsValidYouTubeURL("https://www.youtube.com/shorts/abc123") {
		t.Error("shorts URL should be valid")
	}
	if !IsValidYouTubeURL("https://youtu.be/abc123") {
		t.Error("youtu.be URL should be valid")
	}
	if IsValidYouTubeURL("https://www.youtube.com/watch?v=abc123") {
		t.Error("watch URL should not be valid")
	}
}

func TestStandardizeProfileURL(t *testing.T) {
	cases := []struct{ in, want string }{
		{"https://www.tiktok.com/@someuser/?lang=en", "https://www.tiktok.com/@someuser"},
		{"www.instagram.com/someuser/", "https://www.instagram.com/someuser"},
		{"https://www.youtube.com/@handle#about", "https://www.youtube.com/@handle"},
	}
	for _, tc := range cases {
		if got := StandardizeProfileURL(tc.in); got != tc.want {
			t.Errorf("StandardizeProfileURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestUsernameFromProfileURL(t *testing.T) {
	cases := []struct{ in, want string }{
		{"https://www.tiktok.com/@someuser", "someuser"},
		{"https://www.instagram.com/someuser/", "someuser"},
		{"https://www.youtube.com/@handle", "handle"},
	}
	for _, tc := range cases {
		if got := UsernameFromProfileURL(tc.in); got != tc.want {
			t.Errorf("UsernameFromProfileURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
