package verification

import (
	"context"
	"errors"
	"testing"
	"time"

	"fanforge-server/internal/platform"
)

func TestGenerateCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code := GenerateCode()
		if len(code) != 6 {
			t.Fatalf("code %q has length %d, want 6", code, len(code))
		}
		for _, r := range code {
			if !((r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
				t.Fatalf("code %q contains unexpected character %q", code, r)
			}
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Error("expected some variety across generated codes")
	}
}

func TestVerifyCodeInBio(t *testing.T) {
	cases := []struct {
		name string
		bio  string
		code string
		want bool
	}{
		{"exact", "check out my page FF3K9Z today", "FF3K9Z", true},
		{"case insensitive", "code is ff3k9z", "FF3K9Z", true},
		{"collapsed newlines around code", "line one\n\n  FF3K9Z \t end", "FF3K9Z", true},
		{"code split by a space stays unmatched", "FF3 K9Z", "FF3K9Z", false},
		{"absent", "no code here", "FF3K9Z", false},
		{"empty bio", "", "FF3K9Z", false},
		{"empty code", "some bio text", "", false},
		{"whitespace-only code", "some bio text", "   ", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := VerifyCodeInBio(tc.bio, tc.code); got != tc.want {
				t.Errorf("VerifyCodeInBio(%q, %q) = %v, want %v", tc.bio, tc.code, got, tc.want)
			}
		})
	}
}

func TestExtractBio(t *testing.T) {
	tiktok := map[string]any{
		"signature": "from signature",
		"bio":       "from bio",
	}
	if got := ExtractBio(tiktok, platform.PlatformTikTok); got != "from signature" {
		t.Errorf("tiktok bio = %q, want signature field first", got)
	}

	tiktokBiography := map[string]any{
		"biography": "from biography",
		"signature": "from signature",
	}
	if got := ExtractBio(tiktokBiography, platform.PlatformTikTok); got != "from biography" {
		t.Errorf("tiktok bio = %q, want biography field first", got)
	}

	youtube := map[string]any{"Description": "channel about sports"}
	if got := ExtractBio(youtube, platform.PlatformYouTube); got != "channel about sports" {
		t.Errorf("youtube bio = %q", got)
	}

	wrapped := map[string]any{
		"profile": map[string]any{"biography": "nested bio"},
	}
	if got := ExtractBio(wrapped, platform.PlatformInstagram); got != "nested bio" {
		t.Errorf("wrapped bio = %q", got)
	}

	if got := ExtractBio(map[string]any{"followers": float64(10)}, platform.PlatformTikTok); got != "" {
		t.Errorf("missing bio should be empty, got %q", got)
	}
	if got := ExtractBio(nil, platform.PlatformTikTok); got != "" {
		t.Errorf("nil payload should be empty, got %q", got)
	}
}

func TestPollTerminalSuccess(t *testing.T) {
	calls := 0
	err := Poll(context.Background(), time.Millisecond, time.Second, func(ctx context.Context) (bool, error) {
		calls++
		return calls >= 3, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestPollTerminalError(t *testing.T) {
	terminal := errors.New("scrape failed")
	err := Poll(context.Background(), time.Millisecond, time.Second, func(ctx context.Context) (bool, error) {
		return true, terminal
	})
	if !errors.Is(err, terminal) {
		t.Errorf("expected terminal error, got %v", err)
	}
}

func TestPollRetriesTransientErrors(t *testing.T) {
	calls := 0
	err := Poll(context.Background(), time.Millisecond, time.Second, func(ctx context.Context) (bool, error) {
		calls++
		if calls < 3 {
			return false, errors.New("temporarily unavailable")
		}
		return true, nil
	})
	if err != nil {
		t.Fatalf("transient errors should be retried, got %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestPollDeadline(t *testing.T) {
	err := Poll(context.Background(), 5*time.Millisecond, 20*time.Millisecond, func(ctx context.Context) (bool, error) {
		return false, nil
	})
	if !errors.Is(err, ErrVerificationTimeout) {
		t.Errorf("expected ErrVerificationTimeout, got %v", err)
	}
}

func TestPollContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Poll(ctx, time.Millisecond, time.Second, func(ctx context.Context) (bool, error) {
		return false, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
