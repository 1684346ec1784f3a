package processor

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestParseSuggestion(t *testing.T) {
	content := "```json\n" + `{
  "name": "Derby Day Duets",
  "theme_kind": "sport",
  "league": "Premier League",
  "teams": ["Arsenal", "Spurs"],
  "hashtags": ["#DerbyDay", "#NorthLondon"],
  "demographics": {"18-24": 50, "25-34": 30, "35+": 20}
}` + "\n```"

	suggestion, err := ParseSuggestion(content)
	if err != nil {
		t.Fatalf("ParseSuggestion returned error: %v", err)
	}
	if suggestion.Name != "Derby Day Duets" {
		t.Errorf("unexpected name %q", suggestion.Name)
	}
	if suggestion.League != "Premier League" || len(suggestion.Teams) != 2 {
		t.Errorf("sport fields not parsed: %+v", suggestion)
	}
	if len(suggestion.Hashtags) != 2 {
		t.Errorf("expected 2 hashtags, got %v", suggestion.Hashtags)
	}
}

func TestParseSuggestionWithoutFences(t *testing.T) {
	suggestion, err := ParseSuggestion(`{"name": "Heist Rewatch", "series": "Lupin", "characters": ["Assane"]}`)
	if err != nil {
		t.Fatalf("ParseSuggestion returned error: %v", err)
	}
	if suggestion.Series != "Lupin" {
		t.Errorf("franchise fields not parsed: %+v", suggestion)
	}
}

func TestParseSuggestionMalformed(t *testing.T) {
	if _, err := ParseSuggestion("not json at all"); !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("expected ErrMalformedResponse, got %v", err)
	}
	if _, err := ParseSuggestion(`{"theme_kind": "sport"}`); !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("expected ErrMalformedResponse for missing name, got %v", err)
	}
}

func TestNormalizeDemographics(t *testing.T) {
	tests := []struct {
		name  string
		input map[string]float64
	}{
		{"already normalized", map[string]float64{"18-24": 40, "25-34": 35, "35+": 25}},
		{"overshoots 100", map[string]float64{"18-24": 60, "25-34": 60}},
		{"undershoots 100", map[string]float64{"18-24": 1, "25-34": 2}},
		{"drops negatives", map[string]float64{"18-24": 50, "bad": -10, "25-34": 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			normalized := NormalizeDemographics(tt.input)
			sum := 0.0
			for segment, pct := range normalized {
				if pct < 0 {
					t.Errorf("segment %q normalized to negative %f", segment, pct)
				}
				sum += pct
			}
			if math.Abs(sum-100) > 0.01 {
				t.Errorf("normalized splits sum to %f, want 100", sum)
			}
			if _, ok := normalized["bad"]; ok {
				t.Errorf("negative segment survived normalization: %v", normalized)
			}
		})
	}
}

func TestNormalizeDemographicsEmpty(t *testing.T) {
	if got := NormalizeDemographics(nil); len(got) != 0 {
		t.Errorf("expected empty map for nil input, got %v", got)
	}
	if got := NormalizeDemographics(map[string]float64{"a": 0}); len(got) != 0 {
		t.Errorf("expected empty map for all-zero input, got %v", got)
	}
}

func TestParseHashtagLine(t *testing.T) {
	got := ParseHashtagLine("#MatchDay, #GoalRush,fanCam\n#Replay")
	want := []string{"#MatchDay", "#GoalRush", "#fanCam", "#Replay"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseHashtagLine = %v, want %v", got, want)
	}
}
