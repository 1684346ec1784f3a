package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"fanforge-server/internal/observability"
	"fanforge-server/internal/store"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"github.com/openai/openai-go"
	openaiOption "github.com/openai/openai-go/option"
	"google.golang.org/api/option"
)

var (
	ErrCampaignNotFound  = errors.New("campaign not found")
	ErrInvalidThemeKind  = errors.New("theme kind must be sport or franchise")
	ErrSuggestionFailed  = errors.New("failed to generate a campaign suggestion")
	ErrMalformedResponse = errors.New("model returned a malformed suggestion")
)

// Store lists the persistence operations campaigns depend on.
type Store interface {
	CreateCampaign(ctx context.Context, params store.CreateCampaignParams) (store.Campaign, error)
	GetCampaignByID(ctx context.Context, campaignID uuid.UUID) (store.Campaign, error)
	ListCampaignsByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]store.Campaign, error)
	DeleteCampaign(ctx context.Context, campaignID, userID uuid.UUID) error
}

// Suggestion is a generated activation concept. Demographics are percentage
// splits normalized to sum 100.
type Suggestion struct {
	ThemeKind    string             `json:"theme_kind"`
	Name         string             `json:"name"`
	League       string             `json:"league,omitempty"`
	Series       string             `json:"series,omitempty"`
	Teams        []string           `json:"teams,omitempty"`
	Characters   []string           `json:"characters,omitempty"`
	Hashtags     []string           `json:"hashtags"`
	Demographics map[string]float64 `json:"demographics"`
}

type CampaignProcessor struct {
	store        Store
	openAIAPIKey string
	geminiAPIKey string
	logger       *observability.Logger
}

func New(s Store, openAIAPIKey, geminiAPIKey string, logger *observability.Logger) *CampaignProcessor {
	return &CampaignProcessor{
		store:        s,
		openAIAPIKey: openAIAPIKey,
		geminiAPIKey: geminiAPIKey,
		logger:       logger,
	}
}

type GenerateSuggestionParams struct {
	ThemeKind string
	Topic     string
	Persist   bool
}

const suggestionSystemPrompt = `You design fan activation campaigns for short-form video platforms.
Respond with a single JSON object and nothing else. Keys:
"theme_kind" (%q), "name" (campaign name), %s,
"hashtags" (5-8 strings starting with #),
"demographics" (object of audience segment name to percentage, e.g. {"18-24": 40, "25-34": 35, "35+": 25}).`

// GenerateSuggestion asks the model for an activation concept and normalizes
// the synthetic demographic splits so they always sum to 100.
func (p *CampaignProcessor) GenerateSuggestion(ctx context.Context, userID uuid.UUID, params GenerateSuggestionParams) (Suggestion, *store.Campaign, error) {
	if params.ThemeKind != store.CampaignThemeSport && params.ThemeKind != store.CampaignThemeFranchise {
		return Suggestion{}, nil, ErrInvalidThemeKind
	}

	themeFields := `"league" (competition name), "teams" (array of team names)`
	if params.ThemeKind == store.CampaignThemeFranchise {
		themeFields = `"series" (franchise name), "characters" (array of character names)`
	}

	options := []openaiOption.RequestOption{
		openaiOption.WithAPIKey(p.openAIAPIKey),
	}
	client := openai.NewClient(options...)

	completion, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(fmt.Sprintf(suggestionSystemPrompt, params.ThemeKind, themeFields)),
			openai.UserMessage(fmt.Sprintf("Theme: %s. Topic: %s", params.ThemeKind, params.Topic)),
		},
		Model: openai.ChatModelGPT4o,
	})
	if err != nil {
		p.logger.Error(ctx, "failed to generate campaign suggestion", err)
		return Suggestion{}, nil, fmt.Errorf("%w: %v", ErrSuggestionFailed, err)
	}
	if len(completion.Choices) == 0 {
		return Suggestion{}, nil, ErrSuggestionFailed
	}

	suggestion, err := ParseSuggestion(completion.Choices[0].Message.Content)
	if err != nil {
		p.logger.InfoWithError(ctx, "model returned malformed suggestion JSON", err)
		return Suggestion{}, nil, err
	}
	suggestion.ThemeKind = params.ThemeKind
	suggestion.Demographics = NormalizeDemographics(suggestion.Demographics)

	if !params.Persist {
		return suggestion, nil, nil
	}

	payload := make(store.JSONB)
	raw, err := json.Marshal(suggestion)
	if err != nil {
		return Suggestion{}, nil, fmt.Errorf("failed to marshal suggestion: %w", err)
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Suggestion{}, nil, fmt.Errorf("failed to build suggestion payload: %w", err)
	}

	campaign, err := p.store.CreateCampaign(ctx, store.CreateCampaignParams{
		UserID:     userID,
		Name:       suggestion.Name,
		ThemeKind:  suggestion.ThemeKind,
		Suggestion: payload,
	})
	if err != nil {
		return Suggestion{}, nil, fmt.Errorf("failed to save campaign: %w", err)
	}

	ctx = observability.WithFields(ctx, observability.Field{Key: "campaign_id", Value: campaign.ID.String()})
	p.logger.Info(ctx, "campaign suggestion saved")

	return suggestion, &campaign, nil
}

// SuggestHashtags asks Gemini for extra hashtags around a topic.
func (p *CampaignProcessor) SuggestHashtags(ctx context.Context, topic string) ([]string, error) {
	prompt := fmt.Sprintf(`
Suggest 8 short hashtags for a fan video campaign about: %s
Return them comma-separated on one line, each starting with #. No other text.`, topic)

	c, err := genai.NewClient(ctx, option.WithAPIKey(p.geminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	defer c.Close()

	model := c.GenerativeModel("gemini-2.5-pro-preview-03-25")
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to suggest hashtags: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no hashtags returned from Gemini")
	}
	part, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return nil, fmt.Errorf("unexpected response format")
	}

	return ParseHashtagLine(string(part)), nil
}

func (p *CampaignProcessor) GetCampaign(ctx context.Context, userID, campaignID uuid.UUID) (store.Campaign, error) {
	campaign, err := p.store.GetCampaignByID(ctx, campaignID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Campaign{}, ErrCampaignNotFound
		}
		return store.Campaign{}, fmt.Errorf("failed to get campaign: %w", err)
	}
	if campaign.UserID != userID {
		return store.Campaign{}, ErrCampaignNotFound
	}
	return campaign, nil
}

func (p *CampaignProcessor) ListCampaigns(ctx context.Context, userID uuid.UUID, limit, offset int) ([]store.Campaign, error) {
	campaigns, err := p.store.ListCampaignsByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	return campaigns, nil
}

func (p *CampaignProcessor) DeleteCampaign(ctx context.Context, userID, campaignID uuid.UUID) error {
	if err := p.store.DeleteCampaign(ctx, campaignID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrCampaignNotFound
		}
		return fmt.Errorf("failed to delete campaign: %w", err)
	}
	return nil
}

// ParseSuggestion decodes a model response into a Suggestion, tolerating
// markdown code fences around the JSON object.
func ParseSuggestion(content string) (Suggestion, error) {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var suggestion Suggestion
	if err := json.Unmarshal([]byte(trimmed), &suggestion); err != nil {
		return Suggestion{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if suggestion.Name == "" {
		return Suggestion{}, fmt.Errorf("%w: missing campaign name", ErrMalformedResponse)
	}
	return suggestion, nil
}

// NormalizeDemographics rescales percentage splits to sum exactly 100.
// Negative splits are dropped; an empty or all-zero input stays empty.
// Values are rounded to one decimal place, with the largest segment
// absorbing the rounding remainder.
func NormalizeDemographics(splits map[string]float64) map[string]float64 {
	cleaned := make(map[string]float64, len(splits))
	total := 0.0
	for segment, pct := range splits {
		if pct <= 0 {
			continue
		}
		cleaned[segment] = pct
		total += pct
	}
	if len(cleaned) == 0 || total == 0 {
		return map[string]float64{}
	}

	normalized := make(map[string]float64, len(cleaned))
	sum := 0.0
	largest := ""
	for segment, pct := range cleaned {
		value := math.Round(pct/total*1000) / 10
		normalized[segment] = value
		sum += value
		if largest == "" || normalized[segment] > normalized[largest] {
			largest = segment
		}
	}
	// push rounding drift onto the biggest bucket
	normalized[largest] = math.Round((normalized[largest]+100-sum)*10) / 10
	return normalized
}

// ParseHashtagLine splits a comma- or whitespace-separated hashtag line.
func ParseHashtagLine(line string) []string {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == '\n' || r == ' ' || r == '\t'
	})
	hashtags := make([]string, 0, len(fields))
	for _, field := range fields {
		tag := strings.TrimSpace(field)
		if tag == "" {
			continue
		}
		if !strings.HasPrefix(tag, "#") {
			tag = "#" + tag
		}
		hashtags = append(hashtags, tag)
	}
	return hashtags
}
