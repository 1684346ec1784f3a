package bootstrap

import (
	"context"
	"fmt"

	"fanforge-server/internal/clients/brightdata"
	"fanforge-server/internal/clients/mail"
	"fanforge-server/internal/clients/redis"
	"fanforge-server/internal/config"
	"fanforge-server/internal/email"
	"fanforge-server/internal/observability"
	"fanforge-server/internal/ratelimit"
	"fanforge-server/internal/store"

	authHandler "fanforge-server/internal/auth/handler"
	authProcessor "fanforge-server/internal/auth/processor"
	campaignHandler "fanforge-server/internal/campaigns/handler"
	campaignProcessor "fanforge-server/internal/campaigns/processor"
	communityHandler "fanforge-server/internal/communities/handler"
	communityProcessor "fanforge-server/internal/communities/processor"
	contestHandler "fanforge-server/internal/contests/handler"
	"fanforge-server/internal/contests/leaderboard"
	contestProcessor "fanforge-server/internal/contests/processor"
	creatorHandler "fanforge-server/internal/creators/handler"
	creatorProcessor "fanforge-server/internal/creators/processor"
	socialHandler "fanforge-server/internal/socialaccounts/handler"
	socialProcessor "fanforge-server/internal/socialaccounts/processor"
	videoHandler "fanforge-server/internal/videos/handler"
	videoProcessor "fanforge-server/internal/videos/processor"
)

// Dependencies holds all initialized application dependencies
type Dependencies struct {
	Store  store.Store
	Redis  *redis.Client
	Logger *observability.Logger

	AuthHandler      authHandler.Handler
	SocialHandler    socialHandler.Handler
	VideoHandler     videoHandler.Handler
	CreatorHandler   creatorHandler.Handler
	CommunityHandler communityHandler.Handler
	ContestHandler   contestHandler.Handler
	CampaignHandler  campaignHandler.Handler

	SocialProcessor socialProcessor.Processor
	RateLimiter     *ratelimit.Service
}

// Initialize sets up all application dependencies
func Initialize(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Logger: logger,
	}

	var err error
	deps.Store, err = store.New(cfg.Database.ConnectionString(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	deps.Redis, err = redis.NewClient(cfg.Redis, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	mailClient, err := mail.NewResendClient(cfg.Services.ResendAPIKey, cfg.Services.DefaultEmailSender, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create resend client: %w", err)
	}
	emailService := email.New(mailClient, logger)

	scrapeClient := brightdata.NewClient(cfg.BrightData.APIKey, logger)

	authProc := authProcessor.New(deps.Store, emailService, cfg.Auth.JWTSecret, logger)
	deps.AuthHandler = authHandler.New(authProc, logger)

	deps.SocialProcessor = socialProcessor.New(&deps.Store, scrapeClient, emailService,
		cfg.BrightData, cfg.Verification, logger)
	deps.SocialHandler = socialHandler.New(deps.SocialProcessor, cfg.BrightData.WebhookSecret, logger)

	leaderboardService := leaderboard.New(deps.Redis, logger)
	contestProc := contestProcessor.New(&deps.Store, leaderboardService, logger)
	deps.ContestHandler = contestHandler.New(contestProc, logger)

	videoProc := videoProcessor.New(&deps.Store, scrapeClient, cfg.BrightData, logger)
	videoProc.SetScoreSync(contestProc)
	deps.VideoHandler = videoHandler.New(videoProc, cfg.BrightData.WebhookSecret, logger)

	creatorProc := creatorProcessor.New(&deps.Store, logger)
	deps.CreatorHandler = creatorHandler.New(creatorProc, logger)

	communityProc := communityProcessor.New(&deps.Store, logger)
	deps.CommunityHandler = communityHandler.New(communityProc, logger)

	campaignProc := campaignProcessor.New(&deps.Store,
		cfg.Services.OpenAIAPIKey, cfg.Services.GoogleAIAPIKey, logger)
	deps.CampaignHandler = campaignHandler.New(campaignProc, logger)

	deps.RateLimiter = ratelimit.NewService(deps.Redis, deps.Store, logger)

	logger.Info(ctx, "application dependencies initialized")
	return deps, nil
}

// Cleanup releases held connections.
func (d *Dependencies) Cleanup() {
	if err := d.Redis.Close(); err != nil {
		d.Logger.InfoWithError(context.Background(), "failed to close redis connection", err)
	}
	if err := d.Store.Close(); err != nil {
		d.Logger.InfoWithError(context.Background(), "failed to close database connection", err)
	}
}
