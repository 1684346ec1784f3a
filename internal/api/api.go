package api

import (
	"net/http"

	authHandler "fanforge-server/internal/auth/handler"
	campaignHandler "fanforge-server/internal/campaigns/handler"
	communityHandler "fanforge-server/internal/communities/handler"
	contestHandler "fanforge-server/internal/contests/handler"
	creatorHandler "fanforge-server/internal/creators/handler"
	"fanforge-server/internal/ratelimit"
	socialHandler "fanforge-server/internal/socialaccounts/handler"
	videoHandler "fanforge-server/internal/videos/handler"

	"github.com/gin-gonic/gin"
)

// scrape-triggering routes share this per-user per-minute budget
const scrapeRateLimit = 10

type API struct {
	router           *gin.RouterGroup
	authHandler      authHandler.Handler
	socialHandler    socialHandler.Handler
	videoHandler     videoHandler.Handler
	creatorHandler   creatorHandler.Handler
	communityHandler communityHandler.Handler
	contestHandler   contestHandler.Handler
	campaignHandler  campaignHandler.Handler
	rateLimiter      *ratelimit.Service
}

func New(
	router *gin.RouterGroup,
	authHandler authHandler.Handler,
	socialHandler socialHandler.Handler,
	videoHandler videoHandler.Handler,
	creatorHandler creatorHandler.Handler,
	communityHandler communityHandler.Handler,
	contestHandler contestHandler.Handler,
	campaignHandler campaignHandler.Handler,
	rateLimiter *ratelimit.Service,
) API {
	return API{
		router:           router,
		authHandler:      authHandler,
		socialHandler:    socialHandler,
		videoHandler:     videoHandler,
		creatorHandler:   creatorHandler,
		communityHandler: communityHandler,
		contestHandler:   contestHandler,
		campaignHandler:  campaignHandler,
		rateLimiter:      rateLimiter,
	}
}

func (a *API) RegisterRoutes() {
	a.Health()

	apiGroup := a.router.Group("/api")
	{
		authGroup := apiGroup.Group("/auth")
		authGroup.POST("/signup/email", a.authHandler.HandleEmailSignup)
		authGroup.POST("/login/email", a.authHandler.HandleEmailLogin)
	}

	// Vendor webhooks authenticate with a shared secret header, not a JWT.
	webhookGroup := apiGroup.Group("/webhooks/brightdata")
	webhookGroup.POST("/profiles", a.socialHandler.HandleWebhook)
	webhookGroup.POST("/videos", a.videoHandler.HandleWebhook)

	scrapeLimited := a.rateLimiter.Middleware(scrapeRateLimit)

	protectedGroup := apiGroup.Group("/protected", a.authHandler.HandleJWTMiddleware)
	{
		protectedGroup.GET("/user", a.authHandler.GetUserInfo)

		accountsGroup := protectedGroup.Group("/social-accounts")
		accountsGroup.POST("", scrapeLimited, a.socialHandler.HandleClaimAccount)
		accountsGroup.GET("", a.socialHandler.HandleListAccounts)
		accountsGroup.GET("/:accountID", a.socialHandler.HandleGetAccount)
		accountsGroup.DELETE("/:accountID", a.socialHandler.HandleDeleteAccount)
		accountsGroup.POST("/:accountID/verify", scrapeLimited, a.socialHandler.HandleTriggerVerification)
		accountsGroup.POST("/:accountID/poll", a.socialHandler.HandlePollVerification)

		videosGroup := protectedGroup.Group("/videos")
		videosGroup.POST("", scrapeLimited, a.videoHandler.HandleSubmitVideo)
		videosGroup.GET("", a.videoHandler.HandleListVideos)
		videosGroup.GET("/:videoID", a.videoHandler.HandleGetVideo)

		creatorsGroup := protectedGroup.Group("/creators")
		creatorsGroup.GET("", a.creatorHandler.HandleListCreators)
		creatorsGroup.GET("/:creatorID", a.creatorHandler.HandleGetCreator)

		communitiesGroup := protectedGroup.Group("/communities")
		communitiesGroup.POST("", a.communityHandler.HandleCreateCommunity)
		communitiesGroup.GET("", a.communityHandler.HandleListCommunities)
		communitiesGroup.GET("/:communityID", a.communityHandler.HandleGetCommunity)
		communitiesGroup.POST("/:communityID/join", a.communityHandler.HandleJoinCommunity)
		communitiesGroup.DELETE("/:communityID/leave", a.communityHandler.HandleLeaveCommunity)
		communitiesGroup.GET("/:communityID/members", a.communityHandler.HandleListMembers)
		communitiesGroup.POST("/:communityID/contests", a.contestHandler.HandleCreateContest)
		communitiesGroup.GET("/:communityID/contests", a.contestHandler.HandleListContests)

		contestsGroup := protectedGroup.Group("/contests")
		contestsGroup.GET("/:contestID", a.contestHandler.HandleGetContest)
		contestsGroup.POST("/:contestID/status", a.contestHandler.HandleTransitionContest)
		contestsGroup.POST("/:contestID/entries", a.contestHandler.HandleEnterVideo)
		contestsGroup.GET("/:contestID/entries", a.contestHandler.HandleListEntries)
		contestsGroup.GET("/:contestID/entries/:entryID/standing", a.contestHandler.HandleGetEntryStanding)
		contestsGroup.GET("/:contestID/leaderboard", a.contestHandler.HandleGetLeaderboard)
		contestsGroup.GET("/:contestID/leaderboard/stream", a.contestHandler.HandleLeaderboardStream)

		campaignsGroup := protectedGroup.Group("/campaigns")
		campaignsGroup.POST("/suggestions", a.campaignHandler.HandleGenerateSuggestion)
		campaignsGroup.POST("/hashtags", a.campaignHandler.HandleSuggestHashtags)
		campaignsGroup.GET("", a.campaignHandler.HandleListCampaigns)
		campaignsGroup.GET("/:campaignID", a.campaignHandler.HandleGetCampaign)
		campaignsGroup.DELETE("/:campaignID", a.campaignHandler.HandleDeleteCampaign)
	}
}

func (a *API) Health() {
	a.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
}
