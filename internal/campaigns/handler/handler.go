package handler

import (
	"errors"
	"net/http"
	"strconv"

	"fanforge-server/internal/apierrors"
	"fanforge-server/internal/campaigns/processor"
	"fanforge-server/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Handler struct {
	processor *processor.CampaignProcessor
	logger    *observability.Logger
}

func New(p *processor.CampaignProcessor, logger *observability.Logger) Handler {
	return Handler{processor: p, logger: logger}
}

type GenerateSuggestionRequest struct {
	ThemeKind string `json:"theme_kind" binding:"required,oneof=sport franchise"`
	Topic     string `json:"topic" binding:"required,min=2,max=200"`
	Persist   bool   `json:"persist"`
}

type SuggestHashtagsRequest struct {
	Topic string `json:"topic" binding:"required,min=2,max=200"`
}

func (h *Handler) HandleGenerateSuggestion(c *gin.Context) {
	ctx := c.Request.Context()
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	var req GenerateSuggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			apierrors.ValidationError(c, err)
			return
		}
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	suggestion, campaign, err := h.processor.GenerateSuggestion(ctx, userID, processor.GenerateSuggestionParams{
		ThemeKind: req.ThemeKind,
		Topic:     req.Topic,
		Persist:   req.Persist,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	resp := gin.H{"suggestion": suggestion}
	if campaign != nil {
		resp["campaign"] = campaign
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) HandleSuggestHashtags(c *gin.Context) {
	ctx := c.Request.Context()
	if _, ok := h.getUserID(c); !ok {
		return
	}

	var req SuggestHashtagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			apierrors.ValidationError(c, err)
			return
		}
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	hashtags, err := h.processor.SuggestHashtags(ctx, req.Topic)
	if err != nil {
		h.logger.Error(ctx, "failed to suggest hashtags", err)
		apierrors.ServiceUnavailable(c, "Hashtag suggestions are unavailable right now")
		return
	}
	c.JSON(http.StatusOK, gin.H{"hashtags": hashtags})
}

func (h *Handler) HandleGetCampaign(c *gin.Context) {
	ctx := c.Request.Context()
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}
	campaignID, ok := h.getCampaignID(c)
	if !ok {
		return
	}

	campaign, err := h.processor.GetCampaign(ctx, userID, campaignID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, campaign)
}

func (h *Handler) HandleListCampaigns(c *gin.Context) {
	ctx := c.Request.Context()
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	campaigns, err := h.processor.ListCampaigns(ctx, userID, intQuery(c, "limit", 50), intQuery(c, "offset", 0))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaigns": campaigns})
}

func (h *Handler) HandleDeleteCampaign(c *gin.Context) {
	ctx := c.Request.Context()
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}
	campaignID, ok := h.getCampaignID(c)
	if !ok {
		return
	}

	if err := h.processor.DeleteCampaign(ctx, userID, campaignID); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) getUserID(c *gin.Context) (uuid.UUID, bool) {
	rawUserID, ok := c.Get("User-ID")
	if !ok {
		apierrors.Unauthorized(c, "User not authenticated")
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(rawUserID.(string))
	if err != nil {
		apierrors.Unauthorized(c, "Invalid user ID")
		return uuid.Nil, false
	}
	return userID, true
}

func (h *Handler) getCampaignID(c *gin.Context) (uuid.UUID, bool) {
	campaignID, err := uuid.Parse(c.Param("campaignID"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid campaign ID")
		return uuid.Nil, false
	}
	return campaignID, true
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, processor.ErrCampaignNotFound):
		apierrors.NotFound(c, "Campaign not found")
	case errors.Is(err, processor.ErrInvalidThemeKind):
		apierrors.BadRequest(c, "Theme kind must be sport or franchise")
	case errors.Is(err, processor.ErrMalformedResponse), errors.Is(err, processor.ErrSuggestionFailed):
		apierrors.ServiceUnavailable(c, "Campaign suggestions are unavailable right now")
	default:
		apierrors.InternalError(c, "An unexpected error occurred")
	}
}

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
