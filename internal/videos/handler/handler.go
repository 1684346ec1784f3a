package handler

import (
	"errors"
	"net/http"
	"strconv"

	"fanforge-server/internal/apierrors"
	"fanforge-server/internal/observability"
	"fanforge-server/internal/store"
	"fanforge-server/internal/videos/processor"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Handler struct {
	processor     processor.Processor
	webhookSecret string
	logger        *observability.Logger
}

func New(p processor.Processor, webhookSecret string, logger *observability.Logger) Handler {
	return Handler{processor: p, webhookSecret: webhookSecret, logger: logger}
}

type SubmitVideoRequest struct {
	URL string `json:"url" binding:"required,url"`
}

type WebhookPayload struct {
	SnapshotID string           `json:"snapshot_id" binding:"required"`
	Records    []map[string]any `json:"records"`
}

func (h *Handler) HandleSubmitVideo(c *gin.Context) {
	ctx := c.Request.Context()
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	var req SubmitVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			apierrors.ValidationError(c, err)
			return
		}
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	video, err := h.processor.SubmitVideo(ctx, userID, req.URL)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, video)
}

func (h *Handler) HandleGetVideo(c *gin.Context) {
	ctx := c.Request.Context()

	videoID, err := uuid.Parse(c.Param("videoID"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid video ID")
		return
	}

	video, err := h.processor.GetVideo(ctx, videoID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, video)
}

func (h *Handler) HandleListVideos(c *gin.Context) {
	ctx := c.Request.Context()

	params := store.ListVideosParams{
		Platform: c.Query("platform"),
		Limit:    intQuery(c, "limit", 50),
		Offset:   intQuery(c, "offset", 0),
	}
	if raw := c.Query("creator_id"); raw != "" {
		creatorID, err := uuid.Parse(raw)
		if err != nil {
			apierrors.BadRequest(c, "Invalid creator ID")
			return
		}
		params.CreatorID = &creatorID
	}

	videos, err := h.processor.ListVideos(ctx, params)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"videos": videos})
}

// HandleWebhook ingests finished video scrapes delivered by the vendor.
func (h *Handler) HandleWebhook(c *gin.Context) {
	ctx := c.Request.Context()

	if h.webhookSecret != "" && c.GetHeader("X-Webhook-Secret") != h.webhookSecret {
		apierrors.Unauthorized(c, "Invalid webhook secret")
		return
	}

	var payload WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		apierrors.BadRequest(c, "Invalid webhook payload")
		return
	}

	ctx = observability.WithFields(ctx, observability.Field{Key: "snapshot_id", Value: payload.SnapshotID})

	video, err := h.processor.CompleteFromWebhook(ctx, payload.SnapshotID, payload.Records)
	if err != nil {
		if errors.Is(err, processor.ErrVideoNotFound) {
			c.Status(http.StatusOK)
			return
		}
		h.handleError(c, err)
		return
	}

	h.logger.Info(ctx, "video webhook processed")
	c.JSON(http.StatusOK, gin.H{"video_id": video.ID})
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

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, processor.ErrInvalidVideoURL):
		apierrors.UnsupportedURL(c, "URL is not a supported video link")
	case errors.Is(err, processor.ErrWatchURLNotSupported):
		apierrors.UnsupportedURL(c, "YouTube watch URLs are not supported, submit a Shorts link")
	case errors.Is(err, processor.ErrVideoNotFound):
		apierrors.NotFound(c, "Video not found")
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
