package handler

import (
	"errors"
	"net/http"
	"strconv"

	"fanforge-server/internal/apierrors"
	"fanforge-server/internal/creators/processor"
	"fanforge-server/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	processor processor.Processor
	logger    *observability.Logger
}

func New(p processor.Processor, logger *observability.Logger) Handler {
	return Handler{processor: p, logger: logger}
}

func (h *Handler) HandleGetCreator(c *gin.Context) {
	ctx := c.Request.Context()

	creatorID, err := uuid.Parse(c.Param("creatorID"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid creator ID")
		return
	}

	creator, err := h.processor.GetCreator(ctx, creatorID)
	if err != nil {
		if errors.Is(err, processor.ErrCreatorNotFound) {
			apierrors.NotFound(c, "Creator not found")
			return
		}
		apierrors.InternalError(c, "An unexpected error occurred")
		return
	}
	c.JSON(http.StatusOK, creator)
}

func (h *Handler) HandleListCreators(c *gin.Context) {
	ctx := c.Request.Context()

	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)

	creators, err := h.processor.ListCreators(ctx, c.Query("platform"), limit, offset)
	if err != nil {
		apierrors.InternalError(c, "An unexpected error occurred")
		return
	}
	c.JSON(http.StatusOK, gin.H{"creators": creators})
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
