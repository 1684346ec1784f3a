package handler

import (
	"errors"
	"net/http"
	"strconv"

	"fanforge-server/internal/apierrors"
	"fanforge-server/internal/communities/processor"
	"fanforge-server/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Handler struct {
	processor processor.Processor
	logger    *observability.Logger
}

func New(p processor.Processor, logger *observability.Logger) Handler {
	return Handler{processor: p, logger: logger}
}

type CreateCommunityRequest struct {
	Name        string  `json:"name" binding:"required,min=3,max=100"`
	Description *string `json:"description"`
}

func (h *Handler) HandleCreateCommunity(c *gin.Context) {
	ctx := c.Request.Context()
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	var req CreateCommunityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			apierrors.ValidationError(c, err)
			return
		}
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	community, err := h.processor.CreateCommunity(ctx, userID, req.Name, req.Description)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, community)
}

func (h *Handler) HandleGetCommunity(c *gin.Context) {
	ctx := c.Request.Context()
	communityID, ok := h.getCommunityID(c)
	if !ok {
		return
	}

	community, err := h.processor.GetCommunity(ctx, communityID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, community)
}

func (h *Handler) HandleListCommunities(c *gin.Context) {
	ctx := c.Request.Context()

	communities, err := h.processor.ListCommunities(ctx, intQuery(c, "limit", 50), intQuery(c, "offset", 0))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"communities": communities})
}

func (h *Handler) HandleJoinCommunity(c *gin.Context) {
	ctx := c.Request.Context()
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}
	communityID, ok := h.getCommunityID(c)
	if !ok {
		return
	}

	member, err := h.processor.JoinCommunity(ctx, communityID, userID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

func (h *Handler) HandleLeaveCommunity(c *gin.Context) {
	ctx := c.Request.Context()
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}
	communityID, ok := h.getCommunityID(c)
	if !ok {
		return
	}

	if err := h.processor.LeaveCommunity(ctx, communityID, userID); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) HandleListMembers(c *gin.Context) {
	ctx := c.Request.Context()
	communityID, ok := h.getCommunityID(c)
	if !ok {
		return
	}

	members, err := h.processor.ListMembers(ctx, communityID, intQuery(c, "limit", 100), intQuery(c, "offset", 0))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
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

func (h *Handler) getCommunityID(c *gin.Context) (uuid.UUID, bool) {
	communityID, err := uuid.Parse(c.Param("communityID"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid community ID")
		return uuid.Nil, false
	}
	return communityID, true
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, processor.ErrCommunityNotFound):
		apierrors.NotFound(c, "Community not found")
	case errors.Is(err, processor.ErrNotMember):
		apierrors.NotFound(c, "Membership not found")
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
