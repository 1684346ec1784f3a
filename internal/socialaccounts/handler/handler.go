package handler

import (
	"errors"
	"net/http"

	"fanforge-server/internal/apierrors"
	"fanforge-server/internal/observability"
	"fanforge-server/internal/socialaccounts/processor"
	"fanforge-server/internal/verification"

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

type ClaimAccountRequest struct {
	ProfileURL string `json:"profile_url" binding:"required,url"`
}

type TriggerVerificationRequest struct {
	RegenerateCode bool `json:"regenerate_code"`
}

// WebhookPayload is the vendor callback shape: the snapshot handle plus the
// scraped profile records.
type WebhookPayload struct {
	SnapshotID string           `json:"snapshot_id" binding:"required"`
	Records    []map[string]any `json:"records"`
}

func (h *Handler) HandleClaimAccount(c *gin.Context) {
	ctx := c.Request.Context()
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	var req ClaimAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			apierrors.ValidationError(c, err)
			return
		}
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	account, err := h.processor.ClaimAccount(ctx, userID, req.ProfileURL)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, account)
}

func (h *Handler) HandleListAccounts(c *gin.Context) {
	ctx := c.Request.Context()
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	accounts, err := h.processor.ListAccounts(ctx, userID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

func (h *Handler) HandleGetAccount(c *gin.Context) {
	ctx := c.Request.Context()
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}
	accountID, ok := h.getAccountID(c)
	if !ok {
		return
	}

	account, err := h.processor.GetAccount(ctx, userID, accountID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func (h *Handler) HandleDeleteAccount(c *gin.Context) {
	ctx := c.Request.Context()
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}
	accountID, ok := h.getAccountID(c)
	if !ok {
		return
	}

	if err := h.processor.DeleteAccount(ctx, userID, accountID); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) HandleTriggerVerification(c *gin.Context) {
	ctx := c.Request.Context()
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}
	accountID, ok := h.getAccountID(c)
	if !ok {
		return
	}

	var req TriggerVerificationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			apierrors.BadRequest(c, "Invalid request body")
			return
		}
	}

	account, err := h.processor.TriggerVerification(ctx, userID, accountID, req.RegenerateCode)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, account)
}

// HandlePollVerification blocks until the scrape finishes or the poll
// deadline elapses, then returns the account with its final status.
func (h *Handler) HandlePollVerification(c *gin.Context) {
	ctx := c.Request.Context()
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}
	accountID, ok := h.getAccountID(c)
	if !ok {
		return
	}

	account, err := h.processor.PollVerification(ctx, userID, accountID)
	if err != nil && !errors.Is(err, processor.ErrScrapeFailed) {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

// HandleWebhook receives the vendor callback with the finished snapshot.
// Authenticated by shared secret, not by user session.
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

	account, err := h.processor.CompleteFromWebhook(ctx, payload.SnapshotID, payload.Records)
	if err != nil {
		if errors.Is(err, processor.ErrAccountNotFound) {
			// Unknown snapshot, nothing to update. Acknowledge so the vendor
			// stops retrying.
			c.Status(http.StatusOK)
			return
		}
		h.handleError(c, err)
		return
	}

	h.logger.Info(ctx, "webhook processed")
	c.JSON(http.StatusOK, gin.H{"verification_status": account.VerificationStatus})
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

func (h *Handler) getAccountID(c *gin.Context) (uuid.UUID, bool) {
	accountID, err := uuid.Parse(c.Param("accountID"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid account ID")
		return uuid.Nil, false
	}
	return accountID, true
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, processor.ErrUnsupportedPlatform):
		apierrors.BadRequest(c, "Profile URL is not from a supported platform")
	case errors.Is(err, processor.ErrAccountNotFound):
		apierrors.NotFound(c, "Social account not found")
	case errors.Is(err, processor.ErrAccountNotOwned):
		apierrors.Forbidden(c, "Social account does not belong to you")
	case errors.Is(err, processor.ErrAccountAlreadyExists):
		apierrors.Conflict(c, "This profile has already been claimed")
	case errors.Is(err, processor.ErrAlreadyVerified):
		apierrors.Conflict(c, "Social account is already verified")
	case errors.Is(err, processor.ErrNoSnapshot):
		apierrors.BadRequest(c, "No verification in progress for this account")
	case errors.Is(err, verification.ErrVerificationTimeout):
		apierrors.GatewayTimeout(c, "Verification did not finish in time, try polling again")
	case errors.Is(err, processor.ErrVendorUnavailable):
		apierrors.ServiceUnavailable(c, "Profile scraping is unavailable right now, try again later")
	default:
		apierrors.InternalError(c, "An unexpected error occurred")
	}
}
