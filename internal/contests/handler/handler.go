package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"fanforge-server/internal/apierrors"
	"fanforge-server/internal/contests/processor"
	"fanforge-server/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	leaderboardStreamInterval = 5 * time.Second
	fullSnapshotEvery         = 6
)

type Handler struct {
	processor *processor.ContestProcessor
	logger    *observability.Logger
}

func New(p *processor.ContestProcessor, logger *observability.Logger) Handler {
	return Handler{processor: p, logger: logger}
}

type CreateContestRequest struct {
	Name        string    `json:"name" binding:"required,min=3,max=100"`
	Description *string   `json:"description"`
	StartsAt    time.Time `json:"starts_at" binding:"required"`
	EndsAt      time.Time `json:"ends_at" binding:"required"`
}

type TransitionContestRequest struct {
	Status string `json:"status" binding:"required,oneof=active ended archived"`
}

type EnterVideoRequest struct {
	VideoID uuid.UUID `json:"video_id" binding:"required"`
}

func (h *Handler) HandleCreateContest(c *gin.Context) {
	ctx := c.Request.Context()
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}
	communityID, ok := h.getUUIDParam(c, "communityID")
	if !ok {
		return
	}

	var req CreateContestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			apierrors.ValidationError(c, err)
			return
		}
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	contest, err := h.processor.CreateContest(ctx, userID, processor.CreateContestParams{
		CommunityID: communityID,
		Name:        req.Name,
		Description: req.Description,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, contest)
}

func (h *Handler) HandleGetContest(c *gin.Context) {
	ctx := c.Request.Context()
	contestID, ok := h.getUUIDParam(c, "contestID")
	if !ok {
		return
	}

	contest, err := h.processor.GetContest(ctx, contestID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, contest)
}

func (h *Handler) HandleListContests(c *gin.Context) {
	ctx := c.Request.Context()
	communityID, ok := h.getUUIDParam(c, "communityID")
	if !ok {
		return
	}

	contests, err := h.processor.ListContests(ctx, communityID, intQuery(c, "limit", 50), intQuery(c, "offset", 0))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contests": contests})
}

func (h *Handler) HandleTransitionContest(c *gin.Context) {
	ctx := c.Request.Context()
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}
	contestID, ok := h.getUUIDParam(c, "contestID")
	if !ok {
		return
	}

	var req TransitionContestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			apierrors.ValidationError(c, err)
			return
		}
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	contest, err := h.processor.TransitionContest(ctx, userID, contestID, req.Status)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, contest)
}

func (h *Handler) HandleEnterVideo(c *gin.Context) {
	ctx := c.Request.Context()
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}
	contestID, ok := h.getUUIDParam(c, "contestID")
	if !ok {
		return
	}

	var req EnterVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			apierrors.ValidationError(c, err)
			return
		}
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	entry, err := h.processor.EnterVideo(ctx, userID, contestID, req.VideoID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (h *Handler) HandleListEntries(c *gin.Context) {
	ctx := c.Request.Context()
	contestID, ok := h.getUUIDParam(c, "contestID")
	if !ok {
		return
	}

	entries, err := h.processor.ListEntries(ctx, contestID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h *Handler) HandleGetLeaderboard(c *gin.Context) {
	ctx := c.Request.Context()
	contestID, ok := h.getUUIDParam(c, "contestID")
	if !ok {
		return
	}

	rows, err := h.processor.GetLeaderboard(ctx, contestID, intQuery(c, "limit", 25))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": rows})
}

func (h *Handler) HandleGetEntryStanding(c *gin.Context) {
	ctx := c.Request.Context()
	contestID, ok := h.getUUIDParam(c, "contestID")
	if !ok {
		return
	}
	entryID, ok := h.getUUIDParam(c, "entryID")
	if !ok {
		return
	}

	standing, err := h.processor.EntryStanding(ctx, contestID, entryID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"standing": standing})
}

// HandleLeaderboardStream upgrades to a websocket and pushes leaderboard
// snapshots until the client disconnects. The first snapshot is sent
// immediately so the UI renders without waiting a full tick.
func (h *Handler) HandleLeaderboardStream(c *gin.Context) {
	ctx := c.Request.Context()
	contestID, ok := h.getUUIDParam(c, "contestID")
	if !ok {
		return
	}

	if _, err := h.processor.GetContest(ctx, contestID); err != nil {
		h.handleError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error(ctx, "failed to upgrade websocket connection", err)
		return
	}
	defer conn.Close()

	ctx = observability.WithFields(ctx, observability.Field{Key: "contest_id", Value: contestID.String()})
	h.logger.Info(ctx, "leaderboard stream opened")

	// Reader goroutine: we never expect client messages, but reading is
	// what surfaces the close frame.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	limit := intQuery(c, "limit", 25)
	if err := h.writeSnapshot(c, conn, contestID, limit); err != nil {
		return
	}

	ticker := time.NewTicker(leaderboardStreamInterval)
	defer ticker.Stop()

	// Full snapshots come from Postgres every few ticks; between them the
	// cached zset serves cheap score updates when it is warm.
	tick := 0
	for {
		select {
		case <-done:
			h.logger.Info(ctx, "leaderboard stream closed by client")
			return
		case <-ticker.C:
			tick++
			if tick%fullSnapshotEvery != 0 {
				entries, err := h.processor.LiveScores(c.Request.Context(), contestID, limit)
				if err == nil && len(entries) > 0 {
					if err := conn.WriteJSON(gin.H{
						"type":       "scores",
						"contest_id": contestID,
						"scores":     entries,
						"sent_at":    time.Now().UTC(),
					}); err != nil {
						h.logger.InfoWithError(ctx, "leaderboard stream ended", err)
						return
					}
					continue
				}
			}
			if err := h.writeSnapshot(c, conn, contestID, limit); err != nil {
				h.logger.InfoWithError(ctx, "leaderboard stream ended", err)
				return
			}
		}
	}
}

func (h *Handler) writeSnapshot(c *gin.Context, conn *websocket.Conn, contestID uuid.UUID, limit int) error {
	rows, err := h.processor.GetLeaderboard(c.Request.Context(), contestID, limit)
	if err != nil {
		return err
	}
	return conn.WriteJSON(gin.H{
		"type":        "leaderboard",
		"contest_id":  contestID,
		"leaderboard": rows,
		"sent_at":     time.Now().UTC(),
	})
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

func (h *Handler) getUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		apierrors.BadRequest(c, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, processor.ErrContestNotFound):
		apierrors.NotFound(c, "Contest not found")
	case errors.Is(err, processor.ErrCommunityNotFound):
		apierrors.NotFound(c, "Community not found")
	case errors.Is(err, processor.ErrEntryNotFound):
		apierrors.NotFound(c, "Entry is not on this contest's leaderboard")
	case errors.Is(err, processor.ErrVideoNotFound):
		apierrors.NotFound(c, "Video not found")
	case errors.Is(err, processor.ErrNotCommunityOwner):
		apierrors.Forbidden(c, "Only the community owner can manage contests")
	case errors.Is(err, processor.ErrNotMember):
		apierrors.Forbidden(c, "Join the community before entering its contests")
	case errors.Is(err, processor.ErrContestNotActive):
		apierrors.Conflict(c, "Contest is not accepting entries")
	case errors.Is(err, processor.ErrDuplicateEntry):
		apierrors.Conflict(c, "Video is already entered in this contest")
	case errors.Is(err, processor.ErrInvalidSchedule), errors.Is(err, processor.ErrInvalidTransition):
		apierrors.BadRequest(c, err.Error())
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
