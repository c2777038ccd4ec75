package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AdalSuUygur/Akademi-Topluluk-Botu/internal/domain"
	"github.com/AdalSuUygur/Akademi-Topluluk-Botu/internal/ratelimit"
	"github.com/AdalSuUygur/Akademi-Topluluk-Botu/internal/store"
)

func errorJSON(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// writeError maps the service error taxonomy onto HTTP codes. Unknown errors
// become 500 without leaking detail.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidParameters):
		errorJSON(c, http.StatusBadRequest, "INVALID_PARAMETERS", err.Error())
	case errors.Is(err, ratelimit.ErrLimited):
		errorJSON(c, http.StatusTooManyRequests, "RATE_LIMITED", "too many challenges created, try again later")
	case errors.Is(err, store.ErrNoActiveChallenge):
		errorJSON(c, http.StatusNotFound, "NO_ACTIVE_CHALLENGE", "no active challenge")
	case errors.Is(err, store.ErrNotFound):
		errorJSON(c, http.StatusNotFound, "NOT_FOUND", "challenge not found")
	case errors.Is(err, store.ErrAlreadyEnrolled):
		errorJSON(c, http.StatusConflict, "ALREADY_ENROLLED", "user already has an active challenge")
	case errors.Is(err, store.ErrDuplicateMembership):
		errorJSON(c, http.StatusConflict, "DUPLICATE_MEMBERSHIP", "user already joined this challenge")
	case errors.Is(err, store.ErrNotJoinable):
		errorJSON(c, http.StatusConflict, "NOT_JOINABLE", "challenge is no longer recruiting")
	case errors.Is(err, store.ErrTeamFull):
		errorJSON(c, http.StatusConflict, "TEAM_FULL", "team is already full")
	case errors.Is(err, store.ErrNotCancellable):
		errorJSON(c, http.StatusConflict, "NOT_CANCELLABLE", "challenge can no longer be cancelled")
	case errors.Is(err, store.ErrForbidden):
		errorJSON(c, http.StatusForbidden, "FORBIDDEN", "only the creator can do this")
	default:
		h.log.Error("internal error", "error", err)
		errorJSON(c, http.StatusInternalServerError, "INTERNAL", "internal server error")
	}
}

func (h *Handler) HandleCreate(c *gin.Context) {
	var req struct {
		CreatorID     string `json:"creator_id"`
		Theme         string `json:"theme"`
		TeamSize      int    `json:"team_size"`
		DurationHours int    `json:"duration_hours"`
		Difficulty    string `json:"difficulty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	ch, err := h.svc.CreateChallenge(c.Request.Context(),
		domain.UserID(req.CreatorID), req.Theme, req.TeamSize, req.DurationHours, domain.Difficulty(req.Difficulty))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"challenge": ch})
}

func (h *Handler) HandleJoin(c *gin.Context) {
	var req struct {
		UserID      string `json:"user_id"`
		ChallengeID string `json:"challenge_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	if req.UserID == "" {
		errorJSON(c, http.StatusBadRequest, "BAD_REQUEST", "user_id required")
		return
	}

	res, err := h.svc.Join(c.Request.Context(), domain.UserID(req.UserID), domain.ChallengeID(req.ChallengeID))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"joined": res.Joined})
}

func (h *Handler) HandleStatus(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		errorJSON(c, http.StatusBadRequest, "BAD_REQUEST", "user_id required")
		return
	}

	st, err := h.svc.Status(c.Request.Context(), domain.UserID(userID))
	if err != nil {
		h.writeError(c, err)
		return
	}

	ch := st.Challenge
	c.JSON(http.StatusOK, gin.H{
		"challenge_id": ch.ID,
		"theme":        ch.Theme,
		"difficulty":   ch.Difficulty,
		"state":        ch.State,
		"degraded":     ch.Degraded,
		"team_size":    ch.TeamSize,
		"member_count": st.MemberCount,
		"workspace":    ch.WorkspaceRef,
		"closes_at":    ch.ClosesAt,
	})
}

func (h *Handler) HandleCancel(c *gin.Context) {
	var req struct {
		UserID      string `json:"user_id"`
		ChallengeID string `json:"challenge_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	if req.UserID == "" || req.ChallengeID == "" {
		errorJSON(c, http.StatusBadRequest, "BAD_REQUEST", "user_id and challenge_id required")
		return
	}

	if err := h.svc.Cancel(c.Request.Context(), domain.UserID(req.UserID), domain.ChallengeID(req.ChallengeID)); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"cancelled": true})
}

func (h *Handler) HandleSweep(c *gin.Context) {
	n, err := h.svc.CloseExpired(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"closed": n})
}
