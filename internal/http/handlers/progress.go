package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"rewards_backend/internal/domain"
	"rewards_backend/internal/logger"
	"rewards_backend/internal/progress"
	"rewards_backend/internal/repository"
	"rewards_backend/internal/service"

	"github.com/gin-gonic/gin"
)

type xpRequest struct {
	XP int64 `json:"xp"`
}

func (h *Handler) ApplyXP(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req xpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	out, err := h.Progress.ApplyXP(c.Request.Context(), userID, req.XP)
	if err != nil {
		switch {
		case errors.Is(err, progress.ErrInvalidXP):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, repository.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		default:
			logger.Error("apply xp failed", "user_id", userID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to apply xp"})
		}
		return
	}
	if out.Achievements == nil {
		out.Achievements = []domain.Achievement{}
	}
	c.JSON(http.StatusOK, out)
}

// AckAchievements closes the achievement notification and announces a
// level-up held behind it.
func (h *Handler) AckAchievements(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	level, announced := h.Progress.AckAchievements(c.Request.Context(), userID)
	resp := gin.H{"announced": announced}
	if announced {
		resp["level"] = level
	}
	c.JSON(http.StatusOK, resp)
}

// CompleteTutorial marks the tutorial seen and, the first time, opens the
// welcome chest.
func (h *Handler) CompleteTutorial(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	ctx := c.Request.Context()
	out, err := h.Progress.CompleteTutorial(ctx, userID)
	if err != nil {
		logger.Error("complete tutorial failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to complete tutorial"})
		return
	}

	resp := gin.H{"first_time": out.FirstTime, "achievements": out.Achievements}
	if out.Achievements == nil {
		resp["achievements"] = []domain.Achievement{}
	}
	if out.FirstTime {
		sess, err := h.Chests.Open(ctx, userID, service.TriggerWelcome, 0)
		if err != nil {
			// the tutorial is stored either way
			logger.Warn("welcome chest not opened", "user_id", userID, "error", err)
		} else {
			resp["session_id"] = sess.ID
			resp["session"] = sess
			resp["state"] = sess.State()
		}
	}
	c.JSON(http.StatusOK, resp)
}

// History returns the user's reward and progress audit trail.
func (h *Handler) History(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	var (
		logs []*domain.AuditLog
		err  error
	)
	switch category := c.Query("category"); category {
	case "":
		logs, err = h.Audit.GetUserAuditLogs(c.Request.Context(), userID, limit)
	case domain.AuditCategoryReward, domain.AuditCategoryProgress, domain.AuditCategoryAvatar:
		logs, err = h.Audit.GetUserLogsByCategory(c.Request.Context(), userID, category, limit)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category"})
		return
	}
	if err != nil {
		logger.Error("load history failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}
	if logs == nil {
		logs = []*domain.AuditLog{}
	}
	c.JSON(http.StatusOK, gin.H{"history": logs})
}
