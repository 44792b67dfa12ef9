package handlers

import (
	"fmt"
	"net/http"

	"rewards_backend/internal/events"
	"rewards_backend/internal/logger"

	"github.com/gin-gonic/gin"
)

const (
	ThemeLight   = "light"
	ThemeDark    = "dark"
	DefaultTheme = ThemeLight
)

func themeKey(userID int64) string {
	return fmt.Sprintf("prefs:%d:theme", userID)
}

func (h *Handler) GetPreferences(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	theme, found, err := h.Prefs.Get(c.Request.Context(), themeKey(userID))
	if err != nil {
		logger.Warn("preferences unavailable", "user_id", userID, "error", err)
	}
	if !found || err != nil {
		theme = DefaultTheme
	}
	c.JSON(http.StatusOK, gin.H{"theme": theme})
}

type preferencesRequest struct {
	Theme string `json:"theme"`
}

func (h *Handler) SavePreferences(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req preferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.Theme != ThemeLight && req.Theme != ThemeDark {
		c.JSON(http.StatusBadRequest, gin.H{"error": "theme must be light or dark"})
		return
	}

	ctx := c.Request.Context()
	if err := h.Prefs.Set(ctx, themeKey(userID), req.Theme); err != nil {
		logger.Error("save preferences failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save preferences"})
		return
	}

	if ev, err := events.New(events.PreferencesChanged, userID, events.PreferencesPayload{Theme: req.Theme}); err == nil {
		if err := h.Bus.Publish(ctx, ev); err != nil {
			logger.Warn("preferences event not published", "user_id", userID, "error", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"theme": req.Theme})
}
