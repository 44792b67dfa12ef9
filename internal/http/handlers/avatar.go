package handlers

import (
	"bytes"
	"errors"
	"image/png"
	"net/http"
	"strconv"

	"rewards_backend/internal/domain"
	"rewards_backend/internal/logger"
	"rewards_backend/internal/repository"
	"rewards_backend/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetAvatar(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	cfg, err := h.Avatars.Get(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		logger.Error("load avatar failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load avatar"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"avatar": cfg})
}

func (h *Handler) SaveAvatar(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var cfg domain.AvatarConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid avatar"})
		return
	}

	saved, err := h.Avatars.Save(c.Request.Context(), userID, cfg)
	if err != nil {
		var locked *service.LockedItemsError
		switch {
		case errors.As(err, &locked):
			c.JSON(http.StatusForbidden, gin.H{"error": "items not unlocked", "items": locked.Items})
		case errors.Is(err, service.ErrTeacherOnly):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrGenderRequired), errors.Is(err, service.ErrInvalidColor):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, repository.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		default:
			logger.Error("save avatar failed", "user_id", userID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save avatar"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"avatar": saved})
}

// RenderAvatar returns the saved avatar as a PNG. Missing layer assets are
// left out of the image.
func (h *Handler) RenderAvatar(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	size := 0
	if v := c.Query("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid size"})
			return
		}
		size = n
	}

	cfg, err := h.Avatars.Get(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load avatar"})
		return
	}

	img := h.Avatars.Render(c.Request.Context(), cfg, size)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		logger.Error("avatar encode failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "render failed"})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}
