package handlers

import (
	"net/http"

	"rewards_backend/internal/logger"
	"rewards_backend/internal/service"

	"github.com/gin-gonic/gin"
)

type openChestRequest struct {
	Trigger service.ChestTrigger `json:"trigger"`
	Level   int                  `json:"level"`
}

type interactRequest struct {
	Multi bool `json:"multi"`
}

func (h *Handler) OpenChest(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req openChestRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
	}
	if req.Trigger == "" {
		req.Trigger = service.TriggerLevel
	}

	// the welcome chest is opened by CompleteTutorial only
	switch req.Trigger {
	case service.TriggerLevel:
	case service.TriggerWelcome:
		c.JSON(http.StatusForbidden, gin.H{"error": "welcome chest opens with the tutorial"})
		return
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "trigger must be level"})
		return
	}

	level, ok := h.Progress.ClaimLevelChest(userID, req.Level)
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "no level-up chest to open"})
		return
	}

	sess, err := h.Chests.Open(c.Request.Context(), userID, service.TriggerLevel, level)
	if err != nil {
		h.Progress.ReleaseLevelChest(userID, level)
		logger.Error("open chest failed", "user_id", userID, "level", level, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "rewards unavailable"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"session_id": sess.ID,
		"session":    sess,
		"state":      sess.State(),
	})
}

func (h *Handler) GetChest(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	sess, err := h.Chests.Get(userID, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "chest session not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": sess.ID, "session": sess, "state": sess.State()})
}

func (h *Handler) InteractChest(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req interactRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
	}

	st, accepted, err := h.Chests.Interact(userID, c.Param("id"), req.Multi)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "chest session not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accepted": accepted, "state": st})
}

func (h *Handler) ContinueChest(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	st, accepted, err := h.Chests.Continue(userID, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "chest session not found"})
		return
	}
	if !accepted {
		c.JSON(http.StatusConflict, gin.H{"error": "chest is not ready to finish", "state": st})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": st})
}

func (h *Handler) DiscardChest(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.Chests.Discard(userID, c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "chest session not found"})
		return
	}
	c.Status(http.StatusNoContent)
}
