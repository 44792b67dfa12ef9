package handlers

import (
	"net/http"

	"rewards_backend/internal/catalog"
	"rewards_backend/internal/domain"
	"rewards_backend/internal/logger"

	"github.com/gin-gonic/gin"
)

// CatalogTier returns the per-tier index with the tier's styling. An
// unavailable tier is served as an empty list.
func (h *Handler) CatalogTier(c *gin.Context) {
	rarity := domain.Rarity(c.Param("rarity"))
	if !rarity.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown rarity"})
		return
	}

	items, err := h.Catalog.TierIndex(c.Request.Context(), rarity)
	if err != nil {
		logger.Warn("catalog tier unavailable", "rarity", rarity, "error", err)
		items = []catalog.IndexItem{}
	}
	tier := h.Rarities.Tier(rarity)
	c.JSON(http.StatusOK, gin.H{
		"rarity": rarity,
		"label":  rarity.DisplayName(),
		"color":  tier.Color,
		"aura":   tier.Aura,
		"items":  items,
	})
}

func (h *Handler) ListRewards(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	rewards, err := h.Rewards.Unlocked(c.Request.Context(), userID)
	if err != nil {
		logger.Error("list rewards failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load rewards"})
		return
	}
	if rewards == nil {
		rewards = []domain.UnlockedReward{}
	}
	c.JSON(http.StatusOK, gin.H{"rewards": rewards, "count": len(rewards)})
}

// PreviewDraw samples a bundle without storing it.
func (h *Handler) PreviewDraw(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	mode := domain.DrawMode(c.DefaultQuery("mode", string(domain.DrawModeNormal)))
	if mode != domain.DrawModeNormal && mode != domain.DrawModeWelcome {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be normal or welcome"})
		return
	}

	draw, err := h.Rewards.Preview(c.Request.Context(), userID, mode)
	if err != nil {
		logger.Error("draw failed", "user_id", userID, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "rewards unavailable"})
		return
	}
	if draw.Rewards == nil {
		draw.Rewards = []domain.BundleItem{}
	}
	c.JSON(http.StatusOK, draw)
}

func (h *Handler) GrantStarter(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	granted, err := h.Rewards.GrantStarter(c.Request.Context(), userID)
	if err != nil {
		logger.Error("starter grant failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to grant starter pack"})
		return
	}
	if granted == nil {
		granted = []domain.UnlockedReward{}
	}
	c.JSON(http.StatusOK, gin.H{"granted": granted, "count": len(granted)})
}
