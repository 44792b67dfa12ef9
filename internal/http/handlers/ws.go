package handlers

import (
	"net/http"

	"rewards_backend/internal/ws"

	"github.com/gin-gonic/gin"
)

// WS upgrades to the live socket. JWT runs first and accepts ?token=.
func (h *Handler) WS(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	ws.Serve(h.Hub, h.upgrader, userID, c)
}
