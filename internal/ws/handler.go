package ws

import (
	"net/http"

	"rewards_backend/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Upgrader only checks the Origin header when allowedOrigin is set.
func Upgrader(allowedOrigin string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" {
				return true
			}
			return r.Header.Get("Origin") == allowedOrigin
		},
	}
}

// Serve upgrades the request and runs a client for userID on it.
func Serve(hub *Hub, upgrader websocket.Upgrader, userID int64, c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("ws upgrade error", "user_id", userID, "error", err)
		return
	}

	client := NewClient(userID, conn, hub)
	go client.Run()
}
