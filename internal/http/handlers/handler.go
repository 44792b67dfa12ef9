package handlers

import (
	"rewards_backend/internal/catalog"
	"rewards_backend/internal/domain"
	"rewards_backend/internal/events"
	"rewards_backend/internal/kv"
	"rewards_backend/internal/progress"
	"rewards_backend/internal/service"
	"rewards_backend/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Deps are the collaborators of Handler; main wires them.
type Deps struct {
	Catalog  catalog.Source
	Rarities domain.RarityTable
	Rewards  *service.RewardService
	Chests   *service.ChestService
	Avatars  *service.AvatarService
	Progress *progress.Service
	Audit    *service.AuditService
	Prefs    kv.Store
	Bus      events.Publisher
	Hub      *ws.Hub

	AllowedOrigin string
}

type Handler struct {
	Catalog  catalog.Source
	Rarities domain.RarityTable
	Rewards  *service.RewardService
	Chests   *service.ChestService
	Avatars  *service.AvatarService
	Progress *progress.Service
	Audit    *service.AuditService
	Prefs    kv.Store
	Bus      events.Publisher
	Hub      *ws.Hub

	upgrader websocket.Upgrader
}

func NewHandler(d Deps) *Handler {
	if d.Rarities == nil {
		d.Rarities = domain.DefaultRarityTable()
	}
	return &Handler{
		Catalog:  d.Catalog,
		Rarities: d.Rarities,
		Rewards:  d.Rewards,
		Chests:   d.Chests,
		Avatars:  d.Avatars,
		Progress: d.Progress,
		Audit:    d.Audit,
		Prefs:    d.Prefs,
		Bus:      d.Bus,
		Hub:      d.Hub,
		upgrader: ws.Upgrader(d.AllowedOrigin),
	}
}

// getUserID извлекает user_id из контекста Gin
func getUserID(c *gin.Context) (int64, bool) {
	uidVal, ok := c.Get("user_id")
	if !ok {
		return 0, false
	}
	switch v := uidVal.(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
