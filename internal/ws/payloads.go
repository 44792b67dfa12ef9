package ws

import (
	"encoding/json"

	"rewards_backend/internal/chest"
	"rewards_backend/internal/domain"
	"rewards_backend/internal/events"
)

// Message is the envelope of every server message.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// client → server
type inbound struct {
	Type      string               `json:"type"`
	SessionID string               `json:"session_id,omitempty"`
	Multi     bool                 `json:"multi,omitempty"`
	Config    *domain.AvatarConfig `json:"config,omitempty"`
	Size      int                  `json:"size,omitempty"`
}

// server → client
type ChestStatePayload struct {
	SessionID string      `json:"session_id"`
	State     chest.State `json:"state"`

	// reward on screen while the chest is open
	Current *domain.BundleItem `json:"current,omitempty"`
}

type EventPayload struct {
	Kind events.Kind     `json:"kind"`
	Data json.RawMessage `json:"data,omitempty"`
}

type AvatarFramePayload struct {
	Generation uint64  `json:"generation"`
	Progress   float64 `json:"progress"`
	Final      bool    `json:"final"`
	PNG        string  `json:"png"` // base64
}

type ErrorPayload struct {
	Message string `json:"message"`
}
