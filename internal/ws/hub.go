package ws

import (
	"context"
	"encoding/json"
	"sync"

	"rewards_backend/internal/avatar"
	"rewards_backend/internal/chest"
	"rewards_backend/internal/events"
	"rewards_backend/internal/logger"
)

// ChestController is implemented by service.ChestService.
type ChestController interface {
	Interact(userID int64, id string, multi bool) (chest.State, bool, error)
	Continue(userID int64, id string) (chest.State, bool, error)
}

// Hub tracks the open sockets of every user and fans out chest states and
// bus events to them.
type Hub struct {
	chests ChestController
	loader *avatar.Loader

	mu      sync.RWMutex
	clients map[int64]map[*Client]struct{}
}

func NewHub(chests ChestController, loader *avatar.Loader) *Hub {
	return &Hub{
		chests:  chests,
		loader:  loader,
		clients: make(map[int64]map[*Client]struct{}),
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.UserID] = set
	}
	set[c] = struct{}{}
	logger.Debug("ws client registered", "user_id", c.UserID, "connections", len(set))
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[c.UserID]
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.UserID)
	}
}

// Connections returns the number of open sockets of a user.
func (h *Hub) Connections(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// SendToUser queues msg on every socket of userID.
func (h *Hub) SendToUser(userID int64, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Error("ws marshal failed", "type", msg.Type, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.queue(data)
	}
}

// PushChestState matches service.StateListener.
func (h *Hub) PushChestState(userID int64, sessionID string, st chest.State) {
	payload := ChestStatePayload{SessionID: sessionID, State: st}
	if item, ok := st.Current(); ok {
		payload.Current = &item
	}
	h.SendToUser(userID, Message{Type: MsgChestState, Payload: payload})
}

// Run forwards bus events to the sockets of their users until ctx is done.
func (h *Hub) Run(ctx context.Context, bus events.Bus) {
	ch, cancel := bus.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			h.SendToUser(ev.UserID, Message{
				Type:    MsgEvent,
				Payload: EventPayload{Kind: ev.Kind, Data: ev.Payload},
			})
		}
	}
}
