package ws

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"sync"
	"time"

	"rewards_backend/internal/avatar"
	"rewards_backend/internal/domain"
	"rewards_backend/internal/logger"
	"rewards_backend/internal/service"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second

	maxMessageSize = 4096
	sendBuffer     = 256

	// frameInterval paces crossfade frames of a live preview.
	frameInterval = 40 * time.Millisecond
)

type Client struct {
	UserID int64
	Conn   *websocket.Conn
	Send   chan []byte
	Hub    *Hub
	Done   chan struct{}

	closeOnce sync.Once

	previewMu   sync.Mutex
	preview     *avatar.Compositor
	previewSize int
}

func NewClient(userID int64, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, sendBuffer),
		Hub:    hub,
		Done:   make(chan struct{}),
	}
}

// Run serves the connection until the peer goes away.
func (c *Client) Run() {
	go c.writePump()
	c.Hub.register(c)
	c.sendMessage(Message{Type: MsgReady})

	c.readPump()
}

func (c *Client) readPump() {
	defer c.disconnect()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("ws read error", "user_id", c.UserID, "error", err)
			}
			return
		}
		c.handle(msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case <-c.Done:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case msg := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Debug("ws write failed", "user_id", c.UserID, "error", err)
				c.disconnect()
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.disconnect()
				return
			}
		}
	}
}

func (c *Client) disconnect() {
	c.closeOnce.Do(func() {
		c.Hub.unregister(c)
		close(c.Done)

		c.previewMu.Lock()
		if c.preview != nil {
			c.preview.Close()
			c.preview = nil
		}
		c.previewMu.Unlock()
		_ = c.Conn.Close()
	})
}

// queue never blocks; a socket that cannot keep up loses messages.
func (c *Client) queue(data []byte) {
	select {
	case <-c.Done:
	case c.Send <- data:
	default:
		logger.Warn("ws send buffer full, dropping message", "user_id", c.UserID)
	}
}

func (c *Client) sendMessage(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Error("ws marshal failed", "type", msg.Type, "error", err)
		return
	}
	c.queue(data)
}

func (c *Client) sendError(text string) {
	c.sendMessage(Message{Type: MsgError, Payload: ErrorPayload{Message: text}})
}

func (c *Client) handle(raw []byte) {
	var msg inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("invalid message")
		return
	}

	switch msg.Type {
	case MsgPing:
		c.sendMessage(Message{Type: MsgPong})

	case MsgTap:
		// state changes reach the socket through the chest listener
		if _, _, err := c.Hub.chests.Interact(c.UserID, msg.SessionID, msg.Multi); err != nil {
			c.sendError(chestError(err))
		}

	case MsgContinue:
		if _, _, err := c.Hub.chests.Continue(c.UserID, msg.SessionID); err != nil {
			c.sendError(chestError(err))
		}

	case MsgAvatarPreview:
		if msg.Config == nil {
			c.sendError("config required")
			return
		}
		c.previewAvatar(*msg.Config, msg.Size)

	default:
		c.sendError("unknown message type")
	}
}

func chestError(err error) string {
	if errors.Is(err, service.ErrSessionNotFound) {
		return "chest session not found"
	}
	return "chest unavailable"
}

// compositor returns the socket's preview compositor for size. A new one
// warms the cache with cfg's hair and garments in both genders.
func (c *Client) compositor(size int, cfg domain.AvatarConfig) *avatar.Compositor {
	c.previewMu.Lock()
	defer c.previewMu.Unlock()

	select {
	case <-c.Done:
		return nil
	default:
	}
	if c.preview != nil && c.previewSize == size {
		return c.preview
	}
	if c.preview != nil {
		old := c.preview
		go old.Close()
	}
	c.preview = avatar.NewCompositor(c.Hub.loader, size)
	c.previewSize = size
	c.preview.Warm(cfg)
	return c.preview
}

// previewAvatar commits cfg on this socket's compositor and streams the
// resulting frames. Until the new stack is ready nothing is sent, so the
// client keeps showing the previous frame.
func (c *Client) previewAvatar(cfg domain.AvatarConfig, size int) {
	cfg = service.Normalize(cfg)
	comp := c.compositor(service.ClampSize(size), cfg)
	if comp == nil {
		return
	}
	done := comp.Update(cfg)

	go func() {
		select {
		case <-done:
		case <-c.Done:
			return
		}
		c.streamFrames(comp)
	}()
}

func (c *Client) streamFrames(comp *avatar.Compositor) {
	snap, ok := comp.Visible()
	if !ok {
		return
	}
	start, fading := comp.FadeStart()
	if !fading {
		c.sendFrame(snap.Generation, 1, comp.Frame(time.Now()))
		return
	}

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()
	for {
		now := time.Now()
		progress := float64(now.Sub(start)) / float64(avatar.CrossfadeDuration)
		if progress > 1 {
			progress = 1
		}
		c.sendFrame(snap.Generation, progress, comp.Frame(now))
		if progress >= 1 {
			return
		}

		select {
		case <-c.Done:
			return
		case <-ticker.C:
		}
		// a newer commit streams its own frames
		if cur, ok := comp.Visible(); !ok || cur.Generation != snap.Generation {
			return
		}
	}
}

func (c *Client) sendFrame(gen uint64, progress float64, img image.Image) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		logger.Error("avatar frame encode failed", "user_id", c.UserID, "error", err)
		return
	}
	c.sendMessage(Message{
		Type: MsgAvatarFrame,
		Payload: AvatarFramePayload{
			Generation: gen,
			Progress:   progress,
			Final:      progress >= 1,
			PNG:        base64.StdEncoding.EncodeToString(buf.Bytes()),
		},
	})
}
