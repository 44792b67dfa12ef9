package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"rewards_backend/internal/avatar"
	"rewards_backend/internal/chest"
	"rewards_backend/internal/domain"
	"rewards_backend/internal/events"
	"rewards_backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type fakeChests struct {
	taps chan bool
}

func (f *fakeChests) Interact(_ int64, id string, multi bool) (chest.State, bool, error) {
	if id != "s1" {
		return chest.State{}, false, service.ErrSessionNotFound
	}
	f.taps <- multi
	return chest.State{}, true, nil
}

func (f *fakeChests) Continue(_ int64, id string) (chest.State, bool, error) {
	return chest.State{}, false, service.ErrSessionNotFound
}

type received struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func startHub(t *testing.T) (*Hub, *fakeChests, *websocket.Conn) {
	t.Helper()
	chests := &fakeChests{taps: make(chan bool, 4)}
	loader := avatar.NewLoader(avatar.NewDirFetcher(t.TempDir()), avatar.WithCache(avatar.NewCache()))
	hub := NewHub(chests, loader)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	up := Upgrader("")
	r.GET("/ws", func(c *gin.Context) { Serve(hub, up, 7, c) })
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if msg := read(t, conn); msg.Type != MsgReady {
		t.Fatalf("expected ready, got %s", msg.Type)
	}
	return hub, chests, conn
}

func read(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var msg received
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestClientPingAndErrors(t *testing.T) {
	_, _, conn := startHub(t)

	conn.WriteJSON(map[string]any{"type": "ping"})
	if msg := read(t, conn); msg.Type != MsgPong {
		t.Fatalf("expected pong, got %s", msg.Type)
	}

	conn.WriteJSON(map[string]any{"type": "tap", "session_id": "missing"})
	msg := read(t, conn)
	if msg.Type != MsgError || !strings.Contains(string(msg.Payload), "not found") {
		t.Fatalf("expected not found error, got %s %s", msg.Type, msg.Payload)
	}

	conn.WriteJSON(map[string]any{"type": "dance"})
	if msg := read(t, conn); msg.Type != MsgError {
		t.Fatalf("expected error for unknown type, got %s", msg.Type)
	}
}

func TestClientTapReachesChest(t *testing.T) {
	hub, chests, conn := startHub(t)

	conn.WriteJSON(map[string]any{"type": "tap", "session_id": "s1", "multi": true})
	select {
	case multi := <-chests.taps:
		if !multi {
			t.Fatal("multi flag lost")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("tap not forwarded")
	}

	hub.PushChestState(7, "s1", chest.State{
		Phase: chest.PhaseOpened,
		Index: 1,
		Total: 2,
		Rewards: []domain.BundleItem{
			{Name: "crown2", Rarity: domain.RarityLegendary, Color: "#fbc531"},
			{Name: "hair3", Rarity: domain.RarityCommon, Color: "#44bd32"},
		},
	})
	msg := read(t, conn)
	if msg.Type != MsgChestState {
		t.Fatalf("expected chest_state, got %s", msg.Type)
	}
	var p ChestStatePayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.SessionID != "s1" || p.State.Phase != chest.PhaseOpened {
		t.Fatalf("unexpected payload %+v", p)
	}
	if p.Current == nil || p.Current.Name != "hair3" || p.Current.Color != "#44bd32" {
		t.Fatalf("expected hair3 on screen, got %+v", p.Current)
	}

	// other users never see it
	hub.PushChestState(8, "s2", chest.State{Phase: chest.PhaseIdle})
	if hub.Connections(8) != 0 {
		t.Fatal("user 8 has no sockets")
	}
}

func TestHubForwardsBusEvents(t *testing.T) {
	hub, _, conn := startHub(t)
	bus := events.NewLocalBus()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx, bus)

	// keep publishing until the subscription is in place
	go func() {
		ev, _ := events.New(events.LevelUp, 7, events.LevelUpPayload{Level: 4})
		for ctx.Err() == nil {
			bus.Publish(ctx, ev)
			time.Sleep(20 * time.Millisecond)
		}
	}()

	msg := read(t, conn)
	if msg.Type != MsgEvent {
		t.Fatalf("expected event, got %s", msg.Type)
	}
	var p struct {
		Kind events.Kind           `json:"kind"`
		Data events.LevelUpPayload `json:"data"`
	}
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Kind != events.LevelUp || p.Data.Level != 4 {
		t.Fatalf("unexpected event %+v", p)
	}
}

func TestAvatarPreviewSendsFinalFrame(t *testing.T) {
	_, _, conn := startHub(t)

	cfg := domain.DefaultAvatarConfig()
	conn.WriteJSON(map[string]any{"type": "avatar_preview", "config": cfg, "size": 64})

	msg := read(t, conn)
	if msg.Type != MsgAvatarFrame {
		t.Fatalf("expected avatar_frame, got %s", msg.Type)
	}
	var p AvatarFramePayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !p.Final || p.Generation != 1 || p.PNG == "" {
		t.Fatalf("unexpected first frame %+v", p)
	}
}
