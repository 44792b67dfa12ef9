package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"rewards_backend/internal/avatar"
	"rewards_backend/internal/catalog"
	"rewards_backend/internal/chest"
	"rewards_backend/internal/config"
	"rewards_backend/internal/domain"
	"rewards_backend/internal/events"
	httpserver "rewards_backend/internal/http"
	"rewards_backend/internal/http/handlers"
	"rewards_backend/internal/kv"
	"rewards_backend/internal/progress"
	"rewards_backend/internal/repository"
	"rewards_backend/internal/reward"
	"rewards_backend/internal/service"
	"rewards_backend/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
)

var testCatalog = fstest.MapFS{
	"common/index.json":    {Data: []byte(`[{"name":"Hair1","category":"hair","preview":"p"}]`)},
	"rare/index.json":      {Data: []byte(`[]`)},
	"epic/index.json":      {Data: []byte(`[]`)},
	"legendary/index.json": {Data: []byte(`[{"name":"Cape1","category":"accessory","preview":"p"},{"name":"Crown2","category":"accessory","preview":"p"}]`)},
}

// newServer wires the real repositories the way cmd/app does, minus Redis.
func newServer(t *testing.T, db *pgxpool.Pool) *httptest.Server {
	t.Helper()
	service.InitJWT("test-secret")

	users := repository.NewUserRepository(db)
	rewards := repository.NewRewardRepository(db)
	audit := service.NewAuditService(repository.NewAuditRepository(db))
	bus := events.NewLocalBus()
	cache := kv.NewMemoryStore()
	source := catalog.NewFSSource(testCatalog)
	loader := avatar.NewLoader(avatar.NewDirFetcher(t.TempDir()), avatar.WithCache(avatar.NewCache()))

	sampler := reward.NewSampler(domain.DefaultRarityTable(), source, rewards)
	recorder := reward.NewRecorder(rewards)

	var hub *ws.Hub
	chests := service.NewChestService(sampler, recorder, audit,
		service.WithStateListener(func(userID int64, id string, st chest.State) {
			hub.PushChestState(userID, id, st)
		}),
	)
	hub = ws.NewHub(chests, loader)

	checker := progress.NewChecker(repository.NewAchievementRepository(db), cache, bus)
	h := handlers.NewHandler(handlers.Deps{
		Catalog:  source,
		Rewards:  service.NewRewardService(rewards, sampler, recorder, audit),
		Chests:   chests,
		Avatars:  service.NewAvatarService(users, rewards, loader, audit),
		Progress: progress.NewService(users, checker, progress.NewLevelQueue(), bus, audit),
		Audit:    audit,
		Prefs:    cache,
		Bus:      bus,
		Hub:      hub,
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx, bus)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	httpserver.RegisterRoutes(r, h, handlers.NewHealthHandler(db, nil, "test"), &config.Config{APIRateLimit: 1000, APIRateWindow: 60})
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts
}

func call(t *testing.T, method, url, token, body string) (int, map[string]json.RawMessage) {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewBufferString(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	var out map[string]json.RawMessage
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestE2E_StarterAndWelcomeChest(t *testing.T) {
	db := openDB(t)
	u := createUser(t, db, domain.RoleStudent)
	ts := newServer(t, db)

	token, err := service.GenerateJWT(u.ID)
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	code, body := call(t, http.MethodPost, ts.URL+"/api/v1/rewards/starter", token, "")
	if code != http.StatusOK {
		t.Fatalf("starter status %d %s", code, body["error"])
	}

	conn, _, err := websocket.DefaultDialer.Dial(strings.Replace(ts.URL, "http", "ws", 1)+"/ws?token="+token, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// single reader goroutine so ReadJSON never runs concurrently
	msgs := make(chan map[string]json.RawMessage, 16)
	go func() {
		defer close(msgs)
		for {
			var m map[string]json.RawMessage
			if err := conn.ReadJSON(&m); err != nil {
				return
			}
			msgs <- m
		}
	}()
	waitFor := func(typ string) json.RawMessage {
		t.Helper()
		timeout := time.After(5 * time.Second)
		for {
			select {
			case m, ok := <-msgs:
				if !ok {
					t.Fatalf("socket closed waiting for %s", typ)
				}
				var got string
				_ = json.Unmarshal(m["type"], &got)
				if got == typ {
					return m["payload"]
				}
			case <-timeout:
				t.Fatalf("timed out waiting for %s", typ)
			}
		}
	}
	waitFor(ws.MsgReady)

	if code, _ := call(t, http.MethodPost, ts.URL+"/api/v1/chests", token, `{"trigger":"welcome"}`); code != http.StatusForbidden {
		t.Fatalf("welcome chest must not open directly, got %d", code)
	}
	code, body = call(t, http.MethodPost, ts.URL+"/api/v1/progress/tutorial/complete", token, "")
	if code != http.StatusOK {
		t.Fatalf("complete tutorial status %d %s", code, body["error"])
	}
	var sessionID string
	_ = json.Unmarshal(body["session_id"], &sessionID)

	var sess struct {
		Rarity domain.Rarity `json:"rarity"`
	}
	_ = json.Unmarshal(body["session"], &sess)
	if sess.Rarity != domain.RarityLegendary {
		t.Fatalf("welcome chest must be legendary, got %q", sess.Rarity)
	}

	// taps during the warm-up are ignored
	time.Sleep(chest.WarmUp + 50*time.Millisecond)
	if err := conn.WriteJSON(map[string]any{"type": "tap", "session_id": sessionID}); err != nil {
		t.Fatalf("tap: %v", err)
	}
	var p ws.ChestStatePayload
	if err := json.Unmarshal(waitFor(ws.MsgChestState), &p); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if p.SessionID != sessionID || p.State.Phase != chest.PhaseLidAnimating {
		t.Fatalf("unexpected chest state %+v", p)
	}

	code, _ = call(t, http.MethodDelete, ts.URL+"/api/v1/chests/"+sessionID, token, "")
	if code != http.StatusNoContent {
		t.Fatalf("discard status %d", code)
	}
}
