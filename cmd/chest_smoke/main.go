package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"rewards_backend/internal/db"
	"rewards_backend/internal/domain"
	"rewards_backend/internal/repository"
	"rewards_backend/internal/service"
)

// Completes the tutorial of a fresh user on a running server, which opens
// the welcome chest, then drives the chest to the end over the websocket.
func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET not set")
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	pool := db.Connect(dsn)
	defer pool.Close()

	ctx := context.Background()
	u := &domain.User{Username: fmt.Sprintf("smoke%d", time.Now().Unix())}
	if err := repository.NewUserRepository(pool).Create(ctx, u); err != nil {
		log.Fatalf("create user: %v", err)
	}

	service.InitJWT(jwtSecret)
	token, err := service.GenerateJWT(u.ID)
	if err != nil {
		log.Fatalf("gen token: %v", err)
	}

	// use 127.0.0.1 to prefer IPv4 (avoid resolving to [::1])
	base := "127.0.0.1:" + port
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+base+"/ws?token="+token, nil)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// single reader goroutine, the main loop only consumes the channel
	msgs := make(chan map[string]json.RawMessage, 32)
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

	sessionID := completeTutorial(base, token)
	log.Printf("chest opened session=%s", sessionID)

	tap := func(kind string) {
		msg := map[string]any{"type": kind, "session_id": sessionID, "multi": true}
		if err := conn.WriteJSON(msg); err != nil {
			log.Fatalf("write %s: %v", kind, err)
		}
	}
	tap("tap")

	phase := ""
	deadline := time.After(30 * time.Second)
	ticker := time.NewTicker(900 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case m, ok := <-msgs:
			if !ok {
				log.Fatal("socket closed")
			}
			var typ string
			_ = json.Unmarshal(m["type"], &typ)
			if typ != "chest_state" {
				log.Printf("got %s: %s", typ, m["payload"])
				continue
			}
			var p struct {
				State struct {
					Phase       string `json:"phase"`
					Index       int    `json:"index"`
					CanContinue bool   `json:"can_continue"`
				} `json:"state"`
			}
			_ = json.Unmarshal(m["payload"], &p)
			log.Printf("state phase=%s index=%d", p.State.Phase, p.State.Index)
			phase = p.State.Phase
			if phase == "finished" {
				log.Println("smoke test finished")
				return
			}
			if p.State.CanContinue {
				tap("continue")
			}
		case <-ticker.C:
			// the summary may not accept continue until its list is shown
			if phase == "summarizing" || phase == "empty" {
				tap("continue")
			} else {
				tap("tap")
			}
		case <-deadline:
			log.Fatal("chest did not finish in time")
		}
	}
}

func completeTutorial(base, token string) string {
	req, err := http.NewRequest(http.MethodPost, "http://"+base+"/api/v1/progress/tutorial/complete", bytes.NewBufferString(""))
	if err != nil {
		log.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("complete tutorial: %v", err)
	}
	defer resp.Body.Close()

	var out struct {
		SessionID string `json:"session_id"`
		Error     string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		log.Fatalf("decode tutorial response: %v", err)
	}
	if resp.StatusCode != http.StatusOK || out.SessionID == "" {
		log.Fatalf("welcome chest not opened status=%d error=%s", resp.StatusCode, out.Error)
	}
	return out.SessionID
}
