package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"rewards_backend/internal/domain"
	"rewards_backend/internal/logger"
)

// Kind names a cross-component notification.
type Kind string

const (
	AchievementsUnlocked Kind = "achievements_unlocked"
	LevelUp              Kind = "level_up"
	PreferencesChanged   Kind = "preferences_changed"
	TutorialStateChanged Kind = "tutorial_state_changed"
)

type Event struct {
	Kind    Kind            `json:"kind"`
	UserID  int64           `json:"user_id"`
	Payload json.RawMessage `json:"payload,omitempty"`
	At      time.Time       `json:"at"`
}

// Payloads
type AchievementsPayload struct {
	Achievements []domain.Achievement `json:"achievements"`
}

type LevelUpPayload struct {
	Level int `json:"level"`
}

type PreferencesPayload struct {
	Theme string `json:"theme"`
}

type TutorialPayload struct {
	Seen bool `json:"seen"`
}

// New builds an event with a JSON payload.
func New(kind Kind, userID int64, payload any) (Event, error) {
	ev := Event{Kind: kind, UserID: userID, At: time.Now().UTC()}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Event{}, err
		}
		ev.Payload = data
	}
	return ev, nil
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type Bus interface {
	Publisher
	// Subscribe returns a channel receiving events of the given kinds (all
	// kinds when none are given) and a function that cancels the subscription.
	Subscribe(kinds ...Kind) (<-chan Event, func())
}

const subscriberBuffer = 64

type subscription struct {
	ch    chan Event
	kinds map[Kind]struct{}
}

func (s *subscription) wants(k Kind) bool {
	if len(s.kinds) == 0 {
		return true
	}
	_, ok := s.kinds[k]
	return ok
}

// LocalBus is an in-process pub/sub. Slow subscribers drop events instead of
// blocking publishers.
type LocalBus struct {
	mu   sync.RWMutex
	seq  int
	subs map[int]*subscription
}

func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[int]*subscription)}
}

func (b *LocalBus) Publish(_ context.Context, ev Event) error {
	b.deliver(ev)
	return nil
}

func (b *LocalBus) deliver(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs {
		if !s.wants(ev.Kind) {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			logger.Warn("event dropped for slow subscriber", "kind", ev.Kind, "user_id", ev.UserID)
		}
	}
}

func (b *LocalBus) Subscribe(kinds ...Kind) (<-chan Event, func()) {
	s := &subscription{ch: make(chan Event, subscriberBuffer), kinds: make(map[Kind]struct{}, len(kinds))}
	for _, k := range kinds {
		s.kinds[k] = struct{}{}
	}

	b.mu.Lock()
	b.seq++
	id := b.seq
	b.subs[id] = s
	b.mu.Unlock()

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(s.ch)
		})
	}
}
