package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"rewards_backend/internal/chest"
	"rewards_backend/internal/domain"
	"rewards_backend/internal/logger"
	"rewards_backend/internal/metrics"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound = errors.New("chest session not found")
	ErrInvalidTrigger  = errors.New("invalid chest trigger")
)

// ChestTrigger says why a chest was opened.
type ChestTrigger string

const (
	TriggerLevel   ChestTrigger = "level"
	TriggerWelcome ChestTrigger = "welcome"
)

func (t ChestTrigger) mode() (domain.DrawMode, bool) {
	switch t {
	case TriggerLevel:
		return domain.DrawModeNormal, true
	case TriggerWelcome:
		return domain.DrawModeWelcome, true
	}
	return "", false
}

// SessionTTL is how long an unfinished chest session is kept in memory.
const SessionTTL = 15 * time.Minute

// Drawer is implemented by reward.Sampler.
type Drawer interface {
	Draw(ctx context.Context, userID int64, mode domain.DrawMode) (domain.Draw, error)
}

// RewardRecorder is implemented by reward.Recorder.
type RewardRecorder interface {
	Record(ctx context.Context, userID int64, items []domain.BundleItem) ([]domain.UnlockedReward, error)
}

// StateListener receives every state change of every session.
type StateListener func(userID int64, sessionID string, st chest.State)

// ChestSession is one chest opening owned by a user.
type ChestSession struct {
	ID        string        `json:"session_id"`
	UserID    int64         `json:"user_id"`
	Trigger   ChestTrigger  `json:"trigger"`
	Level     int           `json:"level,omitempty"`
	Rarity    domain.Rarity `json:"rarity"`
	CreatedAt time.Time     `json:"created_at"`

	seq *chest.Sequencer
}

// State returns the current sequencer state.
func (s *ChestSession) State() chest.State {
	return s.seq.State()
}

type ChestOption func(*ChestService)

func WithChestClock(c chest.Clock) ChestOption {
	return func(s *ChestService) { s.clock = c }
}

func WithStateListener(fn StateListener) ChestOption {
	return func(s *ChestService) { s.listener = fn }
}

// ChestService draws bundles and drives their reveal sequences.
type ChestService struct {
	drawer   Drawer
	recorder RewardRecorder
	audit    *AuditService
	clock    chest.Clock
	listener StateListener

	mu       sync.Mutex
	sessions map[string]*ChestSession
}

func NewChestService(drawer Drawer, recorder RewardRecorder, audit *AuditService, opts ...ChestOption) *ChestService {
	s := &ChestService{
		drawer:   drawer,
		recorder: recorder,
		audit:    audit,
		clock:    chest.RealClock,
		sessions: make(map[string]*ChestSession),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open draws a bundle and starts a new reveal session for it. The rewards
// are stored only when the sequence commits.
func (s *ChestService) Open(ctx context.Context, userID int64, trigger ChestTrigger, level int) (*ChestSession, error) {
	mode, ok := trigger.mode()
	if !ok {
		return nil, ErrInvalidTrigger
	}

	draw, err := s.drawer.Draw(ctx, userID, mode)
	if err != nil {
		return nil, fmt.Errorf("draw rewards: %w", err)
	}
	if len(draw.Rewards) == 0 {
		metrics.EmptyDraws.WithLabelValues(string(mode)).Inc()
	} else {
		metrics.Draws.WithLabelValues(string(mode), string(draw.Rarity)).Inc()
	}

	sess := &ChestSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		Trigger:   trigger,
		Level:     level,
		Rarity:    draw.Rarity,
		CreatedAt: s.clock.Now(),
	}
	sess.seq = chest.New(draw.Rewards, chest.Options{
		Clock:    s.clock,
		Persist:  s.persistFor(userID),
		OnChange: s.changeFor(userID, sess.ID),
		OnFinish: func() { s.drop(sess.ID) },
	})

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	metrics.ChestsOpened.WithLabelValues(string(trigger)).Inc()
	metrics.ActiveChests.Inc()

	s.audit.LogChestOpen(ctx, userID, sess.ID, trigger, draw)
	logger.Debug("chest opened", "user_id", userID, "session_id", sess.ID, "rarity", draw.Rarity, "items", len(draw.Rewards))
	return sess, nil
}

func (s *ChestService) persistFor(userID int64) chest.PersistFunc {
	return func(ctx context.Context, items []domain.BundleItem) error {
		stored, err := s.recorder.Record(ctx, userID, items)
		if err != nil {
			metrics.PersistFailures.Inc()
			return err
		}
		for _, r := range stored {
			metrics.RewardsUnlocked.WithLabelValues(string(r.Rarity)).Inc()
		}
		s.audit.LogRewardGrant(ctx, userID, domain.AuditActionRewardGrant, stored)
		return nil
	}
}

func (s *ChestService) changeFor(userID int64, id string) func(chest.State) {
	return func(st chest.State) {
		if s.listener != nil {
			s.listener(userID, id, st)
		}
	}
}

// Get returns a session owned by userID.
func (s *ChestService) Get(userID int64, id string) (*ChestSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || sess.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Interact forwards a tap and reports whether it changed the session.
func (s *ChestService) Interact(userID int64, id string, multi bool) (chest.State, bool, error) {
	sess, err := s.Get(userID, id)
	if err != nil {
		return chest.State{}, false, err
	}
	ok := sess.seq.Interact(multi)
	return sess.seq.State(), ok, nil
}

// Continue finishes a session from its summary. A finished session is
// removed.
func (s *ChestService) Continue(userID int64, id string) (chest.State, bool, error) {
	sess, err := s.Get(userID, id)
	if err != nil {
		return chest.State{}, false, err
	}
	ok := sess.seq.Continue()
	return sess.seq.State(), ok, nil
}

// Discard stops a session without finishing it. Rewards already committed
// stay stored.
func (s *ChestService) Discard(userID int64, id string) error {
	sess, err := s.Get(userID, id)
	if err != nil {
		return err
	}
	sess.seq.Close()
	s.drop(id)
	return nil
}

// Active returns the number of sessions in memory.
func (s *ChestService) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *ChestService) drop(id string) {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if ok {
		metrics.ActiveChests.Dec()
	}
}

// Sweep closes sessions older than ttl and returns how many were removed.
func (s *ChestService) Sweep(ttl time.Duration) int {
	now := s.clock.Now()
	var stale []*ChestSession
	s.mu.Lock()
	for _, sess := range s.sessions {
		if now.Sub(sess.CreatedAt) > ttl {
			stale = append(stale, sess)
		}
	}
	s.mu.Unlock()

	for _, sess := range stale {
		sess.seq.Close()
		s.drop(sess.ID)
	}
	return len(stale)
}

// StartCleanup sweeps abandoned sessions every minute until ctx is done.
func (s *ChestService) StartCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Sweep(SessionTTL); n > 0 {
					logger.Info("cleaned up chest sessions", "count", n)
				}
			}
		}
	}()
}
