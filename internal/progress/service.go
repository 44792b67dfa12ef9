package progress

import (
	"context"
	"errors"
	"fmt"

	"rewards_backend/internal/domain"
	"rewards_backend/internal/events"
	"rewards_backend/internal/logger"
)

var ErrInvalidXP = errors.New("xp must be positive")

// UserStore persists XP and tutorial state.
type UserStore interface {
	AddXP(ctx context.Context, userID int64, xp int64) (domain.XPResult, error)
	// MarkTutorialSeen returns false when the tutorial was already seen.
	MarkTutorialSeen(ctx context.Context, userID int64) (bool, error)
}

// Auditor records progress actions.
type Auditor interface {
	Log(ctx context.Context, userID int64, action, category string, details map[string]interface{})
}

type Service struct {
	users   UserStore
	checker *Checker
	queue   *LevelQueue
	bus     events.Publisher
	audit   Auditor
}

func NewService(users UserStore, checker *Checker, queue *LevelQueue, bus events.Publisher, audit Auditor) *Service {
	return &Service{users: users, checker: checker, queue: queue, bus: bus, audit: audit}
}

// XPOutcome is the result of ApplyXP.
type XPOutcome struct {
	domain.XPResult
	Achievements []domain.Achievement `json:"achievements"`
	// AnnouncedLevel is set when a LevelUp event was published now.
	AnnouncedLevel int   `json:"announced_level,omitempty"`
	PendingLevels  []int `json:"pending_levels,omitempty"`
}

// ApplyXP adds xp, awards level achievements and queues the level-up. The
// LevelUp event is published only when no achievement notification is open.
func (s *Service) ApplyXP(ctx context.Context, userID int64, xp int64) (XPOutcome, error) {
	if xp <= 0 {
		return XPOutcome{}, ErrInvalidXP
	}

	res, err := s.users.AddXP(ctx, userID, xp)
	if err != nil {
		return XPOutcome{}, fmt.Errorf("apply xp: %w", err)
	}
	out := XPOutcome{XPResult: res}
	s.audit.Log(ctx, userID, domain.AuditActionXPApplied, domain.AuditCategoryProgress, map[string]interface{}{
		"xp":    xp,
		"total": res.XP,
	})

	unlocked, err := s.checker.Check(ctx, userID, domain.AchievementKindLevel, res.Level)
	if err != nil {
		// the XP is already stored; achievements are re-checked on the next gain
		logger.Warn("level achievement check failed", "user_id", userID, "error", err)
	}
	out.Achievements = unlocked
	s.logAchievements(ctx, userID, unlocked)

	if res.LeveledUp() {
		s.queue.Push(userID, res.Level)
		s.audit.Log(ctx, userID, domain.AuditActionLevelUp, domain.AuditCategoryProgress, map[string]interface{}{
			"from": res.PreviousLevel,
			"to":   res.Level,
		})
	}
	s.queue.Hold(userID, len(unlocked))

	if level, ok := s.queue.Flush(userID); ok {
		s.announceLevel(ctx, userID, level)
		out.AnnouncedLevel = level
	}
	out.PendingLevels = s.queue.Pending(userID)
	return out, nil
}

// AckAchievements marks achievement notifications as seen and announces a
// held level-up, returning its level.
func (s *Service) AckAchievements(ctx context.Context, userID int64) (int, bool) {
	level, ok := s.queue.Ack(userID)
	if ok {
		s.announceLevel(ctx, userID, level)
	}
	return level, ok
}

// ClaimLevelChest consumes an announced level-up; the caller opens its chest.
func (s *Service) ClaimLevelChest(userID int64, level int) (int, bool) {
	return s.queue.Claim(userID, level)
}

// ReleaseLevelChest returns a claim whose chest failed to open.
func (s *Service) ReleaseLevelChest(userID int64, level int) {
	s.queue.Release(userID, level)
}

// TutorialOutcome reports what CompleteTutorial changed.
type TutorialOutcome struct {
	FirstTime    bool                 `json:"first_time"`
	Achievements []domain.Achievement `json:"achievements"`
}

// CompleteTutorial marks the tutorial as seen. Only the first completion
// awards the tutorial achievement; the caller opens the welcome chest.
func (s *Service) CompleteTutorial(ctx context.Context, userID int64) (TutorialOutcome, error) {
	changed, err := s.users.MarkTutorialSeen(ctx, userID)
	if err != nil {
		return TutorialOutcome{}, fmt.Errorf("mark tutorial: %w", err)
	}
	if !changed {
		return TutorialOutcome{}, nil
	}

	out := TutorialOutcome{FirstTime: true}
	unlocked, err := s.checker.Check(ctx, userID, domain.AchievementKindTutorial, 1)
	if err != nil {
		logger.Warn("tutorial achievement check failed", "user_id", userID, "error", err)
	}
	out.Achievements = unlocked
	s.logAchievements(ctx, userID, unlocked)
	s.audit.Log(ctx, userID, domain.AuditActionTutorialCompleted, domain.AuditCategoryProgress, nil)

	s.publish(ctx, events.TutorialStateChanged, userID, events.TutorialPayload{Seen: true})
	return out, nil
}

func (s *Service) announceLevel(ctx context.Context, userID int64, level int) {
	logger.Info("level up announced", "user_id", userID, "level", level)
	s.publish(ctx, events.LevelUp, userID, events.LevelUpPayload{Level: level})
}

func (s *Service) logAchievements(ctx context.Context, userID int64, unlocked []domain.Achievement) {
	for _, a := range unlocked {
		s.audit.Log(ctx, userID, domain.AuditActionAchievementUnlock, domain.AuditCategoryProgress, map[string]interface{}{
			"achievement_id": a.ID,
			"kind":           a.Kind,
		})
	}
}

func (s *Service) publish(ctx context.Context, kind events.Kind, userID int64, payload any) {
	ev, err := events.New(kind, userID, payload)
	if err == nil {
		err = s.bus.Publish(ctx, ev)
	}
	if err != nil {
		logger.Warn("event not published", "kind", kind, "user_id", userID, "error", err)
	}
}
