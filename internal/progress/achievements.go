package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"rewards_backend/internal/domain"
	"rewards_backend/internal/events"
	"rewards_backend/internal/kv"
	"rewards_backend/internal/logger"
)

// AchievementStore is the persistence the checker needs.
type AchievementStore interface {
	// ListReachable returns visible achievements of kind with target <= value.
	ListReachable(ctx context.Context, kind domain.AchievementKind, value int) ([]domain.Achievement, error)
	UnlockedIDs(ctx context.Context, userID int64) ([]string, error)
	// Unlock inserts user achievements idempotently and returns the ids that
	// were newly written.
	Unlock(ctx context.Context, userID int64, ids []string) ([]string, error)
}

type checkKey struct {
	userID int64
	kind   domain.AchievementKind
}

// Checker awards achievements. Concurrent checks for the same user and kind
// are collapsed: the later one returns nothing.
type Checker struct {
	store AchievementStore
	cache kv.Store
	bus   events.Publisher

	mu       sync.Mutex
	inFlight map[checkKey]struct{}
}

func NewChecker(store AchievementStore, cache kv.Store, bus events.Publisher) *Checker {
	return &Checker{
		store:    store,
		cache:    cache,
		bus:      bus,
		inFlight: make(map[checkKey]struct{}),
	}
}

func cachePrefix(userID int64) string {
	return fmt.Sprintf("achievements:%d:", userID)
}

func cacheKey(userID int64) string {
	return cachePrefix(userID) + "ids"
}

func (c *Checker) begin(k checkKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inFlight[k]; busy {
		return false
	}
	c.inFlight[k] = struct{}{}
	return true
}

func (c *Checker) end(k checkKey) {
	c.mu.Lock()
	delete(c.inFlight, k)
	c.mu.Unlock()
}

// Check awards every reachable achievement of kind the user does not have
// yet and returns the new ones.
func (c *Checker) Check(ctx context.Context, userID int64, kind domain.AchievementKind, value int) ([]domain.Achievement, error) {
	k := checkKey{userID: userID, kind: kind}
	if !c.begin(k) {
		logger.Debug("achievement check already running", "user_id", userID, "kind", kind)
		return nil, nil
	}
	defer c.end(k)

	candidates, err := c.store.ListReachable(ctx, kind, value)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	known := c.loadCache(ctx, userID)
	owned, err := c.store.UnlockedIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user achievements: %w", err)
	}
	for _, id := range owned {
		known[id] = struct{}{}
	}

	var ids []string
	byID := make(map[string]domain.Achievement, len(candidates))
	for _, a := range candidates {
		if _, ok := known[a.ID]; ok {
			continue
		}
		ids = append(ids, a.ID)
		byID[a.ID] = a
	}
	if len(ids) == 0 {
		c.saveCache(ctx, userID, known)
		return nil, nil
	}

	inserted, err := c.store.Unlock(ctx, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("unlock achievements: %w", err)
	}

	unlocked := make([]domain.Achievement, 0, len(inserted))
	for _, id := range inserted {
		known[id] = struct{}{}
		unlocked = append(unlocked, byID[id])
	}
	c.saveCache(ctx, userID, known)

	if len(unlocked) > 0 && kind != domain.AchievementKindTutorial {
		ev, err := events.New(events.AchievementsUnlocked, userID, events.AchievementsPayload{Achievements: unlocked})
		if err == nil {
			err = c.bus.Publish(ctx, ev)
		}
		if err != nil {
			logger.Warn("achievement event not published", "user_id", userID, "error", err)
		}
	}
	return unlocked, nil
}

func (c *Checker) loadCache(ctx context.Context, userID int64) map[string]struct{} {
	out := make(map[string]struct{})
	raw, ok, err := c.cache.Get(ctx, cacheKey(userID))
	if err != nil {
		logger.Warn("achievement cache read failed", "user_id", userID, "error", err)
		return out
	}
	if !ok {
		return out
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return out
	}
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func (c *Checker) saveCache(ctx context.Context, userID int64, known map[string]struct{}) {
	ids := make([]string, 0, len(known))
	for id := range known {
		ids = append(ids, id)
	}
	data, _ := json.Marshal(ids)
	if err := c.cache.Set(ctx, cacheKey(userID), string(data)); err != nil {
		logger.Warn("achievement cache write failed", "user_id", userID, "error", err)
	}
}

// Forget drops the cached achievement ids of a user.
func (c *Checker) Forget(ctx context.Context, userID int64) error {
	return c.cache.Clear(ctx, cachePrefix(userID))
}
