package reward

import (
	"context"
	"errors"
	"time"

	"rewards_backend/internal/catalog"
	"rewards_backend/internal/domain"
)

var ErrMissingUser = errors.New("user id is required")

// UnlockStore writes unlocked rewards; conflicting (user_id, name) rows are
// skipped and only newly written rows are returned.
type UnlockStore interface {
	UpsertUnlocked(ctx context.Context, rows []domain.UnlockedReward) ([]domain.UnlockedReward, error)
}

type Recorder struct {
	store UnlockStore
	now   func() time.Time
}

func NewRecorder(store UnlockStore) *Recorder {
	return &Recorder{store: store, now: time.Now}
}

// Record persists a bundle in one bulk upsert. Callers must not assume every
// item was newly written.
func (r *Recorder) Record(ctx context.Context, userID int64, items []domain.BundleItem) ([]domain.UnlockedReward, error) {
	if userID <= 0 {
		return nil, ErrMissingUser
	}
	if len(items) == 0 {
		return nil, nil
	}

	now := r.now().UTC()
	seen := make(map[string]struct{}, len(items))
	rows := make([]domain.UnlockedReward, 0, len(items))
	for _, it := range items {
		name := catalog.NormalizeName(it.Name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		rows = append(rows, domain.UnlockedReward{
			UserID:     userID,
			Name:       name,
			Rarity:     it.Rarity,
			Category:   InferCategory(name),
			UnlockedAt: now,
		})
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return r.store.UpsertUnlocked(ctx, rows)
}
