package reward

import (
	"context"

	"rewards_backend/internal/domain"
)

// starterItems are granted once to every new user.
var starterItems = []string{
	"Hair1", "Hair2", "Hair3", "Hair4",
	"Eyes1", "Eyes2", "Eyes3", "Eyes4", "Eyes5", "Eyes6",
	"Nose1", "Nose2", "Nose3", "Nose4",
	"Mouth1", "Mouth2", "Mouth3", "Mouth4", "Mouth5", "Mouth6",
	"Shirt1", "Shirt2",
	"Sweater1", "Sweater2",
	"Glasses1", "Glasses2",
}

// StarterPack returns the common items every user starts with.
func StarterPack() []domain.BundleItem {
	items := make([]domain.BundleItem, len(starterItems))
	for i, name := range starterItems {
		items[i] = domain.BundleItem{Name: name, Rarity: domain.RarityCommon}
	}
	return items
}

// GrantStarter records the starter pack; repeated calls write nothing new.
func (r *Recorder) GrantStarter(ctx context.Context, userID int64) ([]domain.UnlockedReward, error) {
	return r.Record(ctx, userID, StarterPack())
}
