package domain

import (
	"sort"
	"time"
)

// RewardCategory groups rewards by the avatar slot they unlock.
type RewardCategory string

const (
	CategoryHair      RewardCategory = "hair"
	CategoryEyes      RewardCategory = "eyes"
	CategoryMouth     RewardCategory = "mouth"
	CategoryNose      RewardCategory = "nose"
	CategoryClothing  RewardCategory = "clothing"
	CategoryAccessory RewardCategory = "accessory"
	CategoryOther     RewardCategory = "other"
)

// CatalogEntry - элемент статического каталога наград
type CatalogEntry struct {
	Name     string         `json:"name"`
	Rarity   Rarity         `json:"rarity"`
	Category RewardCategory `json:"category"`
	Preview  string         `json:"preview"`
}

// UnlockedReward - награда, полученная пользователем.
// Unique per (user_id, name).
type UnlockedReward struct {
	UserID     int64          `db:"user_id" json:"user_id"`
	Name       string         `db:"name" json:"name"`
	Rarity     Rarity         `db:"rarity" json:"rarity"`
	Category   RewardCategory `db:"category" json:"category"`
	UnlockedAt time.Time      `db:"unlocked_at" json:"unlocked_at"`
}

// BundleItem is one reward inside a chest.
type BundleItem struct {
	Name    string `json:"name"`
	Preview string `json:"preview"`
	Rarity  Rarity `json:"rarity"`

	// styling of the rarity, for the reveal
	Color string `json:"color,omitempty"`
	Aura  string `json:"aura,omitempty"`
}

// DrawMode selects how the target rarity of a chest is chosen.
type DrawMode string

const (
	DrawModeNormal  DrawMode = "normal"
	DrawModeWelcome DrawMode = "welcome"
)

// Draw is the result of one sampling call. Empty Rewards means the user
// already owns everything.
type Draw struct {
	Rarity  Rarity       `json:"rarity"`
	Rewards []BundleItem `json:"rewards"`
}

// SortBundle orders items by descending rarity, keeping the draw order for ties.
func SortBundle(items []BundleItem) []BundleItem {
	sorted := make([]BundleItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Rarity.Rank() > sorted[j].Rarity.Rank()
	})
	return sorted
}
