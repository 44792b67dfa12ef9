package domain

import (
	"errors"
	"fmt"
	"math"
)

// Rarity - уровень редкости награды
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// AllRarities returns all rarities ordered from lowest to highest.
func AllRarities() []Rarity {
	return []Rarity{RarityCommon, RarityRare, RarityEpic, RarityLegendary}
}

// Rank returns the ordinal of the rarity (common = 0). Unknown values rank -1.
func (r Rarity) Rank() int {
	for i, v := range AllRarities() {
		if v == r {
			return i
		}
	}
	return -1
}

func (r Rarity) Valid() bool {
	return r.Rank() >= 0
}

// DisplayName returns a human-readable label for the rarity.
func (r Rarity) DisplayName() string {
	switch r {
	case RarityCommon:
		return "Common"
	case RarityRare:
		return "Rare"
	case RarityEpic:
		return "Epic"
	case RarityLegendary:
		return "Legendary"
	default:
		return string(r)
	}
}

// RarityTier - вероятность выпадения и оформление одного уровня редкости
type RarityTier struct {
	Rarity      Rarity  `json:"rarity" yaml:"rarity"`
	Probability float64 `json:"probability" yaml:"probability"`
	Color       string  `json:"color" yaml:"color"`
	Aura        string  `json:"aura" yaml:"aura"`
}

// RarityTable holds one tier per rarity in ascending order.
type RarityTable []RarityTier

var ErrInvalidRarityTable = errors.New("invalid rarity table")

// DefaultRarityTable returns the stock draw probabilities and styling.
func DefaultRarityTable() RarityTable {
	return RarityTable{
		{Rarity: RarityCommon, Probability: 0.4, Color: "#44bd32", Aura: "rgba(68, 189, 50, 0.45)"},
		{Rarity: RarityRare, Probability: 0.3, Color: "#0097e6", Aura: "rgba(0, 151, 230, 0.5)"},
		{Rarity: RarityEpic, Probability: 0.2, Color: "#8c7ae6", Aura: "rgba(140, 122, 230, 0.6)"},
		{Rarity: RarityLegendary, Probability: 0.1, Color: "#fbc531", Aura: "rgba(251, 197, 49, 0.65)"},
	}
}

// Validate checks that every rarity appears once, in order, and that the
// probabilities sum to 1.
func (t RarityTable) Validate() error {
	all := AllRarities()
	if len(t) != len(all) {
		return fmt.Errorf("%w: expected %d tiers, got %d", ErrInvalidRarityTable, len(all), len(t))
	}
	sum := 0.0
	for i, tier := range t {
		if tier.Rarity != all[i] {
			return fmt.Errorf("%w: tier %d is %q, expected %q", ErrInvalidRarityTable, i, tier.Rarity, all[i])
		}
		if tier.Probability < 0 {
			return fmt.Errorf("%w: negative probability for %q", ErrInvalidRarityTable, tier.Rarity)
		}
		sum += tier.Probability
	}
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("%w: probabilities sum to %.4f", ErrInvalidRarityTable, sum)
	}
	return nil
}

// Pick maps r in [0,1) onto the cumulative distribution and returns the first
// tier whose cumulative probability is >= r.
func (t RarityTable) Pick(r float64) Rarity {
	cumulative := 0.0
	for _, tier := range t {
		cumulative += tier.Probability
		if r <= cumulative {
			return tier.Rarity
		}
	}
	// rounding: fall back to the last tier
	if len(t) == 0 {
		return RarityCommon
	}
	return t[len(t)-1].Rarity
}

// Tier returns styling for a rarity, falling back to the lowest tier.
func (t RarityTable) Tier(r Rarity) RarityTier {
	for _, tier := range t {
		if tier.Rarity == r {
			return tier
		}
	}
	if len(t) > 0 {
		return t[0]
	}
	return RarityTier{Rarity: r}
}
