package reward

import (
	"context"
	"fmt"
	"math/rand/v2"

	"rewards_backend/internal/catalog"
	"rewards_backend/internal/domain"
)

// DefaultBundleSize is the number of rewards in a chest.
const DefaultBundleSize = 3

// Rand is the randomness the sampler needs.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
func (globalRand) IntN(n int) int   { return rand.IntN(n) }

// OwnedStore lists the reward names a user already unlocked.
type OwnedStore interface {
	OwnedNames(ctx context.Context, userID int64) ([]string, error)
}

type Sampler struct {
	table      domain.RarityTable
	source     catalog.Source
	owned      OwnedStore
	rng        Rand
	bundleSize int
}

type SamplerOption func(*Sampler)

func WithRand(r Rand) SamplerOption {
	return func(s *Sampler) { s.rng = r }
}

func WithBundleSize(n int) SamplerOption {
	return func(s *Sampler) {
		if n > 0 {
			s.bundleSize = n
		}
	}
}

func NewSampler(table domain.RarityTable, source catalog.Source, owned OwnedStore, opts ...SamplerOption) *Sampler {
	s := &Sampler{
		table:      table,
		source:     source,
		owned:      owned,
		rng:        globalRand{},
		bundleSize: DefaultBundleSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Draw produces a bundle of not-yet-owned rewards. An empty Rewards slice
// means the user owns every catalog item.
func (s *Sampler) Draw(ctx context.Context, userID int64, mode domain.DrawMode) (domain.Draw, error) {
	target := domain.RarityLegendary
	if mode != domain.DrawModeWelcome {
		target = s.table.Pick(s.rng.Float64())
	}

	names, err := s.owned.OwnedNames(ctx, userID)
	if err != nil {
		return domain.Draw{}, fmt.Errorf("load unlocked rewards: %w", err)
	}
	owned := make(map[string]struct{}, len(names))
	for _, n := range names {
		owned[catalog.NormalizeName(n)] = struct{}{}
	}

	eligible := eligibleByTier(catalog.Partition(ctx, s.source), owned)

	adjusted, ok := nearestAvailable(eligible, target)
	if !ok {
		return domain.Draw{Rarity: target, Rewards: []domain.BundleItem{}}, nil
	}

	return domain.Draw{
		Rarity:  adjusted,
		Rewards: s.build(eligible, adjusted, owned),
	}, nil
}

// eligibleByTier drops owned items and same-name duplicates inside each tier.
func eligibleByTier(parts map[domain.Rarity][]domain.CatalogEntry, owned map[string]struct{}) map[domain.Rarity][]domain.CatalogEntry {
	out := make(map[domain.Rarity][]domain.CatalogEntry, len(parts))
	for r, entries := range parts {
		seen := make(map[string]struct{}, len(entries))
		for _, e := range entries {
			key := catalog.NormalizeName(e.Name)
			if _, ok := owned[key]; ok {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out[r] = append(out[r], e)
		}
	}
	return out
}

// nearestAvailable returns target if it has items, otherwise the closest tier
// that does. At equal distance the higher tier wins.
func nearestAvailable(eligible map[domain.Rarity][]domain.CatalogEntry, target domain.Rarity) (domain.Rarity, bool) {
	all := domain.AllRarities()
	rank := target.Rank()
	if rank < 0 {
		rank = 0
	}
	if len(eligible[all[rank]]) > 0 {
		return all[rank], true
	}
	for d := 1; d < len(all); d++ {
		for _, i := range []int{rank + d, rank - d} {
			if i >= 0 && i < len(all) && len(eligible[all[i]]) > 0 {
				return all[i], true
			}
		}
	}
	return target, false
}

func (s *Sampler) build(eligible map[domain.Rarity][]domain.CatalogEntry, target domain.Rarity, owned map[string]struct{}) []domain.BundleItem {
	picked := make(map[string]struct{}, s.bundleSize)
	remaining := func(r domain.Rarity) []domain.CatalogEntry {
		var out []domain.CatalogEntry
		for _, e := range eligible[r] {
			if _, ok := picked[catalog.NormalizeName(e.Name)]; !ok {
				out = append(out, e)
			}
		}
		return out
	}

	var items []domain.BundleItem
	take := func(pool []domain.CatalogEntry) {
		e := pool[s.rng.IntN(len(pool))]
		picked[catalog.NormalizeName(e.Name)] = struct{}{}
		tier := s.table.Tier(e.Rarity)
		items = append(items, domain.BundleItem{
			Name:    e.Name,
			Preview: e.Preview,
			Rarity:  e.Rarity,
			Color:   tier.Color,
			Aura:    tier.Aura,
		})
	}

	take(remaining(target))

	for len(items) < s.bundleSize {
		var lower [][]domain.CatalogEntry
		for _, r := range domain.AllRarities()[:target.Rank()] {
			if pool := remaining(r); len(pool) > 0 {
				lower = append(lower, pool)
			}
		}
		if len(lower) > 0 {
			take(lower[s.rng.IntN(len(lower))])
			continue
		}
		if pool := remaining(target); len(pool) > 0 {
			take(pool)
			continue
		}
		break
	}

	return domain.SortBundle(finalize(items, owned))
}

// finalize removes duplicate names and anything already owned.
func finalize(items []domain.BundleItem, owned map[string]struct{}) []domain.BundleItem {
	seen := make(map[string]struct{}, len(items))
	out := make([]domain.BundleItem, 0, len(items))
	for _, it := range items {
		key := catalog.NormalizeName(it.Name)
		if _, ok := owned[key]; ok {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, it)
	}
	return out
}
