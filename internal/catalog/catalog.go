package catalog

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"rewards_backend/internal/domain"
	"rewards_backend/internal/logger"
)

// DocumentFile is the catalog document name under the catalog root.
const DocumentFile = "catalog.json"

var ErrNotFound = errors.New("catalog resource not found")

var extPattern = regexp.MustCompile(`\.[^/.]+$`)

// NormalizeName lower-cases a reward name and strips its file extension.
func NormalizeName(name string) string {
	return strings.ToLower(extPattern.ReplaceAllString(strings.TrimSpace(name), ""))
}

// Document maps category -> item file name -> rarity.
type Document map[string]map[string]domain.Rarity

// IndexItem - одна запись в {rarity}/index.json
type IndexItem struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Preview  string `json:"preview"`
}

// Source serves the published catalog.
type Source interface {
	Document(ctx context.Context) (Document, error)
	TierIndex(ctx context.Context, rarity domain.Rarity) ([]IndexItem, error)
}

// Partition fetches every tier index. A failed tier degrades to an empty set.
func Partition(ctx context.Context, src Source) map[domain.Rarity][]domain.CatalogEntry {
	out := make(map[domain.Rarity][]domain.CatalogEntry, len(domain.AllRarities()))
	for _, r := range domain.AllRarities() {
		items, err := src.TierIndex(ctx, r)
		if err != nil {
			logger.Warn("catalog tier unavailable", "rarity", r, "error", err)
			out[r] = nil
			continue
		}
		entries := make([]domain.CatalogEntry, 0, len(items))
		for _, it := range items {
			if strings.TrimSpace(it.Name) == "" {
				continue
			}
			entries = append(entries, domain.CatalogEntry{
				Name:     it.Name,
				Rarity:   r,
				Category: domain.RewardCategory(it.Category),
				Preview:  it.Preview,
			})
		}
		out[r] = entries
	}
	return out
}

// indexPath is the per-tier index location relative to the catalog root.
func indexPath(r domain.Rarity) string {
	return string(r) + "/index.json"
}
