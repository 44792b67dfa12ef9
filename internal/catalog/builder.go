package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"rewards_backend/internal/domain"
)

// Missing is a catalog item for which no preview image exists.
type Missing struct {
	Name     string
	Category string
}

// BuildResult holds the generated per-tier indexes.
type BuildResult struct {
	Tiers   map[domain.Rarity][]IndexItem
	Missing []Missing
	Skipped []string // items with an unknown rarity
}

// previewCandidates lists where a preview for the item may live, relative to
// the avatar asset root, in probe order.
func previewCandidates(category, name string) []string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	switch category {
	case "hair":
		return []string{
			"hair/male/previews/" + name,
			"hair/female/previews/" + name,
		}
	case "eyes":
		return []string{
			"face/eyes/male/previews/" + name,
			"face/eyes/female/previews/" + name,
			"face/eyes/previews/" + name,
		}
	case "mouth":
		return []string{"face/mouths/previews/" + name}
	case "nose":
		return []string{"face/noses/previews/" + name}
	case "clothing":
		var paths []string
		for _, suffix := range []string{".png", "_Fill.png"} {
			for _, kind := range []string{"shirts", "sweaters"} {
				for _, g := range []domain.Gender{domain.GenderMale, domain.GenderFemale} {
					paths = append(paths, fmt.Sprintf("clothes/%s/%s/previews/%s%s", g, kind, base, suffix))
				}
			}
		}
		return paths
	case "accessory":
		return []string{
			"face/glasses/previews/" + name,
			"accessories/previews/" + name,
		}
	}
	return nil
}

// BuildIndexes resolves a preview for every document item using exists and
// groups the found items by rarity. Output is sorted by name for stable files.
func BuildIndexes(doc Document, exists func(path string) bool) BuildResult {
	res := BuildResult{Tiers: make(map[domain.Rarity][]IndexItem)}
	for _, r := range domain.AllRarities() {
		res.Tiers[r] = []IndexItem{}
	}

	categories := make([]string, 0, len(doc))
	for c := range doc {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	for _, category := range categories {
		for name, rarity := range doc[category] {
			if !rarity.Valid() {
				res.Skipped = append(res.Skipped, name)
				continue
			}
			preview := ""
			for _, p := range previewCandidates(category, name) {
				if exists(p) {
					preview = p
					break
				}
			}
			if preview == "" {
				res.Missing = append(res.Missing, Missing{Name: name, Category: category})
				continue
			}
			res.Tiers[rarity] = append(res.Tiers[rarity], IndexItem{
				Name:     strings.TrimSuffix(name, filepath.Ext(name)),
				Category: category,
				Preview:  preview,
			})
		}
	}

	for r := range res.Tiers {
		items := res.Tiers[r]
		sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	}
	sort.Slice(res.Missing, func(i, j int) bool { return res.Missing[i].Name < res.Missing[j].Name })
	sort.Strings(res.Skipped)
	return res
}

// FileExists returns an exists func probing under root.
func FileExists(root string) func(string) bool {
	return func(p string) bool {
		st, err := os.Stat(filepath.Join(root, filepath.FromSlash(p)))
		return err == nil && !st.IsDir()
	}
}

// WriteIndexes writes {rarity}/index.json for every tier under dir.
func WriteIndexes(dir string, tiers map[domain.Rarity][]IndexItem) error {
	for _, r := range domain.AllRarities() {
		tierDir := filepath.Join(dir, string(r))
		if err := os.MkdirAll(tierDir, 0o755); err != nil {
			return err
		}
		items := tiers[r]
		if items == nil {
			items = []IndexItem{}
		}
		data, err := json.MarshalIndent(items, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(tierDir, "index.json"), data, 0o644); err != nil {
			return fmt.Errorf("write %s index: %w", r, err)
		}
	}
	return nil
}
