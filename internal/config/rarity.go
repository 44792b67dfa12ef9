package config

import (
	"fmt"
	"os"

	"rewards_backend/internal/domain"

	"gopkg.in/yaml.v3"
)

type rarityFile struct {
	Tiers []domain.RarityTier `yaml:"tiers"`
}

// LoadRarityTable returns the default table when path is empty, otherwise the
// validated table from the YAML file.
func LoadRarityTable(path string) (domain.RarityTable, error) {
	if path == "" {
		return domain.DefaultRarityTable(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rarity file: %w", err)
	}
	return ParseRarityTable(data)
}

func ParseRarityTable(data []byte) (domain.RarityTable, error) {
	var f rarityFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rarity file: %w", err)
	}

	table := domain.RarityTable(f.Tiers)
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}
