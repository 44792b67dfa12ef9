package main

import (
	"fmt"
	"sort"

	"rewards_backend/internal/catalog"
	"rewards_backend/internal/domain"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show item counts per rarity and category",
	RunE: func(cmd *cobra.Command, args []string) error {
		tiers := catalog.Partition(cmd.Context(), catalog.NewDirSource(catalogDir(cmd)))
		out := cmd.OutOrStdout()

		total := 0
		for _, r := range domain.AllRarities() {
			byCategory := make(map[domain.RewardCategory]int)
			for _, e := range tiers[r] {
				byCategory[e.Category]++
			}
			fmt.Fprintf(out, "%s: %d\n", r, len(tiers[r]))
			categories := make([]string, 0, len(byCategory))
			for c := range byCategory {
				categories = append(categories, string(c))
			}
			sort.Strings(categories)
			for _, c := range categories {
				fmt.Fprintf(out, "  %-10s %d\n", c, byCategory[domain.RewardCategory(c)])
			}
			total += len(tiers[r])
		}
		fmt.Fprintf(out, "total: %d\n", total)
		return nil
	},
}
