package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "catalog_index",
	Short: "Maintain the published reward catalog",
	Long:  "catalog_index builds the per-rarity index files from catalog.json and reports on them.",
}

func init() {
	rootCmd.PersistentFlags().String("catalog", "./rewards", "Catalog root holding catalog.json and the tier indexes")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(statsCmd)
}

func catalogDir(cmd *cobra.Command) string {
	dir, _ := cmd.Flags().GetString("catalog")
	return dir
}
