package main

import (
	"fmt"

	"rewards_backend/internal/catalog"
	"rewards_backend/internal/domain"

	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Regenerate {rarity}/index.json from catalog.json",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := catalogDir(cmd)
		assets, _ := cmd.Flags().GetString("assets")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		doc, err := catalog.NewDirSource(dir).Document(cmd.Context())
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}

		res := catalog.BuildIndexes(doc, catalog.FileExists(assets))
		out := cmd.OutOrStdout()
		for _, m := range res.Missing {
			fmt.Fprintf(out, "no preview: %s (%s)\n", m.Name, m.Category)
		}
		for _, name := range res.Skipped {
			fmt.Fprintf(out, "unknown rarity: %s\n", name)
		}
		for _, r := range domain.AllRarities() {
			fmt.Fprintf(out, "%-10s %d\n", r, len(res.Tiers[r]))
		}

		if dryRun {
			return nil
		}
		if err := catalog.WriteIndexes(dir, res.Tiers); err != nil {
			return err
		}
		fmt.Fprintf(out, "indexes written to %s\n", dir)
		return nil
	},
}

func init() {
	buildCmd.Flags().String("assets", "./assets/avatar", "Avatar asset root probed for previews")
	buildCmd.Flags().Bool("dry-run", false, "Report without writing index files")
}
