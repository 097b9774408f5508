package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"archloom/loom/internal/track"
)

var (
	statusJSON bool
	statusAll  bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show per-entity changes since the captured baseline",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := cfg.BuildLogger()
		if err != nil {
			return err
		}
		defer logger.Sync()

		db, err := openStore(cfg, logger, false)
		if err != nil {
			return err
		}
		defer db.Close()

		tracker, err := loadTracker(baselinePath(db.Path))
		if err != nil {
			return err
		}
		snap, err := db.Snapshot(cmd.Context())
		if err != nil {
			return err
		}

		records := tracker.Changes(snap)
		if !statusAll {
			filtered := records[:0]
			for _, rec := range records {
				if rec.Status != track.StatusUnchanged {
					filtered = append(filtered, rec)
				}
			}
			records = filtered
		}

		if statusJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(records)
		}

		if !tracker.HasBaseline() {
			fmt.Println("No baseline captured; every entity reads as added.")
		}
		if len(records) == 0 {
			fmt.Println("No changes since baseline.")
			return nil
		}
		for _, rec := range records {
			fmt.Printf("  %-9s %s\n", rec.Status, rec.SemanticID)
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")
	statusCmd.Flags().BoolVar(&statusAll, "all", false, "Include unchanged entities")
	rootCmd.AddCommand(statusCmd)
}
