package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"archloom/loom/internal/model"
	"archloom/loom/internal/track"
)

var baselineReset bool

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Capture the current graph as the comparison baseline for status",
	Long: `Snapshots the current graph and writes it to <database>.baseline.json
next to the database file, so later status invocations can diff against it.
--reset deletes that file; status then reports every entity as added.`,
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

		path := baselinePath(db.Path)
		if baselineReset {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("removing baseline: %w", err)
			}
			fmt.Println("Baseline reset.")
			return nil
		}

		snap, err := db.Snapshot(cmd.Context())
		if err != nil {
			return err
		}
		if err := saveBaseline(path, snap); err != nil {
			return err
		}
		fmt.Printf("Baseline captured: %d node(s), %d edge(s)\n", len(snap.Nodes), len(snap.Edges))
		return nil
	},
}

func init() {
	baselineCmd.Flags().BoolVar(&baselineReset, "reset", false, "Discard the captured baseline")
	rootCmd.AddCommand(baselineCmd)
}

// baselineDoc is the on-disk baseline format, stored next to the database.
type baselineDoc struct {
	Nodes []*model.Node `json:"nodes"`
	Edges []model.Edge  `json:"edges"`
}

func baselinePath(dbPath string) string {
	return dbPath + ".baseline.json"
}

func saveBaseline(path string, snap *model.Snapshot) error {
	doc := baselineDoc{Edges: snap.Edges}
	for _, id := range snap.NodeIDs() {
		doc.Nodes = append(doc.Nodes, snap.Nodes[id])
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing baseline: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing baseline: %w", err)
	}
	return nil
}

// loadTracker builds a tracker from the persisted baseline. A missing file
// yields a fresh tracker with its empty baseline, so every entity reads as
// added.
func loadTracker(path string) (*track.Tracker, error) {
	t := track.New()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return nil, fmt.Errorf("reading baseline: %w", err)
	}
	var doc baselineDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing baseline %s: %w", path, err)
	}
	t.CaptureBaseline(model.NewSnapshot(doc.Nodes, doc.Edges))
	return t, nil
}
