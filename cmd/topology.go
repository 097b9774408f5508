package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"archloom/loom/internal/graph"
)

var (
	topologyJSON         bool
	topologyTopN         int
	topologyHubThreshold int
)

var topologyCmd = &cobra.Command{
	Use:   "topology",
	Short: "Report graph structure: components, orphans, hubs, type counts",
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

		snap, err := db.Snapshot(cmd.Context())
		if err != nil {
			return err
		}

		report := graph.ComputeTopology(snap, topologyHubThreshold, topologyTopN)

		if topologyJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		fmt.Printf("Nodes: %d  Edges: %d  Components: %d\n",
			report.TotalNodes, report.TotalEdges, report.NumComponents)
		if report.TotalNodes > 0 {
			fmt.Printf("Largest component: %d  Smallest: %d\n",
				report.LargestComponent, report.SmallestComponent)
		}
		for t, n := range report.NodesByType {
			fmt.Printf("  %-12s %d\n", t, n)
		}
		if report.OrphanCount > 0 {
			fmt.Printf("Orphans: %d\n", report.OrphanCount)
			for _, id := range report.Orphans {
				fmt.Printf("  - %s\n", id)
			}
		}
		if len(report.Hubs) > 0 {
			fmt.Println("Hubs:")
			for _, h := range report.Hubs {
				fmt.Printf("  %s degree=%d (in=%d, out=%d) %s\n",
					h.SemanticID, h.Degree, h.InDegree, h.OutDegree, h.Name)
			}
		}
		return nil
	},
}

func init() {
	topologyCmd.Flags().BoolVar(&topologyJSON, "json", false, "Output as JSON")
	topologyCmd.Flags().IntVar(&topologyTopN, "top-n", 10, "Number of orphans and hubs to list")
	topologyCmd.Flags().IntVar(&topologyHubThreshold, "hub-threshold", 5, "Minimum degree to consider a node a hub")
	rootCmd.AddCommand(topologyCmd)
}
