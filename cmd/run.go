package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"archloom/loom/internal/pipeline"
	"archloom/loom/internal/producer"
)

var runCmd = &cobra.Command{
	Use:   "run <instruction>",
	Short: "Generate a diff from an instruction and apply it, retrying on rejection",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		instruction := strings.Join(args, " ")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := cfg.BuildLogger()
		if err != nil {
			return err
		}
		defer logger.Sync()

		db, err := openStore(cfg, logger, true)
		if err != nil {
			return err
		}
		defer db.Close()

		p, err := buildPipeline(cfg, db, logger)
		if err != nil {
			return err
		}

		gem, err := producer.NewGemini(cmd.Context(), cfg.Producer.APIKey, cfg.Producer.Model, logger)
		if err != nil {
			return err
		}

		prompt, err := buildPrompt(cmd.Context(), db, instruction)
		if err != nil {
			return err
		}

		result, err := p.Apply(cmd.Context(), prompt, gem)
		if err != nil {
			return err
		}
		if result.Outcome == pipeline.OutcomeRejected {
			printViolations(result.Violations)
			return fmt.Errorf("batch rejected after %d attempt(s): %v", result.Attempts, result.RejectReason)
		}
		return printResult(result)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
