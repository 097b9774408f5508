package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"archloom/loom/internal/rules"
)

var validateJSON bool

var validateCmd = &cobra.Command{
	Use:   "validate [diff-file]",
	Short: "Check a diff against the graph without committing anything",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readDiffInput(args)
		if err != nil {
			return err
		}

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

		p, err := buildPipeline(cfg, db, logger)
		if err != nil {
			return err
		}

		violations, err := p.Check(cmd.Context(), text)
		if err != nil {
			var valErr *rules.ValidationError
			if !errors.As(err, &valErr) {
				return err
			}
		}

		if validateJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(violations); encErr != nil {
				return encErr
			}
		} else if len(violations) == 0 {
			fmt.Println("Diff is valid.")
		} else {
			printViolations(violations)
		}

		// Error-severity violations fail the command so scripts can gate on it.
		return err
	},
}

func init() {
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(validateCmd)
}
