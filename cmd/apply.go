package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"archloom/loom/internal/pipeline"
	"archloom/loom/internal/rules"
	"archloom/loom/internal/track"
)

var applyJSON bool

var applyCmd = &cobra.Command{
	Use:   "apply [diff-file]",
	Short: "Apply a diff file to the graph (use '-' or omit for stdin)",
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

		db, err := openStore(cfg, logger, true)
		if err != nil {
			return err
		}
		defer db.Close()

		p, err := buildPipeline(cfg, db, logger)
		if err != nil {
			return err
		}

		result, err := p.ApplyDiff(cmd.Context(), text)
		if err != nil {
			var valErr *rules.ValidationError
			if errors.As(err, &valErr) {
				printViolations(valErr.Violations)
			}
			return err
		}

		return printResult(result)
	},
}

func init() {
	applyCmd.Flags().BoolVar(&applyJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(applyCmd)
}

// readDiffInput reads diff text from the named file, or stdin for "-" or no
// argument.
func readDiffInput(args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("reading diff file: %w", err)
	}
	return string(data), nil
}

func printResult(result *pipeline.Result) error {
	if applyJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Outcome  pipeline.Outcome     `json:"outcome"`
			Attempts int                  `json:"attempts"`
			Seq      uint64               `json:"seq"`
			Records  []track.ChangeRecord `json:"records"`
			Warnings []rules.Violation    `json:"warnings,omitempty"`
		}{result.Outcome, result.Attempts, result.Seq, result.Records, result.Violations})
	}

	fmt.Printf("Applied batch #%d (%d change(s))\n", result.Seq, len(result.Records))
	for _, rec := range result.Records {
		fmt.Printf("  %-9s %s\n", rec.Status, rec.SemanticID)
	}
	for _, v := range result.Violations {
		if v.Severity == rules.SeverityWarning {
			fmt.Printf("  warning: %s\n", v)
		}
	}
	return nil
}

func printViolations(violations []rules.Violation) {
	for _, v := range violations {
		fmt.Fprintf(os.Stderr, "  %s: %s\n", v.Severity, v)
	}
}
