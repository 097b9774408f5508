// Package cmd wires the loom CLI: configuration, store discovery, and the
// subcommands that drive the mutation pipeline.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"archloom/loom/internal/config"
	"archloom/loom/internal/pipeline"
	"archloom/loom/internal/rules"
	"archloom/loom/internal/store"
)

var (
	flagConfig string
	flagDB     string
)

var rootCmd = &cobra.Command{
	Use:   "loom",
	Short: "Loom maintains a typed ontology graph through validated diff batches",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to config file (default: user config dir)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "Path to "+config.DefaultDBName+" database")
}

// loadConfig reads the config file and applies the --db override.
func loadConfig() (*config.Config, error) {
	path := flagConfig
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if flagDB != "" {
		cfg.Database = flagDB
	}
	return cfg, nil
}

// openStore discovers and opens the graph database. create controls whether a
// missing database is an error or gets created at the configured path.
func openStore(cfg *config.Config, logger *zap.Logger, create bool) (*store.DB, error) {
	path, err := cfg.DiscoverDB()
	if err != nil {
		if !create {
			return nil, err
		}
		path = cfg.Database
		if path == "" {
			path = config.DefaultDBName
		}
	}
	return store.Open(path, logger)
}

// buildRegistry loads the validation rule table, embedded by default or from
// the configured override.
func buildRegistry(cfg *config.Config) (*rules.Registry, error) {
	if cfg.RulesPath == "" {
		return rules.NewRegistry(rules.DefaultTable()), nil
	}
	table, err := rules.LoadTable(cfg.RulesPath)
	if err != nil {
		return nil, err
	}
	return rules.NewRegistry(table), nil
}

// buildPipeline assembles the full pipeline over an open store.
func buildPipeline(cfg *config.Config, st store.Store, logger *zap.Logger) (*pipeline.Pipeline, error) {
	registry, err := buildRegistry(cfg)
	if err != nil {
		return nil, err
	}
	p := pipeline.New(st, pipeline.Config{
		MaxRetries: cfg.Producer.MaxRetries,
		Rules:      registry,
		Logger:     logger,
	})
	p.Subscribe(&pipeline.LogObserver{Logger: logger})
	return p, nil
}
