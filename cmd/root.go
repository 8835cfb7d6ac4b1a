package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quizforge/internal/config"
	"quizforge/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "quizforge",
	Short: "Turn source text into an adaptive MCQ question bank",
	Long: "Quizforge extracts facts from source text with an LLM, generates " +
		"multiple-choice questions from them, and serves adaptive review " +
		"sessions over the resulting question bank.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides QUIZFORGE_DB env var)")
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using the --db flag (highest
// priority), then config, then QUIZFORGE_DB, then the default XDG path.
func resolveDBPath(cmd *cobra.Command, cfg *config.Config) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if cfg != nil && cfg.Storage.DatabasePath != "" {
		return cfg.Storage.DatabasePath, store.EnsureDir(cfg.Storage.DatabasePath)
	}
	return store.DefaultDBPath()
}

// loadConfig reads the --config file when given, defaults otherwise.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger honoring --debug and the config
// debug flag.
func newLogger(cmd *cobra.Command, cfg *config.Config) (*zap.Logger, error) {
	debug, _ := cmd.Flags().GetBool("debug")
	if debug || (cfg != nil && cfg.Debug) {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
