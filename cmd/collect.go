package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"quizforge/internal/candidates"
	"quizforge/internal/collector"
	"quizforge/internal/facts"
	"quizforge/internal/llm"
	"quizforge/internal/store"
)

var collectCmd = &cobra.Command{
	Use:   "collect [file]",
	Short: "Run the collection pipeline over a text corpus",
	Long: "Reads corpus text from a file (or stdin when no file is given), " +
		"extracts facts, generates questions, and ingests them into the " +
		"question bank.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, err := newLogger(cmd, cfg)
		if err != nil {
			return err
		}
		defer logger.Sync()

		text, err := readCorpus(args)
		if err != nil {
			return err
		}

		dbPath, err := resolveDBPath(cmd, cfg)
		if err != nil {
			return fmt.Errorf("resolve database path: %w", err)
		}
		s, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()

		ctx := cmd.Context()
		provider, err := llm.NewProviderFromEnv(ctx, s.RequestLog(), logger)
		if err != nil {
			return fmt.Errorf("configure LLM provider: %w", err)
		}

		topic, _ := cmd.Flags().GetString("topic")
		stagingPath, _ := cmd.Flags().GetString("staging")
		if stagingPath == "" {
			stagingPath = cfg.Storage.StagingPath
		}

		collectorCfg := collector.Config{
			Extraction:  facts.DefaultConfig(),
			Generation:  candidates.DefaultConfig(),
			StagingPath: stagingPath,
			ChunkSize:   cfg.Pipeline.ChunkSize,
		}
		collectorCfg.Extraction.MaxSegmentSize = cfg.Pipeline.MaxSegmentSize
		collectorCfg.Extraction.Concurrency = cfg.Pipeline.Concurrency
		collectorCfg.Generation.Concurrency = cfg.Pipeline.Concurrency

		c := collector.New(provider, s, collectorCfg, logger)
		start := time.Now()
		summary, runErr := c.Run(ctx, facts.NewCorpus(text, topic))

		// The summary is worth printing even for an aborted run.
		if summary != nil {
			fmt.Println()
			if err := summary.WriteTable(os.Stdout); err != nil {
				return err
			}
		}
		if runErr != nil {
			return fmt.Errorf("collection aborted after %s: %w", time.Since(start).Round(time.Millisecond), runErr)
		}
		return nil
	},
}

func init() {
	collectCmd.Flags().String("topic", "", "Topic hint applied to the whole corpus")
	collectCmd.Flags().String("staging", "", "Staging JSONL path (default from config)")
}

func readCorpus(args []string) (string, error) {
	var data []byte
	var err error
	if len(args) == 1 {
		data, err = os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("read corpus file: %w", err)
		}
	} else {
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
	}
	if len(data) == 0 {
		return "", fmt.Errorf("corpus is empty")
	}
	return string(data), nil
}
