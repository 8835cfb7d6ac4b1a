package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"quizforge/internal/staging"
	"quizforge/internal/store"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <staging-file>",
	Short: "Replay a staging file into the question bank",
	Long: "Reads a staging JSONL file produced by collect and ingests its " +
		"records. Already-ingested questions are skipped, so replaying after " +
		"a partial failure is safe.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		r, err := staging.NewReader(args[0])
		if err != nil {
			return err
		}
		defer r.Close()

		recs, err := r.All()
		if err != nil {
			return fmt.Errorf("read staging file: %w", err)
		}
		if len(recs) == 0 {
			fmt.Println("Staging file is empty; nothing to ingest.")
			return nil
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

		res, err := s.Questions().IngestBulk(cmd.Context(), recs, cfg.Pipeline.ChunkSize)
		if err != nil {
			return fmt.Errorf("ingest: %w", err)
		}

		fmt.Printf("Ingested %d records: %d inserted, %d already present, %d conflicts.\n",
			len(recs), res.Inserted, res.SkippedExisting, res.Conflicts)
		return nil
	},
}
