package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"quizforge/internal/session"
	"quizforge/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show per-topic review statistics for a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		userID, _ := cmd.Flags().GetString("user")

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
		m := session.NewManager(s, nil)
		summary, err := m.Summary(ctx, userID)
		if err != nil {
			return fmt.Errorf("load summary: %w", err)
		}

		total, err := s.Questions().Count(ctx)
		if err != nil {
			return fmt.Errorf("count questions: %w", err)
		}

		fmt.Printf("Question bank: %d questions\n", total)
		if summary.Answered == 0 {
			fmt.Printf("No answers recorded for user %q yet.\n", userID)
			return nil
		}
		fmt.Printf("User %q: %d answered, %d correct (%.0f%%)\n\n",
			userID, summary.Answered, summary.Correct,
			100*float64(summary.Correct)/float64(summary.Answered))

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TOPIC\tANSWERED\tCORRECT\tACCURACY\tSTATUS")
		for _, t := range summary.Topics {
			status := "needs review"
			if t.Accuracy() >= session.StrongTopicThreshold {
				status = "strong"
			}
			fmt.Fprintf(tw, "%s\t%d\t%d\t%.0f%%\t%s\n",
				t.Topic, t.Answered, t.Correct, 100*t.Accuracy(), status)
		}
		return tw.Flush()
	},
}

func init() {
	statsCmd.Flags().String("user", "default", "User to report on")
}
