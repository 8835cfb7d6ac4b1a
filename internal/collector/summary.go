package collector

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"quizforge/internal/llm"
)

// Summary reports everything that happened during one collection run.
type Summary struct {
	CorpusID            string
	Model               string
	Segments            int
	SegmentFailures     int
	FactsExtracted      int
	CandidatesGenerated int
	Malformed           int
	DroppedInvalid      int
	DroppedDuplicate    int
	Staged              int
	Inserted            int
	SkippedExisting     int
	Conflicts           int
	Usage               llm.Usage
	EstimatedCostUSD    float64
	Duration            time.Duration
}

// setUsage records token totals and the estimated cost they imply.
func (s *Summary) setUsage(u llm.Usage) {
	s.Usage = u
	s.EstimatedCostUSD = llm.EstimatedCost(s.Model, u)
}

// WriteTable renders the summary as an aligned plain-text table.
func (s *Summary) WriteTable(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	rows := []struct {
		label string
		value any
	}{
		{"Corpus", s.CorpusID},
		{"Segments processed", s.Segments},
		{"Segment failures", s.SegmentFailures},
		{"Facts extracted", s.FactsExtracted},
		{"Candidates generated", s.CandidatesGenerated},
		{"Malformed candidates", s.Malformed},
		{"Dropped invalid", s.DroppedInvalid},
		{"Dropped duplicates", s.DroppedDuplicate},
		{"Staged", s.Staged},
		{"Inserted", s.Inserted},
		{"Skipped existing", s.SkippedExisting},
		{"Integrity conflicts", s.Conflicts},
		{"Input tokens", s.Usage.InputTokens},
		{"Output tokens", s.Usage.OutputTokens},
		{"Duration", s.Duration.Round(time.Millisecond)},
	}
	if s.EstimatedCostUSD > 0 {
		rows = append(rows, struct {
			label string
			value any
		}{"Estimated cost", fmt.Sprintf("$%.4f", s.EstimatedCostUSD)})
	}
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%v\n", r.label, r.value)
	}
	return tw.Flush()
}
