// Package processor normalizes raw candidates into canonical question
// records: invariant validation, content hashing, and in-batch dedup.
package processor

import (
	"fmt"

	"go.uber.org/zap"

	"quizforge/internal/candidates"
)

// ValidationError reports a candidate that violates a record invariant.
// The candidate is dropped and counted, never repaired.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid candidate: %s: %s", e.Field, e.Message)
}

// ProcessedQuestion is the canonical, content-addressed question record.
// Original casing and spacing are preserved; normalization applies only
// to hashing and comparison.
type ProcessedQuestion struct {
	ContentHash  string   `json:"content_hash"`
	Stem         string   `json:"stem"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
	Rationale    string   `json:"rationale"`
	Topic        string   `json:"topic"`
	Difficulty   int      `json:"difficulty"`
	SourceFact   string   `json:"source_fact"`
	CorpusID     string   `json:"corpus_id,omitempty"`
}

// Result reports the outcome of processing one batch.
type Result struct {
	Questions        []ProcessedQuestion
	DroppedInvalid   int
	DroppedDuplicate int
}

// Processor validates, hashes and dedups candidate batches. It owns its
// dedup state exclusively and is not safe for concurrent use.
type Processor struct {
	logger *zap.Logger
}

// New creates a Processor. A nil logger disables logging.
func New(logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{logger: logger}
}

// Process turns a batch of raw candidates into canonical records.
// Duplicates within the batch keep the first occurrence; output order
// is the order of first occurrence.
func (p *Processor) Process(cands []candidates.RawCandidate, corpusID string) Result {
	var res Result
	seen := make(map[string]struct{}, len(cands))

	for _, c := range cands {
		q, err := shape(c, corpusID)
		if err != nil {
			p.logger.Warn("dropping invalid candidate",
				zap.String("stem", c.Stem),
				zap.Error(err))
			res.DroppedInvalid++
			continue
		}

		if _, dup := seen[q.ContentHash]; dup {
			p.logger.Debug("dropping duplicate candidate",
				zap.String("content_hash", q.ContentHash))
			res.DroppedDuplicate++
			continue
		}
		seen[q.ContentHash] = struct{}{}
		res.Questions = append(res.Questions, q)
	}

	return res
}

// shape validates invariants and computes the content hash.
func shape(c candidates.RawCandidate, corpusID string) (ProcessedQuestion, error) {
	stem := CollapseWhitespace(c.Stem)
	if stem == "" {
		return ProcessedQuestion{}, &ValidationError{Field: "stem", Message: "must be non-empty"}
	}
	if len(c.Options) != 4 {
		return ProcessedQuestion{}, &ValidationError{
			Field:   "options",
			Message: fmt.Sprintf("expected 4, got %d", len(c.Options)),
		}
	}
	options := make([]string, len(c.Options))
	for i, opt := range c.Options {
		options[i] = CollapseWhitespace(opt)
		if options[i] == "" {
			return ProcessedQuestion{}, &ValidationError{
				Field:   "options",
				Message: fmt.Sprintf("option %d is empty", i),
			}
		}
	}
	if c.CorrectIndex < 0 || c.CorrectIndex >= len(options) {
		return ProcessedQuestion{}, &ValidationError{
			Field:   "correct_index",
			Message: fmt.Sprintf("out of range: %d", c.CorrectIndex),
		}
	}

	return ProcessedQuestion{
		ContentHash:  ContentHash(stem, options),
		Stem:         stem,
		Options:      options,
		CorrectIndex: c.CorrectIndex,
		Rationale:    CollapseWhitespace(c.Rationale),
		Topic:        CollapseWhitespace(c.Topic),
		Difficulty:   c.Difficulty,
		SourceFact:   c.Fact,
		CorpusID:     corpusID,
	}, nil
}
