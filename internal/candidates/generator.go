// Package candidates turns extracted facts into raw multiple-choice
// question candidates using an LLM provider. No semantic validation
// happens here; malformed model output is skipped and counted upstream.
package candidates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"quizforge/internal/facts"
	"quizforge/internal/llm"
)

// ErrMalformed indicates the model response could not be shaped into a
// usable candidate. Callers skip the fact and count the failure.
type ErrMalformed struct {
	Reason string
	Err    error
}

func (e *ErrMalformed) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed candidate: %s: %v", e.Reason, e.Err)
	}
	return "malformed candidate: " + e.Reason
}

func (e *ErrMalformed) Unwrap() error { return e.Err }

// RawCandidate is an unvalidated MCQ produced from a single fact.
type RawCandidate struct {
	Fact         string
	Stem         string
	Options      []string
	CorrectIndex int
	Rationale    string
	Topic        string
	Difficulty   int
}

// Config holds generation tunables.
type Config struct {
	MaxTokens   int
	Temperature float64
	Concurrency int
}

// DefaultConfig returns the generation defaults.
func DefaultConfig() Config {
	return Config{
		MaxTokens:   1000,
		Temperature: 0.4,
		Concurrency: 4,
	}
}

// Generator produces one MCQ candidate per fact.
type Generator struct {
	provider llm.Provider
	config   Config
}

// NewGenerator creates a Generator with the given provider and config.
func NewGenerator(provider llm.Provider, cfg Config) *Generator {
	return &Generator{provider: provider, config: cfg}
}

// mcqOutput is the raw LLM response before shaping.
type mcqOutput struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Rationale     string   `json:"rationale"`
	Difficulty    int      `json:"difficulty"`
}

// Generate makes one model call for the fact and shapes the result.
// Shape failures return *ErrMalformed; provider errors pass through.
func (g *Generator) Generate(ctx context.Context, fact facts.Fact) (*RawCandidate, error) {
	ctx = llm.WithPurpose(ctx, "mcq-gen")

	req := llm.Request{
		System: mcqSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildFactMessage(fact)},
		},
		Schema:      MCQSchema,
		MaxTokens:   g.config.MaxTokens,
		Temperature: g.config.Temperature,
	}

	resp, err := g.provider.Generate(ctx, req)
	if err != nil {
		var invResp *llm.ErrInvalidResponse
		if errors.As(err, &invResp) {
			return nil, &ErrMalformed{Reason: "schema violation", Err: err}
		}
		return nil, err
	}

	var raw mcqOutput
	if err := json.Unmarshal(resp.Content, &raw); err != nil {
		return nil, &ErrMalformed{Reason: "unparsable JSON", Err: err}
	}

	return shapeCandidate(fact, raw)
}

// letterPrefix matches "A. ", "B) ", "c: " style option designators.
var letterPrefix = regexp.MustCompile(`^[A-Da-d][.):]\s*`)

// cleanOption strips a leading letter designator and surrounding
// whitespace from an option or answer string.
func cleanOption(s string) string {
	return letterPrefix.ReplaceAllString(strings.TrimSpace(s), "")
}

// shapeCandidate validates the raw output's shape and resolves the
// correct answer text to an option index.
func shapeCandidate(fact facts.Fact, raw mcqOutput) (*RawCandidate, error) {
	stem := strings.TrimSpace(raw.Question)
	if stem == "" {
		return nil, &ErrMalformed{Reason: "empty question"}
	}
	if len(raw.Options) != 4 {
		return nil, &ErrMalformed{Reason: fmt.Sprintf("expected 4 options, got %d", len(raw.Options))}
	}

	options := make([]string, len(raw.Options))
	for i, opt := range raw.Options {
		options[i] = cleanOption(opt)
		if options[i] == "" {
			return nil, &ErrMalformed{Reason: fmt.Sprintf("empty option at index %d", i)}
		}
	}

	answer := cleanOption(raw.CorrectAnswer)
	correctIndex := -1
	for i, opt := range options {
		if strings.EqualFold(opt, answer) {
			correctIndex = i
			break
		}
	}
	if correctIndex < 0 {
		return nil, &ErrMalformed{Reason: "correct answer does not match any option"}
	}

	return &RawCandidate{
		Fact:         fact.Text,
		Stem:         stem,
		Options:      options,
		CorrectIndex: correctIndex,
		Rationale:    strings.TrimSpace(raw.Rationale),
		Topic:        fact.Topic,
		Difficulty:   raw.Difficulty,
	}, nil
}

// buildFactMessage constructs the user message for a fact.
func buildFactMessage(fact facts.Fact) string {
	var b strings.Builder
	if fact.Topic != "" {
		fmt.Fprintf(&b, "Subject: %s.\n", fact.Topic)
	}
	fmt.Fprintf(&b, "Fact: %s\n", fact.Text)
	b.WriteString("\nGenerate one multiple-choice question that tests this fact.")
	return b.String()
}
