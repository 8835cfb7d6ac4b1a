package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"quizforge/internal/candidates"
	"quizforge/internal/facts"
	"quizforge/internal/llm"
	"quizforge/internal/staging"
	"quizforge/internal/store"
)

var memDBCounter int

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	memDBCounter++
	dsn := fmt.Sprintf("file:collectordb%d?mode=memory&cache=shared", memDBCounter)
	s, err := store.Open(dsn)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func serialConfig() Config {
	cfg := Config{
		Extraction: facts.DefaultConfig(),
		Generation: candidates.DefaultConfig(),
	}
	// Serial workers keep the FIFO mock deterministic.
	cfg.Extraction.Concurrency = 1
	cfg.Generation.Concurrency = 1
	return cfg
}

func factsResponse(factTexts ...string) llm.MockResponse {
	type f struct {
		Fact    string `json:"fact"`
		Subject string `json:"subject"`
	}
	out := struct {
		Facts []f `json:"facts"`
	}{}
	for _, text := range factTexts {
		out.Facts = append(out.Facts, f{Fact: text, Subject: "endocrinology"})
	}
	b, _ := json.Marshal(out)
	return llm.MockResponse{Content: b, Usage: llm.Usage{InputTokens: 100, OutputTokens: 50, TotalTokens: 150}}
}

func mcqResponse(stem string) llm.MockResponse {
	out := map[string]any{
		"question":       stem,
		"options":        []string{"Pancreas", "Liver", "Spleen", "Kidney"},
		"correct_answer": "Pancreas",
		"rationale":      "Beta cells secrete insulin.",
		"difficulty":     2,
	}
	b, _ := json.Marshal(out)
	return llm.MockResponse{Content: b, Usage: llm.Usage{InputTokens: 40, OutputTokens: 30, TotalTokens: 70}}
}

func TestRun_EndToEnd(t *testing.T) {
	s := openTestStore(t)

	mock := llm.NewMockProvider(
		factsResponse("The pancreas produces insulin.", "Insulin lowers blood glucose."),
		mcqResponse("Which organ produces insulin?"),
		mcqResponse("Which hormone lowers blood glucose?"),
	)

	cfg := serialConfig()
	cfg.StagingPath = filepath.Join(t.TempDir(), "staged.jsonl")

	c := New(mock, s, cfg, nil)
	summary, err := c.Run(context.Background(), facts.NewCorpus("The pancreas produces insulin, which lowers blood glucose.", ""))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if summary.Segments != 1 {
		t.Errorf("segments = %d, want 1", summary.Segments)
	}
	if summary.FactsExtracted != 2 {
		t.Errorf("facts = %d, want 2", summary.FactsExtracted)
	}
	if summary.CandidatesGenerated != 2 {
		t.Errorf("candidates = %d, want 2", summary.CandidatesGenerated)
	}
	if summary.Inserted != 2 {
		t.Errorf("inserted = %d, want 2", summary.Inserted)
	}
	if summary.Staged != 2 {
		t.Errorf("staged = %d, want 2", summary.Staged)
	}
	wantTokens := 150 + 70 + 70
	if summary.Usage.TotalTokens != wantTokens {
		t.Errorf("total tokens = %d, want %d", summary.Usage.TotalTokens, wantTokens)
	}

	n, err := s.Questions().Count(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 stored questions, got %d", n)
	}

	r, err := staging.NewReader(cfg.StagingPath)
	if err != nil {
		t.Fatalf("open staging: %v", err)
	}
	defer r.Close()
	staged, err := r.All()
	if err != nil {
		t.Fatalf("read staging: %v", err)
	}
	if len(staged) != 2 {
		t.Fatalf("expected 2 staged records, got %d", len(staged))
	}
}

func TestRun_MalformedCandidateSkipped(t *testing.T) {
	s := openTestStore(t)

	badMCQ := mcqResponse("irrelevant")
	badMCQ.Content = json.RawMessage(`{"question":"Broken?","options":["a","b"],"correct_answer":"a","rationale":"r","difficulty":1}`)

	mock := llm.NewMockProvider(
		factsResponse("Fact one.", "Fact two."),
		badMCQ,
		mcqResponse("Which organ produces insulin?"),
	)

	c := New(mock, s, serialConfig(), nil)
	summary, err := c.Run(context.Background(), facts.NewCorpus("Some text.", ""))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Malformed != 1 {
		t.Errorf("malformed = %d, want 1", summary.Malformed)
	}
	if summary.Inserted != 1 {
		t.Errorf("inserted = %d, want 1", summary.Inserted)
	}
}

func TestRun_DuplicateCandidatesDeduped(t *testing.T) {
	s := openTestStore(t)

	mock := llm.NewMockProvider(
		factsResponse("Fact one.", "Fact two.", "Fact three."),
		mcqResponse("Which organ produces insulin?"),
		mcqResponse("Which organ produces insulin?"), // duplicate
		mcqResponse("Which hormone lowers blood glucose?"),
	)

	c := New(mock, s, serialConfig(), nil)
	summary, err := c.Run(context.Background(), facts.NewCorpus("Some text.", ""))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.DroppedDuplicate != 1 {
		t.Errorf("duplicates = %d, want 1", summary.DroppedDuplicate)
	}
	if summary.Inserted != 2 {
		t.Errorf("inserted = %d, want 2", summary.Inserted)
	}
}

func TestRun_ProviderFailureAborts(t *testing.T) {
	s := openTestStore(t)

	mock := llm.NewMockProvider(
		llm.MockResponse{Err: &llm.ErrProviderUnavailable{Err: errors.New("down")}},
	)

	c := New(mock, s, serialConfig(), nil)
	summary, err := c.Run(context.Background(), facts.NewCorpus("Some text.", ""))
	if err == nil {
		t.Fatal("expected run to abort")
	}
	var unavail *llm.ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("expected ErrProviderUnavailable, got: %v", err)
	}
	if summary == nil {
		t.Fatal("expected partial summary even on abort")
	}
}

func TestRun_RerunIsIdempotent(t *testing.T) {
	s := openTestStore(t)

	newMock := func() *llm.MockProvider {
		return llm.NewMockProvider(
			factsResponse("The pancreas produces insulin."),
			mcqResponse("Which organ produces insulin?"),
		)
	}

	corpus := facts.NewCorpus("The pancreas produces insulin.", "")

	c1 := New(newMock(), s, serialConfig(), nil)
	if _, err := c1.Run(context.Background(), corpus); err != nil {
		t.Fatalf("first run: %v", err)
	}

	c2 := New(newMock(), s, serialConfig(), nil)
	summary, err := c2.Run(context.Background(), corpus)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if summary.Inserted != 0 || summary.SkippedExisting != 1 {
		t.Fatalf("rerun result = %+v, want 0 inserted / 1 skipped", summary)
	}
}

func TestSummary_WriteTable(t *testing.T) {
	summary := &Summary{CorpusID: "c1", FactsExtracted: 3, Inserted: 2}

	var buf bytes.Buffer
	if err := summary.WriteTable(&buf); err != nil {
		t.Fatalf("write table: %v", err)
	}
	if !strings.Contains(buf.String(), "Facts extracted") {
		t.Fatalf("unexpected table output:\n%s", buf.String())
	}
}
