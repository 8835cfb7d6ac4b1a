// Package collector wires the full pipeline: fact extraction, candidate
// generation, processing, staging and ingestion, with a run summary.
package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"quizforge/internal/candidates"
	"quizforge/internal/facts"
	"quizforge/internal/llm"
	"quizforge/internal/processor"
	"quizforge/internal/staging"
	"quizforge/internal/store"
)

// Config holds pipeline tunables.
type Config struct {
	Extraction  facts.Config
	Generation  candidates.Config
	StagingPath string // empty disables staging
	ChunkSize   int
}

// Collector runs one corpus through the whole pipeline.
type Collector struct {
	provider  llm.Provider
	questions *store.QuestionRepo
	config    Config
	logger    *zap.Logger
}

// New creates a Collector. A nil logger disables logging.
func New(provider llm.Provider, s *store.Store, cfg Config, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		provider:  provider,
		questions: s.Questions(),
		config:    cfg,
		logger:    logger,
	}
}

// Run executes the pipeline for one corpus. Unit-level failures are
// counted and skipped; provider or store failures abort the run. The
// summary is complete for everything processed before an abort.
func (c *Collector) Run(ctx context.Context, corpus facts.Corpus) (*Summary, error) {
	start := time.Now()
	summary := &Summary{CorpusID: corpus.ID, Model: c.provider.ModelID()}

	tracked := &usageTracker{inner: c.provider}

	extracted, err := c.extract(ctx, tracked, corpus, summary)
	if err != nil {
		summary.setUsage(tracked.Total())
		return summary, fmt.Errorf("extraction: %w", err)
	}

	cands, err := c.generate(ctx, tracked, extracted, summary)
	if err != nil {
		summary.setUsage(tracked.Total())
		return summary, fmt.Errorf("generation: %w", err)
	}

	res := processor.New(c.logger).Process(cands, corpus.ID)
	summary.DroppedInvalid = res.DroppedInvalid
	summary.DroppedDuplicate = res.DroppedDuplicate

	if c.config.StagingPath != "" {
		staged, err := c.stage(res.Questions)
		if err != nil {
			summary.setUsage(tracked.Total())
			return summary, fmt.Errorf("staging: %w", err)
		}
		summary.Staged = staged
	}

	bulk, err := c.questions.IngestBulk(ctx, res.Questions, c.config.ChunkSize)
	summary.Inserted = bulk.Inserted
	summary.SkippedExisting = bulk.SkippedExisting
	summary.Conflicts = bulk.Conflicts
	summary.setUsage(tracked.Total())
	summary.Duration = time.Since(start)
	if err != nil {
		return summary, fmt.Errorf("ingestion: %w", err)
	}

	c.logger.Info("collection run finished",
		zap.String("corpus_id", corpus.ID),
		zap.Int("facts", summary.FactsExtracted),
		zap.Int("inserted", summary.Inserted),
		zap.Duration("took", summary.Duration))
	return summary, nil
}

func (c *Collector) extract(ctx context.Context, provider llm.Provider, corpus facts.Corpus, summary *Summary) ([]facts.Fact, error) {
	extractor := facts.NewExtractor(provider, c.config.Extraction, c.logger)
	stream := extractor.Extract(ctx, corpus)

	var out []facts.Fact
	for f := range stream.Facts() {
		out = append(out, f)
	}
	summary.Segments = stream.Segments()
	summary.SegmentFailures = stream.SegmentFailures()
	summary.FactsExtracted = len(out)

	return out, stream.Err()
}

// generate produces one candidate per fact with bounded concurrency,
// preserving fact order in the output. Malformed model output skips
// the fact and is counted.
func (c *Collector) generate(ctx context.Context, provider llm.Provider, extracted []facts.Fact, summary *Summary) ([]candidates.RawCandidate, error) {
	gen := candidates.NewGenerator(provider, c.config.Generation)

	results := make([]*candidates.RawCandidate, len(extracted))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	limit := c.config.Generation.Concurrency
	if limit <= 0 {
		limit = candidates.DefaultConfig().Concurrency
	}
	g.SetLimit(limit)

	for i, fact := range extracted {
		i, fact := i, fact
		g.Go(func() error {
			cand, err := gen.Generate(gctx, fact)
			if err != nil {
				var malformed *candidates.ErrMalformed
				if errors.As(err, &malformed) {
					c.logger.Warn("skipping malformed candidate",
						zap.String("fact", fact.Text),
						zap.Error(err))
					mu.Lock()
					summary.Malformed++
					mu.Unlock()
					return nil
				}
				return err
			}
			results[i] = cand
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []candidates.RawCandidate
	for _, cand := range results {
		if cand != nil {
			out = append(out, *cand)
		}
	}
	summary.CandidatesGenerated = len(out)
	return out, nil
}

func (c *Collector) stage(qs []processor.ProcessedQuestion) (int, error) {
	w, err := staging.NewWriter(c.config.StagingPath)
	if err != nil {
		return 0, err
	}
	defer w.Close()
	return w.AppendAll(qs)
}

// usageTracker sums token usage across every provider call in a run.
type usageTracker struct {
	inner llm.Provider
	mu    sync.Mutex
	total llm.Usage
}

func (t *usageTracker) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	resp, err := t.inner.Generate(ctx, req)
	if resp != nil {
		t.mu.Lock()
		t.total.Add(resp.Usage)
		t.mu.Unlock()
	}
	return resp, err
}

func (t *usageTracker) ModelID() string {
	return t.inner.ModelID()
}

func (t *usageTracker) Total() llm.Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}
