package facts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"quizforge/internal/llm"
)

// Config holds extraction tunables.
type Config struct {
	MaxSegmentSize int
	Concurrency    int
	MaxTokens      int
	Temperature    float64
}

// DefaultConfig returns the extraction defaults.
func DefaultConfig() Config {
	return Config{
		MaxSegmentSize: DefaultMaxSegmentSize,
		Concurrency:    4,
		MaxTokens:      2000,
		Temperature:    0.2,
	}
}

// Extractor extracts facts from a corpus, one LLM call per segment.
type Extractor struct {
	provider llm.Provider
	config   Config
	logger   *zap.Logger
}

// NewExtractor creates an Extractor. A nil logger disables logging.
func NewExtractor(provider llm.Provider, cfg Config, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConfig().Concurrency
	}
	return &Extractor{provider: provider, config: cfg, logger: logger}
}

// Stream delivers extracted facts in segment order. It is finite and
// cannot be restarted; Err must be checked after the channel closes.
type Stream struct {
	ch              chan Fact
	err             error
	segmentCount    int
	segmentFailures int
}

// Facts returns the channel of extracted facts. The channel is closed
// when extraction finishes or aborts.
func (s *Stream) Facts() <-chan Fact {
	return s.ch
}

// Err reports the fatal error that aborted the stream, if any. Only
// valid after the Facts channel has closed.
func (s *Stream) Err() error {
	return s.err
}

// Segments reports how many segments the corpus was split into.
func (s *Stream) Segments() int {
	return s.segmentCount
}

// SegmentFailures reports how many segments yielded a malformed or
// unparsable model response. Only valid after the channel has closed.
func (s *Stream) SegmentFailures() int {
	return s.segmentFailures
}

type factsOutput struct {
	Facts []Fact `json:"facts"`
}

// Extract segments the corpus and extracts facts from each segment with
// bounded concurrency. Facts are emitted in segment order as segments
// complete. A segment whose response cannot be parsed yields zero facts
// and is counted as a failure; a provider error that survives retry
// aborts the whole stream.
func (e *Extractor) Extract(ctx context.Context, corpus Corpus) *Stream {
	segments := SegmentCorpus(corpus.Text, e.config.MaxSegmentSize)

	stream := &Stream{
		ch:           make(chan Fact),
		segmentCount: len(segments),
	}

	results := make([][]Fact, len(segments))
	done := make([]chan struct{}, len(segments))
	failed := make([]bool, len(segments))
	for i := range done {
		done[i] = make(chan struct{})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Concurrency)

	go func() {
		for i, seg := range segments {
			i, seg := i, seg
			g.Go(func() error {
				facts, err := e.extractSegment(gctx, corpus, seg)
				if err != nil {
					if recoverableExtractError(err) {
						e.logger.Warn("segment extraction failed",
							zap.String("corpus_id", corpus.ID),
							zap.Int("segment", seg.Index),
							zap.Error(err))
						failed[i] = true
						close(done[i])
						return nil
					}
					close(done[i])
					return fmt.Errorf("extract segment %d: %w", seg.Index, err)
				}
				results[i] = facts
				close(done[i])
				return nil
			})
		}

		// Emit completed segments in order while workers run.
		var emitErr error
		for i := range segments {
			select {
			case <-done[i]:
			case <-gctx.Done():
				emitErr = gctx.Err()
			}
			if emitErr != nil {
				break
			}
			for _, f := range results[i] {
				select {
				case stream.ch <- f:
				case <-gctx.Done():
					emitErr = gctx.Err()
				}
				if emitErr != nil {
					break
				}
			}
			if failed[i] {
				stream.segmentFailures++
			}
		}

		if err := g.Wait(); err != nil {
			stream.err = err
		} else if emitErr != nil {
			stream.err = emitErr
		}
		close(stream.ch)
	}()

	return stream
}

// extractSegment makes one LLM call for a segment and parses the result.
func (e *Extractor) extractSegment(ctx context.Context, corpus Corpus, seg Segment) ([]Fact, error) {
	ctx = llm.WithPurpose(ctx, "fact-extract")

	userMsg := "The following is the text to convert into facts. Output only the facts, no other text.\n\n" + seg.Text
	if corpus.Topic != "" {
		userMsg = "Subject: " + corpus.Topic + ".\n" + userMsg
	}

	req := llm.Request{
		System: extractSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: userMsg},
		},
		Schema:      FactsSchema,
		MaxTokens:   e.config.MaxTokens,
		Temperature: e.config.Temperature,
	}

	resp, err := e.provider.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	var out factsOutput
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return nil, &llm.ErrInvalidResponse{Content: resp.Content, Err: err}
	}

	var facts []Fact
	for _, f := range out.Facts {
		if f.Text == "" {
			continue
		}
		f.CorpusID = corpus.ID
		f.SegmentIndex = seg.Index
		f.StartOffset = seg.StartOffset
		f.EndOffset = seg.EndOffset
		if f.Topic == "" {
			f.Topic = corpus.Topic
		}
		facts = append(facts, f)
	}
	return facts, nil
}

// recoverableExtractError reports whether a segment-level error should
// be swallowed (counted, zero facts) rather than abort the stream.
func recoverableExtractError(err error) bool {
	var invResp *llm.ErrInvalidResponse
	var maxTok *llm.ErrMaxTokensExceeded
	return errors.As(err, &invResp) || errors.As(err, &maxTok)
}
