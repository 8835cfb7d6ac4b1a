package llm

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RequestRecord captures one LLM call for the observation log.
type RequestRecord struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
}

// RequestLog receives a record for every LLM call. The store package
// implements this on top of the llm_requests table.
type RequestLog interface {
	Record(ctx context.Context, rec RequestRecord) error
}

// LoggingProvider is a decorator that records every LLM request.
type LoggingProvider struct {
	inner    Provider
	provider string
	log      RequestLog
	logger   *zap.Logger
}

// WithLogging wraps a Provider with request logging. providerName is
// the backend name ("anthropic", "openai", ...), recorded separately
// from the model. log may be nil, in which case only the zap logger
// sees the request.
func WithLogging(p Provider, providerName string, log RequestLog, logger *zap.Logger) Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingProvider{inner: p, provider: providerName, log: log, logger: logger}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	purpose := PurposeFrom(ctx)

	resp, err := l.inner.Generate(ctx, req)

	latencyMs := time.Since(start).Milliseconds()

	rec := RequestRecord{
		Provider:  l.provider,
		Model:     l.inner.ModelID(),
		Purpose:   purpose,
		LatencyMs: latencyMs,
		Success:   err == nil,
	}

	if resp != nil {
		rec.InputTokens = resp.Usage.InputTokens
		rec.OutputTokens = resp.Usage.OutputTokens
		rec.Model = resp.Model
	}

	if err != nil {
		rec.ErrorMessage = err.Error()
		l.logger.Warn("llm request failed",
			zap.String("purpose", purpose),
			zap.Int64("latency_ms", latencyMs),
			zap.Error(err))
	} else {
		l.logger.Debug("llm request",
			zap.String("purpose", purpose),
			zap.String("model", rec.Model),
			zap.Int("input_tokens", rec.InputTokens),
			zap.Int("output_tokens", rec.OutputTokens),
			zap.Int64("latency_ms", latencyMs))
	}

	// Record the call but don't fail the request if logging fails.
	if l.log != nil {
		if logErr := l.log.Record(ctx, rec); logErr != nil {
			l.logger.Warn("failed to record llm request", zap.Error(logErr))
		}
	}

	return resp, err
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}
