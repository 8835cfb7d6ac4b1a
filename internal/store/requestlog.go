package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"quizforge/internal/llm"
)

// RequestLogRepo records LLM request observations. It implements
// llm.RequestLog.
type RequestLogRepo struct {
	db *sql.DB
}

var _ llm.RequestLog = (*RequestLogRepo)(nil)

// Record appends one request observation.
func (r *RequestLogRepo) Record(ctx context.Context, rec llm.RequestRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO llm_requests
			(provider, model, purpose, input_tokens, output_tokens,
			 latency_ms, success, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Provider, rec.Model, rec.Purpose, rec.InputTokens,
		rec.OutputTokens, rec.LatencyMs, rec.Success, rec.ErrorMessage,
		time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record llm request: %w", err)
	}
	return nil
}

// UsageTotals sums recorded token counts across all requests.
func (r *RequestLogRepo) UsageTotals(ctx context.Context) (llm.Usage, error) {
	var u llm.Usage
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0)
		FROM llm_requests`).Scan(&u.InputTokens, &u.OutputTokens)
	if err != nil {
		return u, fmt.Errorf("usage totals: %w", err)
	}
	u.TotalTokens = u.InputTokens + u.OutputTokens
	return u, nil
}
