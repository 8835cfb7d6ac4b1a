package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PerformanceRow is one recorded answer. The table is append-only;
// rows are never updated or deleted.
type PerformanceRow struct {
	ID            int64
	UserID        string
	QuestionID    int64
	AnsweredIndex int
	Correct       bool
	AnsweredAt    time.Time
}

// AnswerStats aggregates a user's history for one question.
type AnswerStats struct {
	QuestionID    int64
	Correct       int
	Incorrect     int
	LastAnswered  time.Time
	LastCorrectAt time.Time // zero if never answered correctly
}

// TopicStats aggregates a user's accuracy for one topic.
type TopicStats struct {
	Topic    string
	Answered int
	Correct  int
}

// Accuracy returns the fraction of answers that were correct.
func (t TopicStats) Accuracy() float64 {
	if t.Answered == 0 {
		return 0
	}
	return float64(t.Correct) / float64(t.Answered)
}

// PerformanceRepo records and aggregates answer history.
type PerformanceRepo struct {
	db *sql.DB
}

// RecordAnswer verifies the question exists, checks the answered index
// against the question's option range, derives correctness from the
// stored answer key, and appends exactly one row, all in a single
// transaction.
func (r *PerformanceRepo) RecordAnswer(ctx context.Context, userID string, questionID int64, answeredIndex int) (*PerformanceRow, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var correctIndex int
	var optionsJSON string
	err = tx.QueryRowContext(ctx,
		`SELECT correct_index, options FROM questions WHERE id = ?`, questionID,
	).Scan(&correctIndex, &optionsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load question: %w", err)
	}

	var options []string
	if err := json.Unmarshal([]byte(optionsJSON), &options); err != nil {
		return nil, fmt.Errorf("decode options: %w", err)
	}
	if answeredIndex < 0 || answeredIndex >= len(options) {
		return nil, fmt.Errorf("%w: %d of %d options", ErrAnswerOutOfRange, answeredIndex, len(options))
	}

	row := &PerformanceRow{
		UserID:        userID,
		QuestionID:    questionID,
		AnsweredIndex: answeredIndex,
		Correct:       answeredIndex == correctIndex,
		AnsweredAt:    time.Now().UTC(),
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO user_performance
			(user_id, question_id, answered_index, correct, answered_at)
		VALUES (?, ?, ?, ?, ?)`,
		row.UserID, row.QuestionID, row.AnsweredIndex, row.Correct,
		row.AnsweredAt.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert answer: %w", err)
	}
	row.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return row, nil
}

// StatsByUser aggregates the user's full history per question.
func (r *PerformanceRepo) StatsByUser(ctx context.Context, userID string) (map[int64]AnswerStats, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT question_id,
			SUM(correct),
			COUNT(*) - SUM(correct),
			MAX(answered_at),
			COALESCE(MAX(CASE WHEN correct THEN answered_at END), 0)
		FROM user_performance
		WHERE user_id = ?
		GROUP BY question_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("aggregate performance: %w", err)
	}
	defer rows.Close()

	stats := make(map[int64]AnswerStats)
	for rows.Next() {
		var s AnswerStats
		var lastAnswered, lastCorrect int64
		if err := rows.Scan(&s.QuestionID, &s.Correct, &s.Incorrect, &lastAnswered, &lastCorrect); err != nil {
			return nil, fmt.Errorf("scan performance: %w", err)
		}
		s.LastAnswered = time.Unix(0, lastAnswered)
		if lastCorrect > 0 {
			s.LastCorrectAt = time.Unix(0, lastCorrect)
		}
		stats[s.QuestionID] = s
	}
	return stats, rows.Err()
}

// TopicSummary aggregates the user's accuracy per question topic.
func (r *PerformanceRepo) TopicSummary(ctx context.Context, userID string) ([]TopicStats, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT q.topic, COUNT(*), SUM(p.correct)
		FROM user_performance p
		JOIN questions q ON q.id = p.question_id
		WHERE p.user_id = ?
		GROUP BY q.topic
		ORDER BY q.topic`, userID)
	if err != nil {
		return nil, fmt.Errorf("topic summary: %w", err)
	}
	defer rows.Close()

	var out []TopicStats
	for rows.Next() {
		var t TopicStats
		if err := rows.Scan(&t.Topic, &t.Answered, &t.Correct); err != nil {
			return nil, fmt.Errorf("scan topic summary: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CountByUser returns the number of recorded answers for a user.
func (r *PerformanceRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_performance WHERE user_id = ?`, userID).Scan(&n)
	return n, err
}
