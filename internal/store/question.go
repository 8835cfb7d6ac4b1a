package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"quizforge/internal/processor"
)

// Question is a stored, content-addressed MCQ. Rows are immutable once
// created and never deleted in normal operation.
type Question struct {
	ID           int64
	ContentHash  string
	Stem         string
	Options      []string
	CorrectIndex int
	Rationale    string
	Topic        string
	Difficulty   int
	SourceFact   string
	CorpusID     string
	CreatedAt    time.Time
}

// BulkResult reports the outcome of a bulk ingestion.
type BulkResult struct {
	Inserted        int
	SkippedExisting int
	Conflicts       int
}

// DefaultChunkSize is the number of records per ingestion transaction.
const DefaultChunkSize = 100

// QuestionRepo persists and loads questions.
type QuestionRepo struct {
	db *sql.DB
}

const questionColumns = `id, content_hash, stem, options, correct_index,
	rationale, topic, difficulty, source_fact, corpus_id, created_at`

// IngestOne inserts a processed question if its content hash is new.
// The returned bool reports whether an equivalent question already
// existed. A stored question with the same hash but a different payload
// yields *ErrIntegrityConflict and the stored row is returned untouched.
func (r *QuestionRepo) IngestOne(ctx context.Context, rec processor.ProcessedQuestion) (*Question, bool, error) {
	return ingestOne(ctx, r.db, rec)
}

// execer covers both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func ingestOne(ctx context.Context, db execer, rec processor.ProcessedQuestion) (*Question, bool, error) {
	optionsJSON, err := json.Marshal(rec.Options)
	if err != nil {
		return nil, false, fmt.Errorf("marshal options: %w", err)
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO questions
			(content_hash, stem, options, correct_index, rationale, topic,
			 difficulty, source_fact, corpus_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(content_hash) DO NOTHING`,
		rec.ContentHash, rec.Stem, string(optionsJSON), rec.CorrectIndex,
		rec.Rationale, rec.Topic, rec.Difficulty, rec.SourceFact, rec.CorpusID,
		time.Now().UnixNano(),
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert question: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("rows affected: %w", err)
	}

	existing, err := scanQuestion(db.QueryRowContext(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE content_hash = ?`,
		rec.ContentHash))
	if err != nil {
		return nil, false, fmt.Errorf("load question by hash: %w", err)
	}

	if affected > 0 {
		return existing, false, nil
	}

	if !equivalentPayload(existing, rec) {
		return existing, true, &ErrIntegrityConflict{ContentHash: rec.ContentHash}
	}
	return existing, true, nil
}

// equivalentPayload reports whether a stored question and an incoming
// record are the same beyond normalization. The hash already covers
// stem and option content, so only the keyed answer can still diverge.
func equivalentPayload(q *Question, rec processor.ProcessedQuestion) bool {
	if len(q.Options) != len(rec.Options) {
		return false
	}
	if q.CorrectIndex >= len(q.Options) || rec.CorrectIndex >= len(rec.Options) {
		return false
	}
	storedAnswer := processor.CollapseWhitespace(q.Options[q.CorrectIndex])
	newAnswer := processor.CollapseWhitespace(rec.Options[rec.CorrectIndex])
	return strings.EqualFold(storedAnswer, newAnswer)
}

// IngestBulk inserts records in chunked transactions. Each chunk
// commits atomically or rolls back entirely; integrity conflicts
// within a chunk are counted, not fatal. chunkSize <= 0 selects
// DefaultChunkSize.
func (r *QuestionRepo) IngestBulk(ctx context.Context, recs []processor.ProcessedQuestion, chunkSize int) (BulkResult, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	var result BulkResult
	for start := 0; start < len(recs); start += chunkSize {
		end := min(start+chunkSize, len(recs))
		if err := r.ingestChunk(ctx, recs[start:end], &result); err != nil {
			return result, err
		}
	}
	return result, nil
}

func (r *QuestionRepo) ingestChunk(ctx context.Context, chunk []processor.ProcessedQuestion, result *BulkResult) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin chunk: %w", err)
	}
	defer tx.Rollback()

	pending := BulkResult{}
	for _, rec := range chunk {
		_, existed, err := ingestOne(ctx, tx, rec)
		var conflict *ErrIntegrityConflict
		switch {
		case errors.As(err, &conflict):
			pending.Conflicts++
		case err != nil:
			return fmt.Errorf("ingest chunk: %w", err)
		case existed:
			pending.SkippedExisting++
		default:
			pending.Inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit chunk: %w", err)
	}

	result.Inserted += pending.Inserted
	result.SkippedExisting += pending.SkippedExisting
	result.Conflicts += pending.Conflicts
	return nil
}

// ByID loads one question.
func (r *QuestionRepo) ByID(ctx context.Context, id int64) (*Question, error) {
	q, err := scanQuestion(r.db.QueryRowContext(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return q, err
}

// All returns every question, optionally filtered by topic, in
// insertion order.
func (r *QuestionRepo) All(ctx context.Context, topic string) ([]Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions`
	var args []any
	if topic != "" {
		query += ` WHERE topic = ?`
		args = append(args, topic)
	}
	query += ` ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var out []Question
	for rows.Next() {
		q, err := scanQuestionRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *q)
	}
	return out, rows.Err()
}

// Count returns the number of stored questions.
func (r *QuestionRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions`).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row *sql.Row) (*Question, error) {
	return scanQuestionRows(row)
}

func scanQuestionRows(row rowScanner) (*Question, error) {
	var q Question
	var optionsJSON string
	var createdAt int64
	err := row.Scan(&q.ID, &q.ContentHash, &q.Stem, &optionsJSON,
		&q.CorrectIndex, &q.Rationale, &q.Topic, &q.Difficulty,
		&q.SourceFact, &q.CorpusID, &createdAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(optionsJSON), &q.Options); err != nil {
		return nil, fmt.Errorf("decode options: %w", err)
	}
	q.CreatedAt = time.Unix(0, createdAt)
	return &q, nil
}
