// Package session selects questions for review and records answers.
// Selection state is recomputed from the answer log on every call,
// never cached.
package session

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"go.uber.org/zap"

	"quizforge/internal/store"
)

// NeverSeenScore is the priority tier for questions with no history.
// It outranks any realistic review score.
const NeverSeenScore = 1e6

// DefaultCooldown is how long a correctly answered question stays out
// of selection.
const DefaultCooldown = 72 * time.Hour

// recencyPerDay is the review-tier bonus per day since last answered.
const recencyPerDay = 0.1

// Scorer computes the selection priority of a question. A nil stats
// pointer means the user has never answered it. Higher scores are
// selected first.
type Scorer func(q store.Question, stats *store.AnswerStats, now time.Time) float64

// DefaultScorer puts never-seen questions in their own top tier and
// ranks answered questions by error surplus plus a recency bonus, so
// long-unseen material drifts back up.
func DefaultScorer(q store.Question, stats *store.AnswerStats, now time.Time) float64 {
	if stats == nil {
		return NeverSeenScore
	}
	days := now.Sub(stats.LastAnswered).Hours() / 24
	return float64(stats.Incorrect-stats.Correct) + days*recencyPerDay
}

// BatchOptions controls one NextBatch call.
type BatchOptions struct {
	Topic   string
	Count   int
	Shuffle bool
}

// DefaultBatchCount is used when BatchOptions.Count is not positive.
const DefaultBatchCount = 20

// Manager drives question selection and answer recording.
type Manager struct {
	questions   *store.QuestionRepo
	performance *store.PerformanceRepo
	scorer      Scorer
	cooldown    time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// Option customizes a Manager.
type Option func(*Manager)

// WithScorer replaces the default priority scorer.
func WithScorer(s Scorer) Option {
	return func(m *Manager) { m.scorer = s }
}

// WithCooldown sets the correct-answer exclusion window. Zero disables
// the exclusion entirely.
func WithCooldown(d time.Duration) Option {
	return func(m *Manager) { m.cooldown = d }
}

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a Manager over the given store. A nil logger
// disables logging.
func NewManager(s *store.Store, logger *zap.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		questions:   s.Questions(),
		performance: s.Performance(),
		scorer:      DefaultScorer,
		cooldown:    DefaultCooldown,
		logger:      logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NextBatch selects up to opts.Count questions for the user, highest
// priority first. Questions answered correctly within the cool-down
// window are excluded. Order is deterministic unless Shuffle is set.
func (m *Manager) NextBatch(ctx context.Context, userID string, opts BatchOptions) ([]store.Question, error) {
	count := opts.Count
	if count <= 0 {
		count = DefaultBatchCount
	}

	questions, err := m.questions.All(ctx, opts.Topic)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	stats, err := m.performance.StatsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load performance: %w", err)
	}

	now := m.now()

	type scored struct {
		q     store.Question
		score float64
	}
	var pool []scored
	for _, q := range questions {
		var st *store.AnswerStats
		if s, ok := stats[q.ID]; ok {
			st = &s
		}
		if m.coolingDown(st, now) {
			continue
		}
		pool = append(pool, scored{q: q, score: m.scorer(q, st, now)})
	}

	// Descending score, id ascending on ties (insertion order).
	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].score != pool[j].score {
			return pool[i].score > pool[j].score
		}
		return pool[i].q.ID < pool[j].q.ID
	})

	if len(pool) > count {
		pool = pool[:count]
	}

	out := make([]store.Question, len(pool))
	for i, sc := range pool {
		out[i] = sc.q
	}

	if opts.Shuffle {
		rand.Shuffle(len(out), func(i, j int) {
			out[i], out[j] = out[j], out[i]
		})
	}

	m.logger.Debug("selected batch",
		zap.String("user_id", userID),
		zap.String("topic", opts.Topic),
		zap.Int("selected", len(out)))
	return out, nil
}

// coolingDown reports whether the question's last correct answer is
// still inside the exclusion window.
func (m *Manager) coolingDown(st *store.AnswerStats, now time.Time) bool {
	if m.cooldown <= 0 || st == nil || st.LastCorrectAt.IsZero() {
		return false
	}
	return now.Sub(st.LastCorrectAt) < m.cooldown
}

// RecordAnswer appends one answer row, deriving correctness from the
// stored answer key. It is transactional in the store layer.
func (m *Manager) RecordAnswer(ctx context.Context, userID string, questionID int64, answeredIndex int) (*store.PerformanceRow, error) {
	row, err := m.performance.RecordAnswer(ctx, userID, questionID, answeredIndex)
	if err != nil {
		return nil, err
	}
	m.logger.Debug("recorded answer",
		zap.String("user_id", userID),
		zap.Int64("question_id", questionID),
		zap.Bool("correct", row.Correct))
	return row, nil
}
