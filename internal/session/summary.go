package session

import (
	"context"
	"fmt"
	"math/rand/v2"

	"quizforge/internal/store"
)

// StrongTopicThreshold splits topics into strong and needs-review.
const StrongTopicThreshold = 0.7

// Summary is a per-topic accuracy breakdown of a user's history.
type Summary struct {
	Topics      []store.TopicStats
	Strong      []string
	NeedsReview []string
	Answered    int
	Correct     int
}

// Summary aggregates the user's answer history by topic and splits
// topics at the strong-topic threshold.
func (m *Manager) Summary(ctx context.Context, userID string) (*Summary, error) {
	topics, err := m.performance.TopicSummary(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("topic summary: %w", err)
	}

	s := &Summary{Topics: topics}
	for _, t := range topics {
		s.Answered += t.Answered
		s.Correct += t.Correct
		if t.Accuracy() >= StrongTopicThreshold {
			s.Strong = append(s.Strong, t.Topic)
		} else {
			s.NeedsReview = append(s.NeedsReview, t.Topic)
		}
	}
	return s, nil
}

// PresentationOrder returns a random permutation of option indices for
// display. Stored option order stays canonical; only the presentation
// is shuffled.
func PresentationOrder(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	rand.Shuffle(n, func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	return order
}
