// Package facts turns raw source text into atomic, quizzable fact
// statements using an LLM provider.
package facts

import (
	"strings"

	"github.com/google/uuid"
)

// Corpus is a body of source text submitted for fact extraction.
type Corpus struct {
	ID    string
	Text  string
	Topic string // optional hint carried into extracted facts
}

// NewCorpus wraps text in a Corpus with a fresh ID.
func NewCorpus(text, topic string) Corpus {
	return Corpus{
		ID:    uuid.NewString(),
		Text:  text,
		Topic: topic,
	}
}

// Fact is one atomic statement extracted from a corpus segment.
type Fact struct {
	Text         string `json:"fact"`
	Topic        string `json:"subject"`
	CorpusID     string `json:"-"`
	SegmentIndex int    `json:"-"`
	StartOffset  int    `json:"-"`
	EndOffset    int    `json:"-"`
}

// Segment is a contiguous slice of corpus text small enough for one
// extraction call.
type Segment struct {
	Index       int
	Text        string
	StartOffset int
	EndOffset   int
}

// DefaultMaxSegmentSize bounds how much text goes into a single
// extraction call.
const DefaultMaxSegmentSize = 4000

// SegmentCorpus splits corpus text on paragraph boundaries, folding
// consecutive paragraphs together until maxSize would be exceeded.
// A single paragraph longer than maxSize becomes its own oversized
// segment rather than being split mid-sentence.
func SegmentCorpus(text string, maxSize int) []Segment {
	if maxSize <= 0 {
		maxSize = DefaultMaxSegmentSize
	}

	var segments []Segment
	var cur strings.Builder
	curStart := 0
	offset := 0

	flush := func(end int) {
		s := strings.TrimSpace(cur.String())
		if s != "" {
			segments = append(segments, Segment{
				Index:       len(segments),
				Text:        s,
				StartOffset: curStart,
				EndOffset:   end,
			})
		}
		cur.Reset()
	}

	for _, para := range strings.Split(text, "\n\n") {
		paraLen := len(para)
		trimmed := strings.TrimSpace(para)
		if trimmed == "" {
			offset += paraLen + 2
			continue
		}

		if cur.Len() > 0 && cur.Len()+paraLen+2 > maxSize {
			flush(offset)
			curStart = offset
		}
		if cur.Len() == 0 {
			curStart = offset
		} else {
			cur.WriteString("\n\n")
		}
		cur.WriteString(para)
		offset += paraLen + 2

		if cur.Len() >= maxSize {
			flush(offset)
			curStart = offset
		}
	}
	flush(offset)

	return segments
}
