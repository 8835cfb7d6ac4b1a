package processor

import (
	"testing"

	"quizforge/internal/candidates"
)

func validCandidate() candidates.RawCandidate {
	return candidates.RawCandidate{
		Fact:         "The pancreas produces insulin.",
		Stem:         "Which organ produces insulin?",
		Options:      []string{"Pancreas", "Liver", "Spleen", "Kidney"},
		CorrectIndex: 0,
		Rationale:    "Beta cells of the pancreas secrete insulin.",
		Topic:        "endocrinology",
		Difficulty:   1,
	}
}

func TestContentHash_Deterministic(t *testing.T) {
	h1 := ContentHash("Which organ produces insulin?", []string{"Pancreas", "Liver", "Spleen", "Kidney"})
	h2 := ContentHash("Which organ produces insulin?", []string{"Pancreas", "Liver", "Spleen", "Kidney"})
	if h1 != h2 {
		t.Fatalf("hash not deterministic: %s vs %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Fatalf("expected 64-char hex sha256, got %d chars", len(h1))
	}
}

func TestContentHash_IgnoresWhitespaceAndCase(t *testing.T) {
	h1 := ContentHash("Which organ produces insulin?", []string{"Pancreas", "Liver", "Spleen", "Kidney"})
	h2 := ContentHash("  which  organ\tproduces insulin?  ", []string{"pancreas", "LIVER", "Spleen ", " Kidney"})
	if h1 != h2 {
		t.Fatal("expected whitespace and casing differences to hash identically")
	}
}

func TestContentHash_IgnoresOptionOrder(t *testing.T) {
	h1 := ContentHash("Which organ produces insulin?", []string{"Pancreas", "Liver", "Spleen", "Kidney"})
	h2 := ContentHash("Which organ produces insulin?", []string{"Kidney", "Spleen", "Liver", "Pancreas"})
	if h1 != h2 {
		t.Fatal("expected option order not to affect the hash")
	}
}

func TestContentHash_SensitiveToSemanticChange(t *testing.T) {
	h1 := ContentHash("Which organ produces insulin?", []string{"Pancreas", "Liver", "Spleen", "Kidney"})
	h2 := ContentHash("Which organ produces glucagon?", []string{"Pancreas", "Liver", "Spleen", "Kidney"})
	if h1 == h2 {
		t.Fatal("expected stem change to change the hash")
	}
	h3 := ContentHash("Which organ produces insulin?", []string{"Pancreas", "Liver", "Spleen", "Heart"})
	if h1 == h3 {
		t.Fatal("expected option change to change the hash")
	}
}

func TestProcess_DedupKeepsFirst(t *testing.T) {
	a := validCandidate()
	b := validCandidate()
	b.Stem = "  which ORGAN produces insulin? " // same content after normalization
	c := validCandidate()
	c.Stem = "Which hormone lowers blood glucose?"
	c.Options = []string{"Insulin", "Glucagon", "Cortisol", "Adrenaline"}

	res := New(nil).Process([]candidates.RawCandidate{a, b, c}, "corpus-1")

	if len(res.Questions) != 2 {
		t.Fatalf("expected 2 questions after dedup, got %d", len(res.Questions))
	}
	if res.DroppedDuplicate != 1 {
		t.Fatalf("expected 1 duplicate counted, got %d", res.DroppedDuplicate)
	}
	// First occurrence wins, original casing preserved.
	if res.Questions[0].Stem != "Which organ produces insulin?" {
		t.Fatalf("expected first occurrence kept, got %q", res.Questions[0].Stem)
	}
}

func TestProcess_InvalidDroppedAndCounted(t *testing.T) {
	good := validCandidate()

	threeOpts := validCandidate()
	threeOpts.Stem = "How many options does this have?"
	threeOpts.Options = []string{"One", "Two", "Three"}

	badIndex := validCandidate()
	badIndex.Stem = "Where does the index point?"
	badIndex.CorrectIndex = 7

	emptyStem := validCandidate()
	emptyStem.Stem = "   "

	res := New(nil).Process([]candidates.RawCandidate{good, threeOpts, badIndex, emptyStem}, "")

	if len(res.Questions) != 1 {
		t.Fatalf("expected 1 valid question, got %d", len(res.Questions))
	}
	if res.DroppedInvalid != 3 {
		t.Fatalf("expected 3 invalid dropped, got %d", res.DroppedInvalid)
	}
}

func TestProcess_OutputOrderIsFirstOccurrence(t *testing.T) {
	var batch []candidates.RawCandidate
	stems := []string{"First question?", "Second question?", "Third question?"}
	for _, s := range stems {
		c := validCandidate()
		c.Stem = s
		batch = append(batch, c)
	}
	// Repeat the first so dedup must not disturb ordering.
	batch = append(batch, batch[0])

	res := New(nil).Process(batch, "")

	if len(res.Questions) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(res.Questions))
	}
	for i, q := range res.Questions {
		if q.Stem != stems[i] {
			t.Errorf("position %d: got %q, want %q", i, q.Stem, stems[i])
		}
	}
}

func TestProcess_CorpusIDCarried(t *testing.T) {
	res := New(nil).Process([]candidates.RawCandidate{validCandidate()}, "corpus-42")
	if res.Questions[0].CorpusID != "corpus-42" {
		t.Fatalf("expected corpus ID carried, got %q", res.Questions[0].CorpusID)
	}
}
