package staging

import (
	"path/filepath"
	"testing"

	"quizforge/internal/processor"
)

func stagedQuestion(stem string) processor.ProcessedQuestion {
	options := []string{"Pancreas", "Liver", "Spleen", "Kidney"}
	return processor.ProcessedQuestion{
		ContentHash:  processor.ContentHash(stem, options),
		Stem:         stem,
		Options:      options,
		CorrectIndex: 0,
		Topic:        "endocrinology",
		Difficulty:   1,
	}
}

func TestWriter_AppendAndReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "staged.jsonl")

	w, err := NewWriter(path)
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	q1 := stagedQuestion("Which organ produces insulin?")
	q2 := stagedQuestion("Which hormone raises blood glucose?")
	if _, err := w.AppendAll([]processor.ProcessedQuestion{q1, q2}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("open reader: %v", err)
	}
	defer r.Close()

	got, err := r.All()
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].ContentHash != q1.ContentHash || got[1].ContentHash != q2.ContentHash {
		t.Fatal("replay order does not match append order")
	}
	if got[0].Stem != q1.Stem {
		t.Fatalf("round-trip lost stem: %q", got[0].Stem)
	}
}

func TestWriter_SkipsAlreadyStaged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "staged.jsonl")
	q := stagedQuestion("Which organ produces insulin?")

	w, err := NewWriter(path)
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	if ok, _ := w.Append(q); !ok {
		t.Fatal("first append should write")
	}
	if ok, _ := w.Append(q); ok {
		t.Fatal("second append of same hash should be skipped")
	}
	w.Close()

	// Reopening indexes the existing file, so the skip survives restarts.
	w2, err := NewWriter(path)
	if err != nil {
		t.Fatalf("reopen writer: %v", err)
	}
	if ok, _ := w2.Append(q); ok {
		t.Fatal("append after reopen should be skipped")
	}
	w2.Close()

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("open reader: %v", err)
	}
	defer r.Close()
	got, err := r.All()
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected exactly 1 record, got %d", len(got))
	}
}

func TestReader_MissingFile(t *testing.T) {
	if _, err := NewReader(filepath.Join(t.TempDir(), "absent.jsonl")); err == nil {
		t.Fatal("expected error opening missing file")
	}
}
