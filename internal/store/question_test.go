package store

import (
	"context"
	"errors"
	"testing"

	"quizforge/internal/processor"
)

func TestIngestOne_Idempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.Questions()
	rec := processedQuestion("Which organ produces insulin?")

	q1, existed, err := repo.IngestOne(ctx, rec)
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if existed {
		t.Fatal("first ingest should not report existing")
	}

	q2, existed, err := repo.IngestOne(ctx, rec)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if !existed {
		t.Fatal("second ingest should report existing")
	}
	if q1.ID != q2.ID {
		t.Fatalf("expected same row, got ids %d and %d", q1.ID, q2.ID)
	}

	n, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row, got %d", n)
	}
}

func TestIngestOne_NormalizedVariantSkipped(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.Questions()

	rec := processedQuestion("Which organ produces insulin?")
	if _, _, err := repo.IngestOne(ctx, rec); err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	// Same content, different casing and option order: same hash, and
	// the keyed answer still points at the same option text.
	variant := rec
	variant.Options = []string{"Kidney", "Spleen", "Liver", "pancreas"}
	variant.CorrectIndex = 3
	variant.ContentHash = processor.ContentHash(variant.Stem, variant.Options)
	if variant.ContentHash != rec.ContentHash {
		t.Fatal("test setup: variant must hash identically")
	}

	_, existed, err := repo.IngestOne(ctx, variant)
	if err != nil {
		t.Fatalf("variant ingest: %v", err)
	}
	if !existed {
		t.Fatal("variant should be recognized as existing")
	}
}

func TestIngestOne_IntegrityConflict(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.Questions()

	rec := processedQuestion("Which organ produces insulin?")
	if _, _, err := repo.IngestOne(ctx, rec); err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	// Same hash, different answer key. The stored row must win.
	conflicting := rec
	conflicting.CorrectIndex = 1

	stored, existed, err := repo.IngestOne(ctx, conflicting)
	var conflict *ErrIntegrityConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ErrIntegrityConflict, got: %v", err)
	}
	if !existed {
		t.Fatal("conflict should still report existing")
	}
	if stored.CorrectIndex != rec.CorrectIndex {
		t.Fatalf("stored row was altered: correct_index = %d", stored.CorrectIndex)
	}
	if conflict.ContentHash != rec.ContentHash {
		t.Fatalf("conflict carries wrong hash: %s", conflict.ContentHash)
	}
}

func TestIngestBulk_CountsAndChunks(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.Questions()

	stems := []string{
		"Which organ produces insulin?",
		"Which hormone raises blood glucose?",
		"Which cells secrete glucagon?",
		"Which organ stores glycogen?",
		"Which gland secretes cortisol?",
	}
	var recs []processor.ProcessedQuestion
	for _, stem := range stems {
		recs = append(recs, processedQuestion(stem))
	}
	// Duplicate of the first, plus a conflicting answer key for the second.
	recs = append(recs, processedQuestion(stems[0]))
	conflicting := processedQuestion(stems[1])
	conflicting.CorrectIndex = 2
	recs = append(recs, conflicting)

	res, err := repo.IngestBulk(ctx, recs, 2)
	if err != nil {
		t.Fatalf("bulk ingest: %v", err)
	}
	if res.Inserted != 5 {
		t.Errorf("inserted = %d, want 5", res.Inserted)
	}
	if res.SkippedExisting != 1 {
		t.Errorf("skipped = %d, want 1", res.SkippedExisting)
	}
	if res.Conflicts != 1 {
		t.Errorf("conflicts = %d, want 1", res.Conflicts)
	}

	n, _ := repo.Count(ctx)
	if n != 5 {
		t.Fatalf("expected 5 rows, got %d", n)
	}
}

func TestIngestBulk_RetryConvergesToSameRows(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.Questions()

	var recs []processor.ProcessedQuestion
	for _, stem := range []string{"Q one?", "Q two?", "Q three?"} {
		recs = append(recs, processedQuestion(stem))
	}

	if _, err := repo.IngestBulk(ctx, recs, 0); err != nil {
		t.Fatalf("first bulk: %v", err)
	}
	// A retry of the whole batch, as after a partial failure, must not
	// add rows.
	res, err := repo.IngestBulk(ctx, recs, 0)
	if err != nil {
		t.Fatalf("retry bulk: %v", err)
	}
	if res.Inserted != 0 || res.SkippedExisting != 3 {
		t.Fatalf("retry result = %+v, want 0 inserted / 3 skipped", res)
	}

	n, _ := repo.Count(ctx)
	if n != 3 {
		t.Fatalf("expected exactly 3 rows after retry, got %d", n)
	}
}

func TestIngestBulk_FailedChunkRollsBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.Questions()

	var recs []processor.ProcessedQuestion
	for _, stem := range []string{"Q one?", "Q two?", "Q three?", "Q four?"} {
		recs = append(recs, processedQuestion(stem))
	}
	// Poison the second chunk: correct_index 9 violates the table's
	// CHECK constraint mid-transaction.
	recs[2].CorrectIndex = 9

	res, err := repo.IngestBulk(ctx, recs, 2)
	if err == nil {
		t.Fatal("expected bulk ingest to fail on the poisoned chunk")
	}
	if res.Inserted != 2 {
		t.Errorf("partial result inserted = %d, want 2", res.Inserted)
	}

	// The failed chunk must leave no rows behind, only the committed
	// chunk before it.
	n, _ := repo.Count(ctx)
	if n != 2 {
		t.Fatalf("expected 2 rows after failed chunk, got %d", n)
	}

	// Repair and retry the whole batch: the committed rows are skipped
	// and the rolled-back chunk lands in full.
	recs[2].CorrectIndex = 0
	res, err = repo.IngestBulk(ctx, recs, 2)
	if err != nil {
		t.Fatalf("retry bulk: %v", err)
	}
	if res.Inserted != 2 || res.SkippedExisting != 2 {
		t.Fatalf("retry result = %+v, want 2 inserted / 2 skipped", res)
	}

	n, _ = repo.Count(ctx)
	if n != 4 {
		t.Fatalf("expected exactly 4 rows after retry, got %d", n)
	}
}

func TestByID_NotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Questions().ByID(context.Background(), 999)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
}

func TestAll_TopicFilterAndOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.Questions()

	a := processedQuestion("First?")
	b := processedQuestion("Second?")
	b.Topic = "cardiology"
	c := processedQuestion("Third?")

	for _, rec := range []processor.ProcessedQuestion{a, b, c} {
		if _, _, err := repo.IngestOne(ctx, rec); err != nil {
			t.Fatalf("ingest: %v", err)
		}
	}

	all, err := repo.All(ctx, "")
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].ID <= all[i-1].ID {
			t.Fatal("expected insertion order by id")
		}
	}

	cardio, err := repo.All(ctx, "cardiology")
	if err != nil {
		t.Fatalf("filtered: %v", err)
	}
	if len(cardio) != 1 || cardio[0].Stem != "Second?" {
		t.Fatalf("topic filter wrong: %+v", cardio)
	}
}
