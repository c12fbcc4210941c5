package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"event-feedback-service/internal/domain"
)

func TestFeedbackStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewFeedbackStore()

	if _, err := store.Settings(ctx, "event-1"); !errors.Is(err, domain.ErrEventNotFound) {
		t.Fatalf("expected not found before init, got %v", err)
	}

	settings := domain.EventSettings{EventType: "conference", CollectionActive: true}
	if err := store.SetSettings(ctx, "event-1", settings); err != nil {
		t.Fatalf("set settings: %v", err)
	}
	if err := store.SetQuestions(ctx, "event-1", sampleTemplate()); err != nil {
		t.Fatalf("set questions: %v", err)
	}

	first := domain.Response{Ratings: map[int]int{0: 2}, SubmittedAt: time.Unix(100, 0)}
	second := domain.Response{Ratings: map[int]int{0: 5}, TextAnswers: map[int]string{1: "great"}, SubmittedAt: time.Unix(200, 0)}
	if err := store.PutResponse(ctx, "event-1", "alice", first); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.PutResponse(ctx, "event-1", "alice", second); err != nil {
		t.Fatalf("put again: %v", err)
	}

	responses, err := store.Responses(ctx, "event-1")
	if err != nil {
		t.Fatalf("responses: %v", err)
	}
	if len(responses) != 1 || responses["alice"].Ratings[0] != 5 {
		t.Fatalf("expected last write to win, got %+v", responses)
	}

	responses["alice"].Ratings[0] = 1
	again, _ := store.Responses(ctx, "event-1")
	if again["alice"].Ratings[0] != 5 {
		t.Fatalf("store shares maps with callers")
	}

	if err := store.ClearResponses(ctx, "event-1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	cleared, _ := store.Responses(ctx, "event-1")
	if len(cleared) != 0 {
		t.Fatalf("expected no responses after clear, got %d", len(cleared))
	}
	if qs, _ := store.Questions(ctx, "event-1"); len(qs) != 2 {
		t.Fatalf("clear should keep questions, got %d", len(qs))
	}

	if err := store.Delete(ctx, "event-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Questions(ctx, "event-1"); !errors.Is(err, domain.ErrEventNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}
