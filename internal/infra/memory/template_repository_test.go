package memory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"event-feedback-service/internal/domain"
)

func TestTemplateRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		TemplateLoader: NewStaticTemplateLoader(map[string][]domain.Question{
			"conference": sampleTemplate(),
		}),
	}
	repo := NewTemplateRepository(loader, time.Minute)

	qs, err := repo.Template(context.Background(), "conference")
	if err != nil {
		t.Fatalf("template: %v", err)
	}
	if len(qs) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(qs))
	}
	if loader.calls.Load() != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls.Load())
	}

	qs[0].Text = "mutated"
	again, err := repo.Template(context.Background(), "conference")
	if err != nil {
		t.Fatalf("template 2: %v", err)
	}
	if loader.calls.Load() != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls.Load())
	}
	if again[0].Text == "mutated" {
		t.Fatalf("cached template shared with caller")
	}

	repo.Invalidate("conference")
	if _, err := repo.Template(context.Background(), "conference"); err != nil {
		t.Fatalf("template 3: %v", err)
	}
	if loader.calls.Load() != 2 {
		t.Fatalf("expected reload after invalidate, loader calls %d", loader.calls.Load())
	}
}

func TestTemplateRepositoryUnknownType(t *testing.T) {
	repo := NewTemplateRepository(NewStaticTemplateLoader(nil), time.Minute)
	_, err := repo.Template(context.Background(), "wedding")
	if !errors.Is(err, domain.ErrTemplateNotFound) {
		t.Fatalf("expected template not found, got %v", err)
	}
}

type countingLoader struct {
	TemplateLoader
	calls atomic.Int32
}

func (l *countingLoader) LoadTemplate(ctx context.Context, eventType string) ([]domain.Question, error) {
	l.calls.Add(1)
	return l.TemplateLoader.LoadTemplate(ctx, eventType)
}

func sampleTemplate() []domain.Question {
	return []domain.Question{
		{Text: "How was the keynote?", Kind: domain.KindRating},
		{Text: "What should we improve?", Kind: domain.KindText},
	}
}
