package memory

import (
	"context"
	"sync"

	"event-feedback-service/internal/domain"
)

// FeedbackStore is an in-process app.FeedbackStore. Values are copied on the
// way in and out so callers never share maps with the store.
type FeedbackStore struct {
	mu     sync.RWMutex
	events map[string]*eventRecord
}

type eventRecord struct {
	settings  domain.EventSettings
	hasConfig bool
	questions []domain.Question
	responses domain.Responses
}

func NewFeedbackStore() *FeedbackStore {
	return &FeedbackStore{events: make(map[string]*eventRecord)}
}

func (s *FeedbackStore) record(eventID string) *eventRecord {
	rec, ok := s.events[eventID]
	if !ok {
		rec = &eventRecord{responses: domain.Responses{}}
		s.events[eventID] = rec
	}
	return rec
}

func (s *FeedbackStore) Questions(_ context.Context, eventID string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.events[eventID]
	if !ok || !rec.hasConfig {
		return nil, domain.ErrEventNotFound
	}
	return append([]domain.Question{}, rec.questions...), nil
}

func (s *FeedbackStore) SetQuestions(_ context.Context, eventID string, questions []domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(eventID).questions = append([]domain.Question{}, questions...)
	return nil
}

func (s *FeedbackStore) Settings(_ context.Context, eventID string) (domain.EventSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.events[eventID]
	if !ok || !rec.hasConfig {
		return domain.EventSettings{}, domain.ErrEventNotFound
	}
	return rec.settings, nil
}

func (s *FeedbackStore) SetSettings(_ context.Context, eventID string, settings domain.EventSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.record(eventID)
	rec.settings = settings
	rec.hasConfig = true
	return nil
}

func (s *FeedbackStore) PutResponse(_ context.Context, eventID, respondentID string, response domain.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(eventID).responses[respondentID] = copyResponse(response)
	return nil
}

func (s *FeedbackStore) Responses(_ context.Context, eventID string) (domain.Responses, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := domain.Responses{}
	rec, ok := s.events[eventID]
	if !ok {
		return out, nil
	}
	for id, r := range rec.responses {
		out[id] = copyResponse(r)
	}
	return out, nil
}

func (s *FeedbackStore) ClearResponses(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.events[eventID]; ok {
		rec.responses = domain.Responses{}
	}
	return nil
}

func (s *FeedbackStore) Delete(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[eventID]; !ok {
		return domain.ErrEventNotFound
	}
	delete(s.events, eventID)
	return nil
}

func copyResponse(r domain.Response) domain.Response {
	out := domain.Response{
		Ratings:     make(map[int]int, len(r.Ratings)),
		TextAnswers: make(map[int]string, len(r.TextAnswers)),
		SubmittedAt: r.SubmittedAt,
	}
	for k, v := range r.Ratings {
		out.Ratings[k] = v
	}
	for k, v := range r.TextAnswers {
		out.TextAnswers[k] = v
	}
	return out
}
