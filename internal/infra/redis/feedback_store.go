package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"event-feedback-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// FeedbackStore keeps event feedback in Redis:
//
//	SET  feedback:{eventID}:settings  {settings JSON}
//	SET  feedback:{eventID}:questions [question JSON]
//	HSET feedback:{eventID}:responses {respondentID} {response JSON}
//
// One hash field per respondent makes a resubmission a single HSET.
type FeedbackStore struct {
	client *redis.Client
	// ttl, when positive, expires an event's keys after the last write.
	ttl time.Duration
}

func NewFeedbackStore(client *redis.Client, ttl time.Duration) *FeedbackStore {
	return &FeedbackStore{client: client, ttl: ttl}
}

func (s *FeedbackStore) Questions(ctx context.Context, eventID string) ([]domain.Question, error) {
	if err := s.exists(ctx, eventID); err != nil {
		return nil, err
	}
	raw, err := s.client.Get(ctx, s.questionsKey(eventID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return []domain.Question{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get questions: %w", err)
	}
	qs := []domain.Question{}
	if err := json.Unmarshal(raw, &qs); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	return qs, nil
}

func (s *FeedbackStore) SetQuestions(ctx context.Context, eventID string, questions []domain.Question) error {
	return s.setJSON(ctx, s.questionsKey(eventID), questions)
}

func (s *FeedbackStore) Settings(ctx context.Context, eventID string) (domain.EventSettings, error) {
	raw, err := s.client.Get(ctx, s.settingsKey(eventID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.EventSettings{}, domain.ErrEventNotFound
	}
	if err != nil {
		return domain.EventSettings{}, fmt.Errorf("get settings: %w", err)
	}
	var settings domain.EventSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return domain.EventSettings{}, fmt.Errorf("decode settings: %w", err)
	}
	return settings, nil
}

func (s *FeedbackStore) SetSettings(ctx context.Context, eventID string, settings domain.EventSettings) error {
	return s.setJSON(ctx, s.settingsKey(eventID), settings)
}

func (s *FeedbackStore) PutResponse(ctx context.Context, eventID, respondentID string, response domain.Response) error {
	raw, err := json.Marshal(response)
	if err != nil {
		return err
	}
	key := s.responsesKey(eventID)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, respondentID, raw)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("put response: %w", err)
	}
	return nil
}

func (s *FeedbackStore) Responses(ctx context.Context, eventID string) (domain.Responses, error) {
	fields, err := s.client.HGetAll(ctx, s.responsesKey(eventID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get responses: %w", err)
	}
	out := make(domain.Responses, len(fields))
	for respondentID, raw := range fields {
		var r domain.Response
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, fmt.Errorf("decode response %s: %w", respondentID, err)
		}
		out[respondentID] = r
	}
	return out, nil
}

func (s *FeedbackStore) ClearResponses(ctx context.Context, eventID string) error {
	return s.client.Del(ctx, s.responsesKey(eventID)).Err()
}

func (s *FeedbackStore) Delete(ctx context.Context, eventID string) error {
	n, err := s.client.Del(ctx, s.settingsKey(eventID), s.questionsKey(eventID), s.responsesKey(eventID)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

func (s *FeedbackStore) exists(ctx context.Context, eventID string) error {
	n, err := s.client.Exists(ctx, s.settingsKey(eventID)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

func (s *FeedbackStore) setJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, raw, s.ttl).Err()
}

func (s *FeedbackStore) settingsKey(eventID string) string {
	return "feedback:" + eventID + ":settings"
}

func (s *FeedbackStore) questionsKey(eventID string) string {
	return "feedback:" + eventID + ":questions"
}

func (s *FeedbackStore) responsesKey(eventID string) string {
	return "feedback:" + eventID + ":responses"
}
