package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"event-feedback-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// FeedbackStore persists events and responses in the tables created by the migrations package.
// A response is one row keyed by (event_id, respondent_id); resubmission is an upsert.
type FeedbackStore struct {
	pool *pgxpool.Pool
}

func NewFeedbackStore(pool *pgxpool.Pool) *FeedbackStore {
	return &FeedbackStore{pool: pool}
}

func (s *FeedbackStore) Questions(ctx context.Context, eventID string) ([]domain.Question, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT questions FROM feedback_events WHERE id=$1`, eventID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	qs := []domain.Question{}
	if err := json.Unmarshal(raw, &qs); err != nil {
		return nil, fmt.Errorf("unmarshal questions: %w", err)
	}
	return qs, nil
}

func (s *FeedbackStore) SetQuestions(ctx context.Context, eventID string, questions []domain.Question) error {
	raw, err := json.Marshal(questions)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE feedback_events SET questions=$2::jsonb, updated_at=now() WHERE id=$1`,
		eventID, string(raw))
	if err != nil {
		return fmt.Errorf("store questions: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

func (s *FeedbackStore) Settings(ctx context.Context, eventID string) (domain.EventSettings, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT settings FROM feedback_events WHERE id=$1`, eventID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.EventSettings{}, domain.ErrEventNotFound
	}
	if err != nil {
		return domain.EventSettings{}, fmt.Errorf("load settings: %w", err)
	}
	var settings domain.EventSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return domain.EventSettings{}, fmt.Errorf("unmarshal settings: %w", err)
	}
	return settings, nil
}

func (s *FeedbackStore) SetSettings(ctx context.Context, eventID string, settings domain.EventSettings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO feedback_events (id, settings) VALUES ($1, $2::jsonb)
ON CONFLICT (id) DO UPDATE SET settings=EXCLUDED.settings, updated_at=now()`,
		eventID, string(raw))
	if err != nil {
		return fmt.Errorf("store settings: %w", err)
	}
	return nil
}

func (s *FeedbackStore) PutResponse(ctx context.Context, eventID, respondentID string, response domain.Response) error {
	ratings, err := json.Marshal(response.Ratings)
	if err != nil {
		return err
	}
	texts, err := json.Marshal(response.TextAnswers)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO feedback_responses (event_id, respondent_id, ratings, text_answers, submitted_at)
VALUES ($1, $2, $3::jsonb, $4::jsonb, $5)
ON CONFLICT (event_id, respondent_id) DO UPDATE
SET ratings=EXCLUDED.ratings, text_answers=EXCLUDED.text_answers, submitted_at=EXCLUDED.submitted_at`,
		eventID, respondentID, string(ratings), string(texts), response.SubmittedAt)
	if err != nil {
		return fmt.Errorf("store response: %w", err)
	}
	return nil
}

func (s *FeedbackStore) Responses(ctx context.Context, eventID string) (domain.Responses, error) {
	rows, err := s.pool.Query(ctx, `
SELECT respondent_id, ratings, text_answers, submitted_at
FROM feedback_responses WHERE event_id=$1`, eventID)
	if err != nil {
		return nil, fmt.Errorf("load responses: %w", err)
	}
	defer rows.Close()

	out := domain.Responses{}
	for rows.Next() {
		var (
			respondentID   string
			ratings, texts []byte
			r              domain.Response
		)
		if err := rows.Scan(&respondentID, &ratings, &texts, &r.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		if err := json.Unmarshal(ratings, &r.Ratings); err != nil {
			return nil, fmt.Errorf("unmarshal ratings: %w", err)
		}
		if err := json.Unmarshal(texts, &r.TextAnswers); err != nil {
			return nil, fmt.Errorf("unmarshal text answers: %w", err)
		}
		out[respondentID] = r
	}
	return out, rows.Err()
}

func (s *FeedbackStore) ClearResponses(ctx context.Context, eventID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM feedback_responses WHERE event_id=$1`, eventID); err != nil {
		return fmt.Errorf("clear responses: %w", err)
	}
	return nil
}

func (s *FeedbackStore) Delete(ctx context.Context, eventID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM feedback_events WHERE id=$1`, eventID)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}
