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

// TemplateLoader loads event type question templates stored as JSONB.
type TemplateLoader struct {
	pool *pgxpool.Pool
}

func NewTemplateLoader(pool *pgxpool.Pool) *TemplateLoader {
	return &TemplateLoader{pool: pool}
}

func (l *TemplateLoader) LoadTemplate(ctx context.Context, eventType string) ([]domain.Question, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT questions FROM question_templates WHERE event_type=$1`, eventType).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", domain.ErrTemplateNotFound, eventType)
	}
	if err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}
	var qs []domain.Question
	if err := json.Unmarshal(raw, &qs); err != nil {
		return nil, fmt.Errorf("unmarshal template: %w", err)
	}
	if len(qs) == 0 {
		return nil, fmt.Errorf("%w: %q is empty", domain.ErrTemplateNotFound, eventType)
	}
	return qs, nil
}

// Seed inserts templates that are not in the table yet; rows edited in the database win.
func (l *TemplateLoader) Seed(ctx context.Context, templates map[string][]domain.Question) (int, error) {
	inserted := 0
	for eventType, qs := range templates {
		raw, err := json.Marshal(qs)
		if err != nil {
			return inserted, err
		}
		tag, err := l.pool.Exec(ctx, `
INSERT INTO question_templates (event_type, questions) VALUES ($1, $2::jsonb)
ON CONFLICT (event_type) DO NOTHING`, eventType, string(raw))
		if err != nil {
			return inserted, fmt.Errorf("seed template %s: %w", eventType, err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}
