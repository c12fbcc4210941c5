package redis

import (
	"context"
	"encoding/json"
	"log"
	"math/rand"
	"sync"
	"time"

	"event-feedback-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// TemplateLoader fetches event type templates from a backing store.
type TemplateLoader interface {
	LoadTemplate(ctx context.Context, eventType string) ([]domain.Question, error)
}

// TemplateRepository caches event type templates in Redis and falls back to a loader on a miss.
// Templates are stored as JSON: SET feedback:template:{eventType} [{"text":..,"type":..},..]
type TemplateRepository struct {
	client *redis.Client
	loader TemplateLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewTemplateRepository(client *redis.Client, loader TemplateLoader, ttl time.Duration) *TemplateRepository {
	return &TemplateRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *TemplateRepository) Template(ctx context.Context, eventType string) ([]domain.Question, error) {
	if qs, ok := r.cached(ctx, eventType); ok {
		return qs, nil
	}

	result, err, _ := r.sf.Do(eventType, func() (interface{}, error) {
		// another caller may have filled the cache meanwhile
		if qs, ok := r.cached(ctx, eventType); ok {
			return qs, nil
		}
		qs, err := r.loader.LoadTemplate(ctx, eventType)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(qs)
		if err != nil {
			return nil, err
		}
		if err := r.client.Set(ctx, r.key(eventType), raw, r.ttlWithJitter()).Err(); err != nil {
			log.Printf("template cache write failed type=%s: %v", eventType, err)
		}
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]domain.Question{}, result.([]domain.Question)...), nil
}

func (r *TemplateRepository) cached(ctx context.Context, eventType string) ([]domain.Question, bool) {
	raw, err := r.client.Get(ctx, r.key(eventType)).Bytes()
	if err != nil {
		return nil, false
	}
	var qs []domain.Question
	if err := json.Unmarshal(raw, &qs); err != nil || len(qs) == 0 {
		return nil, false
	}
	return qs, true
}

func (r *TemplateRepository) key(eventType string) string {
	return "feedback:template:" + eventType
}

func (r *TemplateRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
