package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"event-feedback-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// TemplateLoader fetches the default questions of an event type from a backing store.
type TemplateLoader interface {
	LoadTemplate(ctx context.Context, eventType string) ([]domain.Question, error)
}

// TemplateRepository caches event type templates with TTL to avoid repeated loads.
type TemplateRepository struct {
	loader TemplateLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedTemplate
}

type cachedTemplate struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewTemplateRepository(loader TemplateLoader, ttl time.Duration) *TemplateRepository {
	return &TemplateRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedTemplate),
	}
}

func (r *TemplateRepository) Template(ctx context.Context, eventType string) ([]domain.Question, error) {
	if qs, ok := r.lookup(eventType); ok {
		return qs, nil
	}

	result, err, _ := r.sf.Do(eventType, func() (interface{}, error) {
		if qs, ok := r.lookup(eventType); ok {
			return qs, nil
		}
		qs, err := r.loader.LoadTemplate(ctx, eventType)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.cache[eventType] = cachedTemplate{
			questions: qs,
			expiresAt: r.clock().Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]domain.Question{}, result.([]domain.Question)...), nil
}

func (r *TemplateRepository) lookup(eventType string) ([]domain.Question, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[eventType]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return nil, false
	}
	return append([]domain.Question{}, entry.questions...), true
}

// Invalidate drops a cached template so the next read reloads it.
func (r *TemplateRepository) Invalidate(eventType string) {
	r.mu.Lock()
	delete(r.cache, eventType)
	r.mu.Unlock()
}

func (r *TemplateRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter spreads expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticTemplateLoader serves templates from configuration.
type StaticTemplateLoader struct {
	templates map[string][]domain.Question
}

func NewStaticTemplateLoader(templates map[string][]domain.Question) *StaticTemplateLoader {
	return &StaticTemplateLoader{templates: templates}
}

func (l *StaticTemplateLoader) LoadTemplate(_ context.Context, eventType string) ([]domain.Question, error) {
	if qs, ok := l.templates[eventType]; ok && len(qs) > 0 {
		return append([]domain.Question{}, qs...), nil
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrTemplateNotFound, eventType)
}
