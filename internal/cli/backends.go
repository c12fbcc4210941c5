package cli

import (
	"context"
	"fmt"
	"log"
	"time"

	"event-feedback-service/internal/app"
	"event-feedback-service/internal/config"
	"event-feedback-service/internal/generation"
	"event-feedback-service/internal/infra/memory"
	pgstore "event-feedback-service/internal/infra/postgres"
	redisstore "event-feedback-service/internal/infra/redis"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
)

// backends holds the stores chosen from configuration: Postgres for feedback when
// configured, else Redis, else memory; Redis caches templates and marks live sessions.
type backends struct {
	store     app.FeedbackStore
	sessions  app.SessionRepository
	templates app.TemplateRepository
	durable   bool

	closers []func()
}

func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackends(ctx context.Context, cfg config.Config) (*backends, error) {
	b := &backends{}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			redisClient.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		b.closers = append(b.closers, func() { redisClient.Close() })
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 24*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		var err error
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)
	}

	configured := cfg.Templates()
	var loader memory.TemplateLoader = memory.NewStaticTemplateLoader(configured)
	if pool != nil {
		pgLoader := pgstore.NewTemplateLoader(pool)
		n, err := pgLoader.Seed(ctx, configured)
		if err != nil {
			b.Close()
			return nil, err
		}
		if n > 0 {
			log.Printf("seeded %d question templates", n)
		}
		loader = pgLoader
	}

	templateTTL := config.TTLDuration(cfg.Feedback.TemplateTTL, 10*time.Minute)
	switch {
	case redisClient != nil:
		b.templates = redisstore.NewTemplateRepository(redisClient, loader, templateTTL)
		b.sessions = redisstore.NewSessionStore(redisClient, redisTTL)
	default:
		b.templates = memory.NewTemplateRepository(loader, templateTTL)
		b.sessions = memory.NewSessionStore()
	}

	switch {
	case pool != nil:
		b.store = pgstore.NewFeedbackStore(pool)
		b.durable = true
		log.Printf("feedback store: postgres")
	case redisClient != nil:
		b.store = redisstore.NewFeedbackStore(redisClient, redisTTL)
		b.durable = true
		log.Printf("feedback store: redis ttl=%s", redisTTL)
	default:
		b.store = memory.NewFeedbackStore()
		log.Printf("feedback store: memory")
	}
	return b, nil
}

// newGenerator picks the generation provider; without an API key it falls back to canned questions.
func newGenerator(cfg config.Config) generation.Generator {
	timeout := config.TTLDuration(cfg.AI.Timeout, 60*time.Second)
	provider := cfg.AI.Provider
	if provider == "" {
		switch {
		case cfg.AI.AnthropicAPIKey != "":
			provider = "anthropic"
		case cfg.AI.OpenAIAPIKey != "":
			provider = "openai"
		}
	}

	switch provider {
	case "anthropic":
		if cfg.AI.AnthropicAPIKey != "" {
			log.Printf("question generation: anthropic")
			return generation.NewAnthropicGenerator(cfg.AI.AnthropicAPIKey, cfg.AI.Model, option.WithRequestTimeout(timeout))
		}
	case "openai":
		if cfg.AI.OpenAIAPIKey != "" {
			log.Printf("question generation: openai")
			return generation.NewOpenAIGenerator(cfg.AI.OpenAIAPIKey, cfg.AI.Model, timeout)
		}
	}
	log.Printf("question generation: static (no provider key configured)")
	return generation.StaticGenerator{Output: generation.DefaultStaticOutput()}
}
