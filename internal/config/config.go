package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strconv"
	"time"

	"event-feedback-service/internal/domain"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Feedback struct {
		// TemplateTTL bounds how long event-type templates stay cached.
		TemplateTTL   string `yaml:"template_ttl"`
		AnonymousMode *bool  `yaml:"anonymous_mode"`
	} `yaml:"feedback"`
	AI struct {
		Provider        string `yaml:"provider"`
		Model           string `yaml:"model"`
		AnthropicAPIKey string `yaml:"anthropic_api_key"`
		OpenAIAPIKey    string `yaml:"openai_api_key"`
		Timeout         string `yaml:"timeout"`
	} `yaml:"ai"`
	Presenter struct {
		AutoRotate *bool  `yaml:"auto_rotate"`
		Interval   string `yaml:"interval"`
	} `yaml:"presenter"`
	// EventTypes maps an event type key to its default question set.
	EventTypes map[string]EventType `yaml:"event_types"`
}

// EventType is a named default question template.
type EventType struct {
	Name      string            `yaml:"name"`
	Questions []domain.Question `yaml:"questions"`
}

// Load reads YAML config from path and applies environment overrides.
// A missing file is not an error; the service runs on defaults and env vars.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
		log.Printf("loaded config from %s", path)
	case errors.Is(err, fs.ErrNotExist):
		log.Printf("config %s not found, using defaults", path)
	default:
		return cfg, err
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	envOverride(&c.Server.Port, "PORT")
	envOverride(&c.Redis.Addr, "REDIS_ADDR")
	envOverride(&c.Redis.Password, "REDIS_PASSWORD")
	envOverrideInt(&c.Redis.DB, "REDIS_DB")
	envOverride(&c.Postgres.URL, "POSTGRES_URL")
	envOverride(&c.AI.Provider, "AI_PROVIDER")
	envOverride(&c.AI.Model, "AI_MODEL")
	envOverride(&c.AI.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&c.AI.OpenAIAPIKey, "OPENAI_API_KEY")
	envOverride(&c.Presenter.Interval, "PRESENTER_INTERVAL")
}

// AnonymousDefault is the anonymous mode new events start with (on unless configured off).
func (c Config) AnonymousDefault() bool {
	if c.Feedback.AnonymousMode == nil {
		return true
	}
	return *c.Feedback.AnonymousMode
}

// AutoRotate reports whether presenters rotate views on a timer (on unless configured off).
func (c Config) AutoRotate() bool {
	if c.Presenter.AutoRotate == nil {
		return true
	}
	return *c.Presenter.AutoRotate
}

// Templates flattens EventTypes into event type -> questions.
func (c Config) Templates() map[string][]domain.Question {
	out := make(map[string][]domain.Question, len(c.EventTypes))
	for key, et := range c.EventTypes {
		out[key] = append([]domain.Question(nil), et.Questions...)
	}
	return out
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

func envOverride(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func envOverrideInt(target *int, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("ignoring %s=%q: %v", key, v, err)
		return
	}
	*target = n
}
