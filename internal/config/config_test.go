package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"event-feedback-service/internal/domain"
)

func TestLoadParsesYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := `
server:
  port: "9000"
redis:
  addr: localhost:6379
presenter:
  auto_rotate: false
  interval: 45s
event_types:
  meetup:
    name: Meetup
    questions:
      - text: Rate the venue
        type: rating
      - text: Anything else?
        type: text
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9000" {
		t.Fatalf("expected port 9000, got %q", cfg.Server.Port)
	}
	if cfg.Redis.Addr != "redis:6380" {
		t.Fatalf("expected env override for redis addr, got %q", cfg.Redis.Addr)
	}
	if cfg.AI.AnthropicAPIKey != "sk-test" {
		t.Fatalf("expected anthropic key from env")
	}
	if cfg.AutoRotate() {
		t.Fatalf("expected auto rotate disabled")
	}
	if !cfg.AnonymousDefault() {
		t.Fatalf("expected anonymous mode on by default")
	}
	if got := TTLDuration(cfg.Presenter.Interval, time.Second); got != 45*time.Second {
		t.Fatalf("expected 45s interval, got %s", got)
	}

	templates := cfg.Templates()
	meetup := templates["meetup"]
	if len(meetup) != 2 || meetup[0].Kind != domain.KindRating || meetup[1].Text != "Anything else?" {
		t.Fatalf("unexpected meetup template: %+v", meetup)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if !cfg.AutoRotate() {
		t.Fatalf("expected auto rotate on by default")
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %s", got)
	}
	if got := TTLDuration("nonsense", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback on parse error, got %s", got)
	}
}
