package infra

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)
	for _, key := range []string{"PORT", "CAPTION_PROVIDER", "SUBMISSION_INTERVAL_SECONDS", "CREDITS_CLASSIC", "CREDITS_PRO", "PRO_MODEL", "CORS_ALLOWED_ORIGINS", "DB_MAX_CONNS", "DB_MIN_CONNS"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.SubmissionInterval != 11*time.Second {
		t.Fatalf("SubmissionInterval = %v, want 11s", cfg.SubmissionInterval)
	}
	if cfg.ClassicCredits != 1 || cfg.ProCredits != 2 {
		t.Fatalf("credits = (%d, %d), want (1, 2)", cfg.ClassicCredits, cfg.ProCredits)
	}
	if cfg.ProModel != "google/nano-banana-pro" {
		t.Fatalf("ProModel = %q", cfg.ProModel)
	}
	if cfg.CaptionProvider != "gemini" {
		t.Fatalf("CaptionProvider = %q, want gemini", cfg.CaptionProvider)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Fatalf("CORSOrigins = %#v", cfg.CORSOrigins)
	}
	if cfg.DBMaxConns != 10 || cfg.DBMinConns != 1 {
		t.Fatalf("pool = (%d, %d), want (10, 1)", cfg.DBMaxConns, cfg.DBMinConns)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SUBMISSION_INTERVAL_SECONDS", "3")
	t.Setenv("RATE_LIMIT_RETRIES", "5")
	t.Setenv("CAPTION_PROVIDER", "OpenAI")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, https://admin.example.com ,")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.SubmissionInterval != 3*time.Second || cfg.RateLimitRetries != 5 {
		t.Fatalf("pacing = (%v, %d)", cfg.SubmissionInterval, cfg.RateLimitRetries)
	}
	if cfg.CaptionProvider != "openai" {
		t.Fatalf("CaptionProvider = %q, want openai", cfg.CaptionProvider)
	}
	want := []string{"https://app.example.com", "https://admin.example.com"}
	if len(cfg.CORSOrigins) != len(want) {
		t.Fatalf("CORSOrigins = %#v, want %#v", cfg.CORSOrigins, want)
	}
	for i := range want {
		if cfg.CORSOrigins[i] != want[i] {
			t.Fatalf("CORSOrigins[%d] = %q, want %q", i, cfg.CORSOrigins[i], want[i])
		}
	}
}

func TestLoadConfigKeepsZeroRetries(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RATE_LIMIT_RETRIES", "0")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.RateLimitRetries != 0 {
		t.Fatalf("RateLimitRetries = %d, want 0", cfg.RateLimitRetries)
	}
}

func TestLoadConfigRejects(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing database", env: map[string]string{"DATABASE_URL": ""}},
		{name: "missing jwt secret", env: map[string]string{"JWT_SECRET": ""}},
		{name: "unknown caption provider", env: map[string]string{"CAPTION_PROVIDER": "claude"}},
		{name: "zero pro credits", env: map[string]string{"CREDITS_PRO": "-1"}},
		{name: "negative retries", env: map[string]string{"RATE_LIMIT_RETRIES": "-1"}},
		{name: "min conns above max", env: map[string]string{"DB_MIN_CONNS": "8", "DB_MAX_CONNS": "4"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setRequiredEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := LoadConfig(); err == nil {
				t.Fatalf("LoadConfig returned nil error")
			}
		})
	}
}

func TestPoolConfig(t *testing.T) {
	cfg := &Config{AppEnv: "test", DatabaseURL: "postgres://planner:pw@localhost:5432/planner", DBMaxConns: 6, DBMinConns: 2}
	pc, err := poolConfig(cfg)
	if err != nil {
		t.Fatalf("poolConfig: %v", err)
	}
	if pc.MaxConns != 6 || pc.MinConns != 2 {
		t.Fatalf("conns = (%d, %d), want (6, 2)", pc.MaxConns, pc.MinConns)
	}
	if got := pc.ConnConfig.RuntimeParams["application_name"]; got != "feedplanner-test" {
		t.Fatalf("application_name = %q", got)
	}

	if _, err := poolConfig(nil); err == nil {
		t.Fatalf("poolConfig(nil) returned nil error")
	}
	if _, err := poolConfig(&Config{DatabaseURL: "postgres://%zz"}); err == nil {
		t.Fatalf("poolConfig accepted a malformed url")
	}
}
