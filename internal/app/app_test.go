package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"golang.org/x/time/rate"

	"github.com/hitoshi/cloudhms/internal/config"
)

func TestInit_WithValidConfig_Succeeds(t *testing.T) {
	setTestEnv(t)

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg == nil {
		t.Fatal("expected non-nil config")
	}
	if cfg.DatabaseURL != testDatabaseURL {
		t.Errorf("DatabaseURL = %q, want %q", cfg.DatabaseURL, testDatabaseURL)
	}

	// slogのグローバルロガーがJSON出力に設定されていること
	slog.Default().Info("init test")
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log output, got error: %v\nraw: %s", err, buf.String())
	}
	if entry["msg"] != "init test" {
		t.Errorf("msg = %q, want %q", entry["msg"], "init test")
	}
}

func TestInit_WithMissingConfig_ReturnsError(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("BASE_URL", "")

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err == nil {
		t.Fatal("expected error for missing required env vars, got nil")
	}
	if cfg != nil {
		t.Error("expected nil config on error")
	}
}

func TestRateLimiterConfig_ConvertsPerMinute(t *testing.T) {
	cfg := &config.Config{RateLimitGeneral: 120, RateLimitSignIn: 6}

	rl := rateLimiterConfig(cfg)

	if rl.GeneralRate != rate.Limit(2) || rl.GeneralBurst != 120 {
		t.Errorf("general = %v/%d, want 2/120", rl.GeneralRate, rl.GeneralBurst)
	}
	if rl.SignInRate != rate.Limit(0.1) || rl.SignInBurst != 6 {
		t.Errorf("signin = %v/%d, want 0.1/6", rl.SignInRate, rl.SignInBurst)
	}
	if rl.CleanupInterval <= 0 {
		t.Error("CleanupInterval should keep its default")
	}
}

func TestBuildProvider_Supabase(t *testing.T) {
	cfg := &config.Config{
		AuthProvider:    config.AuthProviderSupabase,
		SupabaseURL:     "https://abc.supabase.co",
		SupabaseAnonKey: "anon",
	}

	provider, closeFn, err := buildProvider(cfg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer closeFn()
	if provider == nil {
		t.Fatal("expected provider")
	}
}

func TestBuildProvider_RedisUnreachable(t *testing.T) {
	cfg := &config.Config{
		AuthProvider:   config.AuthProviderLocal,
		SessionBackend: config.SessionBackendRedis,
		RedisAddr:      "127.0.0.1:1",
	}

	if _, _, err := buildProvider(cfg, nil); err == nil {
		t.Error("expected error for unreachable redis")
	}
}

func TestMaskDatabaseURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"postgres://cloudhms:secret@db:5432/cloudhms?sslmode=disable", "postgres://cloudhms:xxxxx@db:5432/cloudhms?sslmode=disable"},
		{"postgres://db:5432/cloudhms", "postgres://db:5432/cloudhms"},
		{"not a url", "***"},
	}
	for _, tt := range tests {
		if got := maskDatabaseURL(tt.in); got != tt.want {
			t.Errorf("maskDatabaseURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
