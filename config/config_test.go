package config

import (
	"log/slog"
	"reflect"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

func TestAppConfig_Defaults(t *testing.T) {
	t.Setenv("NODE_ENV", "")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()

	if cfg.IsDev {
		t.Fatal("expected production mode by default")
	}
	if cfg.API.Origin != "http://localhost:3000" {
		t.Fatalf("unexpected origin %q", cfg.API.Origin)
	}
	if cfg.API.RefreshPath != "/auth/refresh-token" || cfg.API.LogoutPath != "/auth/logout" {
		t.Fatalf("unexpected endpoint paths: %+v", cfg.API)
	}
	if cfg.API.RequestTimeout != 30*time.Second {
		t.Fatalf("unexpected request timeout %v", cfg.API.RequestTimeout)
	}
	wantPrefixes := []string{"/api/analytics", "/api/admin", "/api/cv-admin"}
	if !reflect.DeepEqual(cfg.Pipeline.PublicSafePrefixes, wantPrefixes) {
		t.Fatalf("expected default prefixes %v, got %v", wantPrefixes, cfg.Pipeline.PublicSafePrefixes)
	}
	if cfg.Pipeline.RefreshCooldown != 30*time.Second || cfg.Pipeline.MaxConsecutiveFailures != 3 {
		t.Fatalf("unexpected storm guard defaults: %+v", cfg.Pipeline)
	}
	if cfg.Session.Persist {
		t.Fatal("expected session persistence to be off by default")
	}
	if cfg.Observability.Level() != slog.LevelInfo {
		t.Fatalf("unexpected log level %v", cfg.Observability.Level())
	}
}

func TestAppConfig_ParseEnv(t *testing.T) {
	t.Setenv("API_ORIGIN", " https://api.example.com/ ")
	t.Setenv("API_REFRESH_PATH", "auth/renew")
	t.Setenv("API_LOGIN_ROUTE", "/signin")
	t.Setenv("API_REQUEST_TIMEOUT", "5s")
	t.Setenv("AUTH_PUBLIC_SAFE_PREFIXES", "/api/analytics, /api/public ,")
	t.Setenv("AUTH_REFRESH_TIMEOUT", "2s")
	t.Setenv("AUTH_REFRESH_COOLDOWN", "-1s")
	t.Setenv("AUTH_MAX_CONSECUTIVE_REFRESH_FAILURES", "5")
	t.Setenv("SESSION_PERSIST", "true")
	t.Setenv("SESSION_KEY", "cli:")
	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("REDIS_URI", "redis://cache:6379/2")
	t.Setenv("REDIS_PASSWORD", "pw")
	t.Setenv("OBSERVABILITY_METRICS_ENABLED", "true")
	t.Setenv("OBSERVABILITY_METRICS_PREFIX", ".portfolio.cli.")
	t.Setenv("LOG_LEVEL", "WARNING")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()

	if cfg.API.Origin != "https://api.example.com" {
		t.Fatalf("expected origin to be trimmed, got %q", cfg.API.Origin)
	}
	if cfg.API.RefreshPath != "/auth/renew" {
		t.Fatalf("expected leading slash on refresh path, got %q", cfg.API.RefreshPath)
	}
	if cfg.API.LoginRoute != "/signin" || cfg.API.RequestTimeout != 5*time.Second {
		t.Fatalf("unexpected api config: %+v", cfg.API)
	}

	wantPrefixes := []string{"/api/analytics", "/api/public"}
	if !reflect.DeepEqual(cfg.Pipeline.PublicSafePrefixes, wantPrefixes) {
		t.Fatalf("expected prefixes %v, got %v", wantPrefixes, cfg.Pipeline.PublicSafePrefixes)
	}
	if cfg.Pipeline.RefreshTimeout != 2*time.Second {
		t.Fatalf("unexpected refresh timeout %v", cfg.Pipeline.RefreshTimeout)
	}
	if cfg.Pipeline.RefreshCooldown >= 0 {
		t.Fatalf("expected negative cooldown to be preserved, got %v", cfg.Pipeline.RefreshCooldown)
	}
	if cfg.Pipeline.MaxConsecutiveFailures != 5 {
		t.Fatalf("unexpected max failures %d", cfg.Pipeline.MaxConsecutiveFailures)
	}

	if !cfg.Session.Persist || cfg.Session.TTL != time.Hour {
		t.Fatalf("unexpected session config: %+v", cfg.Session)
	}
	if cfg.Session.SnapshotKey() != "cli:session" || cfg.Session.CredentialsKey() != "cli:credentials" {
		t.Fatalf("unexpected session keys %q %q", cfg.Session.SnapshotKey(), cfg.Session.CredentialsKey())
	}
	if !cfg.Redis.IsURL() || cfg.Redis.Password != "pw" {
		t.Fatalf("unexpected redis config: %+v", cfg.Redis)
	}

	if !cfg.Observability.Metrics.IsEnabled() || cfg.Observability.Metrics.Prefix != "portfolio.cli" {
		t.Fatalf("unexpected metrics config: %+v", cfg.Observability.Metrics)
	}
	if cfg.Observability.Level() != slog.LevelWarn {
		t.Fatalf("expected warn level, got %v", cfg.Observability.Level())
	}
}

func TestAppConfig_DetectDevMode(t *testing.T) {
	t.Setenv("NODE_ENV", "development")

	cfg := AppConfig{}
	cfg.Sanitize()

	if !cfg.IsDev {
		t.Fatal("expected NODE_ENV=development to enable dev mode")
	}
}

func TestPipelineConfig_Sanitize(t *testing.T) {
	cfg := PipelineConfig{
		PublicSafePrefixes:     []string{" ", "/api/analytics"},
		RefreshTimeout:         0,
		MaxConsecutiveFailures: 0,
	}

	cfg.Sanitize()

	if !reflect.DeepEqual(cfg.PublicSafePrefixes, []string{"/api/analytics"}) {
		t.Fatalf("expected blank prefixes to be dropped, got %v", cfg.PublicSafePrefixes)
	}
	if cfg.RefreshTimeout <= 0 {
		t.Fatalf("expected refresh timeout to fall back to default, got %v", cfg.RefreshTimeout)
	}
	if cfg.MaxConsecutiveFailures != 3 {
		t.Fatalf("expected max failures default, got %d", cfg.MaxConsecutiveFailures)
	}
}

func TestSessionConfig_Sanitize(t *testing.T) {
	cfg := SessionConfig{Key: "  ", TTL: -time.Minute}

	cfg.Sanitize()

	if cfg.Key != "portfolio" {
		t.Fatalf("expected default key, got %q", cfg.Key)
	}
	if cfg.TTL != 0 {
		t.Fatalf("expected negative ttl to be clamped, got %v", cfg.TTL)
	}
}

func TestRedisConfig_Sanitize(t *testing.T) {
	cfg := RedisConfig{URI: " ", DB: -2}

	cfg.Sanitize()

	if cfg.URI != "localhost:6379" || cfg.DB != 0 {
		t.Fatalf("unexpected redis config: %+v", cfg)
	}
	if cfg.IsURL() {
		t.Fatal("expected host:port not to be treated as a URL")
	}
}

func TestObservabilityMetricsConfig_Sanitize(t *testing.T) {
	cfg := ObservabilityMetricsConfig{
		Enabled:       true,
		StatsdAddress: " ",
	}

	cfg.Sanitize()

	if cfg.Enabled {
		t.Fatalf("expected enabled to be false when address is empty")
	}
	if cfg.Prefix != "portfolio" {
		t.Fatalf("expected default prefix, got %q", cfg.Prefix)
	}

	cfg = ObservabilityMetricsConfig{
		Enabled:       true,
		StatsdAddress: " statsd:1234 ",
	}

	cfg.Sanitize()

	if !cfg.IsEnabled() {
		t.Fatalf("expected metrics to remain enabled")
	}
	if cfg.StatsdAddress != "statsd:1234" {
		t.Fatalf("expected address to be trimmed, got %q", cfg.StatsdAddress)
	}
}

func TestObservabilityConfig_LogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: " Error ", want: slog.LevelError},
		{in: "verbose", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
	}

	for _, tt := range tests {
		cfg := ObservabilityConfig{LogLevel: tt.in}
		cfg.Sanitize()
		if got := cfg.Level(); got != tt.want {
			t.Errorf("LogLevel %q: expected %v, got %v", tt.in, tt.want, got)
		}
	}
}
