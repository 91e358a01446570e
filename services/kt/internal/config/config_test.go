package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "LOG_LEVEL", "UPLOAD_DIR", "DATABASE_URL",
		"S3_ENDPOINT", "S3_ACCESS_KEY", "S3_SECRET_KEY", "S3_REGION", "S3_BUCKET", "S3_USE_SSL",
		"KT_CREDENTIALS_KEY", "GENERATION_PROVIDER", "GENERATION_BASE_URL", "GENERATION_MODEL",
		"GEMINI_API_KEY", "GENERATION_API_KEY", "REDIS_ADDR", "REDIS_PASSWORD",
		"KT_SESSION_SECRET", "KT_SESSION_TTL", "KT_MAX_UPLOAD_BYTES",
		"KT_LOGIN_RATE_LIMIT_PER_MINUTE", "KT_TRUSTED_PROXIES",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadYAMLWithEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "sqlite://kt.db")
	t.Setenv("GEMINI_API_KEY", "from-env")
	t.Setenv("S3_USE_SSL", "true")
	t.Setenv("KT_LOGIN_RATE_LIMIT_PER_MINUTE", "3")
	t.Setenv("KT_TRUSTED_PROXIES", "10.0.0.0/8, 192.168.1.1")

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
port: "9090"
logLevel: "debug"
databaseURL: "postgres://kt:kt@localhost:5432/kt?sslmode=disable"
sessionSecret: "` + testSecret + `"
objectStore:
  accessKey: "ak"
  secretKey: "sk"
  region: "eu-west-1"
  bucket: "kt-docs"
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Port != "9090" || cfg.LogLevel != "debug" {
		t.Fatalf("yaml values not applied: %+v", cfg)
	}
	if cfg.DatabaseURL != "sqlite://kt.db" {
		t.Fatalf("databaseURL = %q, want env override", cfg.DatabaseURL)
	}
	if cfg.GenerationAPIKey != "from-env" || cfg.GenerationProvider != "gemini" {
		t.Fatalf("generation config = %q %q", cfg.GenerationProvider, cfg.GenerationAPIKey)
	}
	if !cfg.ObjectStore.UseSSL || !cfg.ObjectStore.Enabled() {
		t.Fatalf("object store config = %+v", cfg.ObjectStore)
	}
	if cfg.LoginRateLimitPerMinute != 3 {
		t.Fatalf("loginRateLimitPerMinute = %d, want 3", cfg.LoginRateLimitPerMinute)
	}
	if len(cfg.TrustedProxyCIDRs) != 2 {
		t.Fatalf("trustedProxyCidrs = %v", cfg.TrustedProxyCIDRs)
	}
	if cfg.UploadDir != "uploads" || cfg.MaxUploadBytes != 50<<20 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoadWithoutFileUsesEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "memory://")
	t.Setenv("KT_SESSION_SECRET", testSecret)
	t.Setenv("GENERATION_PROVIDER", "ollama")
	t.Setenv("GENERATION_MODEL", "llama3")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Port != "8080" || cfg.GenerationModel != "llama3" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	ttl, err := ParseSessionTTL(cfg.SessionTTL)
	if err != nil || ttl != 12*time.Hour {
		t.Fatalf("session ttl = %v, %v", ttl, err)
	}
}

func TestLoadValidationNamesMissingKey(t *testing.T) {
	clearEnv(t)
	missing := filepath.Join(t.TempDir(), "missing.yaml")

	_, err := Load(missing)
	if err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("expected database error, got %v", err)
	}

	t.Setenv("DATABASE_URL", "memory://")
	_, err = Load(missing)
	if err == nil || !strings.Contains(err.Error(), "KT_SESSION_SECRET") {
		t.Fatalf("expected session secret error, got %v", err)
	}

	t.Setenv("KT_SESSION_SECRET", testSecret)
	_, err = Load(missing)
	if err == nil || !strings.Contains(err.Error(), "GEMINI_API_KEY") {
		t.Fatalf("expected api key error, got %v", err)
	}
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("KT_MAX_UPLOAD_BYTES", "lots")
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestParseSessionTTL(t *testing.T) {
	if _, err := ParseSessionTTL("-1h"); err == nil {
		t.Fatalf("expected negative ttl error")
	}
	if _, err := ParseSessionTTL("soon"); err == nil {
		t.Fatalf("expected parse error")
	}
}
