package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
	"ktassist/pkg/ai"
	"ktassist/pkg/storage"
)

// ConfigPath is the default config file location. The file is optional.
const ConfigPath = "config.yaml"

const (
	defaultPort           = "8080"
	defaultUploadDir      = "uploads"
	defaultSessionTTL     = "12h"
	defaultMaxUploadBytes = 50 << 20
	defaultLoginPerMinute = 10
)

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port                    string               `yaml:"port"`
	LogLevel                string               `yaml:"logLevel"`
	UploadDir               string               `yaml:"uploadDir"`
	DatabaseURL             string               `yaml:"databaseURL"`
	ObjectStore             storage.ObjectConfig `yaml:"objectStore"`
	CredentialsKey          string               `yaml:"credentialsKey"`
	GenerationProvider      string               `yaml:"generationProvider"`
	GenerationBaseURL       string               `yaml:"generationBaseURL"`
	GenerationModel         string               `yaml:"generationModel"`
	GenerationAPIKey        string               `yaml:"generationAPIKey"`
	RedisAddr               string               `yaml:"redisAddr"`
	RedisPassword           string               `yaml:"redisPassword"`
	SessionSecret           string               `yaml:"sessionSecret"`
	SessionTTL              string               `yaml:"sessionTTL"`
	MaxUploadBytes          int64                `yaml:"maxUploadBytes"`
	LoginRateLimitPerMinute int                  `yaml:"loginRateLimitPerMinute"`
	TrustedProxyCIDRs       []string             `yaml:"trustedProxyCidrs"`
}

// Load reads config from path, applies environment overrides and validates.
// A missing file is not an error; every value can come from the environment.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *FileConfig) error {
	setString := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setString("PORT", &cfg.Port)
	setString("LOG_LEVEL", &cfg.LogLevel)
	setString("UPLOAD_DIR", &cfg.UploadDir)
	setString("DATABASE_URL", &cfg.DatabaseURL)
	setString("S3_ENDPOINT", &cfg.ObjectStore.Endpoint)
	setString("S3_ACCESS_KEY", &cfg.ObjectStore.AccessKey)
	setString("S3_SECRET_KEY", &cfg.ObjectStore.SecretKey)
	setString("S3_REGION", &cfg.ObjectStore.Region)
	setString("S3_BUCKET", &cfg.ObjectStore.Bucket)
	setString("KT_CREDENTIALS_KEY", &cfg.CredentialsKey)
	setString("GENERATION_PROVIDER", &cfg.GenerationProvider)
	setString("GENERATION_BASE_URL", &cfg.GenerationBaseURL)
	setString("GENERATION_MODEL", &cfg.GenerationModel)
	setString("GEMINI_API_KEY", &cfg.GenerationAPIKey)
	setString("GENERATION_API_KEY", &cfg.GenerationAPIKey)
	setString("REDIS_ADDR", &cfg.RedisAddr)
	setString("REDIS_PASSWORD", &cfg.RedisPassword)
	setString("KT_SESSION_SECRET", &cfg.SessionSecret)
	setString("KT_SESSION_TTL", &cfg.SessionTTL)

	if v := strings.TrimSpace(os.Getenv("S3_USE_SSL")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: S3_USE_SSL: %w", err)
		}
		cfg.ObjectStore.UseSSL = b
	}
	if v := strings.TrimSpace(os.Getenv("KT_MAX_UPLOAD_BYTES")); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config: KT_MAX_UPLOAD_BYTES: %w", err)
		}
		cfg.MaxUploadBytes = n
	}
	if v := strings.TrimSpace(os.Getenv("KT_LOGIN_RATE_LIMIT_PER_MINUTE")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: KT_LOGIN_RATE_LIMIT_PER_MINUTE: %w", err)
		}
		cfg.LoginRateLimitPerMinute = n
	}
	if v := os.Getenv("KT_TRUSTED_PROXIES"); v != "" {
		cfg.TrustedProxyCIDRs = splitCSV(v)
	}
	return nil
}

func applyDefaults(cfg *FileConfig) {
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = defaultUploadDir
	}
	if cfg.GenerationProvider == "" {
		cfg.GenerationProvider = ai.ProviderGemini
	}
	if cfg.SessionTTL == "" {
		cfg.SessionTTL = defaultSessionTTL
	}
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.LoginRateLimitPerMinute == 0 {
		cfg.LoginRateLimitPerMinute = defaultLoginPerMinute
	}
}

func validateConfig(cfg FileConfig) error {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return errors.New("config: databaseURL is required (set in config.yaml or DATABASE_URL)")
	}
	if len(cfg.SessionSecret) < 32 {
		return errors.New("config: sessionSecret must be at least 32 bytes (set in config.yaml or KT_SESSION_SECRET)")
	}
	if strings.EqualFold(cfg.GenerationProvider, ai.ProviderGemini) && strings.TrimSpace(cfg.GenerationAPIKey) == "" {
		return errors.New("config: generationAPIKey is required for gemini (set GEMINI_API_KEY)")
	}
	if _, err := ParseSessionTTL(cfg.SessionTTL); err != nil {
		return err
	}
	if cfg.MaxUploadBytes < 0 || cfg.LoginRateLimitPerMinute < 0 {
		return errors.New("config: maxUploadBytes and loginRateLimitPerMinute must be >= 0")
	}
	return nil
}

// ParseSessionTTL parses the session lifetime.
func ParseSessionTTL(value string) (time.Duration, error) {
	dur, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid sessionTTL duration: %w", err)
	}
	if dur <= 0 {
		return 0, errors.New("invalid sessionTTL duration: must be positive")
	}
	return dur, nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
