package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	StorageBackendMemory = "memory"
	StorageBackendRedis  = "redis"
	StorageBackendSQLite = "sqlite"
)

type Groq struct {
	APIKey           string        `yaml:"api_key" env:"GROQ_API_KEY"`
	BaseURL          string        `yaml:"base_url" env:"GROQ_BASE_URL" env-default:"https://api.groq.com/openai/v1"`
	Model            string        `yaml:"model" env:"GROQ_MODEL" env-default:"llama-3.1-8b-instant"`
	Temperature      float32       `yaml:"temperature" env:"GROQ_TEMPERATURE" env-default:"0.7"`
	MaxTokens        int           `yaml:"max_tokens" env:"GROQ_MAX_TOKENS" env-default:"300"`
	TopP             float32       `yaml:"top_p" env:"GROQ_TOP_P" env-default:"1"`
	MaxContextTokens int           `yaml:"max_context_tokens" env:"GROQ_MAX_CONTEXT_TOKENS" env-default:"0"`
	RequestTimeout   time.Duration `yaml:"request_timeout" env:"GROQ_REQUEST_TIMEOUT" env-default:"60s"`
	SystemPrompt     string        `yaml:"system_prompt" env:"GROQ_SYSTEM_PROMPT"`
}

type Quota struct {
	DailyLimit int    `yaml:"daily_limit" env:"QUOTA_DAILY_LIMIT" env-default:"3"`
	Timezone   string `yaml:"timezone" env:"QUOTA_TIMEZONE"`
}

type Storage struct {
	Backend       string `yaml:"backend" env:"STORAGE_BACKEND" env-default:"sqlite"`
	RedisEndpoint string `yaml:"redis_endpoint" env:"REDIS_ENDPOINT" env-default:"localhost:6379"`
	RedisPassword string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"REDIS_DB" env-default:"0"`
	SQLitePath    string `yaml:"sqlite_path" env:"SQLITE_PATH" env-default:"bappa.db"`
}

type HTTP struct {
	Addr               string        `yaml:"addr" env:"HTTP_ADDR" env-default:":8080"`
	CORSAllowedOrigins []string      `yaml:"cors_allowed_origins" env:"HTTP_CORS_ALLOWED_ORIGINS" env-separator:","`
	DefaultSession     string        `yaml:"default_session" env:"HTTP_DEFAULT_SESSION" env-default:"web"`
	HealthCacheTTL     time.Duration `yaml:"health_cache_ttl" env:"HTTP_HEALTH_CACHE_TTL" env-default:"30s"`
}

type Sessions struct {
	MaxActive int `yaml:"max_active" env:"SESSIONS_MAX_ACTIVE" env-default:"10000"`
}

type Telegram struct {
	TelegramAPIToken  string  `yaml:"api_token" env:"TELEGRAM_APITOKEN"`
	AllowedTelegramID []int64 `yaml:"allowed_telegram_id" env:"ALLOWED_TELEGRAM_ID" env-separator:","`
}

type Log struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

type Config struct {
	Groq     Groq     `yaml:"groq"`
	Quota    Quota    `yaml:"quota"`
	Storage  Storage  `yaml:"storage"`
	HTTP     HTTP     `yaml:"http"`
	Sessions Sessions `yaml:"sessions"`
	Telegram Telegram `yaml:"telegram"`
	Log      Log      `yaml:"log"`
}

// LoadConfig reads cfgPath when it exists and then overlays the environment.
// An empty cfgPath reads the environment only.
func LoadConfig(cfgPath string) (*Config, error) {
	var cfg Config
	if cfgPath != "" {
		if _, err := os.Stat(cfgPath); err == nil {
			if err = cleanenv.ReadConfig(cfgPath, &cfg); err != nil {
				return nil, fmt.Errorf("failed to read config %s: %w", cfgPath, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config %s: %w", cfgPath, err)
		}
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Quota.DailyLimit < 0 {
		return fmt.Errorf("quota daily limit must not be negative, got %d", c.Quota.DailyLimit)
	}
	if c.Sessions.MaxActive <= 0 {
		return fmt.Errorf("sessions max active must be positive, got %d", c.Sessions.MaxActive)
	}
	if _, err := c.Quota.Location(); err != nil {
		return err
	}
	switch c.Storage.Backend {
	case StorageBackendMemory, StorageBackendRedis, StorageBackendSQLite:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}

// Location resolves the timezone the quota day boundaries are computed in.
func (q Quota) Location() (*time.Location, error) {
	if q.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(q.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load quota timezone %q: %w", q.Timezone, err)
	}
	return loc, nil
}
