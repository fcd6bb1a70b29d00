package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server          ServerConfig
	OpenAI          OpenAIConfig
	Catalog         CatalogConfig
	Personalization PersonalizationConfig
	Turn            TurnConfig
	RateLimit       RateLimitConfig
	Redis           RedisConfig
	NATS            NATSConfig
	CORS            CORSConfig
	Log             LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Structured  bool
	Timeout     time.Duration
}

type CatalogConfig struct {
	BaseURL string
	APIKey  string
	SiteKey string
	Timeout time.Duration
}

type PersonalizationConfig struct {
	BaseURL      string
	SiteKey      string
	FallbackPath string
	Timeout      time.Duration
}

type TurnConfig struct {
	Timeout        time.Duration
	MaxSuggestions int
}

type RateLimitConfig struct {
	Enabled   bool
	MaxTurns  int
	WindowSec int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type NATSConfig struct {
	URL string
}

// Enabled reports whether turn events should be published.
func (c NATSConfig) Enabled() bool {
	return c.URL != ""
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.Parser())

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", "."))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: k.String("server.host"),
			Port: k.Int("server.port"),
		},
		OpenAI: OpenAIConfig{
			APIKey:      k.String("openai.api.key"),
			BaseURL:     k.String("openai.base.url"),
			Model:       k.String("openai.model"),
			MaxTokens:   k.Int("openai.max.tokens"),
			Temperature: k.Float64("openai.temperature"),
			Structured:  k.Bool("openai.structured"),
		},
		Catalog: CatalogConfig{
			BaseURL: k.String("catalog.base.url"),
			APIKey:  k.String("catalog.api.key"),
			SiteKey: k.String("catalog.site.key"),
		},
		Personalization: PersonalizationConfig{
			BaseURL:      k.String("personalization.base.url"),
			SiteKey:      k.String("personalization.site.key"),
			FallbackPath: k.String("personalization.fallback.path"),
		},
		Turn: TurnConfig{
			MaxSuggestions: k.Int("turn.max.suggestions"),
		},
		RateLimit: RateLimitConfig{
			Enabled:   k.Bool("ratelimit.enabled"),
			MaxTurns:  k.Int("ratelimit.max.turns"),
			WindowSec: k.Int("ratelimit.window.sec"),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		NATS: NATSConfig{
			URL: k.String("nats.url"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(k.String("cors.allowed.origins")),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
	}

	// Apply defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.OpenAI.Model == "" {
		cfg.OpenAI.Model = "gpt-3.5-turbo"
	}
	if cfg.OpenAI.MaxTokens == 0 {
		cfg.OpenAI.MaxTokens = 500
	}
	if cfg.Catalog.BaseURL == "" {
		cfg.Catalog.BaseURL = "http://search.unbxd.io"
	}
	if cfg.Personalization.BaseURL == "" {
		cfg.Personalization.BaseURL = "http://reranker.prod.use-1d.infra"
	}
	if cfg.Personalization.SiteKey == "" {
		cfg.Personalization.SiteKey = cfg.Catalog.SiteKey
	}
	if cfg.Turn.MaxSuggestions == 0 {
		cfg.Turn.MaxSuggestions = 5
	}
	if cfg.RateLimit.MaxTurns == 0 {
		cfg.RateLimit.MaxTurns = 30
	}
	if cfg.RateLimit.WindowSec == 0 {
		cfg.RateLimit.WindowSec = 60
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	// Parse durations
	durations := []struct {
		key  string
		def  string
		dest *time.Duration
	}{
		{"openai.timeout", "30s", &cfg.OpenAI.Timeout},
		{"catalog.timeout", "10s", &cfg.Catalog.Timeout},
		{"personalization.timeout", "5s", &cfg.Personalization.Timeout},
		{"turn.timeout", "60s", &cfg.Turn.Timeout},
	}
	for _, d := range durations {
		s := k.String(d.key)
		if s == "" {
			s = d.def
		}
		*d.dest, err = time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", d.key, err)
		}
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
