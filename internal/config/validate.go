package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
)

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	if c.OpenAI.APIKey == "" {
		errs = append(errs, "OPENAI_API_KEY is required")
	}
	if c.OpenAI.MaxTokens < 1 {
		errs = append(errs, fmt.Sprintf("OPENAI_MAX_TOKENS must be positive, got %d", c.OpenAI.MaxTokens))
	}
	if c.OpenAI.Temperature < 0 || c.OpenAI.Temperature > 2 {
		errs = append(errs, fmt.Sprintf("OPENAI_TEMPERATURE must be 0–2, got %g", c.OpenAI.Temperature))
	}

	// Catalog credentials are path segments of every search URL
	if c.Catalog.APIKey == "" {
		errs = append(errs, "CATALOG_API_KEY is required")
	}
	if c.Catalog.SiteKey == "" {
		errs = append(errs, "CATALOG_SITE_KEY is required")
	}
	if !validBaseURL(c.Catalog.BaseURL) {
		errs = append(errs, fmt.Sprintf("CATALOG_BASE_URL must be an absolute http(s) URL, got %q", c.Catalog.BaseURL))
	}
	if !validBaseURL(c.Personalization.BaseURL) {
		errs = append(errs, fmt.Sprintf("PERSONALIZATION_BASE_URL must be an absolute http(s) URL, got %q", c.Personalization.BaseURL))
	}

	// Upstream calls must never wait without a limit
	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"OPENAI_TIMEOUT", c.OpenAI.Timeout},
		{"CATALOG_TIMEOUT", c.Catalog.Timeout},
		{"PERSONALIZATION_TIMEOUT", c.Personalization.Timeout},
		{"TURN_TIMEOUT", c.Turn.Timeout},
	} {
		if d.value <= 0 {
			errs = append(errs, fmt.Sprintf("%s must be positive, got %s", d.name, d.value))
		}
	}
	if c.Turn.MaxSuggestions < 1 {
		errs = append(errs, fmt.Sprintf("TURN_MAX_SUGGESTIONS must be positive, got %d", c.Turn.MaxSuggestions))
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1–65535, got %d", c.Server.Port))
	}
	if c.RateLimit.Enabled {
		if c.Redis.Port < 1 || c.Redis.Port > 65535 {
			errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1–65535, got %d", c.Redis.Port))
		}
		if c.RateLimit.MaxTurns < 1 || c.RateLimit.WindowSec < 1 {
			errs = append(errs, "RATELIMIT_MAX_TURNS and RATELIMIT_WINDOW_SEC must be positive")
		}
	}

	// Fallback snapshot: warn only, the embedded default is used
	if c.Personalization.FallbackPath == "" {
		slog.Warn("PERSONALIZATION_FALLBACK_PATH is empty, using embedded facet snapshot")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}

func validBaseURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
