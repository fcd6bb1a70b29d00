package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	goredis "github.com/redis/go-redis/v9"

	"github.com/aiox-platform/alchemist/internal/api"
	"github.com/aiox-platform/alchemist/internal/assistant"
	"github.com/aiox-platform/alchemist/internal/catalog"
	"github.com/aiox-platform/alchemist/internal/completion"
	"github.com/aiox-platform/alchemist/internal/config"
	"github.com/aiox-platform/alchemist/internal/filters"
	mw "github.com/aiox-platform/alchemist/internal/middleware"
	inats "github.com/aiox-platform/alchemist/internal/nats"
	"github.com/aiox-platform/alchemist/internal/personalization"
	iredis "github.com/aiox-platform/alchemist/internal/redis"
	"github.com/aiox-platform/alchemist/internal/server"
	"github.com/aiox-platform/alchemist/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Redis backs the turn rate limiter only
	var redisClient *goredis.Client
	var turnLimiter func(http.Handler) http.Handler
	if cfg.RateLimit.Enabled {
		redisClient, err = iredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Error("connecting to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		turnLimiter = mw.NewRateLimiter(redisClient, cfg.RateLimit.MaxTurns, cfg.RateLimit.WindowSec).Middleware
	}

	// NATS turn events
	var natsClient *inats.Client
	deps := assistant.Deps{}
	if cfg.NATS.Enabled() {
		natsClient, err = inats.NewClient(ctx, cfg.NATS)
		if err != nil {
			slog.Error("connecting to NATS", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()
		deps.Events = inats.NewPublisher(natsClient.JetStream())
	}

	// Collaborators
	facets, err := personalization.NewClient(cfg.Personalization)
	if err != nil {
		slog.Error("loading personalization snapshot", "error", err)
		os.Exit(1)
	}
	gateway := completion.NewOpenAIGateway(cfg.OpenAI)
	store := session.NewMemoryStore(facets, assistant.Templates())

	deps.Sessions = store
	deps.Completer = gateway
	deps.Translator = filters.NewTranslator(gateway, filters.TranslatorOptions{
		MaxTokens:  cfg.OpenAI.MaxTokens,
		Structured: cfg.OpenAI.Structured,
	})
	deps.Catalog = catalog.NewClient(cfg.Catalog)

	orch := assistant.NewOrchestrator(deps, assistant.Options{
		Temperature:    cfg.OpenAI.Temperature,
		MaxTokens:      cfg.OpenAI.MaxTokens,
		TurnTimeout:    cfg.Turn.Timeout,
		MaxSuggestions: cfg.Turn.MaxSuggestions,
	})
	handler := assistant.NewHandler(orch, store)

	// Router
	router := api.NewRouter(redisClient, natsClient, api.RouterConfig{
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
		TurnRateLimiter:    turnLimiter,
	}, api.HandlerSet{
		CreateTurn: handler.CreateTurn,
		GetSession: handler.GetSession,
	})

	// Start server
	srv := server.New(cfg.Server, cfg.Turn.Timeout, router)
	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
