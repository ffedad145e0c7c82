package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/arturoeanton/founder-dashboard/internal/adapter/ai"
	"github.com/arturoeanton/founder-dashboard/internal/adapter/auth"
	"github.com/arturoeanton/founder-dashboard/internal/adapter/generator"
	"github.com/arturoeanton/founder-dashboard/internal/adapter/store"
	"github.com/arturoeanton/founder-dashboard/internal/domain"
	"github.com/arturoeanton/founder-dashboard/internal/handler"
	"github.com/arturoeanton/founder-dashboard/internal/mcp"
	"github.com/arturoeanton/founder-dashboard/internal/middleware"
	"github.com/arturoeanton/founder-dashboard/internal/port"
	"github.com/arturoeanton/founder-dashboard/internal/service"
	"github.com/arturoeanton/founder-dashboard/pkg/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (and the MCP server when enabled)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("starting founder dashboard",
		"port", cfg.Port,
		"database", cfg.RedactedDatabaseURL(),
		"redis", cfg.RedisURL != "",
		"mcp_enabled", cfg.MCPEnabled,
	)

	// ── Database ─────────────────────────────────────────────────────────
	if cfg.MigrateOnStart {
		if err := store.MigrateUp(cfg.DatabaseURL); err != nil {
			return err
		}
	}
	pgStore, err := store.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pgStore.Close()

	// ── Profile store ────────────────────────────────────────────────────
	var (
		rdb      *redis.Client
		profiles port.ProfileStore
	)
	if cfg.RedisURL != "" {
		rdb, err = store.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		profiles = store.NewRedisProfileStore(rdb, cfg.ProfileMaxAge)
	} else {
		slog.Warn("REDIS_URL not set: profiles are kept in memory and rate limiting is off")
		profiles = store.NewMemoryProfileStore()
	}

	// ── Adapters ─────────────────────────────────────────────────────────
	llms := buildLLMRegistry(cfg)
	engine, err := generator.NewEngine(cfg.PromptsFile, llms)
	if err != nil {
		return fmt.Errorf("load prompt catalog: %w", err)
	}

	authProviders := port.AuthProviderRegistry{}
	if cfg.GoogleEnabled() {
		authProviders[domain.ProviderGoogle] = auth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	}
	if cfg.GitHubEnabled() {
		authProviders[domain.ProviderGitHub] = auth.NewGitHubProvider(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubRedirectURL)
	}

	// ── Services ─────────────────────────────────────────────────────────
	jwtCfg := middleware.JWTConfig{
		Secret: cfg.JWTSecret,
		Issuer: cfg.JWTIssuer,
	}
	authService := service.NewAuthService(authProviders, pgStore, pgStore, pgStore, jwtCfg, cfg.SessionTTL)
	profileService := service.NewProfileService(profiles)
	generationService := service.NewGenerationService(engine, profiles, cfg.LLMTimeout)

	// ── Fiber App ────────────────────────────────────────────────────────
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.LLMTimeout + 30*time.Second,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowCredentials: true,
	}))
	app.Use(middleware.Metrics())
	app.Use(middleware.AuditMiddleware(pgStore))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	checks := map[string]handler.HealthCheck{"postgres": pgStore.Ping}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	handler.NewHealthHandler(cfg.AppName, checks).Register(app.Group("/api/v1"))

	// Everything under /api is anchored to the user_id cookie.
	api := app.Group("/api", middleware.ProfileCookieMiddleware(middleware.ProfileCookieConfig{
		MaxAge: cfg.ProfileMaxAge,
		Secure: cfg.CookieSecure,
	}))
	requireAuth := middleware.JWTMiddleware(jwtCfg, authService)

	var limit fiber.Handler
	if rdb != nil && cfg.RateLimitPerMinute > 0 {
		limit = middleware.RateLimit(rdb, middleware.RateLimitConfig{
			RequestsPerMinute: cfg.RateLimitPerMinute,
			Prefix:            "generate",
		})
	}

	handler.NewAuthHandler(authService, cfg.FrontendURL, cfg.CookieSecure).Register(api, requireAuth)
	handler.NewProfileHandler(profileService).Register(api)
	handler.NewGeneratorHandler(generationService).Register(api, limit)
	handler.NewAuditHandler(pgStore).Register(api, requireAuth)

	// ── Background work ──────────────────────────────────────────────────
	go authService.RunSessionSweeper(ctx, cfg.SessionSweepInterval)

	if cfg.MCPEnabled {
		mcpServer := mcp.NewServer(generationService, pgStore, cfg.MCPPort)
		go func() {
			if err := mcpServer.Start(ctx); err != nil {
				slog.Error("MCP server failed", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	slog.Info("fiber listening", "port", cfg.Port, "generators", engine.Available(), "auth_providers", authService.Providers())
	return app.Listen(":"+cfg.Port, fiber.ListenConfig{DisableStartupMessage: true})
}

// buildLLMRegistry registers each provider that has credentials, wrapped in
// a circuit breaker. Generators bound to a missing provider fall back.
func buildLLMRegistry(cfg *config.Config) port.LLMRegistry {
	llms := port.LLMRegistry{}
	if cfg.OpenAIAPIKey != "" {
		llms["openai"] = ai.WithBreaker(ai.NewOpenAIProvider(ai.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
		}), ai.DefaultBreakerConfig)
	}
	if cfg.AnthropicAPIKey != "" {
		llms["anthropic"] = ai.WithBreaker(ai.NewAnthropicProvider(ai.AnthropicConfig{
			APIKey:  cfg.AnthropicAPIKey,
			BaseURL: cfg.AnthropicBaseURL,
		}), ai.DefaultBreakerConfig)
	}
	if cfg.OllamaBaseURL != "" {
		llms["ollama"] = ai.WithBreaker(ai.NewOllamaProvider(ai.OllamaConfig{
			BaseURL: cfg.OllamaBaseURL,
			Model:   cfg.OllamaModel,
			Token:   cfg.OllamaToken,
		}), ai.DefaultBreakerConfig)
	}
	for name := range llms {
		slog.Info("llm provider enabled", "provider", name)
	}
	return llms
}
