package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// HealthHandler reports dependency status.
type HealthHandler struct {
	appName string
	checks  map[string]HealthCheck
}

// NewHealthHandler creates a health handler over the named checks.
func NewHealthHandler(appName string, checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{appName: appName, checks: checks}
}

// Register mounts GET /health.
func (h *HealthHandler) Register(router fiber.Router) {
	router.Get("/health", h.Health)
}

// Health runs every check with a short deadline. Any failure answers 503.
func (h *HealthHandler) Health(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
	defer cancel()

	status := "ok"
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			status = "degraded"
			continue
		}
		results[name] = "ok"
	}

	code := fiber.StatusOK
	if status != "ok" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{
		"status": status,
		"app":    h.appName,
		"checks": results,
	})
}
