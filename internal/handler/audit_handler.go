package handler

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/founder-dashboard/internal/adapter/store"
	"github.com/arturoeanton/founder-dashboard/internal/domain"
)

// AuditReader lists audit rows.
type AuditReader interface {
	ListAuditLogs(ctx context.Context, f store.AuditFilter) ([]domain.AuditLog, error)
}

// AuditHandler handles audit log endpoints.
type AuditHandler struct {
	store AuditReader
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(store AuditReader) *AuditHandler {
	return &AuditHandler{store: store}
}

// Register sets up audit routes behind requireAuth.
func (h *AuditHandler) Register(router fiber.Router, requireAuth fiber.Handler) {
	audit := router.Group("/audit", requireAuth)
	audit.Get("/logs", h.ListLogs)
}

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 500
)

// ListLogs returns the signed-in user's audit logs, newest first.
func (h *AuditHandler) ListLogs(c fiber.Ctx) error {
	uc, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}

	limit, err := strconv.Atoi(c.Query("limit"))
	switch {
	case err != nil || limit <= 0:
		limit = defaultAuditLimit
	case limit > maxAuditLimit:
		limit = maxAuditLimit
	}

	logs, err := h.store.ListAuditLogs(c.Context(), store.AuditFilter{
		Action: c.Query("action"),
		UserID: uc.UserID,
		Limit:  limit,
	})
	if err != nil {
		return respondError(c, err)
	}
	if logs == nil {
		logs = []domain.AuditLog{}
	}
	return c.JSON(fiber.Map{
		"logs":  logs,
		"count": len(logs),
	})
}
