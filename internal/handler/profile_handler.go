package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/founder-dashboard/internal/domain"
	"github.com/arturoeanton/founder-dashboard/internal/middleware"
	"github.com/arturoeanton/founder-dashboard/internal/port"
)

// Profiles reads and writes dashboard documents.
type Profiles interface {
	Get(ctx context.Context, userID string) (domain.Document, error)
	Save(ctx context.Context, userID string, partial domain.Document) (domain.Document, error)
	Reset(ctx context.Context, userID string) error
	AppendChatMessage(ctx context.Context, userID string, msg domain.ChatMessage) (domain.Document, error)
}

// ProfileHandler serves the per-cookie dashboard document.
type ProfileHandler struct {
	profiles Profiles
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(profiles Profiles) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// Register sets up profile routes. The profile cookie middleware must run first.
func (h *ProfileHandler) Register(router fiber.Router) {
	router.Get("/user-data", h.Get)
	router.Post("/user-data", h.Save)
	router.Delete("/user-data", h.Reset)
	router.Post("/user-data/chat", h.AppendChat)
}

// Get returns the stored document, or null.
func (h *ProfileHandler) Get(c fiber.Ctx) error {
	id := middleware.GetProfileID(c)
	doc, err := h.profiles.Get(c.Context(), id)
	if err != nil {
		return profileFailure(c, "load", id, err)
	}
	if doc == nil {
		return c.JSON(fiber.Map{"data": nil})
	}
	return c.JSON(fiber.Map{"data": doc})
}

// Save merges the request body into the stored document.
func (h *ProfileHandler) Save(c fiber.Ctx) error {
	var partial domain.Document
	if err := c.Bind().JSON(&partial); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "body must be a JSON object",
		})
	}

	id := middleware.GetProfileID(c)
	doc, err := h.profiles.Save(c.Context(), id, partial)
	if err != nil {
		return profileFailure(c, "save", id, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": doc})
}

// Reset deletes the stored document.
func (h *ProfileHandler) Reset(c fiber.Ctx) error {
	id := middleware.GetProfileID(c)
	if err := h.profiles.Reset(c.Context(), id); err != nil {
		return profileFailure(c, "reset", id, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// AppendChat adds one message to chatHistory.
func (h *ProfileHandler) AppendChat(c fiber.Ctx) error {
	var msg domain.ChatMessage
	if err := c.Bind().JSON(&msg); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid request body",
		})
	}

	id := middleware.GetProfileID(c)
	doc, err := h.profiles.AppendChatMessage(c.Context(), id, msg)
	var verr *port.ValidationError
	if errors.As(err, &verr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   verr.Error(),
			"details": verr.Fields,
		})
	}
	if err != nil {
		return profileFailure(c, "append chat", id, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": doc})
}

func profileFailure(c fiber.Ctx, op, id string, err error) error {
	slog.Error("profile "+op+" failed", "profile_id", id, "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false})
}
