package handler

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/founder-dashboard/internal/domain"
	"github.com/arturoeanton/founder-dashboard/internal/middleware"
	"github.com/arturoeanton/founder-dashboard/internal/port"
	"github.com/arturoeanton/founder-dashboard/internal/service"
)

// Generation runs prompt-backed generators.
type Generation interface {
	ListGenerators() []string
	Describe(name string) (port.Generator, error)
	Generate(ctx context.Context, name string, req port.GenerateRequest) (*service.GenerateOutcome, error)
	Chat(ctx context.Context, profileID string, req port.GenerateRequest) (*service.GenerateOutcome, error)
	Stream(ctx context.Context, name string, req port.GenerateRequest) (*service.StreamOutcome, error)
}

// GeneratorHandler exposes the LLM-proxy endpoints.
type GeneratorHandler struct {
	gen Generation
}

// NewGeneratorHandler creates a new generator handler.
func NewGeneratorHandler(gen Generation) *GeneratorHandler {
	return &GeneratorHandler{gen: gen}
}

// Register sets up generator routes. limit runs in front of every call that
// reaches a model; pass nil for no limit.
func (h *GeneratorHandler) Register(router fiber.Router, limit fiber.Handler) {
	if limit == nil {
		limit = func(c fiber.Ctx) error { return c.Next() }
	}
	router.Get("/generators", h.List)
	router.Post("/generate/:name", limit, h.Generate)
	router.Post("/analyze-idea", limit, h.fixed("idea_analysis"))
	router.Post("/pitch/:audience", limit, h.Pitch)
	router.Post("/market-insights", limit, h.fixed("market_insights"))
	router.Post("/chat", limit, h.Chat)
	router.Post("/slides/stream", limit, h.streamFixed("pitch_slides"))
}

// List describes every registered generator.
func (h *GeneratorHandler) List(c fiber.Ctx) error {
	type info struct {
		Name           string   `json:"name"`
		Description    string   `json:"description"`
		ResponseKey    string   `json:"responseKey"`
		RequiredFields []string `json:"requiredFields"`
		Streaming      bool     `json:"streaming"`
	}

	names := h.gen.ListGenerators()
	out := make([]info, 0, len(names))
	for _, name := range names {
		g, err := h.gen.Describe(name)
		if err != nil {
			continue
		}
		_, streaming := g.(port.StreamingGenerator)
		out = append(out, info{
			Name:           name,
			Description:    g.Description(),
			ResponseKey:    g.ResponseKey(),
			RequiredFields: g.RequiredFields(),
			Streaming:      streaming,
		})
	}
	return c.JSON(fiber.Map{"generators": out, "count": len(out)})
}

// Generate runs any generator by name.
func (h *GeneratorHandler) Generate(c fiber.Ctx) error {
	return h.run(c, c.Params("name"))
}

// Pitch maps /pitch/<audience> to the <audience>_pitch generator.
func (h *GeneratorHandler) Pitch(c fiber.Ctx) error {
	return h.run(c, strings.ToLower(c.Params("audience"))+"_pitch")
}

// Chat runs the assistant and records the exchange in the caller's profile.
func (h *GeneratorHandler) Chat(c fiber.Ctx) error {
	req, err := decodeGenerateRequest(c.Body())
	if err != nil {
		return respondError(c, errBadRequest)
	}
	out, err := h.gen.Chat(c.Context(), middleware.GetProfileID(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(outcomeBody(out))
}

func (h *GeneratorHandler) fixed(name string) fiber.Handler {
	return func(c fiber.Ctx) error { return h.run(c, name) }
}

func (h *GeneratorHandler) run(c fiber.Ctx, name string) error {
	req, err := decodeGenerateRequest(c.Body())
	if err != nil {
		return respondError(c, errBadRequest)
	}
	out, err := h.gen.Generate(c.Context(), name, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(outcomeBody(out))
}

func outcomeBody(out *service.GenerateOutcome) fiber.Map {
	body := fiber.Map{out.Key: out.Data}
	if out.Warning != "" {
		body["warning"] = out.Warning
	}
	return body
}

// decodeGenerateRequest turns a free-form JSON body into generator fields.
// String values are used as-is, other values as compact JSON, and "history"
// is read as prior chat turns.
func decodeGenerateRequest(body []byte) (port.GenerateRequest, error) {
	req := port.GenerateRequest{Fields: map[string]string{}}
	if len(strings.TrimSpace(string(body))) == 0 {
		return req, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return req, err
	}
	for k, v := range raw {
		if k == "history" {
			var history []domain.Message
			if err := json.Unmarshal(v, &history); err != nil {
				return req, err
			}
			req.History = history
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			req.Fields[k] = s
			continue
		}
		if string(v) != "null" {
			req.Fields[k] = string(v)
		}
	}
	return req, nil
}
