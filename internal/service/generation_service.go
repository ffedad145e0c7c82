package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/arturoeanton/founder-dashboard/internal/domain"
	"github.com/arturoeanton/founder-dashboard/internal/port"
)

// ChatGenerator is the generator behind the assistant chat.
const ChatGenerator = "assistant_chat"

var generationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "founder_generations_total",
		Help: "Generator calls by outcome (ok or fallback)",
	},
	[]string{"generator", "outcome"},
)

// GenerateOutcome is what a generator endpoint returns: the parsed data, or
// the fallback content with a warning.
type GenerateOutcome struct {
	Generator string
	Key       string
	Data      any
	Warning   string
}

// StreamOutcome carries either a live chunk channel or fallback text.
// Stop must be called once the caller is done reading.
type StreamOutcome struct {
	Chunks   <-chan string
	Fallback string
	Warning  string
	Stop     func()
}

// GenerationService runs generators with the shared timeout and fallback policy.
type GenerationService struct {
	engine   *port.GeneratorEngine
	profiles port.ProfileStore // optional, for chat history
	timeout  time.Duration
	now      func() time.Time
}

// NewGenerationService creates a new generation service.
func NewGenerationService(engine *port.GeneratorEngine, profiles port.ProfileStore, timeout time.Duration) *GenerationService {
	return &GenerationService{engine: engine, profiles: profiles, timeout: timeout, now: time.Now}
}

// ListGenerators returns the available generator names.
func (s *GenerationService) ListGenerators() []string {
	return s.engine.Available()
}

// Describe returns the named generator, for tool listings.
func (s *GenerationService) Describe(name string) (port.Generator, error) {
	return s.engine.Get(name)
}

// Generate runs the named generator. Only unknown generators and missing
// fields are errors; every upstream failure becomes fallback content.
func (s *GenerationService) Generate(ctx context.Context, name string, req port.GenerateRequest) (*GenerateOutcome, error) {
	g, err := s.engine.Get(name)
	if err != nil {
		return nil, err
	}
	if err := checkRequired(g, req.Fields); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out := &GenerateOutcome{Generator: name, Key: g.ResponseKey()}
	res, err := g.Generate(ctx, req)
	if err != nil {
		slog.Warn("generator fell back", "generator", name, "error", err)
		generationsTotal.WithLabelValues(name, "fallback").Inc()
		out.Data = g.Fallback()
		out.Warning = warningFor(err)
		return out, nil
	}

	generationsTotal.WithLabelValues(name, "ok").Inc()
	out.Data = res.Data
	return out, nil
}

// Chat runs the assistant chat and, when profileID is set, appends the
// exchange to that profile's chatHistory. Fallback replies are not stored.
func (s *GenerationService) Chat(ctx context.Context, profileID string, req port.GenerateRequest) (*GenerateOutcome, error) {
	out, err := s.Generate(ctx, ChatGenerator, req)
	if err != nil {
		return nil, err
	}
	if profileID == "" || s.profiles == nil || out.Warning != "" {
		return out, nil
	}

	reply, _ := out.Data.(string)
	now := s.now()
	_, err = s.profiles.Update(ctx, profileID, func(existing domain.Document) domain.Document {
		return domain.AppendChat(existing,
			domain.ChatMessage{Role: domain.RoleUser, Content: req.Fields["message"], Timestamp: now},
			domain.ChatMessage{Role: domain.RoleAssistant, Content: reply, Timestamp: now},
		)
	})
	if err != nil {
		slog.Error("failed to save chat history", "profile_id", profileID, "error", err)
	}
	return out, nil
}

// Stream starts a streaming generator. If the stream cannot start, the
// outcome carries the fallback text instead of a channel.
func (s *GenerationService) Stream(ctx context.Context, name string, req port.GenerateRequest) (*StreamOutcome, error) {
	g, err := s.engine.Get(name)
	if err != nil {
		return nil, err
	}
	sg, ok := g.(port.StreamingGenerator)
	if !ok {
		return nil, fmt.Errorf("%s does not stream: %w", name, port.ErrGeneratorNotFound)
	}
	if err := checkRequired(g, req.Fields); err != nil {
		return nil, err
	}

	fallback, _ := sg.Fallback().(string)
	ctx, cancel := context.WithTimeout(ctx, s.timeout)

	upstream, err := sg.GenerateStream(ctx, req)
	if err != nil {
		cancel()
		slog.Warn("stream fell back", "generator", name, "error", err)
		generationsTotal.WithLabelValues(name, "fallback").Inc()
		return &StreamOutcome{Fallback: fallback, Warning: warningFor(err), Stop: func() {}}, nil
	}
	generationsTotal.WithLabelValues(name, "ok").Inc()

	chunks := make(chan string)
	go func() {
		defer close(chunks)
		for c := range upstream {
			select {
			case chunks <- c:
			case <-ctx.Done():
				return
			}
		}
	}()

	return &StreamOutcome{Chunks: chunks, Fallback: fallback, Stop: cancel}, nil
}

func checkRequired(g port.Generator, fields map[string]string) error {
	missing := map[string]string{}
	for _, f := range g.RequiredFields() {
		if strings.TrimSpace(fields[f]) == "" {
			missing[f] = "is required"
		}
	}
	if len(missing) > 0 {
		return &port.ValidationError{Fields: missing}
	}
	return nil
}

func warningFor(err error) string {
	switch {
	case errors.Is(err, port.ErrProviderUnavailable):
		return "AI provider is not configured; showing default content"
	case errors.Is(err, port.ErrUnparsableOutput), errors.Is(err, port.ErrEmptyOutput):
		return "AI response could not be parsed; showing default content"
	case errors.Is(err, context.DeadlineExceeded):
		return "AI request timed out; showing default content"
	default:
		return "AI service unavailable; showing default content"
	}
}
