package port

import (
	"context"
	"sort"

	"github.com/arturoeanton/founder-dashboard/internal/domain"
)

// Generator is one prompt-backed content engine (Strategy Pattern): idea
// analysis, the pitch writers, market insights, the assistant chat.
type Generator interface {
	// Name returns the unique name of this generator (e.g. "idea_analysis").
	Name() string

	// Description returns a human-readable description of what it produces.
	Description() string

	// ResponseKey is the JSON key the result is returned under ("analysis", "pitch", "content").
	ResponseKey() string

	// RequiredFields lists the payload fields that must be non-empty.
	RequiredFields() []string

	// Fallback returns the canned content used when generation fails.
	Fallback() any

	// Generate calls the model and parses its reply.
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
}

// StreamingGenerator is a Generator whose reply is passed through as raw text chunks.
type StreamingGenerator interface {
	Generator
	GenerateStream(ctx context.Context, req GenerateRequest) (<-chan string, error)
}

// GenerateRequest carries the free-text payload fields and optional prior chat turns.
type GenerateRequest struct {
	Fields  map[string]string `json:"fields"`
	History []domain.Message  `json:"history,omitempty"`
}

// GenerateResult holds the parsed output of a generator.
type GenerateResult struct {
	Data any    `json:"data"`
	Raw  string `json:"raw"`
}

// GeneratorEngine looks up generators by name.
type GeneratorEngine struct {
	generators map[string]Generator
}

// NewGeneratorEngine creates a new engine with the given generators.
func NewGeneratorEngine(generators ...Generator) *GeneratorEngine {
	m := make(map[string]Generator, len(generators))
	for _, g := range generators {
		m[g.Name()] = g
	}
	return &GeneratorEngine{generators: m}
}

// Get returns the named generator.
func (e *GeneratorEngine) Get(name string) (Generator, error) {
	g, ok := e.generators[name]
	if !ok {
		return nil, ErrGeneratorNotFound
	}
	return g, nil
}

// Available returns the names of all registered generators, sorted.
func (e *GeneratorEngine) Available() []string {
	names := make([]string, 0, len(e.generators))
	for name := range e.generators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
