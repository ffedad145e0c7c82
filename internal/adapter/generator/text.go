package generator

import (
	"context"
	"fmt"

	"github.com/arturoeanton/founder-dashboard/internal/port"
)

// TextGenerator returns the model's reply as-is. The assistant chat uses it,
// forwarding prior turns from the request history.
type TextGenerator struct {
	*base
	fallback string
}

func newTextGenerator(b *base) (*TextGenerator, error) {
	var fallback string
	if !b.spec.Fallback.IsZero() {
		if err := b.spec.Fallback.Decode(&fallback); err != nil {
			return nil, fmt.Errorf("fallback must be a string: %w", err)
		}
	}
	return &TextGenerator{base: b, fallback: fallback}, nil
}

func (g *TextGenerator) Fallback() any { return g.fallback }

// Generate calls the model and returns its reply.
func (g *TextGenerator) Generate(ctx context.Context, req port.GenerateRequest) (*port.GenerateResult, error) {
	reply, err := g.complete(ctx, req)
	if err != nil {
		return nil, err
	}
	return &port.GenerateResult{Data: reply, Raw: reply}, nil
}

// StreamGenerator passes the provider stream through chunk by chunk.
type StreamGenerator struct {
	*TextGenerator
}

func newStreamGenerator(b *base) (*StreamGenerator, error) {
	tg, err := newTextGenerator(b)
	if err != nil {
		return nil, err
	}
	return &StreamGenerator{TextGenerator: tg}, nil
}

// GenerateStream starts a provider stream for the rendered prompt.
func (g *StreamGenerator) GenerateStream(ctx context.Context, req port.GenerateRequest) (<-chan string, error) {
	if g.provider == nil {
		return nil, fmt.Errorf("%s: provider %q: %w", g.Name(), g.spec.Provider, port.ErrProviderUnavailable)
	}
	creq, err := g.request(req)
	if err != nil {
		return nil, err
	}
	ch, err := g.provider.Stream(ctx, creq)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", g.Name(), err)
	}
	return ch, nil
}
