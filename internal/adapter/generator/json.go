package generator

import (
	"context"
	"fmt"

	"github.com/arturoeanton/founder-dashboard/internal/port"
)

// JSONGenerator asks the model for a JSON object and decodes it. Keys the
// model leaves out are taken from the fallback object.
type JSONGenerator struct {
	*base
	fallback map[string]any
}

func newJSONGenerator(b *base) (*JSONGenerator, error) {
	fallback := map[string]any{}
	if !b.spec.Fallback.IsZero() {
		if err := b.spec.Fallback.Decode(&fallback); err != nil {
			return nil, fmt.Errorf("fallback must be a mapping: %w", err)
		}
	}
	return &JSONGenerator{base: b, fallback: normalize(fallback).(map[string]any)}, nil
}

// Fallback returns a fresh copy of the canned object.
func (g *JSONGenerator) Fallback() any {
	return normalize(g.fallback)
}

// Generate calls the model and decodes its JSON reply.
func (g *JSONGenerator) Generate(ctx context.Context, req port.GenerateRequest) (*port.GenerateResult, error) {
	reply, err := g.complete(ctx, req)
	if err != nil {
		return nil, err
	}
	data, err := decodeObject(reply)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", g.Name(), err)
	}
	fillMissing(data, g.Fallback().(map[string]any))
	return &port.GenerateResult{Data: data, Raw: reply}, nil
}

// normalize deep-copies a decoded YAML value into JSON-compatible types.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = normalize(inner)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[fmt.Sprint(k)] = normalize(inner)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = normalize(inner)
		}
		return out
	default:
		return v
	}
}
