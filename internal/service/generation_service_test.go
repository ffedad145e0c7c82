package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/founder-dashboard/internal/adapter/store"
	"github.com/arturoeanton/founder-dashboard/internal/port"
)

type stubGenerator struct {
	name     string
	key      string
	required []string
	data     any
	err      error
	fallback any
	chunks   []string
	block    bool
}

func (g *stubGenerator) Name() string             { return g.name }
func (g *stubGenerator) Description() string      { return "stub " + g.name }
func (g *stubGenerator) ResponseKey() string      { return g.key }
func (g *stubGenerator) RequiredFields() []string { return g.required }
func (g *stubGenerator) Fallback() any            { return g.fallback }

func (g *stubGenerator) Generate(ctx context.Context, req port.GenerateRequest) (*port.GenerateResult, error) {
	if g.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if g.err != nil {
		return nil, g.err
	}
	return &port.GenerateResult{Data: g.data}, nil
}

func (g *stubGenerator) GenerateStream(ctx context.Context, req port.GenerateRequest) (<-chan string, error) {
	if g.err != nil {
		return nil, g.err
	}
	ch := make(chan string, len(g.chunks))
	for _, c := range g.chunks {
		ch <- c
	}
	close(ch)
	return ch, nil
}

func TestGenerate_OK(t *testing.T) {
	g := &stubGenerator{name: "idea_analysis", key: "analysis", required: []string{"businessIdea"}, data: map[string]any{"score": 8}}
	svc := NewGenerationService(port.NewGeneratorEngine(g), nil, time.Second)

	out, err := svc.Generate(t.Context(), "idea_analysis", port.GenerateRequest{Fields: map[string]string{"businessIdea": "x"}})
	require.NoError(t, err)
	assert.Equal(t, "analysis", out.Key)
	assert.Equal(t, map[string]any{"score": 8}, out.Data)
	assert.Empty(t, out.Warning)
}

func TestGenerate_MissingFieldIsClientError(t *testing.T) {
	g := &stubGenerator{name: "investor_pitch", key: "pitch", required: []string{"businessIdea"}}
	svc := NewGenerationService(port.NewGeneratorEngine(g), nil, time.Second)

	_, err := svc.Generate(t.Context(), "investor_pitch", port.GenerateRequest{Fields: map[string]string{"businessIdea": "   "}})
	var ve *port.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "businessIdea")
}

func TestGenerate_UnknownGenerator(t *testing.T) {
	svc := NewGenerationService(port.NewGeneratorEngine(), nil, time.Second)
	_, err := svc.Generate(t.Context(), "nope", port.GenerateRequest{})
	assert.ErrorIs(t, err, port.ErrGeneratorNotFound)
}

func TestGenerate_FailuresFallBack(t *testing.T) {
	fallback := map[string]any{"headline": "default"}
	cases := map[string]struct {
		gen     *stubGenerator
		warning string
	}{
		"upstream error": {&stubGenerator{err: errors.New("503")}, "unavailable"},
		"no provider":    {&stubGenerator{err: port.ErrProviderUnavailable}, "not configured"},
		"unparsable":     {&stubGenerator{err: port.ErrUnparsableOutput}, "could not be parsed"},
		"timeout":        {&stubGenerator{block: true}, "timed out"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			tc.gen.name, tc.gen.key, tc.gen.fallback = "customer_pitch", "pitch", fallback
			svc := NewGenerationService(port.NewGeneratorEngine(tc.gen), nil, 20*time.Millisecond)

			out, err := svc.Generate(t.Context(), "customer_pitch", port.GenerateRequest{})
			require.NoError(t, err)
			assert.Equal(t, fallback, out.Data)
			assert.Contains(t, out.Warning, tc.warning)
		})
	}
}

func TestChat_AppendsHistoryOnSuccessOnly(t *testing.T) {
	profiles := store.NewMemoryProfileStore()
	ok := &stubGenerator{name: ChatGenerator, key: "content", required: []string{"message"}, data: "Talk to customers."}
	svc := NewGenerationService(port.NewGeneratorEngine(ok), profiles, time.Second)

	out, err := svc.Chat(t.Context(), "p1", port.GenerateRequest{Fields: map[string]string{"message": "What next?"}})
	require.NoError(t, err)
	assert.Equal(t, "Talk to customers.", out.Data)

	doc, err := profiles.Get(t.Context(), "p1")
	require.NoError(t, err)
	history := doc.ChatHistory()
	require.Len(t, history, 2)
	assert.Equal(t, "What next?", history[0].(map[string]any)["content"])
	assert.Equal(t, "assistant", history[1].(map[string]any)["role"])

	failing := &stubGenerator{name: ChatGenerator, key: "content", err: errors.New("down"), fallback: "try later"}
	svc = NewGenerationService(port.NewGeneratorEngine(failing), profiles, time.Second)
	out, err = svc.Chat(t.Context(), "p1", port.GenerateRequest{Fields: map[string]string{"message": "hello?"}})
	require.NoError(t, err)
	assert.Equal(t, "try later", out.Data)

	doc, err = profiles.Get(t.Context(), "p1")
	require.NoError(t, err)
	assert.Len(t, doc.ChatHistory(), 2)
}

func TestStream(t *testing.T) {
	g := &stubGenerator{name: "pitch_slides", required: []string{"businessIdea"}, chunks: []string{"a", "b"}, fallback: "default deck"}
	svc := NewGenerationService(port.NewGeneratorEngine(g), nil, time.Second)

	out, err := svc.Stream(t.Context(), "pitch_slides", port.GenerateRequest{Fields: map[string]string{"businessIdea": "x"}})
	require.NoError(t, err)
	defer out.Stop()

	var got string
	for c := range out.Chunks {
		got += c
	}
	assert.Equal(t, "ab", got)

	g.err = errors.New("refused")
	out, err = svc.Stream(t.Context(), "pitch_slides", port.GenerateRequest{Fields: map[string]string{"businessIdea": "x"}})
	require.NoError(t, err)
	assert.Nil(t, out.Chunks)
	assert.Equal(t, "default deck", out.Fallback)
	assert.NotEmpty(t, out.Warning)
}
