package port

import (
	"context"

	"github.com/arturoeanton/founder-dashboard/internal/domain"
)

// LLMProvider abstracts a hosted chat-completion API.
// Implementations target OpenAI, Anthropic, or anything speaking a compatible protocol.
type LLMProvider interface {
	// ProviderName returns the registry key of this provider (e.g. "openai").
	ProviderName() string

	// Complete sends the request and returns the full text of the reply.
	Complete(ctx context.Context, req domain.CompletionRequest) (string, error)

	// Stream sends the request and yields the reply chunk-by-chunk.
	// The channel is closed when the reply ends or the stream fails.
	Stream(ctx context.Context, req domain.CompletionRequest) (<-chan string, error)
}

// LLMRegistry holds the configured providers keyed by name.
// A provider without an API key is simply absent.
type LLMRegistry map[string]LLMProvider
