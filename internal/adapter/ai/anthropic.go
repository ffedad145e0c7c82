package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/arturoeanton/founder-dashboard/internal/domain"
)

const anthropicDefaultMaxTokens = 2048

// AnthropicConfig holds the configuration for the Anthropic Messages API.
type AnthropicConfig struct {
	APIKey  string
	BaseURL string // empty = SDK default
	Model   string
}

// AnthropicProvider implements port.LLMProvider using the Anthropic Messages API.
type AnthropicProvider struct {
	client anthropic.Client
	model  string
}

// NewAnthropicProvider creates a new Anthropic-backed provider.
func NewAnthropicProvider(cfg AnthropicConfig) *AnthropicProvider {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}
	return &AnthropicProvider{
		client: anthropic.NewClient(opts...),
		model:  model,
	}
}

// ProviderName returns "anthropic".
func (p *AnthropicProvider) ProviderName() string {
	return "anthropic"
}

// Complete sends a message and concatenates the text blocks of the reply.
func (p *AnthropicProvider) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	msg, err := p.client.Messages.New(ctx, p.buildParams(req))
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

// Stream sends a message and streams text deltas. The request only goes out
// on the first read, so that read happens here and a refused request is
// returned as an error.
func (p *AnthropicProvider) Stream(ctx context.Context, req domain.CompletionRequest) (<-chan string, error) {
	stream := p.client.Messages.NewStreaming(ctx, p.buildParams(req))
	if !stream.Next() {
		err := stream.Err()
		stream.Close()
		if err == nil {
			err = errors.New("stream closed before the first event")
		}
		return nil, fmt.Errorf("anthropic stream: %w", err)
	}

	ch := make(chan string, 64)
	go func() {
		defer close(ch)
		defer stream.Close()

		for ok := true; ok; ok = stream.Next() {
			text, isText := deltaText(stream.Current())
			if !isText {
				continue
			}
			select {
			case ch <- text:
			case <-ctx.Done():
				return
			}
		}
		if err := stream.Err(); err != nil {
			slog.Warn("anthropic stream interrupted", "error", err)
		}
	}()

	return ch, nil
}

func deltaText(event anthropic.MessageStreamEventUnion) (string, bool) {
	delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
	if !ok {
		return "", false
	}
	text, ok := delta.Delta.AsAny().(anthropic.TextDelta)
	if !ok || text.Text == "" {
		return "", false
	}
	return text.Text, true
}

func (p *AnthropicProvider) buildParams(req domain.CompletionRequest) anthropic.MessageNewParams {
	model := req.Model
	if model == "" {
		model = p.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}

	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == domain.RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(maxTokens),
		Messages:    messages,
		Temperature: anthropic.Float(req.Temperature),
	}
	system := req.System
	if req.JSONMode {
		system = strings.TrimSpace(system + "\n\nRespond with a single JSON object and nothing else.")
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	return params
}
