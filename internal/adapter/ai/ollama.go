package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/arturoeanton/founder-dashboard/internal/domain"
)

// OllamaConfig holds the configuration for an Ollama chat endpoint.
type OllamaConfig struct {
	BaseURL string // e.g. http://localhost:11434 or https://ollama.com
	Model   string // e.g. llama3.1, qwen3
	Token   string // Bearer token for Ollama Cloud (empty = no auth)
}

// OllamaProvider implements port.LLMProvider using the Ollama /api/chat endpoint.
type OllamaProvider struct {
	cfg        OllamaConfig
	httpClient *http.Client
}

// NewOllamaProvider creates a new Ollama-backed provider.
func NewOllamaProvider(cfg OllamaConfig) *OllamaProvider {
	return &OllamaProvider{
		cfg:        cfg,
		httpClient: &http.Client{},
	}
}

// ProviderName returns "ollama".
func (o *OllamaProvider) ProviderName() string {
	return "ollama"
}

type ollamaChunk struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// Complete sends a non-streaming chat request.
func (o *OllamaProvider) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	resp, err := o.do(ctx, o.payload(req, false))
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	defer resp.Body.Close()

	var out ollamaChunk
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("ollama chat decode: %w", err)
	}
	return out.Message.Content, nil
}

// Stream sends a chat request and streams the NDJSON reply token by token.
func (o *OllamaProvider) Stream(ctx context.Context, req domain.CompletionRequest) (<-chan string, error) {
	resp, err := o.do(ctx, o.payload(req, true))
	if err != nil {
		return nil, fmt.Errorf("ollama stream: %w", err)
	}

	ch := make(chan string, 64)
	go func() {
		defer close(ch)
		defer resp.Body.Close()

		decoder := json.NewDecoder(resp.Body)
		for decoder.More() {
			var chunk ollamaChunk
			if err := decoder.Decode(&chunk); err != nil {
				slog.Warn("ollama stream decode", "error", err)
				return
			}
			if chunk.Message.Content != "" {
				select {
				case ch <- chunk.Message.Content:
				case <-ctx.Done():
					return
				}
			}
			if chunk.Done {
				return
			}
		}
	}()

	return ch, nil
}

func (o *OllamaProvider) payload(req domain.CompletionRequest, stream bool) map[string]interface{} {
	model := req.Model
	if model == "" {
		model = o.cfg.Model
	}

	messages := make([]map[string]string, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, map[string]string{"role": domain.RoleSystem, "content": req.System})
	}
	for _, m := range req.Messages {
		messages = append(messages, map[string]string{"role": m.Role, "content": m.Content})
	}

	options := map[string]interface{}{"temperature": req.Temperature}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}

	payload := map[string]interface{}{
		"model":    model,
		"messages": messages,
		"stream":   stream,
		"options":  options,
	}
	if req.JSONMode {
		payload["format"] = "json"
	}
	return payload
}

// do POSTs to /api/chat and returns the response when the status is 200.
func (o *OllamaProvider) do(ctx context.Context, payload interface{}) (*http.Response, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.BaseURL+"/api/chat", bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if o.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+o.cfg.Token)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("ollama API error (%d): %s", resp.StatusCode, string(body))
	}
	return resp, nil
}
