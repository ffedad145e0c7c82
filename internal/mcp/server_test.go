package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/founder-dashboard/internal/adapter/generator"
	"github.com/arturoeanton/founder-dashboard/internal/domain"
	"github.com/arturoeanton/founder-dashboard/internal/port"
	"github.com/arturoeanton/founder-dashboard/internal/service"
)

type replyLLM struct{ name, reply string }

func (f replyLLM) ProviderName() string { return f.name }

func (f replyLLM) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	return f.reply, nil
}

func (f replyLLM) Stream(ctx context.Context, req domain.CompletionRequest) (<-chan string, error) {
	ch := make(chan string, 1)
	ch <- f.reply
	close(ch)
	return ch, nil
}

type auditRecorder struct {
	mu      sync.Mutex
	entries []domain.AuditLog
}

func (a *auditRecorder) WriteAudit(ctx context.Context, e domain.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
	return nil
}

func newTestServer(t *testing.T, audit port.AuditWriter) *httptest.Server {
	t.Helper()
	engine, err := generator.NewEngine("", port.LLMRegistry{
		"openai":    replyLLM{name: "openai", reply: `{"summary":"Promising","score":7}`},
		"anthropic": replyLLM{name: "anthropic", reply: "Talk to customers."},
	})
	require.NoError(t, err)
	gen := service.NewGenerationService(engine, nil, 5*time.Second)

	srv := httptest.NewServer(NewServer(gen, audit, "0").Handler())
	t.Cleanup(srv.Close)
	return srv
}

func rpc(t *testing.T, srv *httptest.Server, method string, params any) JSONRPCResponse {
	t.Helper()
	body := map[string]any{"jsonrpc": "2.0", "id": 1, "method": method}
	if params != nil {
		body["params"] = params
	}
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+"/mcp", "application/json", strings.NewReader(string(raw)))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out JSONRPCResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestInitialize(t *testing.T) {
	srv := newTestServer(t, nil)
	out := rpc(t, srv, "initialize", nil)
	require.Nil(t, out.Error)
	result := out.Result.(map[string]any)
	assert.Equal(t, protocolVersion, result["protocolVersion"])
}

func TestToolsList_SkipsStreamingGenerators(t *testing.T) {
	srv := newTestServer(t, nil)
	out := rpc(t, srv, "tools/list", nil)
	require.Nil(t, out.Error)

	tools := out.Result.(map[string]any)["tools"].([]any)
	names := map[string]bool{}
	for _, tool := range tools {
		names[tool.(map[string]any)["name"].(string)] = true
	}
	assert.True(t, names["idea_analysis"])
	assert.True(t, names["assistant_chat"])
	assert.False(t, names["pitch_slides"])
	assert.Len(t, names, 6)
}

func TestToolsCall(t *testing.T) {
	audit := &auditRecorder{}
	srv := newTestServer(t, audit)

	out := rpc(t, srv, "tools/call", map[string]any{
		"name":      "idea_analysis",
		"arguments": map[string]string{"businessIdea": "meal kits"},
	})
	require.Nil(t, out.Error)
	result := out.Result.(map[string]any)
	assert.Equal(t, false, result["isError"])
	text := result["content"].([]any)[0].(map[string]any)["text"].(string)
	assert.Contains(t, text, "Promising")

	audit.mu.Lock()
	defer audit.mu.Unlock()
	require.Len(t, audit.entries, 1)
	assert.Equal(t, domain.AuditActionMCPCall, audit.entries[0].Action)
	assert.Equal(t, "idea_analysis", audit.entries[0].ResourceID)
}

func TestToolsCall_TextGenerator(t *testing.T) {
	srv := newTestServer(t, nil)
	out := rpc(t, srv, "tools/call", map[string]any{
		"name":      "assistant_chat",
		"arguments": map[string]string{"message": "what next?"},
	})
	require.Nil(t, out.Error)
	text := out.Result.(map[string]any)["content"].([]any)[0].(map[string]any)["text"]
	assert.Equal(t, "Talk to customers.", text)
}

func TestToolsCall_Errors(t *testing.T) {
	srv := newTestServer(t, nil)

	out := rpc(t, srv, "tools/call", map[string]any{"name": "pitch_slides"})
	require.NotNil(t, out.Error)
	assert.Equal(t, codeInvalidParams, out.Error.Code)

	out = rpc(t, srv, "tools/call", map[string]any{"name": "idea_analysis"})
	require.Nil(t, out.Error)
	assert.Equal(t, true, out.Result.(map[string]any)["isError"])

	out = rpc(t, srv, "resources/list", nil)
	require.NotNil(t, out.Error)
	assert.Equal(t, codeMethodNotFound, out.Error.Code)
}
