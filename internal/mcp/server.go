package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/arturoeanton/founder-dashboard/internal/domain"
	"github.com/arturoeanton/founder-dashboard/internal/port"
	"github.com/arturoeanton/founder-dashboard/internal/service"
)

const protocolVersion = "2024-11-05"

// JSON-RPC error codes.
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternal       = -32603
)

// Generation is the subset of the generation service exposed as tools.
type Generation interface {
	ListGenerators() []string
	Describe(name string) (port.Generator, error)
	Generate(ctx context.Context, name string, req port.GenerateRequest) (*service.GenerateOutcome, error)
}

// Server implements the Model Context Protocol (MCP) server.
// Every non-streaming generator is published as a tool.
type Server struct {
	gen   Generation
	audit port.AuditWriter // optional
	port  string
}

// NewServer creates a new MCP server.
func NewServer(gen Generation, audit port.AuditWriter, port string) *Server {
	return &Server{gen: gen, audit: audit, port: port}
}

// Tool represents an MCP tool definition.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *RPCError `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC error.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string { return e.Message }

// Handler returns the HTTP handler serving /mcp and /mcp/sse.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/mcp", s.handleRPC)
	mux.HandleFunc("/mcp/sse", s.handleSSE)
	return mux
}

// Start serves MCP until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("MCP server shutdown failed", "error", err)
		}
	}()

	slog.Info("MCP server starting", "port", s.port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req JSONRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, nil, codeParseError, "parse error")
		return
	}

	var result any
	var err error

	switch req.Method {
	case "initialize":
		result = map[string]any{
			"protocolVersion": protocolVersion,
			"serverInfo": map[string]string{
				"name":    "founder-dashboard",
				"version": "1.0.0",
			},
			"capabilities": map[string]any{
				"tools": map[string]bool{"listChanged": false},
			},
		}
	case "tools/list":
		result = s.listTools()
	case "tools/call":
		result, err = s.callTool(r.Context(), req.Params)
	default:
		writeError(w, req.ID, codeMethodNotFound, "method not found")
		return
	}

	if err != nil {
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) {
			writeError(w, req.ID, rpcErr.Code, rpcErr.Message)
			return
		}
		writeError(w, req.ID, codeInternal, err.Error())
		return
	}

	writeResult(w, req.ID, result)
}

func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: endpoint\ndata: /mcp\n\n")
	flusher.Flush()

	<-r.Context().Done()
}

func (s *Server) listTools() map[string]any {
	tools := make([]Tool, 0)
	for _, name := range s.gen.ListGenerators() {
		g, err := s.gen.Describe(name)
		if err != nil {
			continue
		}
		if _, streaming := g.(port.StreamingGenerator); streaming {
			continue
		}
		tools = append(tools, Tool{
			Name:        name,
			Description: g.Description(),
			InputSchema: inputSchema(g.RequiredFields()),
		})
	}
	return map[string]any{"tools": tools}
}

// inputSchema declares each required field as a string. Extra string
// arguments are passed through to the prompt templates.
func inputSchema(required []string) json.RawMessage {
	props := make(map[string]any, len(required))
	for _, f := range required {
		props[f] = map[string]string{"type": "string"}
	}
	if required == nil {
		required = []string{}
	}
	b, _ := json.Marshal(map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": map[string]string{"type": "string"},
	})
	return b
}

func (s *Server) callTool(ctx context.Context, params json.RawMessage) (any, error) {
	var req struct {
		Name      string            `json:"name"`
		Arguments map[string]string `json:"arguments"`
	}
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, &RPCError{Code: codeInvalidParams, Message: "invalid params: " + err.Error()}
	}

	g, err := s.gen.Describe(req.Name)
	if err != nil {
		return nil, &RPCError{Code: codeInvalidParams, Message: "unknown tool: " + req.Name}
	}
	if _, streaming := g.(port.StreamingGenerator); streaming {
		return nil, &RPCError{Code: codeInvalidParams, Message: "unknown tool: " + req.Name}
	}

	if req.Arguments == nil {
		req.Arguments = map[string]string{}
	}
	out, err := s.gen.Generate(ctx, req.Name, port.GenerateRequest{Fields: req.Arguments})
	var verr *port.ValidationError
	if errors.As(err, &verr) {
		return toolResult(verr.Error(), true), nil
	}
	if err != nil {
		return nil, err
	}
	s.writeAudit(ctx, req.Name, out.Warning)

	text, ok := out.Data.(string)
	if !ok {
		b, err := json.MarshalIndent(out.Data, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode %s result: %w", req.Name, err)
		}
		text = string(b)
	}
	result := toolResult(text, false)
	if out.Warning != "" {
		result["warning"] = out.Warning
	}
	return result, nil
}

func toolResult(text string, isError bool) map[string]any {
	return map[string]any{
		"content": []map[string]any{{"type": "text", "text": text}},
		"isError": isError,
	}
}

func (s *Server) writeAudit(ctx context.Context, tool, warning string) {
	if s.audit == nil {
		return
	}
	details, _ := json.Marshal(map[string]any{"fallback": warning != ""})
	if err := s.audit.WriteAudit(ctx, domain.AuditLog{
		UserID:     "mcp",
		Action:     domain.AuditActionMCPCall,
		Resource:   "generator",
		ResourceID: tool,
		Details:    string(details),
	}); err != nil {
		slog.Error("failed to write audit log", "action", domain.AuditActionMCPCall, "error", err)
	}
}

func writeResult(w http.ResponseWriter, id any, result any) {
	resp := JSONRPCResponse{JSONRPC: "2.0", ID: id, Result: result}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func writeError(w http.ResponseWriter, id any, code int, message string) {
	resp := JSONRPCResponse{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: message}}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
