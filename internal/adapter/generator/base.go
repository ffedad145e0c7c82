package generator

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/arturoeanton/founder-dashboard/internal/domain"
	"github.com/arturoeanton/founder-dashboard/internal/port"
)

// base holds what every generator kind shares: the catalog entry, its
// compiled templates and the provider it talks to.
type base struct {
	spec     PromptSpec
	provider port.LLMProvider
	system   *template.Template
	user     *template.Template
}

func newBase(spec PromptSpec, provider port.LLMProvider) (*base, error) {
	system, err := parseTemplate(spec.Name+".system", spec.System)
	if err != nil {
		return nil, err
	}
	user, err := parseTemplate(spec.Name+".user", spec.User)
	if err != nil {
		return nil, err
	}
	return &base{spec: spec, provider: provider, system: system, user: user}, nil
}

func (b *base) Name() string             { return b.spec.Name }
func (b *base) Description() string      { return b.spec.Description }
func (b *base) ResponseKey() string      { return b.spec.ResponseKey }
func (b *base) RequiredFields() []string { return append([]string(nil), b.spec.Required...) }

// request renders the templates and assembles the provider call.
func (b *base) request(req port.GenerateRequest) (domain.CompletionRequest, error) {
	system, err := render(b.system, req.Fields)
	if err != nil {
		return domain.CompletionRequest{}, err
	}
	user, err := render(b.user, req.Fields)
	if err != nil {
		return domain.CompletionRequest{}, err
	}

	messages := make([]domain.Message, 0, len(req.History)+1)
	for _, m := range req.History {
		if m.Role != domain.RoleUser && m.Role != domain.RoleAssistant {
			continue
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		messages = append(messages, m)
	}
	messages = append(messages, domain.Message{Role: domain.RoleUser, Content: user})

	return domain.CompletionRequest{
		Model:       b.spec.Model,
		System:      system,
		Messages:    messages,
		Temperature: b.spec.Temperature,
		MaxTokens:   b.spec.MaxTokens,
		JSONMode:    b.spec.Format == FormatJSON,
	}, nil
}

// complete sends the rendered prompt and returns the trimmed reply.
func (b *base) complete(ctx context.Context, req port.GenerateRequest) (string, error) {
	if b.provider == nil {
		return "", fmt.Errorf("%s: provider %q: %w", b.spec.Name, b.spec.Provider, port.ErrProviderUnavailable)
	}
	creq, err := b.request(req)
	if err != nil {
		return "", err
	}
	reply, err := b.provider.Complete(ctx, creq)
	if err != nil {
		return "", fmt.Errorf("%s: %w", b.spec.Name, err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", fmt.Errorf("%s: %w", b.spec.Name, port.ErrEmptyOutput)
	}
	return reply, nil
}

func render(t *template.Template, fields map[string]string) (string, error) {
	if t == nil {
		return "", nil
	}
	if fields == nil {
		fields = map[string]string{}
	}
	var sb strings.Builder
	if err := t.Execute(&sb, fields); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return strings.TrimSpace(sb.String()), nil
}
