package generator

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/arturoeanton/founder-dashboard/internal/port"
)

// Output formats a prompt can declare.
const (
	FormatJSON     = "json"
	FormatSections = "sections"
	FormatText     = "text"
	FormatStream   = "stream"
)

//go:embed prompts.yaml
var embeddedCatalog []byte

// PromptSpec is one entry of the prompt catalog.
type PromptSpec struct {
	Name        string              `yaml:"name"`
	Description string              `yaml:"description"`
	Provider    string              `yaml:"provider"`
	Model       string              `yaml:"model"`
	Temperature float64             `yaml:"temperature"`
	MaxTokens   int                 `yaml:"max_tokens"`
	Format      string              `yaml:"format"`
	ResponseKey string              `yaml:"response_key"`
	Required    []string            `yaml:"required"`
	System      string              `yaml:"system"`
	User        string              `yaml:"user"`
	Sections    map[string][]string `yaml:"sections"` // section key -> heading aliases
	Fallback    yaml.Node           `yaml:"fallback"`
}

// Catalog is the parsed prompts file.
type Catalog struct {
	Generators []PromptSpec `yaml:"generators"`
}

// LoadCatalog reads the catalog at path, or the embedded one when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	data := embeddedCatalog
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read prompts file: %w", err)
		}
		data = b
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}

	seen := make(map[string]bool, len(cat.Generators))
	for i := range cat.Generators {
		spec := &cat.Generators[i]
		if spec.Name == "" {
			return nil, fmt.Errorf("prompt #%d: missing name", i)
		}
		if seen[spec.Name] {
			return nil, fmt.Errorf("prompt %q: duplicate name", spec.Name)
		}
		seen[spec.Name] = true

		switch spec.Format {
		case FormatJSON, FormatSections, FormatText, FormatStream:
		case "":
			spec.Format = FormatText
		default:
			return nil, fmt.Errorf("prompt %q: unknown format %q", spec.Name, spec.Format)
		}
		if spec.ResponseKey == "" {
			spec.ResponseKey = "content"
		}
		if strings.TrimSpace(spec.User) == "" {
			return nil, fmt.Errorf("prompt %q: empty user template", spec.Name)
		}
	}
	return &cat, nil
}

// Build turns the catalog into generators bound to the registered providers.
// A generator whose provider is not registered is still built; it always
// fails with port.ErrProviderUnavailable and the caller falls back.
func Build(cat *Catalog, providers port.LLMRegistry) ([]port.Generator, error) {
	out := make([]port.Generator, 0, len(cat.Generators))
	for _, spec := range cat.Generators {
		b, err := newBase(spec, providers[spec.Provider])
		if err != nil {
			return nil, err
		}

		var g port.Generator
		switch spec.Format {
		case FormatJSON:
			g, err = newJSONGenerator(b)
		case FormatSections:
			g, err = newSectionsGenerator(b)
		case FormatStream:
			g, err = newStreamGenerator(b)
		default:
			g, err = newTextGenerator(b)
		}
		if err != nil {
			return nil, fmt.Errorf("prompt %q: %w", spec.Name, err)
		}
		out = append(out, g)
	}
	return out, nil
}

// NewEngine loads the catalog and builds a generator engine in one step.
func NewEngine(path string, providers port.LLMRegistry) (*port.GeneratorEngine, error) {
	cat, err := LoadCatalog(path)
	if err != nil {
		return nil, err
	}
	gens, err := Build(cat, providers)
	if err != nil {
		return nil, err
	}
	return port.NewGeneratorEngine(gens...), nil
}

func parseTemplate(name, text string) (*template.Template, error) {
	if text == "" {
		return nil, nil
	}
	t, err := template.New(name).Option("missingkey=zero").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", name, err)
	}
	return t, nil
}
