package generator

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/arturoeanton/founder-dashboard/internal/domain"
	"github.com/arturoeanton/founder-dashboard/internal/port"
)

var (
	headingRe    = regexp.MustCompile(`^\s{0,3}#{1,4}\s+(.+?)\s*$`)
	boldLineRe   = regexp.MustCompile(`^\s*\*\*([^*]+)\*\*\s*:?\s*$`)
	marketSizeRe = regexp.MustCompile(`(?i)\b(TAM|SAM|SOM)\b[^\d\n]{0,80}?(\$?\s?\d[\d,]*(?:\.\d+)?(?:\s*(?:trillion|billion|million|thousand|bn|mn|[TBMK])\b)?)`)
)

// marketFallback is the catalog shape of the market-insights fallback.
type marketFallback struct {
	Sections   map[string]string `yaml:"sections"`
	MarketSize struct {
		TAM string `yaml:"tam"`
		SAM string `yaml:"sam"`
		SOM string `yaml:"som"`
	} `yaml:"marketSize"`
}

// SectionsGenerator asks for a markdown report and scrapes it into named
// sections plus TAM/SAM/SOM figures. Anything it cannot find is filled in
// from the fallback field by field.
type SectionsGenerator struct {
	*base
	keys     []string // sorted section keys
	fallback domain.MarketInsights
}

func newSectionsGenerator(b *base) (*SectionsGenerator, error) {
	var fb marketFallback
	if !b.spec.Fallback.IsZero() {
		if err := b.spec.Fallback.Decode(&fb); err != nil {
			return nil, fmt.Errorf("fallback must have sections and marketSize: %w", err)
		}
	}

	keys := make([]string, 0, len(b.spec.Sections))
	for k := range b.spec.Sections {
		keys = append(keys, k)
	}
	for k := range fb.Sections {
		if _, ok := b.spec.Sections[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	sections := make(map[string]string, len(keys))
	for _, k := range keys {
		sections[k] = fb.Sections[k]
	}
	return &SectionsGenerator{
		base: b,
		keys: keys,
		fallback: domain.MarketInsights{
			Sections:   sections,
			MarketSize: domain.MarketSize{TAM: fb.MarketSize.TAM, SAM: fb.MarketSize.SAM, SOM: fb.MarketSize.SOM},
		},
	}, nil
}

// Fallback returns a copy of the canned report.
func (g *SectionsGenerator) Fallback() any {
	return g.copyFallback()
}

func (g *SectionsGenerator) copyFallback() domain.MarketInsights {
	sections := make(map[string]string, len(g.fallback.Sections))
	for k, v := range g.fallback.Sections {
		sections[k] = v
	}
	return domain.MarketInsights{Sections: sections, MarketSize: g.fallback.MarketSize}
}

// Generate calls the model and scrapes the report. A reply in which no
// section and no market figure can be found is reported as unparsable.
func (g *SectionsGenerator) Generate(ctx context.Context, req port.GenerateRequest) (*port.GenerateResult, error) {
	reply, err := g.complete(ctx, req)
	if err != nil {
		return nil, err
	}

	insights, found := g.Parse(reply)
	if found == 0 {
		return nil, fmt.Errorf("%s: no sections or market figures: %w", g.Name(), port.ErrUnparsableOutput)
	}
	return &port.GenerateResult{Data: insights, Raw: reply}, nil
}

// Parse extracts sections and market figures from a markdown report. It
// returns the insights (gaps filled from the fallback) and how many fields
// came from the report itself.
func (g *SectionsGenerator) Parse(report string) (domain.MarketInsights, int) {
	out := g.copyFallback()
	out.Raw = report
	found := 0

	for key, body := range g.splitSections(report) {
		if body == "" {
			continue
		}
		out.Sections[key] = body
		found++
	}

	for _, m := range marketSizeRe.FindAllStringSubmatch(report, -1) {
		value := strings.TrimSpace(m[2])
		switch strings.ToUpper(m[1]) {
		case "TAM":
			if out.MarketSize.TAM == g.fallback.MarketSize.TAM {
				out.MarketSize.TAM = value
				found++
			}
		case "SAM":
			if out.MarketSize.SAM == g.fallback.MarketSize.SAM {
				out.MarketSize.SAM = value
				found++
			}
		case "SOM":
			if out.MarketSize.SOM == g.fallback.MarketSize.SOM {
				out.MarketSize.SOM = value
				found++
			}
		}
	}
	return out, found
}

// splitSections walks the report line by line and assigns the text under
// each heading to the first section key whose aliases match it.
func (g *SectionsGenerator) splitSections(report string) map[string]string {
	bodies := make(map[string]*strings.Builder)
	current := ""

	for _, line := range strings.Split(report, "\n") {
		m := headingRe.FindStringSubmatch(line)
		isHeading := m != nil
		if m == nil {
			m = boldLineRe.FindStringSubmatch(line)
		}
		if m != nil {
			if key := g.matchHeading(m[1]); key != "" {
				current = key
				if _, ok := bodies[key]; !ok {
					bodies[key] = &strings.Builder{}
				}
				continue
			}
			// An unknown markdown heading closes the current section.
			if isHeading {
				current = ""
				continue
			}
		}
		if current == "" {
			continue
		}
		bodies[current].WriteString(line)
		bodies[current].WriteByte('\n')
	}

	out := make(map[string]string, len(bodies))
	for k, sb := range bodies {
		out[k] = strings.TrimSpace(sb.String())
	}
	return out
}

func (g *SectionsGenerator) matchHeading(heading string) string {
	h := strings.ToLower(strings.Trim(heading, " *#:"))
	for _, key := range g.keys {
		aliases := g.spec.Sections[key]
		if len(aliases) == 0 {
			aliases = []string{key}
		}
		for _, alias := range aliases {
			if strings.Contains(h, strings.ToLower(alias)) {
				return key
			}
		}
	}
	return ""
}
