package generator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/arturoeanton/founder-dashboard/internal/port"
)

// stripFences removes a surrounding ``` / ```json code fence.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	if end := strings.LastIndex(s, "```"); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}

// firstJSONObject returns the first balanced {...} in s, skipping braces
// that appear inside string literals.
func firstJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// decodeObject extracts and decodes the JSON object in a model reply.
func decodeObject(reply string) (map[string]any, error) {
	body := stripFences(reply)

	var out map[string]any
	if err := json.Unmarshal([]byte(body), &out); err == nil && out != nil {
		return out, nil
	}

	obj, ok := firstJSONObject(body)
	if !ok {
		return nil, fmt.Errorf("no JSON object in reply: %w", port.ErrUnparsableOutput)
	}
	if err := json.Unmarshal([]byte(obj), &out); err != nil {
		return nil, fmt.Errorf("decode reply: %v: %w", err, port.ErrUnparsableOutput)
	}
	return out, nil
}

// fillMissing copies every fallback key that data lacks (or has as null or "").
// It reports how many keys were filled.
func fillMissing(data, fallback map[string]any) int {
	filled := 0
	for k, v := range fallback {
		cur, ok := data[k]
		if ok && cur != nil && cur != "" {
			continue
		}
		data[k] = v
		filled++
	}
	return filled
}
