package domain

import (
	"time"
)

// Well-known keys of the profile document. Any other key is stored as-is.
const (
	ProfileKeyID                    = "id"
	ProfileKeyLastActive            = "lastActive"
	ProfileKeyBusinessIdea          = "businessIdea"
	ProfileKeyChatHistory           = "chatHistory"
	ProfileKeyPitchDrafts           = "pitchDrafts"
	ProfileKeyMarketAnalysis        = "marketAnalysis"
	ProfileKeyKnowledgeInteractions = "knowledgeInteractions"
	ProfileKeySettings              = "settings"
	ProfileKeyDashboardProgress     = "dashboardProgress"
)

// Document is the per-user profile blob. Values are whatever JSON decoding
// produces: map[string]any, []any, string, float64, bool or nil.
type Document map[string]any

// ChatMessage is one entry of the chatHistory list.
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// MergeDocument returns a new document holding existing overlaid with partial.
// Top-level keys in partial replace existing ones, except that when both
// values are objects their keys are merged one level deep. Keys missing from
// partial are kept.
func MergeDocument(existing, partial Document) Document {
	merged := existing.Clone()
	if merged == nil {
		merged = Document{}
	}
	for k, v := range partial {
		oldObj, oldIsObj := merged[k].(map[string]any)
		newObj, newIsObj := v.(map[string]any)
		if oldIsObj && newIsObj {
			combined := make(map[string]any, len(oldObj)+len(newObj))
			for ok, ov := range oldObj {
				combined[ok] = ov
			}
			for nk, nv := range newObj {
				combined[nk] = cloneValue(nv)
			}
			merged[k] = combined
			continue
		}
		merged[k] = cloneValue(v)
	}
	return merged
}

// ApplyPartial merges partial into existing and stamps the result for
// userID. id and lastActive belong to the store: values for them in partial
// are ignored, and the new lastActive is strictly later than existing's.
func ApplyPartial(existing, partial Document, userID string, now time.Time) Document {
	clean := make(Document, len(partial))
	for k, v := range partial {
		if k == ProfileKeyID || k == ProfileKeyLastActive {
			continue
		}
		clean[k] = v
	}
	merged := MergeDocument(existing, clean)
	prev, _ := existing.LastActive()
	Stamp(merged, userID, prev, now)
	return merged
}

// Stamp sets id and lastActive on doc. lastActive is now, or one millisecond
// after prev when the clock has not moved past it.
func Stamp(doc Document, userID string, prev, now time.Time) {
	now = now.UTC()
	if !now.After(prev) {
		now = prev.UTC().Add(time.Millisecond)
	}
	doc[ProfileKeyID] = userID
	doc[ProfileKeyLastActive] = now.Format(time.RFC3339Nano)
}

// LastActive parses the lastActive stamp, if any.
func (d Document) LastActive() (time.Time, bool) {
	raw, ok := d[ProfileKeyLastActive].(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

// ChatHistory returns the chatHistory list as raw JSON values.
func (d Document) ChatHistory() []any {
	list, _ := d[ProfileKeyChatHistory].([]any)
	return list
}

// AppendChat returns a partial document that appends msgs to existing's chat history.
func AppendChat(existing Document, msgs ...ChatMessage) Document {
	history := append([]any{}, existing.ChatHistory()...)
	for _, m := range msgs {
		history = append(history, map[string]any{
			"role":      m.Role,
			"content":   m.Content,
			"timestamp": m.Timestamp.UTC().Format(time.RFC3339Nano),
		})
	}
	return Document{ProfileKeyChatHistory: history}
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, inner := range t {
			m[k] = cloneValue(inner)
		}
		return m
	case Document:
		return map[string]any(t.Clone())
	case []any:
		s := make([]any, len(t))
		for i, inner := range t {
			s[i] = cloneValue(inner)
		}
		return s
	default:
		return v
	}
}
