package domain

// Chat roles understood by the LLM adapters.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a chat-completion conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is a provider-neutral chat-completion call.
type CompletionRequest struct {
	Model       string
	System      string
	Messages    []Message
	Temperature float64
	MaxTokens   int
	JSONMode    bool
}

// MarketSize holds the TAM/SAM/SOM figures scraped from a market report.
type MarketSize struct {
	TAM string `json:"tam"`
	SAM string `json:"sam"`
	SOM string `json:"som"`
}

// MarketInsights is the structured form of a market-insights report.
type MarketInsights struct {
	Sections   map[string]string `json:"sections"`
	MarketSize MarketSize        `json:"marketSize"`
	Raw        string            `json:"raw,omitempty"`
}
