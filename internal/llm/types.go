package llm

import "time"

// Chat roles understood by the completion endpoint.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a chat completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Config holds the completion endpoint settings.
type Config struct {
	APIKey           string
	BaseURL          string
	Model            string
	Timeout          time.Duration
	MaxTokens        int
	Temperature      float64
	RetryTemperature float64
}

// DefaultConfig returns settings matching the public OpenAI endpoint.
func DefaultConfig() Config {
	return Config{
		BaseURL:          "https://api.openai.com/v1",
		Model:            "gpt-4o-mini",
		Timeout:          10 * time.Second,
		MaxTokens:        250,
		Temperature:      0.7,
		RetryTemperature: 0.95,
	}
}
