package llm

import "time"

type LLMType string

const (
	LLMTypeOpenAI LLMType = "openai"
)

type LLMConfig struct {
	Type        LLMType       `json:"type"`
	BaseURL     string        `json:"base_url"`
	APIKey      string        `json:"-"`
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Timeout     time.Duration `json:"timeout"`
}
