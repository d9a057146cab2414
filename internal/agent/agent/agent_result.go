package agent

import (
	"fmt"

	"nano-perplexity/internal/agent/llm"
	"nano-perplexity/internal/webpage"
)

type AgentResult struct {
	Query    string           `json:"query"`
	Answer   string           `json:"answer"`
	Sources  []webpage.Page   `json:"sources"`
	Messages []llm.LLMMessage `json:"messages"`
}

func NewAgentResult(query, answer string, sources []webpage.Page, messages []llm.LLMMessage) (*AgentResult, error) {
	if answer == "" {
		return nil, fmt.Errorf("%w: answer cannot be empty", ErrInvalidResult)
	}
	if len(messages) == 0 {
		return nil, fmt.Errorf("%w: messages cannot be empty", ErrInvalidResult)
	}
	return &AgentResult{
		Query:    query,
		Answer:   answer,
		Sources:  sources,
		Messages: messages,
	}, nil
}

// SourceURLs lists the sources in the order they were numbered in the prompt.
func (r *AgentResult) SourceURLs() []string {
	urls := make([]string, 0, len(r.Sources))
	for _, s := range r.Sources {
		urls = append(urls, s.URL)
	}
	return urls
}
