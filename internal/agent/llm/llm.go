package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnsupportedLLMType = errors.New("unsupported LLM type")
	ErrInvalidConfig      = errors.New("invalid LLM config")
	ErrEmptyResponse      = errors.New("empty response from LLM")
)

type LLM interface {
	Call(ctx context.Context, msgs []LLMMessage) (LLMMessage, error)
}

func CreateLLM(cfg LLMConfig) (LLM, error) {
	switch cfg.Type {
	case LLMTypeOpenAI:
		if strings.TrimSpace(cfg.Model) == "" {
			return nil, fmt.Errorf("%w: model is empty", ErrInvalidConfig)
		}
		if strings.TrimSpace(cfg.BaseURL) == "" {
			return nil, fmt.Errorf("%w: base URL is empty", ErrInvalidConfig)
		}
		return newOpenAILLM(
			withOpenAIBaseURL(cfg.BaseURL),
			withOpenAIAPIKey(cfg.APIKey),
			withOpenAILLMModel(cfg.Model),
			withOpenAILLMTemperature(cfg.Temperature),
			withOpenAIMaxTokens(cfg.MaxTokens),
			withOpenAITimeout(cfg.Timeout),
		), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLLMType, cfg.Type)
	}
}
