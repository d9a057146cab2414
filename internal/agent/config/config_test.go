package config_test

import (
	"testing"
	"time"

	"nano-perplexity/internal/agent/config"
	"nano-perplexity/internal/agent/llm"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setLlamaEdgeEnv(t *testing.T) {
	t.Helper()
	t.Setenv("OPENAI_BASE_URL", "https://llama.us.gaianet.network/v1")
	t.Setenv("LLM_MODEL", "llama")
	t.Setenv("OPENAI_API_KEY", "LLAMAEDGE")
}

func TestNewConfig_LlamaEdge(t *testing.T) {
	// given
	setLlamaEdgeEnv(t)
	log, hook := test.NewNullLogger()

	// when
	cfg, err := config.NewConfig(log)

	// then
	require.NoError(t, err)
	assert.Equal(t, "https://llama.us.gaianet.network/v1", cfg.OpenAI.BaseURL)
	assert.Equal(t, "llama", cfg.OpenAI.Model)
	assert.Equal(t, "LLAMAEDGE", cfg.OpenAI.APIKey)
	assert.False(t, cfg.OpenAI.BaseURLDefaulted)
	assert.Empty(t, hook.AllEntries())

	llmCfg := cfg.LLMConfig()
	assert.Equal(t, llm.LLMTypeOpenAI, llmCfg.Type)
	assert.Equal(t, cfg.OpenAI.BaseURL, llmCfg.BaseURL)
	assert.Equal(t, "llama", llmCfg.Model)
	assert.Equal(t, "LLAMAEDGE", llmCfg.APIKey)
}

func TestNewConfig_Defaults(t *testing.T) {
	// given
	setLlamaEdgeEnv(t)
	t.Setenv("OPENAI_BASE_URL", "")
	log, hook := test.NewNullLogger()

	// when
	cfg, err := config.NewConfig(log)

	// then
	require.NoError(t, err)
	assert.Equal(t, config.DefaultBaseURL, cfg.OpenAI.BaseURL)
	assert.True(t, cfg.OpenAI.BaseURLDefaulted)
	assert.Equal(t, 1000, cfg.OpenAI.MaxTokens)
	assert.Equal(t, 10, cfg.Search.NumResults)
	assert.Equal(t, 3*time.Second, cfg.Search.TimeLimit)
	assert.Equal(t, 6*time.Second, cfg.Search.TotalTimeout)
	assert.Equal(t, 500, cfg.Search.MaxContent)
	assert.Equal(t, "google", cfg.Search.Engine)
	assert.Equal(t, ".", cfg.Output.Dir)
	assert.Equal(t, logrus.InfoLevel, cfg.Output.LogLevel)

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Contains(t, hook.LastEntry().Message, "OPENAI_BASE_URL")
}

func TestNewConfig_MissingRequired(t *testing.T) {
	tests := []struct {
		name  string
		unset string
	}{
		{name: "api key", unset: "OPENAI_API_KEY"},
		{name: "model", unset: "LLM_MODEL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// given
			setLlamaEdgeEnv(t)
			t.Setenv(tt.unset, "")
			log, _ := test.NewNullLogger()

			// when
			cfg, err := config.NewConfig(log)

			// then
			assert.Nil(t, cfg)
			require.ErrorIs(t, err, config.ErrMissingEnv)
			assert.Contains(t, err.Error(), tt.unset)
		})
	}
}

func TestNewConfig_InvalidTunables(t *testing.T) {
	// given
	setLlamaEdgeEnv(t)
	t.Setenv("NUM_SEARCH", "ten")
	t.Setenv("TOTAL_TIMEOUT", "-1")
	t.Setenv("LOG_LEVEL", "loud")
	log, _ := test.NewNullLogger()

	// when
	_, err := config.NewConfig(log)

	// then
	require.ErrorIs(t, err, config.ErrInvalidEnv)
	assert.Contains(t, err.Error(), "NUM_SEARCH")
	assert.Contains(t, err.Error(), "TOTAL_TIMEOUT")
	assert.Contains(t, err.Error(), "LOG_LEVEL")
	assert.NotErrorIs(t, err, config.ErrMissingEnv)
}

func TestNewConfig_Overrides(t *testing.T) {
	// given
	setLlamaEdgeEnv(t)
	t.Setenv("NUM_SEARCH", "4")
	t.Setenv("MAX_CONTENT", "80")
	t.Setenv("SEARCH_ENGINE", "DuckDuckGo")
	t.Setenv("OPENAI_TEMPERATURE", "0")
	log, _ := test.NewNullLogger()

	// when
	cfg, err := config.NewConfig(log)

	// then
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Search.NumResults)
	assert.Equal(t, 80, cfg.Search.MaxContent)
	assert.Equal(t, "duckduckgo", cfg.Search.Engine)
	assert.Equal(t, 0.0, cfg.OpenAI.Temperature)
}
