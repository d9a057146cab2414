package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nano-perplexity/internal/agent/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatRequest struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	Messages  []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func completionJSON(content, finishReason string) string {
	body, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "llama",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": finishReason,
			"message": map[string]any{
				"role":    "assistant",
				"content": content,
			},
		}},
	})
	return string(body)
}

func newLlamaEdge(t *testing.T, handler http.HandlerFunc) llm.LLM {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	model, err := llm.CreateLLM(llm.LLMConfig{
		Type:      llm.LLMTypeOpenAI,
		BaseURL:   server.URL + "/v1",
		APIKey:    "LLAMAEDGE",
		Model:     "llama",
		MaxTokens: 1000,
		Timeout:   5 * time.Second,
	})
	require.NoError(t, err)
	return model
}

func TestOpenAILLM_SendsConfiguredEndpointModelAndCredential(t *testing.T) {
	// given
	var (
		gotPath string
		gotAuth string
		gotReq  chatRequest
	)
	model := newLlamaEdge(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionJSON("Paris is the capital of France [1].", "stop")))
	})

	// when
	msg, err := model.Call(context.Background(), []llm.LLMMessage{
		llm.NewLLMMessage(llm.LLMMessageTypeSystem, "be brief"),
		llm.NewLLMMessage(llm.LLMMessageTypeUser, "capital of France?"),
	})

	// then
	require.NoError(t, err)
	assert.Equal(t, "/v1/chat/completions", gotPath)
	assert.Equal(t, "Bearer LLAMAEDGE", gotAuth)
	assert.Equal(t, "llama", gotReq.Model)
	assert.Equal(t, 1000, gotReq.MaxTokens)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, "user", gotReq.Messages[1].Role)

	assert.Equal(t, llm.LLMMessageTypeAssistant, msg.Type)
	assert.Equal(t, "Paris is the capital of France [1].", msg.Content)
	assert.False(t, msg.Truncated)
}

func TestOpenAILLM_MarksAnswerCutAtMaxTokens(t *testing.T) {
	// given
	model := newLlamaEdge(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionJSON("Paris is the capital of", "length")))
	})

	// when
	msg, err := model.Call(context.Background(), []llm.LLMMessage{
		llm.NewLLMMessage(llm.LLMMessageTypeUser, "capital of France?"),
	})

	// then
	require.NoError(t, err)
	assert.Equal(t, "Paris is the capital of", msg.Content)
	assert.True(t, msg.Truncated)
}

func TestOpenAILLM_BlankContent(t *testing.T) {
	// given
	model := newLlamaEdge(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionJSON("   ", "stop")))
	})

	// when
	_, err := model.Call(context.Background(), []llm.LLMMessage{
		llm.NewLLMMessage(llm.LLMMessageTypeUser, "hello"),
	})

	// then
	require.ErrorIs(t, err, llm.ErrEmptyResponse)
}

func TestOpenAILLM_Unauthorized(t *testing.T) {
	// given
	model := newLlamaEdge(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	})

	// when
	_, err := model.Call(context.Background(), []llm.LLMMessage{
		llm.NewLLMMessage(llm.LLMMessageTypeUser, "hello"),
	})

	// then
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestCreateLLM_InvalidConfig(t *testing.T) {
	_, err := llm.CreateLLM(llm.LLMConfig{Type: "anthropic", Model: "llama", BaseURL: "http://x"})
	assert.ErrorIs(t, err, llm.ErrUnsupportedLLMType)

	_, err = llm.CreateLLM(llm.LLMConfig{Type: llm.LLMTypeOpenAI, BaseURL: "http://x"})
	assert.ErrorIs(t, err, llm.ErrInvalidConfig)

	_, err = llm.CreateLLM(llm.LLMConfig{Type: llm.LLMTypeOpenAI, Model: "llama"})
	assert.ErrorIs(t, err, llm.ErrInvalidConfig)
}
