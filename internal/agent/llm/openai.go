package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const openAIFinishReasonLength = "length"

var tracer = otel.Tracer("nano-perplexity/internal/agent/llm")

// openAILLM talks to any OpenAI-compatible chat completion endpoint,
// e.g. LlamaEdge, by overriding the base URL.
type openAILLM struct {
	client      openai.Client
	baseURL     string
	apiKey      string
	temperature float64
	maxTokens   int
	timeout     time.Duration
	model       openai.ChatModel
}

type openAILLMOption func(o *openAILLM)

func withOpenAILLMTemperature(temperature float64) openAILLMOption {
	return func(o *openAILLM) {
		o.temperature = temperature
	}
}

func withOpenAILLMModel(model string) openAILLMOption {
	return func(o *openAILLM) {
		o.model = openai.ChatModel(model)
	}
}

func withOpenAIAPIKey(apiKey string) openAILLMOption {
	return func(o *openAILLM) {
		o.apiKey = apiKey
	}
}

func withOpenAIBaseURL(baseURL string) openAILLMOption {
	return func(o *openAILLM) {
		// the client resolves "chat/completions" relative to the base URL
		o.baseURL = strings.TrimRight(baseURL, "/") + "/"
	}
}

func withOpenAIMaxTokens(maxTokens int) openAILLMOption {
	return func(o *openAILLM) {
		o.maxTokens = maxTokens
	}
}

func withOpenAITimeout(timeout time.Duration) openAILLMOption {
	return func(o *openAILLM) {
		o.timeout = timeout
	}
}

func newOpenAILLM(options ...openAILLMOption) *openAILLM {
	llm := &openAILLM{}
	for _, opt := range options {
		opt(llm)
	}

	requestOptions := []option.RequestOption{
		option.WithBaseURL(llm.baseURL),
		option.WithAPIKey(llm.apiKey),
	}
	if llm.timeout > 0 {
		requestOptions = append(requestOptions, option.WithRequestTimeout(llm.timeout))
	}
	llm.client = openai.NewClient(requestOptions...)
	return llm
}

func (o *openAILLM) Call(ctx context.Context, msgs []LLMMessage) (LLMMessage, error) {
	ctx, span := tracer.Start(ctx, "llm.call")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", string(o.model)),
		attribute.Int("llm.messages", len(msgs)),
	)

	params := o.createParameters(msgs)
	completion, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return LLMMessage{}, fmt.Errorf("OpenAI-compatible API call failed: %w", err)
	}

	if len(completion.Choices) == 0 {
		span.SetStatus(codes.Error, "no choices")
		return LLMMessage{}, fmt.Errorf("%w: no choices returned", ErrEmptyResponse)
	}

	choice := completion.Choices[0]
	span.SetAttributes(attribute.String("llm.finish_reason", string(choice.FinishReason)))
	if strings.TrimSpace(choice.Message.Content) == "" {
		span.SetStatus(codes.Error, "blank content")
		return LLMMessage{}, fmt.Errorf("%w: blank content", ErrEmptyResponse)
	}

	return o.newLLMMessage(choice), nil
}

func (o *openAILLM) newLLMMessage(choice openai.ChatCompletionChoice) LLMMessage {
	return LLMMessage{
		Type:      LLMMessageTypeAssistant,
		Content:   choice.Message.Content,
		Truncated: choice.FinishReason == openAIFinishReasonLength,
	}
}

func (o *openAILLM) createParameters(messages []LLMMessage) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Messages:    o.createMessages(messages),
		Model:       o.model,
		Temperature: openai.Float(o.temperature),
	}
	if o.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(o.maxTokens))
	}
	return params
}

func (o *openAILLM) createMessages(msgs []LLMMessage) []openai.ChatCompletionMessageParamUnion {
	openAIMessages := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))

	for _, msg := range msgs {
		switch msg.Type {
		case LLMMessageTypeSystem:
			openAIMessages = append(openAIMessages, openai.SystemMessage(msg.Content))
		case LLMMessageTypeUser:
			openAIMessages = append(openAIMessages, openai.UserMessage(msg.Content))
		case LLMMessageTypeAssistant:
			openAIMessages = append(openAIMessages, openai.AssistantMessage(msg.Content))
		}
	}

	return openAIMessages
}
