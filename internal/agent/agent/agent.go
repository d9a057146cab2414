package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"nano-perplexity/internal/agent/llm"
	"nano-perplexity/internal/search"
	"nano-perplexity/internal/webpage"

	"github.com/invopop/jsonschema"
	"github.com/sirupsen/logrus"
	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	ErrEmptyQuery            = errors.New("query cannot be empty")
	ErrLLMCall               = errors.New("LLM call error occurred")
	ErrSearch                = errors.New("web search failed")
	ErrInvalidResult         = errors.New("invalid agent result")
	ErrEmptySystemPrompt     = errors.New("system prompt cannot be empty")
	ErrMissingDependency     = errors.New("agent dependency is missing")
	ErrCannotCreateSchema    = errors.New("cannot create schema from output type")
	errNotStructuredDecision = errors.New("reply is not a structured decision")
)

var tracer = otel.Tracer("nano-perplexity/internal/agent/agent")

// SearchDecision is what the model answers when asked whether a query
// needs a web search. Models that reply with JSON are validated against
// this type; plain replies follow the "no" or reformulated-query protocol.
type SearchDecision struct {
	Search bool   `json:"search" jsonschema:"description=whether a web search is required"`
	Query  string `json:"query,omitempty" jsonschema:"description=query to send to the search engine"`
}

// PageFetcher downloads result pages; failed pages are left out.
type PageFetcher interface {
	FetchAll(ctx context.Context, urls []string) []webpage.Page
}

type Agent struct {
	llm            llm.LLM
	llmConfig      *llm.LLMConfig
	searcher       search.Searcher
	fetcher        PageFetcher
	log            logrus.FieldLogger
	numResults     int
	maxContent     int
	decisionPrompt Prompt
	answerPrompt   Prompt
	decisionSchema gojsonschema.JSONLoader
}

type AgentOption func(*Agent)

func NewAgent(options ...AgentOption) (*Agent, error) {
	agent := &Agent{
		log:            logrus.StandardLogger(),
		numResults:     10,
		maxContent:     500,
		decisionPrompt: searchDecisionPrompt,
		answerPrompt:   answerPrompt,
	}
	for _, opt := range options {
		opt(agent)
	}

	if agent.llm == nil {
		if agent.llmConfig == nil {
			return nil, fmt.Errorf("%w: LLM or LLM config", ErrMissingDependency)
		}
		agentLLM, err := llm.CreateLLM(*agent.llmConfig)
		if err != nil {
			return nil, err
		}
		agent.llm = agentLLM
	}
	if agent.searcher == nil {
		return nil, fmt.Errorf("%w: searcher", ErrMissingDependency)
	}
	if agent.fetcher == nil {
		return nil, fmt.Errorf("%w: page fetcher", ErrMissingDependency)
	}

	schemaLoader, err := newDecisionSchema()
	if err != nil {
		return nil, err
	}
	agent.decisionSchema = schemaLoader

	return agent, nil
}

func WithLLM(model llm.LLM) AgentOption {
	return func(a *Agent) {
		a.llm = model
	}
}

func WithLLMConfig(config llm.LLMConfig) AgentOption {
	return func(a *Agent) {
		a.llmConfig = &config
	}
}

func WithSearcher(searcher search.Searcher) AgentOption {
	return func(a *Agent) {
		a.searcher = searcher
	}
}

func WithFetcher(fetcher PageFetcher) AgentOption {
	return func(a *Agent) {
		a.fetcher = fetcher
	}
}

func WithLogger(log logrus.FieldLogger) AgentOption {
	return func(a *Agent) {
		a.log = log
	}
}

func WithNumResults(n int) AgentOption {
	return func(a *Agent) {
		a.numResults = n
	}
}

// WithMaxContent limits how many characters of each page enter the prompt.
func WithMaxContent(n int) AgentOption {
	return func(a *Agent) {
		a.maxContent = n
	}
}

func (a *Agent) Run(ctx context.Context, query string) (*AgentResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	decision, err := a.CheckSearch(ctx, query)
	if err != nil {
		return nil, err
	}

	var pages []webpage.Page
	if decision.Search {
		pages, err = a.Search(ctx, decision.Query)
		if err != nil {
			return nil, err
		}
	}

	messages, err := a.BuildPrompt(query, pages)
	if err != nil {
		return nil, err
	}

	answer, err := a.llm.Call(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLLMCall, err)
	}
	a.log.WithField("content", answer.Content).Debug("answer received")
	if answer.Truncated {
		a.log.Warn("answer was cut off at the max tokens limit, raise MAX_TOKENS for a complete answer")
	}
	messages = append(messages, answer)

	return NewAgentResult(query, answer.Content, pages, messages)
}

// CheckSearch asks the model whether query needs a web search and, if so,
// which query to send to the search engine.
func (a *Agent) CheckSearch(ctx context.Context, query string) (*SearchDecision, error) {
	a.log.WithField("query", query).Info("checking whether search is required")

	systemPrompt, err := a.decisionPrompt.Render(nil)
	if err != nil {
		return nil, err
	}
	if systemPrompt == "" {
		return nil, ErrEmptySystemPrompt
	}

	reply, err := a.llm.Call(ctx, []llm.LLMMessage{
		llm.NewLLMMessage(llm.LLMMessageTypeSystem, systemPrompt),
		llm.NewLLMMessage(llm.LLMMessageTypeUser, query),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLLMCall, err)
	}

	decision := a.parseDecision(reply.Content)
	if decision.Search && decision.Query == "" {
		decision.Query = query
	}
	if decision.Search {
		a.log.WithField("query", decision.Query).Info("performing web search")
	} else {
		a.log.Info("no web search required")
	}
	return decision, nil
}

func (a *Agent) parseDecision(reply string) *SearchDecision {
	trimmed := strings.TrimSpace(reply)

	decision, err := a.decodeDecision(trimmed)
	if err == nil {
		return decision
	}
	a.log.WithError(err).Debug("falling back to plain search decision")

	if strings.EqualFold(strings.TrimSuffix(trimmed, "."), "no") {
		return &SearchDecision{Search: false}
	}
	return &SearchDecision{Search: true, Query: trimmed}
}

func (a *Agent) decodeDecision(reply string) (*SearchDecision, error) {
	reply = stripCodeFence(reply)
	if !strings.HasPrefix(reply, "{") {
		return nil, errNotStructuredDecision
	}

	validationRes, err := gojsonschema.Validate(a.decisionSchema, gojsonschema.NewStringLoader(reply))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errNotStructuredDecision, err)
	}
	if !validationRes.Valid() {
		return nil, fmt.Errorf("%w: %v", errNotStructuredDecision, validationRes.Errors())
	}

	var decision SearchDecision
	if err := json.Unmarshal([]byte(reply), &decision); err != nil {
		return nil, err
	}
	decision.Query = strings.TrimSpace(decision.Query)
	return &decision, nil
}

// Search runs the search engine and downloads the result pages.
func (a *Agent) Search(ctx context.Context, query string) ([]webpage.Page, error) {
	ctx, span := tracer.Start(ctx, "agent.search")
	defer span.End()
	span.SetAttributes(attribute.String("search.query", query))

	urls, err := a.searcher.Search(ctx, query, a.numResults)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %w", ErrSearch, err)
	}
	if len(urls) == 0 {
		a.log.WithField("query", query).Warn("search returned no results")
		return nil, nil
	}

	pages := a.fetcher.FetchAll(ctx, urls)
	span.SetAttributes(
		attribute.Int("search.results", len(urls)),
		attribute.Int("search.pages", len(pages)),
	)
	a.log.WithFields(logrus.Fields{"results": len(urls), "pages": len(pages)}).Info("search context collected")
	return pages, nil
}

// BuildPrompt produces the system and user messages for the final answer.
// Each page becomes one "[i](url): text" line of the context block.
func (a *Agent) BuildPrompt(query string, pages []webpage.Page) ([]llm.LLMMessage, error) {
	systemPrompt, err := a.answerPrompt.Render(map[string]any{
		"context": ContextBlock(pages, a.maxContent),
	})
	if err != nil {
		return nil, err
	}

	return []llm.LLMMessage{
		llm.NewLLMMessage(llm.LLMMessageTypeSystem, systemPrompt),
		llm.NewLLMMessage(llm.LLMMessageTypeUser, query),
	}, nil
}

func ContextBlock(pages []webpage.Page, maxContent int) string {
	lines := make([]string, 0, len(pages))
	for i, page := range pages {
		lines = append(lines, fmt.Sprintf("[%d](%s): %s", i+1, page.URL, truncate(page.Text, maxContent)))
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func newDecisionSchema() (gojsonschema.JSONLoader, error) {
	reflector := jsonschema.Reflector{DoNotReference: true, Anonymous: true}
	schema := reflector.Reflect(&SearchDecision{})
	// gojsonschema does not know draft 2020-12; let it detect the draft itself
	schema.Version = ""

	schemaBytes, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCannotCreateSchema, err)
	}
	return gojsonschema.NewBytesLoader(schemaBytes), nil
}
