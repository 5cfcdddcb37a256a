package inference

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const providerLangChain = "langchain"

// LangChain routes completions through a langchaingo model. The default
// model is langchaingo's OpenAI-compatible client, so any server that Client
// talks to works here as well.
type LangChain struct {
	model  llms.Model
	config *Config
	logger *slog.Logger
}

// NewLangChain builds a provider around langchaingo's OpenAI client.
func NewLangChain(opts ...Option) (*LangChain, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	token := cfg.APIKey
	if token == "" {
		// langchaingo insists on a token; local servers ignore it.
		token = "unused"
	}

	lcOpts := []openai.Option{
		openai.WithToken(token),
		openai.WithModel(cfg.Model),
		openai.WithBaseURL(cfg.BaseURL),
	}
	if cfg.HTTPClient != nil {
		lcOpts = append(lcOpts, openai.WithHTTPClient(cfg.HTTPClient))
	}

	llm, err := openai.New(lcOpts...)
	if err != nil {
		return nil, WrapError(providerLangChain, fmt.Errorf("create model: %w", err))
	}

	return NewLangChainWithModel(llm, opts...), nil
}

// NewLangChainWithModel wraps any langchaingo model.
func NewLangChainWithModel(model llms.Model, opts ...Option) *LangChain {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	return &LangChain{
		model:  model,
		config: cfg,
		logger: cfg.Logger.With("component", "inference.langchain"),
	}
}

// Chat generates a completion from the conversation.
func (l *LangChain) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	start := time.Now()

	content := make([]llms.MessageContent, 0, len(req.Messages))
	for _, msg := range req.Messages {
		content = append(content, llms.TextParts(messageType(msg.Role), msg.Content))
	}

	var callOpts []llms.CallOption
	if req.Model != "" {
		callOpts = append(callOpts, llms.WithModel(req.Model))
	}
	if n := firstNonZero(req.MaxTokens, l.config.MaxTokens); n > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(n))
	}
	if t := req.Temperature; t > 0 {
		callOpts = append(callOpts, llms.WithTemperature(t))
	} else if l.config.Temperature > 0 {
		callOpts = append(callOpts, llms.WithTemperature(l.config.Temperature))
	}

	resp, err := l.model.GenerateContent(ctx, content, callOpts...)
	if err != nil {
		return nil, WrapError(providerLangChain, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return nil, WrapError(providerLangChain, ErrNoChoices)
	}

	choice := resp.Choices[0]
	latency := time.Since(start).Milliseconds()

	l.logger.Debug("chat completion",
		"messages", len(req.Messages),
		"latency_ms", latency,
	)

	return &ChatResponse{
		Message:      NewAssistantMessage(choice.Content),
		FinishReason: choice.StopReason,
		Model:        l.config.Model,
		LatencyMs:    latency,
	}, nil
}

// Health reports context state only; langchaingo exposes no ping.
func (l *LangChain) Health(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op.
func (l *LangChain) Close() error {
	return nil
}

// Name identifies the provider in logs and health reports.
func (l *LangChain) Name() string {
	return providerLangChain
}

func messageType(r Role) llms.ChatMessageType {
	switch r {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

func firstNonZero(vals ...int) int {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}

var _ Provider = (*LangChain)(nil)
