package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/iamvkosarev/bappa-chat/config"
	"github.com/iamvkosarev/bappa-chat/internal/model"
	openai_tools "github.com/iamvkosarev/bappa-chat/pkg/openai-tools"
	"github.com/sashabaranov/go-openai"
)

const (
	OpenAIRoleSystem    = openai.ChatMessageRoleSystem
	OpenAIRoleUser      = openai.ChatMessageRoleUser
	OpenAIRoleAssistant = openai.ChatMessageRoleAssistant

	healthCheckMessage = "Hello"
)

// TokenCounter estimates the prompt size of a request in tokens.
type TokenCounter func(messages []openai.ChatCompletionMessage, aiModel string) (int, error)

type GroqOption func(*GroqUsecase)

func WithTokenCounter(counter TokenCounter) GroqOption {
	return func(g *GroqUsecase) {
		g.countTokens = counter
	}
}

func WithHTTPClient(client *http.Client) GroqOption {
	return func(g *GroqUsecase) {
		g.httpClient = client
	}
}

// GroqUsecase talks to Groq through its OpenAI-compatible chat completion
// API.
type GroqUsecase struct {
	cfg          config.Groq
	client       *openai.Client
	httpClient   *http.Client
	countTokens  TokenCounter
	systemPrompt string
}

func NewGroqUsecase(cfg config.Groq, opts ...GroqOption) (*GroqUsecase, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, model.ErrMissingAPIKey
	}
	g := &GroqUsecase{
		cfg:          cfg,
		countTokens:  openai_tools.CountToken,
		systemPrompt: cfg.SystemPrompt,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.systemPrompt == "" {
		g.systemPrompt = DefaultSystemPrompt
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if g.httpClient != nil {
		clientConfig.HTTPClient = g.httpClient
	}
	g.client = openai.NewClientWithConfig(clientConfig)
	return g, nil
}

// Generate asks the model for the next assistant turn. Every failure is a
// *model.GenerationError.
func (g *GroqUsecase) Generate(ctx context.Context, msg string, history []model.Message) (string, error) {
	messages := g.buildMessages(msg, history)

	resp, err := g.client.CreateChatCompletion(
		ctx, openai.ChatCompletionRequest{
			Model:       g.cfg.Model,
			Messages:    messages,
			Temperature: g.cfg.Temperature,
			MaxTokens:   g.cfg.MaxTokens,
			TopP:        g.cfg.TopP,
			N:           1,
			Stream:      false,
		},
	)
	if err != nil {
		kind := classifyGenerationError(err)
		slog.Error("groq: chat completion failed", "kind", kind, "error", err)
		return "", &model.GenerationError{Kind: kind, Err: err}
	}

	if len(resp.Choices) == 0 {
		return "", &model.GenerationError{Kind: model.GenerationErrorEmptyResponse, Err: model.ErrEmptyResponse}
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", &model.GenerationError{Kind: model.GenerationErrorEmptyResponse, Err: model.ErrEmptyResponse}
	}
	return answer, nil
}

// HealthCheck performs one trivial generation and reports whether it
// succeeded.
func (g *GroqUsecase) HealthCheck(ctx context.Context) bool {
	_, err := g.Generate(ctx, healthCheckMessage, nil)
	return err == nil
}

func (g *GroqUsecase) buildMessages(msg string, history []model.Message) []openai.ChatCompletionMessage {
	system := openai.ChatCompletionMessage{
		Role:    OpenAIRoleSystem,
		Content: g.systemPrompt,
	}
	userTurn := openai.ChatCompletionMessage{
		Role:    OpenAIRoleUser,
		Content: msg,
	}

	messageHistory := make([]openai.ChatCompletionMessage, 0, len(history))
	for _, message := range history {
		messageHistory = append(
			messageHistory, openai.ChatCompletionMessage{
				Role:    parseMessageSenderToRole(message.Sender),
				Content: message.Text,
			},
		)
	}

	assemble := func() []openai.ChatCompletionMessage {
		messages := make([]openai.ChatCompletionMessage, 0, len(messageHistory)+2)
		messages = append(messages, system)
		messages = append(messages, messageHistory...)
		return append(messages, userTurn)
	}

	if g.cfg.MaxContextTokens <= 0 {
		return assemble()
	}
	for len(messageHistory) > 0 {
		tokenCount, err := g.countTokens(assemble(), g.cfg.Model)
		if err != nil {
			slog.Warn("groq: failed to count tokens, sending full history", "error", err)
			break
		}
		if tokenCount < g.cfg.MaxContextTokens {
			break
		}
		messageHistory = messageHistory[1:]
		slog.Debug("groq: history trimmed due to token limit", "tokens", tokenCount, "left", len(messageHistory))
	}
	return assemble()
}

func parseMessageSenderToRole(sender model.MessageSender) string {
	if sender == model.MessageSenderUser {
		return OpenAIRoleUser
	}
	return OpenAIRoleAssistant
}

// classifyGenerationError prefers the provider's structured error code and
// HTTP status and only falls back to matching the error text.
func classifyGenerationError(err error) model.GenerationErrorKind {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if kind, ok := kindFromCode(apiErr.Code, apiErr.Type); ok {
			return kind
		}
		if kind, ok := kindFromStatus(apiErr.HTTPStatusCode); ok {
			return kind
		}
		return kindFromText(apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if kind, ok := kindFromStatus(reqErr.HTTPStatusCode); ok {
			return kind
		}
	}
	return kindFromText(err.Error())
}

func kindFromCode(code any, errType string) (model.GenerationErrorKind, bool) {
	codeStr := ""
	if code != nil {
		codeStr = fmt.Sprint(code)
	}
	for _, c := range []string{codeStr, errType} {
		switch c {
		case "invalid_api_key", "authentication_error":
			return model.GenerationErrorMissingCredential, true
		case "insufficient_quota":
			return model.GenerationErrorQuotaExceeded, true
		case "rate_limit_exceeded":
			return model.GenerationErrorRateLimited, true
		}
	}
	return "", false
}

func kindFromStatus(status int) (model.GenerationErrorKind, bool) {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return model.GenerationErrorMissingCredential, true
	case http.StatusTooManyRequests:
		return model.GenerationErrorRateLimited, true
	}
	return "", false
}

func kindFromText(text string) model.GenerationErrorKind {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "api key"):
		return model.GenerationErrorMissingCredential
	case strings.Contains(lower, "rate limit"):
		return model.GenerationErrorRateLimited
	case strings.Contains(lower, "quota"):
		return model.GenerationErrorQuotaExceeded
	default:
		return model.GenerationErrorUnknown
	}
}
