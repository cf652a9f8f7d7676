package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/iamvkosarev/bappa-chat/internal/metrics"
	"github.com/iamvkosarev/bappa-chat/internal/model"
	"github.com/iamvkosarev/bappa-chat/pkg/local"
)

var errPanicked = errors.New("chat panicked")

// Generator produces the next assistant turn for a conversation.
type Generator interface {
	Generate(ctx context.Context, msg string, history []model.Message) (string, error)
	HealthCheck(ctx context.Context) bool
}

type ChatUsecaseDeps struct {
	Quota     *QuotaUsecase
	History   *HistoryUsecase
	Generator Generator
	// Now defaults to time.Now.
	Now func() time.Time
}

// ChatUsecase runs one conversation. At most one SendMessage is in flight
// at a time; concurrent calls are rejected with model.ResponseKindBusy.
type ChatUsecase struct {
	ChatUsecaseDeps
	language       local.Language
	requestTimeout time.Duration
	inFlight       sync.Mutex
}

func NewChatUsecase(deps ChatUsecaseDeps, language local.Language, requestTimeout time.Duration) *ChatUsecase {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &ChatUsecase{
		ChatUsecaseDeps: deps,
		language:        language,
		requestTimeout:  requestTimeout,
	}
}

// SendMessage checks the daily quota, asks the generator for a reply and
// persists the user message together with the reply or the error text.
// It never panics and never returns an error; failures are described by
// the response.
func (c *ChatUsecase) SendMessage(ctx context.Context, text string) (resp model.ChatResponse) {
	text = strings.TrimSpace(text)
	if text == "" {
		return c.reject(model.ResponseKindInvalidMessage, TextEmptyMessage.Text(c.language))
	}
	if !c.inFlight.TryLock() {
		return c.reject(model.ResponseKindBusy, TextBusy.Text(c.language))
	}
	defer c.inFlight.Unlock()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("chat: recovered from panic while sending message", "panic", r)
			resp = c.failure(fmt.Errorf("%w: %v", errPanicked, r))
			metrics.MessagesTotal.WithLabelValues(outcomeLabel(resp)).Inc()
		}
	}()

	if check := c.Quota.CheckLimit(ctx); !check.CanSend {
		return c.reject(
			model.ResponseKindQuotaExceeded,
			TextDailyLimitReached.Format(c.language, c.Quota.Limit()),
		)
	}

	userMsg := model.NewMessage(model.MessageSenderUser, text, c.Now())
	history, reply, err := c.converse(ctx, text)

	if err == nil {
		c.Quota.IncrementCount(ctx)
		resp = model.ChatResponse{Success: true, Reply: reply}
	} else {
		resp = c.failure(err)
	}

	assistantText := resp.Reply
	if !resp.Success {
		assistantText = resp.Error
	}
	assistantMsg := model.NewMessage(model.MessageSenderAssistant, assistantText, c.Now())
	c.History.SaveHistory(ctx, append(history, userMsg, assistantMsg))

	metrics.MessagesTotal.WithLabelValues(outcomeLabel(resp)).Inc()
	return resp
}

func (c *ChatUsecase) LoadHistory(ctx context.Context) []model.Message {
	return c.History.LoadHistory(ctx)
}

func (c *ChatUsecase) ClearHistory(ctx context.Context) bool {
	return c.History.ClearHistory(ctx)
}

func (c *ChatUsecase) QuotaInfo(ctx context.Context) model.QuotaInfo {
	return c.Quota.Info(ctx)
}

func (c *ChatUsecase) Language() local.Language {
	return c.language
}

// busy reports whether a SendMessage is in flight.
func (c *ChatUsecase) busy() bool {
	if c.inFlight.TryLock() {
		c.inFlight.Unlock()
		return false
	}
	return true
}

// converse loads the prior history and generates the reply. A panic in
// between is turned into an error so the attempt is still recorded.
func (c *ChatUsecase) converse(ctx context.Context, text string) (history []model.Message, reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("chat: recovered from panic while generating reply", "panic", r)
			err = fmt.Errorf("%w: %v", errPanicked, r)
		}
	}()

	history = c.History.LoadHistory(ctx)

	// The reply is persisted even if the caller goes away mid-request.
	genCtx := context.WithoutCancel(ctx)
	if c.requestTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(genCtx, c.requestTimeout)
		defer cancel()
	}

	start := time.Now()
	reply, err = c.Generator.Generate(genCtx, text, history)
	metrics.GenerationDuration.Observe(time.Since(start).Seconds())
	return history, reply, err
}

func (c *ChatUsecase) failure(err error) model.ChatResponse {
	var genErr *model.GenerationError
	if !errors.As(err, &genErr) {
		slog.Error("chat: failed to send message", "error", err)
		return model.ChatResponse{
			Error: TextInternalError.Text(c.language),
			Kind:  model.ResponseKindInternal,
		}
	}
	genKind := model.GenerationErrorKindOf(err)
	slog.Warn("chat: generation failed", "kind", genKind, "error", err)
	text, kind := generationFailure(genKind)
	return model.ChatResponse{
		Error: text.Text(c.language),
		Kind:  kind,
	}
}

func (c *ChatUsecase) reject(kind model.ResponseKind, text string) model.ChatResponse {
	metrics.MessagesTotal.WithLabelValues(string(kind)).Inc()
	return model.ChatResponse{
		Error: text,
		Kind:  kind,
	}
}

func outcomeLabel(resp model.ChatResponse) string {
	if resp.Success {
		return "success"
	}
	return string(resp.Kind)
}
