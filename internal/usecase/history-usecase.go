package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/iamvkosarev/bappa-chat/internal/model"
)

const (
	HistoryStorageKey = "bappa_chat_history"
	QuotaStorageKey   = "bappa_daily_limit"
)

// DocumentStorage holds whole serialized documents under string keys.
// Load returns model.ErrDocumentNotFound for a missing key.
type DocumentStorage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

type messageInternal struct {
	ID        string              `json:"id"`
	Sender    model.MessageSender `json:"sender"`
	Text      string              `json:"text"`
	CreatedAt time.Time           `json:"createdAt"`
}

type HistoryUsecaseDeps struct {
	DocumentStorage DocumentStorage
}

// HistoryUsecase persists the conversation of one session. It never
// returns storage errors: reads degrade to an empty history and writes
// report success as a bool.
type HistoryUsecase struct {
	HistoryUsecaseDeps
	key string
}

func NewHistoryUsecase(deps HistoryUsecaseDeps, session string) *HistoryUsecase {
	return &HistoryUsecase{
		HistoryUsecaseDeps: deps,
		key:                sessionKey(session, HistoryStorageKey),
	}
}

func (h *HistoryUsecase) LoadHistory(ctx context.Context) []model.Message {
	messages, err := h.loadHistory(ctx)
	if err != nil {
		slog.Error("history: failed to load chat history", "key", h.key, "error", err)
		return []model.Message{}
	}
	return messages
}

func (h *HistoryUsecase) SaveHistory(ctx context.Context, messages []model.Message) bool {
	if err := h.saveHistory(ctx, messages); err != nil {
		slog.Error("history: failed to save chat history", "key", h.key, "error", err)
		return false
	}
	return true
}

func (h *HistoryUsecase) ClearHistory(ctx context.Context) bool {
	if err := h.DocumentStorage.Remove(ctx, h.key); err != nil {
		slog.Error("history: failed to clear chat history", "key", h.key, "error", err)
		return false
	}
	return true
}

func (h *HistoryUsecase) loadHistory(ctx context.Context) ([]model.Message, error) {
	raw, err := h.DocumentStorage.Load(ctx, h.key)
	if err != nil {
		if errors.Is(err, model.ErrDocumentNotFound) {
			return []model.Message{}, nil
		}
		return nil, err
	}
	var messagesInt []messageInternal
	if err = json.Unmarshal(raw, &messagesInt); err != nil {
		return nil, fmt.Errorf("failed to unmarshal chat history: %w", err)
	}
	messages := make([]model.Message, 0, len(messagesInt))
	for _, msg := range messagesInt {
		id, err := uuid.Parse(msg.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to parse message id %s: %w", msg.ID, err)
		}
		messages = append(
			messages, model.Message{
				ID:        id,
				Sender:    msg.Sender,
				Text:      msg.Text,
				CreatedAt: msg.CreatedAt,
			},
		)
	}
	return messages, nil
}

func (h *HistoryUsecase) saveHistory(ctx context.Context, messages []model.Message) error {
	messagesInt := make([]messageInternal, 0, len(messages))
	for _, msg := range messages {
		messagesInt = append(
			messagesInt, messageInternal{
				ID:        msg.ID.String(),
				Sender:    msg.Sender,
				Text:      msg.Text,
				CreatedAt: msg.CreatedAt,
			},
		)
	}
	raw, err := json.Marshal(messagesInt)
	if err != nil {
		return fmt.Errorf("failed to marshal chat history: %w", err)
	}
	return h.DocumentStorage.Save(ctx, h.key, raw)
}

func sessionKey(session, key string) string {
	if session == "" {
		return key
	}
	return fmt.Sprintf("%s:%s", session, key)
}
