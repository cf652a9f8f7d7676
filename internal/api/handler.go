package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/iamvkosarev/bappa-chat/internal/model"
	"github.com/iamvkosarev/bappa-chat/internal/usecase"
	"github.com/iamvkosarev/bappa-chat/pkg/local"
)

const (
	SessionHeader  = "X-Session-ID"
	maxSessionSize = 64
	healthCacheKey = "groq"
)

type sendMessageRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

type messageResponse struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

type chatResponse struct {
	Success bool   `json:"success"`
	Reply   string `json:"reply,omitempty"`
	Error   string `json:"error,omitempty"`
	Kind    string `json:"kind,omitempty"`
}

type quotaResponse struct {
	Count     int       `json:"count"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetTime time.Time `json:"resetTime"`
}

// Handler exposes the chat session operations over HTTP.
type Handler struct {
	sessions       *usecase.SessionUsecase
	validate       *validator.Validate
	defaultSession string
	health         *expirable.LRU[string, bool]
}

// NewHandler builds the handler. Health results are reused for healthTTL
// since every check is a billed completion; zero disables the cache.
func NewHandler(sessions *usecase.SessionUsecase, defaultSession string, healthTTL time.Duration) *Handler {
	h := &Handler{
		sessions:       sessions,
		validate:       validator.New(),
		defaultSession: defaultSession,
	}
	if healthTTL > 0 {
		h.health = expirable.NewLRU[string, bool](1, nil, healthTTL)
	}
	return h
}

func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		JSONErrorMessage(w, http.StatusBadRequest, "text is required and must be at most 2000 characters")
		return
	}

	resp := h.session(r).SendMessage(r.Context(), req.Text)
	JSON(
		w, statusForResponse(resp), chatResponse{
			Success: resp.Success,
			Reply:   resp.Reply,
			Error:   resp.Error,
			Kind:    string(resp.Kind),
		},
	)
}

func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	history := h.session(r).LoadHistory(r.Context())
	messages := make([]messageResponse, 0, len(history))
	for _, msg := range history {
		messages = append(
			messages, messageResponse{
				ID:        msg.ID.String(),
				Sender:    string(msg.Sender),
				Text:      msg.Text,
				CreatedAt: msg.CreatedAt,
			},
		)
	}
	JSON(w, http.StatusOK, messages)
}

func (h *Handler) ClearMessages(w http.ResponseWriter, r *http.Request) {
	if !h.session(r).ClearHistory(r.Context()) {
		JSONErrorMessage(w, http.StatusInternalServerError, "failed to clear chat history")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetQuota(w http.ResponseWriter, r *http.Request) {
	info := h.session(r).QuotaInfo(r.Context())
	JSON(
		w, http.StatusOK, quotaResponse{
			Count:     info.Count,
			Limit:     info.Limit,
			Remaining: info.Remaining(),
			ResetTime: info.ResetTime,
		},
	)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	healthy := h.healthCheck(r)
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	JSON(w, status, map[string]bool{"groq": healthy})
}

func (h *Handler) healthCheck(r *http.Request) bool {
	if h.health == nil {
		return h.sessions.HealthCheck(r.Context())
	}
	if healthy, ok := h.health.Get(healthCacheKey); ok {
		return healthy
	}
	healthy := h.sessions.HealthCheck(r.Context())
	h.health.Add(healthCacheKey, healthy)
	return healthy
}

func (h *Handler) session(r *http.Request) *usecase.ChatUsecase {
	id := strings.TrimSpace(r.Header.Get(SessionHeader))
	if id == "" || len(id) > maxSessionSize {
		id = h.defaultSession
	}
	return h.sessions.Session(id, local.ParseLanguage(r.Header.Get("Accept-Language")))
}

func statusForResponse(resp model.ChatResponse) int {
	if resp.Success {
		return http.StatusOK
	}
	switch resp.Kind {
	case model.ResponseKindInvalidMessage:
		return http.StatusBadRequest
	case model.ResponseKindBusy:
		return http.StatusConflict
	case model.ResponseKindQuotaExceeded:
		return http.StatusTooManyRequests
	case model.ResponseKindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}
