package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/iamvkosarev/bappa-chat/internal/metrics"
	"github.com/iamvkosarev/bappa-chat/pkg/local"
)

const DefaultMaxSessions = 10000

type SessionUsecaseDeps struct {
	DocumentStorage DocumentStorage
	Generator       Generator
	Now             func() time.Time
}

type SessionConfig struct {
	DailyLimit     int
	Location       *time.Location
	RequestTimeout time.Duration
	// MaxSessions bounds the number of sessions kept in memory. Zero means
	// DefaultMaxSessions.
	MaxSessions int
}

// SessionUsecase hands out one ChatUsecase per session id. Each session
// keeps its own history and quota documents and its own in-flight guard.
// The least recently used sessions are dropped once MaxSessions is reached;
// their documents stay in storage. A dropped session that is still sending
// is parked until it finishes, so its id keeps the same in-flight guard.
type SessionUsecase struct {
	SessionUsecaseDeps
	cfg      SessionConfig
	mu       sync.Mutex
	sessions *lru.Cache[string, *ChatUsecase]
	parked   map[string]*ChatUsecase
}

func NewSessionUsecase(deps SessionUsecaseDeps, cfg SessionConfig) (*SessionUsecase, error) {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	s := &SessionUsecase{
		SessionUsecaseDeps: deps,
		cfg:                cfg,
		parked:             make(map[string]*ChatUsecase),
	}
	sessions, err := lru.NewWithEvict[string, *ChatUsecase](cfg.MaxSessions, s.onEvict)
	if err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}
	s.sessions = sessions
	return s, nil
}

// Session returns the chat for id, creating it on first use. language only
// applies when the session is created.
func (s *SessionUsecase) Session(id string, language local.Language) *ChatUsecase {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseParked()

	if chat, ok := s.sessions.Get(id); ok {
		return chat
	}
	if chat, ok := s.parked[id]; ok {
		delete(s.parked, id)
		s.sessions.Add(id, chat)
		return chat
	}

	chat := NewChatUsecase(
		ChatUsecaseDeps{
			Quota: NewQuotaUsecase(
				QuotaUsecaseDeps{DocumentStorage: s.DocumentStorage, Now: s.Now},
				s.cfg.DailyLimit, s.cfg.Location, id,
			),
			History:   NewHistoryUsecase(HistoryUsecaseDeps{DocumentStorage: s.DocumentStorage}, id),
			Generator: s.Generator,
			Now:       s.Now,
		},
		language, s.cfg.RequestTimeout,
	)
	s.sessions.Add(id, chat)
	metrics.ActiveSessions.Inc()
	return chat
}

// Len returns the number of sessions held in memory, parked ones included.
func (s *SessionUsecase) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions.Len() + len(s.parked)
}

// HealthCheck reports whether the generator answers. It is false when the
// sessions were built without one.
func (s *SessionUsecase) HealthCheck(ctx context.Context) bool {
	if s.Generator == nil {
		return false
	}
	return s.Generator.HealthCheck(ctx)
}

// onEvict runs inside Session with s.mu held.
func (s *SessionUsecase) onEvict(id string, chat *ChatUsecase) {
	if chat.busy() {
		s.parked[id] = chat
		return
	}
	metrics.ActiveSessions.Dec()
}

func (s *SessionUsecase) releaseParked() {
	for id, chat := range s.parked {
		if !chat.busy() {
			delete(s.parked, id)
			metrics.ActiveSessions.Dec()
		}
	}
}
