package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iamvkosarev/bappa-chat/internal/model"
	in_memory "github.com/iamvkosarev/bappa-chat/internal/storage/in-memory"
)

var errStorageDown = errors.New("storage unavailable")

// flakyStorage wraps the in-memory storage and fails the operations whose
// flag is set. Saves to a key ending in panicOnSave panic.
type flakyStorage struct {
	*in_memory.DocumentStorage
	failLoad    atomic.Bool
	failSave    atomic.Bool
	failRemove  atomic.Bool
	saves       atomic.Int32
	panicOnSave string

	mu         sync.Mutex
	savesByKey map[string]int
}

func newFlakyStorage() *flakyStorage {
	return &flakyStorage{
		DocumentStorage: in_memory.NewDocumentStorage(),
		savesByKey:      make(map[string]int),
	}
}

func (f *flakyStorage) savesOf(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.savesByKey[key]
}

func (f *flakyStorage) Load(ctx context.Context, key string) ([]byte, error) {
	if f.failLoad.Load() {
		return nil, errStorageDown
	}
	return f.DocumentStorage.Load(ctx, key)
}

func (f *flakyStorage) Save(ctx context.Context, key string, value []byte) error {
	if f.panicOnSave != "" && strings.HasSuffix(key, f.panicOnSave) {
		panic("disk on fire")
	}
	if f.failSave.Load() {
		return errStorageDown
	}
	f.saves.Add(1)
	f.mu.Lock()
	f.savesByKey[key]++
	f.mu.Unlock()
	return f.DocumentStorage.Save(ctx, key, value)
}

func (f *flakyStorage) Remove(ctx context.Context, key string) error {
	if f.failRemove.Load() {
		return errStorageDown
	}
	return f.DocumentStorage.Remove(ctx, key)
}

type generateCall struct {
	msg     string
	history []model.Message
}

// mockGenerator replies with reply, or fails with err when set.
type mockGenerator struct {
	mu      sync.Mutex
	reply   string
	err     error
	panics  bool
	block   chan struct{}
	started chan struct{}
	calls   []generateCall
	healthy bool
}

func (m *mockGenerator) Generate(ctx context.Context, msg string, history []model.Message) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, generateCall{msg: msg, history: history})
	block, started := m.block, m.started
	m.started = nil
	m.mu.Unlock()

	if started != nil {
		close(started)
	}
	if block != nil {
		<-block
	}
	if m.panics {
		panic("boom")
	}
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

func (m *mockGenerator) HealthCheck(context.Context) bool {
	return m.healthy
}

func (m *mockGenerator) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// fakeClock is a settable clock for quota tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
