package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/iamvkosarev/bappa-chat/internal/model"
	"github.com/iamvkosarev/bappa-chat/pkg/local"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatFixture struct {
	storage *flakyStorage
	clock   *fakeClock
	gen     *mockGenerator
	chat    *ChatUsecase
}

func newChatFixture(limit int) *chatFixture {
	f := &chatFixture{
		storage: newFlakyStorage(),
		clock:   newFakeClock(time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)),
		gen:     &mockGenerator{reply: "Have patience, beta.", healthy: true},
	}
	f.chat = NewChatUsecase(
		ChatUsecaseDeps{
			Quota: NewQuotaUsecase(
				QuotaUsecaseDeps{DocumentStorage: f.storage, Now: f.clock.Now}, limit, time.UTC, "",
			),
			History:   NewHistoryUsecase(HistoryUsecaseDeps{DocumentStorage: f.storage}, ""),
			Generator: f.gen,
			Now:       f.clock.Now,
		},
		local.Eng, time.Second,
	)
	return f
}

func TestChatUsecase_SendMessageSuccess(t *testing.T) {
	f := newChatFixture(3)
	ctx := context.Background()

	resp := f.chat.SendMessage(ctx, "  How do I stay calm?  ")

	assert.True(t, resp.Success)
	assert.Equal(t, "Have patience, beta.", resp.Reply)
	assert.Empty(t, resp.Error)
	assert.Equal(t, model.ResponseKindNone, resp.Kind)

	history := f.chat.LoadHistory(ctx)
	require.Len(t, history, 2)
	assert.Equal(t, model.MessageSenderUser, history[0].Sender)
	assert.Equal(t, "How do I stay calm?", history[0].Text)
	assert.Equal(t, model.MessageSenderAssistant, history[1].Sender)
	assert.Equal(t, "Have patience, beta.", history[1].Text)
	assert.NotEqual(t, history[0].ID, history[1].ID)

	assert.Equal(t, 1, f.chat.QuotaInfo(ctx).Count)
}

func TestChatUsecase_PassesPriorHistoryToGenerator(t *testing.T) {
	f := newChatFixture(3)
	ctx := context.Background()

	f.chat.SendMessage(ctx, "first")
	f.chat.SendMessage(ctx, "second")

	require.Equal(t, 2, f.gen.callCount())
	assert.Empty(t, f.gen.calls[0].history)
	assert.Equal(t, "second", f.gen.calls[1].msg)
	require.Len(t, f.gen.calls[1].history, 2)
	assert.Equal(t, "first", f.gen.calls[1].history[0].Text)

	assert.Len(t, f.chat.LoadHistory(ctx), 4)
}

func TestChatUsecase_PersistsHistoryOncePerSend(t *testing.T) {
	f := newChatFixture(3)
	ctx := context.Background()

	f.chat.SendMessage(ctx, "hello")
	assert.Equal(t, 1, f.storage.savesOf(HistoryStorageKey))

	f.gen.err = &model.GenerationError{Kind: model.GenerationErrorUnknown, Err: errors.New("boom")}
	f.chat.SendMessage(ctx, "hello again")
	assert.Equal(t, 2, f.storage.savesOf(HistoryStorageKey))
}

func TestChatUsecase_HistoryGrowsByTwoPerSend(t *testing.T) {
	f := newChatFixture(5)
	ctx := context.Background()
	rateLimited := &model.GenerationError{Kind: model.GenerationErrorRateLimited, Err: errors.New("429")}

	for i, genErr := range []error{nil, rateLimited, nil, model.ErrEmptyResponse} {
		f.gen.err = genErr
		f.chat.SendMessage(ctx, "question")
		assert.Len(t, f.chat.LoadHistory(ctx), 2*(i+1), "after send %d", i+1)
	}
	assert.Equal(t, 2, f.chat.QuotaInfo(ctx).Count)
}

func TestChatUsecase_GenerationFailureIsRecordedWithoutIncrement(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind model.ResponseKind
		wantText string
	}{
		{
			name:     "missing credential",
			err:      &model.GenerationError{Kind: model.GenerationErrorMissingCredential, Err: errors.New("401")},
			wantKind: model.ResponseKindMissingCredential,
			wantText: TextMissingCredential.Text(local.Eng),
		},
		{
			name:     "rate limited",
			err:      &model.GenerationError{Kind: model.GenerationErrorRateLimited, Err: errors.New("429")},
			wantKind: model.ResponseKindRateLimited,
			wantText: TextRateLimited.Text(local.Eng),
		},
		{
			name:     "provider quota",
			err:      &model.GenerationError{Kind: model.GenerationErrorQuotaExceeded, Err: errors.New("quota")},
			wantKind: model.ResponseKindProviderQuotaExceeded,
			wantText: TextProviderQuotaExceeded.Text(local.Eng),
		},
		{
			name:     "empty response",
			err:      &model.GenerationError{Kind: model.GenerationErrorEmptyResponse, Err: model.ErrEmptyResponse},
			wantKind: model.ResponseKindEmptyResponse,
			wantText: TextEmptyResponse.Text(local.Eng),
		},
		{
			name:     "unknown",
			err:      &model.GenerationError{Kind: model.GenerationErrorUnknown, Err: errors.New("boom")},
			wantKind: model.ResponseKindUnknown,
			wantText: TextProviderError.Text(local.Eng),
		},
		{
			name:     "unclassified error",
			err:      errors.New("something else"),
			wantKind: model.ResponseKindInternal,
			wantText: TextInternalError.Text(local.Eng),
		},
	}

	for _, tt := range tests {
		t.Run(
			tt.name, func(t *testing.T) {
				f := newChatFixture(3)
				f.gen.err = tt.err
				ctx := context.Background()

				resp := f.chat.SendMessage(ctx, "hello")

				assert.False(t, resp.Success)
				assert.Empty(t, resp.Reply)
				assert.Equal(t, tt.wantKind, resp.Kind)
				assert.Equal(t, tt.wantText, resp.Error)

				history := f.chat.LoadHistory(ctx)
				require.Len(t, history, 2)
				assert.Equal(t, "hello", history[0].Text)
				assert.Equal(t, model.MessageSenderAssistant, history[1].Sender)
				assert.Equal(t, tt.wantText, history[1].Text)

				assert.Equal(t, 0, f.chat.QuotaInfo(ctx).Count)
			},
		)
	}
}

func TestChatUsecase_QuotaExceededShortCircuits(t *testing.T) {
	f := newChatFixture(3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.True(t, f.chat.SendMessage(ctx, "question").Success)
	}
	historyBefore := f.chat.LoadHistory(ctx)

	resp := f.chat.SendMessage(ctx, "one more")

	assert.False(t, resp.Success)
	assert.Equal(t, model.ResponseKindQuotaExceeded, resp.Kind)
	assert.Contains(t, resp.Error, "3")
	assert.Equal(t, 3, f.gen.callCount(), "no generation after the limit")
	assert.Equal(t, historyBefore, f.chat.LoadHistory(ctx))
	assert.Equal(t, 3, f.chat.QuotaInfo(ctx).Count)
}

func TestChatUsecase_QuotaResetsNextDay(t *testing.T) {
	f := newChatFixture(1)
	ctx := context.Background()

	require.True(t, f.chat.SendMessage(ctx, "today").Success)
	require.Equal(t, model.ResponseKindQuotaExceeded, f.chat.SendMessage(ctx, "again").Kind)

	f.clock.Set(time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC))
	assert.True(t, f.chat.SendMessage(ctx, "tomorrow").Success)
}

func TestChatUsecase_FailuresDoNotConsumeQuota(t *testing.T) {
	f := newChatFixture(1)
	ctx := context.Background()

	f.gen.err = &model.GenerationError{Kind: model.GenerationErrorRateLimited, Err: errors.New("429")}
	for i := 0; i < 3; i++ {
		assert.Equal(t, model.ResponseKindRateLimited, f.chat.SendMessage(ctx, "hello").Kind)
	}

	f.gen.err = nil
	assert.True(t, f.chat.SendMessage(ctx, "hello").Success)
}

func TestChatUsecase_RecoversFromGeneratorPanic(t *testing.T) {
	f := newChatFixture(3)
	f.gen.panics = true
	ctx := context.Background()

	var resp model.ChatResponse
	require.NotPanics(
		t, func() {
			resp = f.chat.SendMessage(ctx, "hello")
		},
	)

	assert.False(t, resp.Success)
	assert.Equal(t, model.ResponseKindInternal, resp.Kind)
	assert.Len(t, f.chat.LoadHistory(ctx), 2)
	assert.Equal(t, 0, f.chat.QuotaInfo(ctx).Count)

	f.gen.panics = false
	assert.True(t, f.chat.SendMessage(ctx, "again").Success, "guard must be released after a panic")
}

func TestChatUsecase_RecoversFromStoragePanic(t *testing.T) {
	f := newChatFixture(3)
	f.storage.panicOnSave = HistoryStorageKey
	ctx := context.Background()

	var resp model.ChatResponse
	require.NotPanics(
		t, func() {
			resp = f.chat.SendMessage(ctx, "hello")
		},
	)

	assert.False(t, resp.Success)
	assert.Empty(t, resp.Reply)
	assert.Equal(t, model.ResponseKindInternal, resp.Kind)
	assert.Equal(t, TextInternalError.Text(local.Eng), resp.Error)

	f.storage.panicOnSave = ""
	assert.True(t, f.chat.SendMessage(ctx, "again").Success, "guard must be released after a panic")
}

func TestChatUsecase_RejectsConcurrentSend(t *testing.T) {
	f := newChatFixture(3)
	f.gen.block = make(chan struct{})
	f.gen.started = make(chan struct{})
	started := f.gen.started
	ctx := context.Background()

	var wg sync.WaitGroup
	var first model.ChatResponse
	wg.Add(1)
	go func() {
		defer wg.Done()
		first = f.chat.SendMessage(ctx, "first")
	}()

	<-started
	second := f.chat.SendMessage(ctx, "second")
	close(f.gen.block)
	wg.Wait()

	assert.True(t, first.Success)
	assert.False(t, second.Success)
	assert.Equal(t, model.ResponseKindBusy, second.Kind)
	assert.Equal(t, 1, f.gen.callCount())
	assert.Len(t, f.chat.LoadHistory(ctx), 2)
	assert.Equal(t, 1, f.chat.QuotaInfo(ctx).Count)
}

func TestChatUsecase_RejectsBlankMessage(t *testing.T) {
	f := newChatFixture(3)
	ctx := context.Background()

	resp := f.chat.SendMessage(ctx, " \n\t ")

	assert.False(t, resp.Success)
	assert.Equal(t, model.ResponseKindInvalidMessage, resp.Kind)
	assert.Zero(t, f.gen.callCount())
	assert.Empty(t, f.chat.LoadHistory(ctx))
	assert.EqualValues(t, 0, f.storage.saves.Load())
}

func TestChatUsecase_StorageFailuresFailOpen(t *testing.T) {
	f := newChatFixture(3)
	f.storage.failLoad.Store(true)
	f.storage.failSave.Store(true)

	resp := f.chat.SendMessage(context.Background(), "hello")

	assert.True(t, resp.Success)
	assert.Equal(t, 1, f.gen.callCount())
}

func TestChatUsecase_CompletesAfterCallerCancels(t *testing.T) {
	f := newChatFixture(3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp := f.chat.SendMessage(ctx, "hello")

	assert.True(t, resp.Success)
	assert.Len(t, f.chat.LoadHistory(context.Background()), 2)
}

func TestChatUsecase_Localized(t *testing.T) {
	f := newChatFixture(0)
	hin := NewChatUsecase(f.chat.ChatUsecaseDeps, local.Hin, time.Second)

	resp := hin.SendMessage(context.Background(), "नमस्ते")

	assert.Equal(t, model.ResponseKindQuotaExceeded, resp.Kind)
	assert.Equal(t, TextDailyLimitReached.Format(local.Hin, 0), resp.Error)
	assert.Equal(t, local.Hin, hin.Language())
}

func TestChatUsecase_ClearHistory(t *testing.T) {
	f := newChatFixture(3)
	ctx := context.Background()

	f.chat.SendMessage(ctx, "hello")
	require.True(t, f.chat.ClearHistory(ctx))
	assert.Empty(t, f.chat.LoadHistory(ctx))
	assert.Equal(t, 1, f.chat.QuotaInfo(ctx).Count, "clearing history keeps the quota")
}
