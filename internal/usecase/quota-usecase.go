package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iamvkosarev/bappa-chat/internal/model"
)

const failOpenResetWindow = 24 * time.Hour

type quotaInternal struct {
	Date      string    `json:"date"`
	Count     int       `json:"count"`
	ResetTime time.Time `json:"resetTime"`
}

type QuotaUsecaseDeps struct {
	DocumentStorage DocumentStorage
	// Now defaults to time.Now.
	Now func() time.Time
}

// QuotaUsecase tracks how many replies a session received today. The day
// rolls over lazily: the first check after midnight starts a fresh record.
type QuotaUsecase struct {
	QuotaUsecaseDeps
	limit    int
	location *time.Location
	key      string
}

func NewQuotaUsecase(deps QuotaUsecaseDeps, limit int, location *time.Location, session string) *QuotaUsecase {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if location == nil {
		location = time.Local
	}
	return &QuotaUsecase{
		QuotaUsecaseDeps: deps,
		limit:            limit,
		location:         location,
		key:              sessionKey(session, QuotaStorageKey),
	}
}

func (q *QuotaUsecase) Limit() int {
	return q.limit
}

// CheckLimit reports whether another message may be sent today. Storage
// failures allow the send.
func (q *QuotaUsecase) CheckLimit(ctx context.Context) model.LimitCheck {
	now := q.Now().In(q.location)
	record, err := q.loadRecord(ctx)
	if err != nil && !errors.Is(err, model.ErrDocumentNotFound) {
		slog.Warn("quota: failed to load daily limit, allowing request", "key", q.key, "error", err)
		return q.failOpen(now)
	}

	if errors.Is(err, model.ErrDocumentNotFound) || record.Date != today(now) {
		record = model.QuotaRecord{
			Date:      today(now),
			Count:     0,
			ResetTime: nextMidnight(now),
		}
		if err = q.saveRecord(ctx, record); err != nil {
			slog.Warn("quota: failed to start daily limit, allowing request", "key", q.key, "error", err)
			return q.failOpen(now)
		}
		return model.LimitCheck{
			CanSend:   q.limit > 0,
			Remaining: q.limit,
			ResetTime: record.ResetTime,
		}
	}

	remaining := max(0, q.limit-record.Count)
	return model.LimitCheck{
		CanSend:   remaining > 0,
		Remaining: remaining,
		ResetTime: record.ResetTime,
	}
}

// IncrementCount counts one successful reply. It does nothing when no
// record exists for today.
func (q *QuotaUsecase) IncrementCount(ctx context.Context) {
	now := q.Now().In(q.location)
	record, err := q.loadRecord(ctx)
	if err != nil {
		if !errors.Is(err, model.ErrDocumentNotFound) {
			slog.Warn("quota: failed to load daily limit for increment", "key", q.key, "error", err)
		}
		return
	}
	if record.Date != today(now) {
		return
	}
	record.Count++
	if err = q.saveRecord(ctx, record); err != nil {
		slog.Warn("quota: failed to save daily limit", "key", q.key, "error", err)
	}
}

// Info returns today's usage without modifying the stored record.
func (q *QuotaUsecase) Info(ctx context.Context) model.QuotaInfo {
	now := q.Now().In(q.location)
	record, err := q.loadRecord(ctx)
	if err != nil {
		if !errors.Is(err, model.ErrDocumentNotFound) {
			slog.Warn("quota: failed to load daily limit info", "key", q.key, "error", err)
		}
	} else if record.Date == today(now) {
		return model.QuotaInfo{
			Count:     record.Count,
			Limit:     q.limit,
			ResetTime: record.ResetTime,
		}
	}
	return model.QuotaInfo{
		Count:     0,
		Limit:     q.limit,
		ResetTime: now.Add(failOpenResetWindow),
	}
}

func (q *QuotaUsecase) failOpen(now time.Time) model.LimitCheck {
	return model.LimitCheck{
		CanSend:   true,
		Remaining: q.limit,
		ResetTime: now.Add(failOpenResetWindow),
	}
}

func (q *QuotaUsecase) loadRecord(ctx context.Context) (model.QuotaRecord, error) {
	raw, err := q.DocumentStorage.Load(ctx, q.key)
	if err != nil {
		return model.QuotaRecord{}, err
	}
	var recordInt quotaInternal
	if err = json.Unmarshal(raw, &recordInt); err != nil {
		return model.QuotaRecord{}, fmt.Errorf("failed to unmarshal daily limit: %w", err)
	}
	return model.QuotaRecord{
		Date:      recordInt.Date,
		Count:     recordInt.Count,
		ResetTime: recordInt.ResetTime,
	}, nil
}

func (q *QuotaUsecase) saveRecord(ctx context.Context, record model.QuotaRecord) error {
	raw, err := json.Marshal(
		quotaInternal{
			Date:      record.Date,
			Count:     record.Count,
			ResetTime: record.ResetTime,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to marshal daily limit: %w", err)
	}
	return q.DocumentStorage.Save(ctx, q.key, raw)
}

func today(now time.Time) string {
	return now.Format(model.QuotaDateLayout)
}

func nextMidnight(now time.Time) time.Time {
	year, month, day := now.Date()
	return time.Date(year, month, day+1, 0, 0, 0, 0, now.Location())
}
