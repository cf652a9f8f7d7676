package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/iamvkosarev/bappa-chat/config"
	httpapi "github.com/iamvkosarev/bappa-chat/internal/api"
	"github.com/iamvkosarev/bappa-chat/internal/model"
	"github.com/iamvkosarev/bappa-chat/internal/server"
	in_memory "github.com/iamvkosarev/bappa-chat/internal/storage/in-memory"
	key_value "github.com/iamvkosarev/bappa-chat/internal/storage/key-value"
	"github.com/iamvkosarev/bappa-chat/internal/storage/sqlite"
	"github.com/iamvkosarev/bappa-chat/internal/usecase"
	"github.com/iamvkosarev/bappa-chat/pkg/local"
	"github.com/redis/go-redis/v9"
)

// LocalSession is the session used by the terminal commands.
const LocalSession = ""

func RunHTTP(ctx context.Context, cfg *config.Config) error {
	sessions, closeStorage, err := newSessions(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer closeStorage()

	handler := httpapi.NewHandler(sessions, cfg.HTTP.DefaultSession, cfg.HTTP.HealthCacheTTL)
	router := httpapi.NewRouter(httpapi.RouterConfig{CORSAllowedOrigins: cfg.HTTP.CORSAllowedOrigins}, handler)
	return server.New(cfg.HTTP.Addr, router, cfg.Groq.RequestTimeout).Start(ctx)
}

func RunTelegram(ctx context.Context, cfg *config.Config) error {
	if cfg.Telegram.TelegramAPIToken == "" {
		return fmt.Errorf("telegram api token is not set")
	}
	sessions, closeStorage, err := newSessions(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer closeStorage()

	bot, err := api.NewBotAPI(cfg.Telegram.TelegramAPIToken)
	if err != nil {
		return fmt.Errorf("failed to create new bot: %w", err)
	}
	slog.Info("authorized on telegram", "account", bot.Self.UserName)

	telegramUsecase, err := usecase.NewTelegramUsecase(
		cfg.Telegram, usecase.TelegramUsecaseDeps{
			Sessions: sessions,
			Bot:      bot,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to create telegram usecase: %w", err)
	}
	return telegramUsecase.Run(ctx)
}

func RunTerminal(ctx context.Context, cfg *config.Config) error {
	sessions, closeStorage, err := newSessions(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer closeStorage()

	chat := sessions.Session(LocalSession, local.Eng)
	return usecase.NewTerminalUsecase(chat, os.Stdout).Run(ctx)
}

func Quota(ctx context.Context, cfg *config.Config, session string) (model.QuotaInfo, error) {
	sessions, closeStorage, err := newSessions(ctx, cfg, false)
	if err != nil {
		return model.QuotaInfo{}, err
	}
	defer closeStorage()
	return sessions.Session(session, local.Eng).QuotaInfo(ctx), nil
}

func ClearHistory(ctx context.Context, cfg *config.Config, session string) error {
	sessions, closeStorage, err := newSessions(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer closeStorage()
	if !sessions.Session(session, local.Eng).ClearHistory(ctx) {
		return fmt.Errorf("failed to clear chat history")
	}
	return nil
}

func HealthCheck(ctx context.Context, cfg *config.Config) (bool, error) {
	groqUsecase, err := usecase.NewGroqUsecase(cfg.Groq)
	if err != nil {
		return false, fmt.Errorf("failed to create groq usecase: %w", err)
	}
	return groqUsecase.HealthCheck(ctx), nil
}

// newSessions wires storage and, when withGenerator is set, the Groq
// gateway. A missing API key is fatal only in the latter case.
func newSessions(ctx context.Context, cfg *config.Config, withGenerator bool) (*usecase.SessionUsecase, func(), error) {
	location, err := cfg.Quota.Location()
	if err != nil {
		return nil, nil, err
	}

	var generator usecase.Generator
	if withGenerator {
		groqUsecase, err := usecase.NewGroqUsecase(cfg.Groq)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create groq usecase: %w", err)
		}
		generator = groqUsecase
	}

	documentStorage, closeStorage, err := newDocumentStorage(ctx, cfg.Storage)
	if err != nil {
		return nil, nil, err
	}

	sessions, err := usecase.NewSessionUsecase(
		usecase.SessionUsecaseDeps{
			DocumentStorage: documentStorage,
			Generator:       generator,
		},
		usecase.SessionConfig{
			DailyLimit:     cfg.Quota.DailyLimit,
			Location:       location,
			RequestTimeout: cfg.Groq.RequestTimeout,
			MaxSessions:    cfg.Sessions.MaxActive,
		},
	)
	if err != nil {
		closeStorage()
		return nil, nil, err
	}
	return sessions, closeStorage, nil
}

func newDocumentStorage(ctx context.Context, cfg config.Storage) (usecase.DocumentStorage, func(), error) {
	switch cfg.Backend {
	case config.StorageBackendMemory:
		slog.Info("using in-memory storage")
		return in_memory.NewDocumentStorage(), func() {}, nil
	case config.StorageBackendRedis:
		rdb := redis.NewClient(
			&redis.Options{
				Addr:     cfg.RedisEndpoint,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			},
		)
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("failed to ping redis %s: %w", cfg.RedisEndpoint, err)
		}
		slog.Info("connected to redis", "addr", cfg.RedisEndpoint)
		return key_value.NewDocumentStorage(rdb), func() { rdb.Close() }, nil
	case config.StorageBackendSQLite:
		documentStorage, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("using sqlite storage", "path", cfg.SQLitePath)
		return documentStorage, func() { documentStorage.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
