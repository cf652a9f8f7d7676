package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/iamvkosarev/bappa-chat/config"
	"github.com/iamvkosarev/bappa-chat/pkg/local"
	"github.com/sourcegraph/conc"
)

var (
	MessageUserNoAccess = local.NewSet(
		"You are not allowed to use this bot",
		local.NewTrans(local.Hin, "आपको इस बॉट का उपयोग करने की अनुमति नहीं है"),
	)
	MessageCommandStart = local.NewSet(
		"🙏 Welcome to Bappa.ai! Ask Bappa anything for wisdom and guidance. Use /help to see the commands.",
		local.NewTrans(local.Hin, "🙏 Bappa.ai में आपका स्वागत है! ज्ञान और मार्गदर्शन के लिए बप्पा से कुछ भी पूछें। आदेश देखने के लिए /help लिखें।"),
	)
	MessageCommandHelp = local.NewSet(
		"Write something to talk to Bappa. /quota shows how many messages you have left today, /clear forgets the conversation.",
		local.NewTrans(local.Hin, "बप्पा से बात करने के लिए कुछ लिखें। /quota आज बचे संदेश दिखाता है, /clear बातचीत मिटा देता है।"),
	)
	MessageCommandUnknown = local.NewSet(
		"I don't know that command",
		local.NewTrans(local.Hin, "मुझे यह आदेश नहीं पता"),
	)
	MessageHistoryCleared = local.NewSet(
		"Conversation cleared. Let's start afresh, beta.",
		local.NewTrans(local.Hin, "बातचीत मिटा दी गई। चलो बेटा, नए सिरे से शुरू करें।"),
	)
	MessageHistoryNotCleared = local.NewSet(
		"Failed to clear the conversation. Try later",
		local.NewTrans(local.Hin, "बातचीत नहीं मिट सकी। बाद में कोशिश करें"),
	)
	MessageQuotaFormat = local.NewSet(
		"Messages left today: %d of %d. Resets at %s.",
		local.NewTrans(local.Hin, "आज बचे संदेश: %d / %d। सीमा %s पर फिर से शुरू होगी।"),
	)
)

const (
	CommandStart = "start"
	CommandHelp  = "help"
	CommandClear = "clear"
	CommandQuota = "quota"

	telegramSessionPrefix = "telegram_"
)

// TelegramBot is the part of *api.BotAPI the bot front-end uses.
type TelegramBot interface {
	Send(c api.Chattable) (api.Message, error)
	Request(c api.Chattable) (*api.APIResponse, error)
	GetUpdatesChan(config api.UpdateConfig) api.UpdatesChannel
}

type TelegramUsecaseDeps struct {
	Sessions *SessionUsecase
	Bot      TelegramBot
}

type TelegramUsecase struct {
	TelegramUsecaseDeps
	cfg          config.Telegram
	allowedUsers map[int64]struct{}
}

func NewTelegramUsecase(cfg config.Telegram, deps TelegramUsecaseDeps) (*TelegramUsecase, error) {
	allowedUsers := make(map[int64]struct{}, len(cfg.AllowedTelegramID))
	for _, userID := range cfg.AllowedTelegramID {
		allowedUsers[userID] = struct{}{}
	}

	_, err := deps.Bot.Request(
		api.NewSetMyCommands(
			[]api.BotCommand{
				{
					Command:     CommandHelp,
					Description: "Get help",
				},
				{
					Command:     CommandQuota,
					Description: "Show messages left today",
				},
				{
					Command:     CommandClear,
					Description: "Forget the conversation",
				},
			}...,
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set bot commands: %w", err)
	}

	return &TelegramUsecase{
		TelegramUsecaseDeps: deps,
		cfg:                 cfg,
		allowedUsers:        allowedUsers,
	}, nil
}

func (t *TelegramUsecase) Run(ctx context.Context) error {
	u := api.NewUpdate(0)
	u.Timeout = 60

	updates := t.Bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			var languageCode string
			if update.Message.From != nil {
				languageCode = update.Message.From.LanguageCode
			}
			if err := t.handleMessage(
				ctx, update.Message.Chat.ID, languageCode, update.Message.Command(), update.Message.Text,
			); err != nil {
				slog.Error("telegram: failed to handle message", "chat_id", update.Message.Chat.ID, "error", err)
			}
		}
	}
}

func (t *TelegramUsecase) handleMessage(
	ctx context.Context,
	chatID int64,
	languageCode string,
	command string,
	text string,
) error {
	language := local.ParseLanguage(languageCode)

	if len(t.allowedUsers) > 0 {
		if _, ok := t.allowedUsers[chatID]; !ok {
			t.sendMessageAndHandleErr(chatID, MessageUserNoAccess.Text(language))
			return nil
		}
	}

	chat := t.Sessions.Session(telegramSessionPrefix+strconv.FormatInt(chatID, 10), language)
	language = chat.Language()

	if command != "" {
		var answerText string
		switch command {
		case CommandStart:
			answerText = MessageCommandStart.Text(language)
		case CommandHelp:
			answerText = MessageCommandHelp.Text(language)
		case CommandClear:
			if chat.ClearHistory(ctx) {
				answerText = MessageHistoryCleared.Text(language)
			} else {
				answerText = MessageHistoryNotCleared.Text(language)
			}
		case CommandQuota:
			info := chat.QuotaInfo(ctx)
			answerText = MessageQuotaFormat.Format(
				language, info.Remaining(), info.Limit, info.ResetTime.Format(time.Kitchen),
			)
		default:
			answerText = MessageCommandUnknown.Text(language)
		}
		t.sendMessageAndHandleErr(chatID, answerText)
		return nil
	}

	var answerText string
	wg := conc.NewWaitGroup()
	wg.Go(
		func() {
			if _, err := t.Bot.Request(api.NewChatAction(chatID, api.ChatTyping)); err != nil {
				slog.Warn("telegram: failed to send typing action", "chat_id", chatID, "error", err)
			}
		},
	)
	wg.Go(
		func() {
			resp := chat.SendMessage(ctx, text)
			if resp.Success {
				answerText = resp.Reply
			} else {
				answerText = resp.Error
			}
		},
	)
	wg.Wait()

	if _, err := t.sendMessage(chatID, answerText); err != nil {
		return fmt.Errorf("failed to send answer: %w", err)
	}
	return nil
}

func (t *TelegramUsecase) sendMessageAndHandleErr(chatID int64, message string) api.Message {
	msg, err := t.sendMessage(chatID, message)
	if err != nil {
		slog.Error("telegram: failed to send message", "chat_id", chatID, "error", err)
	}
	return msg
}

func (t *TelegramUsecase) sendMessage(chatID int64, message string) (api.Message, error) {
	return t.Bot.Send(api.NewMessage(chatID, message))
}
