package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iamvkosarev/bappa-chat/internal/model"
	"github.com/peterh/liner"
)

const (
	terminalPrompt = "you › "

	TerminalCommandClear = "/clear"
	TerminalCommandQuota = "/quota"
	TerminalCommandExit  = "/exit"
	TerminalCommandHelp  = "/help"
)

var (
	userBubbleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#F97316")).
			Padding(0, 1)
	bappaBubbleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#1F2937")).
				Background(lipgloss.Color("#FDE68A")).
				Padding(0, 1)
	errorBubbleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFFFFF")).
				Background(lipgloss.Color("#B91C1C")).
				Padding(0, 1)
	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280")).
			Italic(true)
)

// TerminalUsecase is an interactive line-based chat on a terminal.
type TerminalUsecase struct {
	chat *ChatUsecase
	out  io.Writer
}

func NewTerminalUsecase(chat *ChatUsecase, out io.Writer) *TerminalUsecase {
	return &TerminalUsecase{
		chat: chat,
		out:  out,
	}
}

func (t *TerminalUsecase) Run(ctx context.Context) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	fmt.Fprintln(t.out, hintStyle.Render("🙏 Welcome to Bappa.ai. Type /help for commands."))
	for _, msg := range t.chat.LoadHistory(ctx) {
		fmt.Fprintln(t.out, renderMessage(msg))
	}

	for {
		if ctx.Err() != nil {
			return nil
		}
		input, err := line.Prompt(terminalPrompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}
		if strings.TrimSpace(input) == "" {
			continue
		}
		line.AppendHistory(input)

		output, exit := t.handleInput(ctx, input)
		if output != "" {
			fmt.Fprintln(t.out, output)
		}
		if exit {
			return nil
		}
	}
}

func (t *TerminalUsecase) handleInput(ctx context.Context, input string) (string, bool) {
	switch strings.TrimSpace(input) {
	case TerminalCommandExit:
		return hintStyle.Render("Bappa's aashirwad is always with you. 🙏"), true
	case TerminalCommandHelp:
		return hintStyle.Render("/quota  messages left today\n/clear  forget the conversation\n/exit   leave"), false
	case TerminalCommandClear:
		if !t.chat.ClearHistory(ctx) {
			return errorBubbleStyle.Render("Failed to clear the conversation."), false
		}
		return hintStyle.Render("Conversation cleared."), false
	case TerminalCommandQuota:
		return hintStyle.Render(formatQuota(t.chat.QuotaInfo(ctx))), false
	}

	resp := t.chat.SendMessage(ctx, input)
	if !resp.Success {
		return errorBubbleStyle.Render("Bappa: " + resp.Error), false
	}
	return bappaBubbleStyle.Render("Bappa: " + resp.Reply), false
}

func renderMessage(msg model.Message) string {
	if msg.Sender == model.MessageSenderUser {
		return userBubbleStyle.Render("You: " + msg.Text)
	}
	return bappaBubbleStyle.Render("Bappa: " + msg.Text)
}

func formatQuota(info model.QuotaInfo) string {
	return fmt.Sprintf(
		"Messages left today: %d of %d (resets %s)",
		info.Remaining(), info.Limit, info.ResetTime.Format(time.DateTime),
	)
}
