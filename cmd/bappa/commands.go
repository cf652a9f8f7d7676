package main

import (
	"fmt"
	"time"

	"github.com/iamvkosarev/bappa-chat/internal/app"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return app.RunHTTP(cmd.Context(), cfg)
	},
}

var telegramCmd = &cobra.Command{
	Use:   "telegram",
	Short: "Run the Telegram bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return app.RunTelegram(cmd.Context(), cfg)
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with Bappa in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return app.RunTerminal(cmd.Context(), cfg)
	},
}

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Show how many messages are left today",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		info, err := app.Quota(cmd.Context(), cfg, session)
		if err != nil {
			return err
		}
		fmt.Fprintf(
			cmd.OutOrStdout(), "Used %d of %d messages today, %d left. Resets at %s.\n",
			info.Count, info.Limit, info.Remaining(), info.ResetTime.Format(time.DateTime),
		)
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget the stored conversation",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err = app.ClearHistory(cmd.Context(), cfg, session); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Conversation cleared.")
		return nil
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the Groq API answers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ok, err := app.HealthCheck(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("groq api is unreachable")
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Groq API is reachable.")
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{quotaCmd, clearCmd} {
		cmd.Flags().StringVar(&session, "session", app.LocalSession, "Session id (empty for the terminal chat)")
	}
}
