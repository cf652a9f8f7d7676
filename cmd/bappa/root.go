package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/iamvkosarev/bappa-chat/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgPath string
	envPath string
	verbose bool
	session string
	version = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "bappa",
	Short: "Chat with Bappa, backed by the Groq API",
	Long: `bappa forwards your messages to a hosted language model with the Bappa persona,
keeps the conversation history and enforces a daily message quota.

Quick Start:
  bappa chat        # chat in the terminal
  bappa serve       # JSON API for the web client
  bappa telegram    # Telegram bot
  bappa quota       # messages left today`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", envPath, err)
		}
		return nil
	},
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config/config.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&envPath, "env-file", ".env", "Path to a .env file loaded before the config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd, telegramCmd, chatCmd, quotaCmd, clearCmd, healthCmd)
}

// loadConfig reads the config and installs the default logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, err
	}
	level := parseLevel(cfg.Log.Level)
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return cfg, nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
