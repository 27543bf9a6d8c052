package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"geminibot/internal/channel"
	"geminibot/internal/config"
	"geminibot/internal/metrics"
	"geminibot/internal/provider"
	"geminibot/internal/relay"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	version    = "0.1.0"
	logger     = newLogger(config.GeneralConfig{LogLevel: "info", LogFormat: "text"})
	configPath string // --config
	envFile    string // --env-file
)

func main() {
	root := &cobra.Command{
		Use:          "geminibot",
		Short:        "Discord bot that answers messages with Google Gemini",
		Long:         "geminibot relays every non-bot Discord message to Gemini and posts the generated answer back to the channel.",
		SilenceUsage: true,
		RunE:         runBot,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to geminibot.yaml (default: ./geminibot.yaml, optional)")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(runCmd())
	root.AddCommand(doctorCmd())
	root.AddCommand(initCmd())
	root.AddCommand(configCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to Discord and start answering messages",
		RunE:  runBot,
	}
}

func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

// loadConfig loads the dotenv file and then the configuration. Both failures
// are startup errors.
func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	return config.Load(resolveConfigPath())
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		logger.Error("startup failed", "err", err)
		return err
	}
	logger = newLogger(cfg.General)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Gemini.APIKey == "" {
		logger.Warn("GEMINI_API_KEY is not set, generation requests will be rejected")
	}

	gemini := provider.NewGemini(provider.GeminiConfig{
		APIKey:     cfg.Gemini.APIKey,
		APIBase:    cfg.Gemini.APIBase,
		Model:      cfg.Gemini.Model,
		Timeout:    cfg.Gemini.Timeout,
		MaxRetries: cfg.Gemini.MaxRetries,
		Logger:     logger,
	})

	discord := channel.NewDiscord(channel.DiscordConfig{
		Token:   cfg.Discord.Token,
		GuildID: cfg.Discord.GuildID,
		Logger:  logger,
	})

	handler := relay.New(relay.Config{
		Model:             cfg.Gemini.Model,
		Instruction:       cfg.Gemini.Instruction,
		MaxTokens:         cfg.Gemini.MaxTokens,
		MaxMessageLength:  cfg.Relay.MaxMessageLength,
		AttachmentName:    cfg.Relay.AttachmentName,
		AttachmentCaption: cfg.Relay.AttachmentCaption,
		TypingDelay:       cfg.Discord.TypingDelay,
		Timeout:           cfg.Relay.Timeout,
	}, gemini, discord, logger)

	if cfg.Metrics.Enabled {
		srv := &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           metrics.Router(metrics.Default, logger),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server error", "err", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info("metrics enabled", "addr", cfg.Metrics.Addr)
	}

	logger.Info("starting geminibot", "version", version, "model", cfg.Gemini.Model)
	if err := discord.Start(ctx, handler); err != nil {
		return fmt.Errorf("discord: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default geminibot.yaml",
		Long:  "Writes the default configuration. Tokens are never stored in the file; set DISCORD_API_KEY and GEMINI_API_KEY in the environment or .env.",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := resolveConfigPath()
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := config.Save(path, config.Defaults()); err != nil {
				return err
			}
			logger.Info("initialized", "config", path)
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [path]",
		Short: "Print one value (e.g. gemini.model)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			val, err := config.GetByPath(cfg, args[0])
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(val)
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	})

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("geminibot", version)
		},
	}
}
