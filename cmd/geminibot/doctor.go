package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"geminibot/internal/config"
	"geminibot/internal/provider"

	"github.com/spf13/cobra"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the environment, configuration and Gemini access",
		Long: `Verifies that the dotenv file loads, the configuration validates,
both API keys are present and the Gemini model answers. Does not connect to Discord.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("geminibot doctor v%s\n\n", version)

			var passed, failed, warned int

			if err := config.LoadDotEnv(envFile); err != nil {
				printFail("Dotenv file", err.Error())
				failed++
			} else {
				printPass("Dotenv file", envFile)
				passed++
			}

			cfgPath := resolveConfigPath()
			if _, err := os.Stat(cfgPath); err != nil {
				printWarn("Config file", fmt.Sprintf("%s not found, using defaults", cfgPath))
				warned++
			} else {
				printPass("Config file", cfgPath)
				passed++
			}

			cfg, err := config.Load(cfgPath)
			if err != nil {
				printFail("Config validation", err.Error())
				failed++
				return summarize(passed, warned, failed)
			}
			printPass("Config validation", "valid")
			passed++

			safe := config.Sanitize(cfg)
			printPass("Discord token", safe.Discord.Token)
			passed++

			if cfg.Gemini.APIKey == "" {
				printFail("Gemini API key", "GEMINI_API_KEY not set")
				failed++
			} else {
				ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				gemini := provider.NewGemini(provider.GeminiConfig{
					APIKey:     cfg.Gemini.APIKey,
					APIBase:    cfg.Gemini.APIBase,
					Model:      cfg.Gemini.Model,
					Timeout:    10 * time.Second,
					MaxRetries: 0,
					Logger:     logger,
				})
				if err := gemini.Healthy(ctx); err != nil {
					printFail("Gemini model", err.Error())
					failed++
				} else {
					printPass("Gemini model", cfg.Gemini.Model)
					passed++
				}
			}

			if cfg.Metrics.Enabled {
				if err := checkAddr(cfg.Metrics.Addr); err != nil {
					printWarn("Metrics addr", fmt.Sprintf("%s may be in use: %v", cfg.Metrics.Addr, err))
					warned++
				} else {
					printPass("Metrics addr", cfg.Metrics.Addr+" available")
					passed++
				}
			}

			return summarize(passed, warned, failed)
		},
	}
}

func summarize(passed, warned, failed int) error {
	fmt.Printf("\nResults: %d passed, %d warnings, %d failed\n", passed, warned, failed)
	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	return nil
}

func checkAddr(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return ln.Close()
}

func printPass(check, detail string) {
	fmt.Printf("  [PASS] %-20s %s\n", check, detail)
}

func printFail(check, detail string) {
	fmt.Printf("  [FAIL] %-20s %s\n", check, detail)
}

func printWarn(check, detail string) {
	fmt.Printf("  [WARN] %-20s %s\n", check, detail)
}
