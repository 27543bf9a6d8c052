package main

import (
	"log/slog"
	"testing"

	"geminibot/internal/config"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLogger_Formats(t *testing.T) {
	if _, ok := newLogger(config.GeneralConfig{LogFormat: "json"}).Handler().(*slog.JSONHandler); !ok {
		t.Fatal("expected JSON handler")
	}
	if _, ok := newLogger(config.GeneralConfig{LogFormat: "text"}).Handler().(*slog.TextHandler); !ok {
		t.Fatal("expected text handler")
	}
}

func TestResolveConfigPath(t *testing.T) {
	old := configPath
	t.Cleanup(func() { configPath = old })

	configPath = ""
	if resolveConfigPath() != config.DefaultConfigPath() {
		t.Fatalf("expected default path, got %q", resolveConfigPath())
	}
	configPath = "/etc/geminibot.yaml"
	if resolveConfigPath() != "/etc/geminibot.yaml" {
		t.Fatalf("expected flag path, got %q", resolveConfigPath())
	}
}

func TestSummarize(t *testing.T) {
	if err := summarize(3, 1, 0); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := summarize(3, 0, 2); err == nil {
		t.Fatal("expected error when checks failed")
	}
}
