package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := Defaults()
	cfg.Discord.Token = "discord-token"
	cfg.Gemini.APIKey = "gemini-key"
	return cfg
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// --- Validate ---

func TestValidate_ValidConfig(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Fatalf("expected valid config, got: %v", err)
	}
}

func TestValidate_MissingDiscordToken(t *testing.T) {
	cfg := validConfig()
	cfg.Discord.Token = ""
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error for missing token")
	}
	if !strings.Contains(err.Error(), "DISCORD_API_KEY not found in environment variables.") {
		t.Fatalf("unexpected diagnostic: %v", err)
	}
}

func TestValidate_MissingGeminiKeyIsAllowed(t *testing.T) {
	cfg := validConfig()
	cfg.Gemini.APIKey = ""
	if err := Validate(cfg); err != nil {
		t.Fatalf("gemini key is checked per request, got: %v", err)
	}
}

func TestValidate_TypingDelay(t *testing.T) {
	cfg := validConfig()
	cfg.Discord.TypingDelay = 499 * time.Millisecond
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for typing delay below 500ms")
	}

	cfg.Discord.TypingDelay = 500 * time.Millisecond
	if err := Validate(cfg); err != nil {
		t.Fatalf("500ms should be valid: %v", err)
	}
}

func TestValidate_MaxMessageLength_Boundary(t *testing.T) {
	cfg := validConfig()

	for _, n := range []int{1, 2000} {
		cfg.Relay.MaxMessageLength = n
		if err := Validate(cfg); err != nil {
			t.Fatalf("maxMessageLength=%d should be valid: %v", n, err)
		}
	}
	for _, n := range []int{0, 2001} {
		cfg.Relay.MaxMessageLength = n
		if err := Validate(cfg); err == nil {
			t.Fatalf("expected error for maxMessageLength=%d", n)
		}
	}
}

func TestValidate_Gemini(t *testing.T) {
	cases := map[string]func(*Config){
		"empty model":      func(c *Config) { c.Gemini.Model = "" },
		"negative tokens":  func(c *Config) { c.Gemini.MaxTokens = -1 },
		"zero timeout":     func(c *Config) { c.Gemini.Timeout = 0 },
		"too many retries": func(c *Config) { c.Gemini.MaxRetries = 11 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestValidate_Logging(t *testing.T) {
	cfg := validConfig()
	cfg.General.LogLevel = "verbose"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for unknown log level")
	}

	cfg = validConfig()
	cfg.General.LogFormat = "xml"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for unknown log format")
	}
}

func TestValidate_MetricsAddrRequiredWhenEnabled(t *testing.T) {
	cfg := validConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.Addr = ""
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for metrics without addr")
	}
}

// --- Load ---

func TestLoad_DefaultsPlusEnvironment(t *testing.T) {
	t.Setenv("DISCORD_API_KEY", "discord-token")
	t.Setenv("GEMINI_API_KEY", "gemini-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Discord.Token != "discord-token" {
		t.Fatalf("expected token from env, got %q", cfg.Discord.Token)
	}
	if cfg.Gemini.APIKey != "gemini-key" {
		t.Fatalf("expected gemini key from env, got %q", cfg.Gemini.APIKey)
	}
	if cfg.Gemini.Model != "gemini-1.5-pro-002" {
		t.Fatalf("expected default model, got %q", cfg.Gemini.Model)
	}
	if cfg.Relay.MaxMessageLength != 2000 {
		t.Fatalf("expected default limit, got %d", cfg.Relay.MaxMessageLength)
	}
}

func TestLoad_MissingTokenIsStartupError(t *testing.T) {
	t.Setenv("DISCORD_API_KEY", "")

	_, err := Load("")
	if !errors.Is(err, ErrStartup) {
		t.Fatalf("expected ErrStartup, got %v", err)
	}
}

func TestLoad_YAMLFileThenEnvOverride(t *testing.T) {
	t.Setenv("DISCORD_API_KEY", "discord-token")
	t.Setenv("GEMINIBOT_MODEL", "gemini-from-env")

	path := writeFile(t, "geminibot.yaml", `
general:
  logLevel: debug
discord:
  guildId: "1234"
  typingDelay: 750ms
gemini:
  model: gemini-from-file
  instruction: "Answer briefly."
  maxTokens: 256
  timeout: 30s
relay:
  maxMessageLength: 1500
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.General.LogLevel != "debug" {
		t.Fatalf("expected debug, got %q", cfg.General.LogLevel)
	}
	if cfg.Discord.GuildID != "1234" {
		t.Fatalf("expected guild from file, got %q", cfg.Discord.GuildID)
	}
	if cfg.Discord.TypingDelay != 750*time.Millisecond {
		t.Fatalf("expected 750ms, got %v", cfg.Discord.TypingDelay)
	}
	if cfg.Gemini.Model != "gemini-from-env" {
		t.Fatalf("env must override file, got %q", cfg.Gemini.Model)
	}
	if cfg.Gemini.Instruction != "Answer briefly." || cfg.Gemini.MaxTokens != 256 {
		t.Fatalf("unexpected gemini config: %+v", cfg.Gemini)
	}
	if cfg.Gemini.Timeout != 30*time.Second {
		t.Fatalf("expected 30s, got %v", cfg.Gemini.Timeout)
	}
	if cfg.Relay.MaxMessageLength != 1500 {
		t.Fatalf("expected 1500, got %d", cfg.Relay.MaxMessageLength)
	}
	// untouched keys keep their defaults
	if cfg.Relay.AttachmentName != "response.txt" {
		t.Fatalf("expected default attachment name, got %q", cfg.Relay.AttachmentName)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	t.Setenv("DISCORD_API_KEY", "discord-token")
	path := writeFile(t, "bad.yaml", "gemini: [unclosed\n")

	if _, err := Load(path); !errors.Is(err, ErrStartup) {
		t.Fatalf("expected ErrStartup, got %v", err)
	}
}

func TestLoad_InvalidValueFromFile(t *testing.T) {
	t.Setenv("DISCORD_API_KEY", "discord-token")
	path := writeFile(t, "geminibot.yaml", "relay:\n  maxMessageLength: 5000\n")

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error")
	}
}

// --- .env ---

func TestLoadDotEnv(t *testing.T) {
	t.Setenv("GEMINIBOT_TEST_DOTENV", "")
	os.Unsetenv("GEMINIBOT_TEST_DOTENV")
	path := writeFile(t, ".env", "GEMINIBOT_TEST_DOTENV=from-file\n")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("load .env: %v", err)
	}
	if got := os.Getenv("GEMINIBOT_TEST_DOTENV"); got != "from-file" {
		t.Fatalf("expected value from .env, got %q", got)
	}
}

func TestLoadDotEnv_ExistingVariableWins(t *testing.T) {
	t.Setenv("GEMINIBOT_TEST_DOTENV", "from-env")
	path := writeFile(t, ".env", "GEMINIBOT_TEST_DOTENV=from-file\n")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("load .env: %v", err)
	}
	if got := os.Getenv("GEMINIBOT_TEST_DOTENV"); got != "from-env" {
		t.Fatalf("expected process env to win, got %q", got)
	}
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	err := LoadDotEnv(filepath.Join(t.TempDir(), ".env"))
	if !errors.Is(err, ErrStartup) {
		t.Fatalf("expected ErrStartup, got %v", err)
	}
}

// --- Save / accessors ---

func TestSave_OmitsSecretsAndRoundTrips(t *testing.T) {
	t.Setenv("DISCORD_API_KEY", "discord-token")
	path := filepath.Join(t.TempDir(), "nested", "geminibot.yaml")

	original := validConfig()
	original.Gemini.Model = "gemini-saved"
	original.Discord.TypingDelay = 2 * time.Second
	if err := Save(path, original); err != nil {
		t.Fatalf("save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.Contains(string(data), "discord-token") || strings.Contains(string(data), "gemini-key") {
		t.Fatalf("secrets must not be written:\n%s", data)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Gemini.Model != "gemini-saved" {
		t.Fatalf("expected saved model, got %q", loaded.Gemini.Model)
	}
	if loaded.Discord.TypingDelay != 2*time.Second {
		t.Fatalf("expected 2s typing delay, got %v", loaded.Discord.TypingDelay)
	}
}

func TestGetByPath(t *testing.T) {
	cfg := validConfig()

	val, err := GetByPath(cfg, "gemini.model")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if val != "gemini-1.5-pro-002" {
		t.Fatalf("unexpected value %v", val)
	}

	if _, err := GetByPath(cfg, "discord.token"); err == nil {
		t.Fatal("secrets must not be reachable")
	}
	if _, err := GetByPath(cfg, "gemini.model.deeper"); err == nil {
		t.Fatal("expected traversal error")
	}
}

func TestSanitize(t *testing.T) {
	cfg := validConfig()
	cfg.Discord.Token = "abcdefghijklmnop"
	cfg.Gemini.APIKey = "short"
	s := Sanitize(cfg)

	if s.Discord.Token != "abcd****" {
		t.Fatalf("unexpected mask %q", s.Discord.Token)
	}
	if s.Gemini.APIKey != "****" {
		t.Fatalf("short secrets must be fully masked, got %q", s.Gemini.APIKey)
	}
	if cfg.Discord.Token != "abcdefghijklmnop" {
		t.Fatal("Sanitize must not modify the original")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := ExpandPath("~/x.yaml"); got != filepath.Join(home, "x.yaml") {
		t.Fatalf("unexpected expansion %q", got)
	}
	if got := ExpandPath("rel/x.yaml"); got != "rel/x.yaml" {
		t.Fatalf("relative paths must be unchanged, got %q", got)
	}
}
