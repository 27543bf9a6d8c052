package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// ErrStartup marks configuration problems that must stop the process before
// any gateway connection is made.
var ErrStartup = errors.New("startup configuration error")

// Config is the root configuration for geminibot. Secrets are only ever read
// from the environment and are never written back to a config file.
type Config struct {
	General GeneralConfig `yaml:"general" koanf:"general"`
	Discord DiscordConfig `yaml:"discord" koanf:"discord"`
	Gemini  GeminiConfig  `yaml:"gemini" koanf:"gemini"`
	Relay   RelayConfig   `yaml:"relay" koanf:"relay"`
	Metrics MetricsConfig `yaml:"metrics" koanf:"metrics"`
}

type GeneralConfig struct {
	LogLevel  string `yaml:"logLevel" koanf:"logLevel"`   // debug | info | warn | error
	LogFormat string `yaml:"logFormat" koanf:"logFormat"` // text | json
}

type DiscordConfig struct {
	Token       string        `yaml:"-" koanf:"token"`
	GuildID     string        `yaml:"guildId,omitempty" koanf:"guildId"`
	TypingDelay time.Duration `yaml:"typingDelay" koanf:"typingDelay"`
}

type GeminiConfig struct {
	APIKey      string        `yaml:"-" koanf:"apiKey"`
	APIBase     string        `yaml:"apiBase" koanf:"apiBase"`
	Model       string        `yaml:"model" koanf:"model"`
	Instruction string        `yaml:"instruction" koanf:"instruction"`
	MaxTokens   int           `yaml:"maxTokens" koanf:"maxTokens"` // 0 = provider default
	Timeout     time.Duration `yaml:"timeout" koanf:"timeout"`     // per HTTP attempt
	MaxRetries  int           `yaml:"maxRetries" koanf:"maxRetries"`
}

type RelayConfig struct {
	MaxMessageLength  int           `yaml:"maxMessageLength" koanf:"maxMessageLength"`
	AttachmentName    string        `yaml:"attachmentName" koanf:"attachmentName"`
	AttachmentCaption string        `yaml:"attachmentCaption" koanf:"attachmentCaption"`
	Timeout           time.Duration `yaml:"timeout" koanf:"timeout"` // whole generation step, retries included
}

// MetricsConfig controls the optional Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" koanf:"enabled"`
	Addr    string `yaml:"addr" koanf:"addr"`
}

// envKeys maps environment variables onto config keys. Anything not listed is ignored.
var envKeys = map[string]string{
	"DISCORD_API_KEY":        "discord.token",
	"GEMINI_API_KEY":         "gemini.apiKey",
	"GEMINIBOT_LOG_LEVEL":    "general.logLevel",
	"GEMINIBOT_LOG_FORMAT":   "general.logFormat",
	"GEMINIBOT_MODEL":        "gemini.model",
	"GEMINIBOT_INSTRUCTION":  "gemini.instruction",
	"GEMINIBOT_GUILD_ID":     "discord.guildId",
	"GEMINIBOT_METRICS_ADDR": "metrics.addr",
}

// DefaultConfigPath is the optional YAML file read when --config is not given.
func DefaultConfigPath() string {
	return "geminibot.yaml"
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables that are already set win over the file.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(ExpandPath(path)); err != nil {
		return fmt.Errorf("%w: failed to load %s file: %w", ErrStartup, path, err)
	}
	return nil
}

// Load builds the configuration from defaults, the YAML file at path (if it
// exists) and the environment, in that order, then validates it.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := Defaults()

	path = ExpandPath(path)
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("%w: cannot parse config file %s: %w", ErrStartup, path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: cannot read config file %s: %w", ErrStartup, path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", func(s string) string {
		return envKeys[s]
	}), nil); err != nil {
		return nil, fmt.Errorf("%w: loading environment: %w", ErrStartup, err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("%w: cannot decode config: %w", ErrStartup, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStartup, err)
	}
	return cfg, nil
}

// Save writes cfg as YAML. Secrets are omitted.
func Save(path string, cfg *Config) error {
	path = ExpandPath(path)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("cannot create config directory: %w", err)
		}
	}

	data, err := yamlv3.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has usable values.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Discord.Token == "" {
		errs = append(errs, "DISCORD_API_KEY not found in environment variables.")
	}
	if cfg.Discord.TypingDelay < 500*time.Millisecond {
		errs = append(errs, "discord.typingDelay must be at least 500ms")
	}

	if cfg.Gemini.Model == "" {
		errs = append(errs, "gemini.model is required")
	}
	if cfg.Gemini.MaxTokens < 0 {
		errs = append(errs, "gemini.maxTokens must be >= 0")
	}
	if cfg.Gemini.Timeout <= 0 {
		errs = append(errs, "gemini.timeout must be positive")
	}
	if cfg.Gemini.MaxRetries < 0 || cfg.Gemini.MaxRetries > 10 {
		errs = append(errs, "gemini.maxRetries must be between 0 and 10")
	}

	if cfg.Relay.MaxMessageLength < 1 || cfg.Relay.MaxMessageLength > 2000 {
		errs = append(errs, "relay.maxMessageLength must be between 1 and 2000")
	}
	if cfg.Relay.AttachmentName == "" {
		errs = append(errs, "relay.attachmentName is required")
	}
	if cfg.Relay.Timeout <= 0 {
		errs = append(errs, "relay.timeout must be positive")
	}

	switch strings.ToLower(cfg.General.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}
	switch cfg.General.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, "general.logFormat must be one of: text, json")
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		errs = append(errs, "metrics.addr is required when metrics are enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Sanitize returns a copy of cfg with secrets masked, for display.
func Sanitize(cfg *Config) *Config {
	out := *cfg
	out.Discord.Token = mask(cfg.Discord.Token)
	out.Gemini.APIKey = mask(cfg.Gemini.APIKey)
	return &out
}

func mask(secret string) string {
	switch {
	case secret == "":
		return ""
	case len(secret) <= 8:
		return "****"
	default:
		return secret[:4] + "****"
	}
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
