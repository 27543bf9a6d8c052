package config

import "time"

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel:  "info",
			LogFormat: "text",
		},
		Discord: DiscordConfig{
			TypingDelay: 500 * time.Millisecond,
		},
		Gemini: GeminiConfig{
			APIBase:     "https://generativelanguage.googleapis.com/v1beta",
			Model:       "gemini-1.5-pro-002",
			Instruction: "",
			MaxTokens:   0,
			Timeout:     120 * time.Second,
			MaxRetries:  3,
		},
		Relay: RelayConfig{
			MaxMessageLength:  2000,
			AttachmentName:    "response.txt",
			AttachmentCaption: "My response is too long for Discord, so I'm sending it to you as a file:",
			Timeout:           5 * time.Minute,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9090",
		},
	}
}
