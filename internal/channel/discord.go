package channel

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"geminibot/internal/domain"

	"github.com/bwmarrin/discordgo"
)

// Discord shows a typing indicator for about 10 seconds per trigger.
const typingRefresh = 8 * time.Second

// discordAPI is the subset of *discordgo.Session used for outbound calls.
type discordAPI interface {
	ChannelTyping(channelID string, options ...discordgo.RequestOption) error
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord connects to the Discord gateway, feeds inbound messages to a
// domain.MessageHandler and implements domain.Gateway for replies.
type Discord struct {
	token         string
	guildID       string
	api           discordAPI
	typingRefresh time.Duration
	logger        *slog.Logger
}

// DiscordConfig configures the Discord gateway.
type DiscordConfig struct {
	Token   string
	GuildID string // optional: ignore guild messages from other guilds
	Logger  *slog.Logger
}

func NewDiscord(cfg DiscordConfig) *Discord {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Discord{
		token:         cfg.Token,
		guildID:       cfg.GuildID,
		typingRefresh: typingRefresh,
		logger:        cfg.Logger,
	}
}

func (d *Discord) Name() string { return "discord" }

// Start opens the gateway session and blocks until ctx is canceled.
// discordgo runs each event handler on its own goroutine, so messages are
// handled concurrently.
func (d *Discord) Start(ctx context.Context, handler domain.MessageHandler) error {
	session, err := discordgo.New("Bot " + d.token)
	if err != nil {
		return fmt.Errorf("discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent
	d.api = session

	session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		d.logger.Info(r.User.Username+" is connected!", "user_id", r.User.ID, "guilds", len(r.Guilds))
	})

	session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		msg, ok := d.inbound(m)
		if !ok {
			return
		}
		handler.Handle(ctx, msg)
	})

	if err := session.Open(); err != nil {
		return fmt.Errorf("discord connect: %w", err)
	}

	<-ctx.Done()
	d.logger.Info("discord bot disconnecting")
	return session.Close()
}

// inbound converts a gateway event. Events without an author and guild
// messages outside the configured guild are dropped; bot authors are kept
// so the relay can apply its own filter.
func (d *Discord) inbound(m *discordgo.MessageCreate) (domain.InboundMessage, bool) {
	if m == nil || m.Message == nil || m.Author == nil {
		return domain.InboundMessage{}, false
	}
	if d.guildID != "" && m.GuildID != "" && m.GuildID != d.guildID {
		d.logger.Debug("discord message from other guild dropped", "guild_id", m.GuildID)
		return domain.InboundMessage{}, false
	}
	return domain.InboundMessage{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		Author: domain.Author{
			ID:       m.Author.ID,
			Username: m.Author.Username,
			Bot:      m.Author.Bot,
		},
		Content:   m.Content,
		Timestamp: m.Timestamp,
	}, true
}

// typing re-triggers the channel typing state until stopped.
type typing struct {
	stop chan struct{}
	once sync.Once
}

func (t *typing) Stop() {
	t.once.Do(func() { close(t.stop) })
}

// StartTyping triggers the indicator once synchronously, then refreshes it in
// the background. Trigger failures are logged; the indicator is cosmetic.
func (d *Discord) StartTyping(channelID string) domain.TypingIndicator {
	t := &typing{stop: make(chan struct{})}
	d.triggerTyping(channelID)

	go func() {
		ticker := time.NewTicker(d.typingRefresh)
		defer ticker.Stop()
		for {
			select {
			case <-t.stop:
				return
			case <-ticker.C:
				d.triggerTyping(channelID)
			}
		}
	}()
	return t
}

func (d *Discord) triggerTyping(channelID string) {
	if err := d.api.ChannelTyping(channelID); err != nil {
		d.logger.Warn("discord typing failed", "channel_id", channelID, "err", err)
	}
}

func (d *Discord) SendText(ctx context.Context, channelID, text string) error {
	if _, err := d.api.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord send message: %w", err)
	}
	return nil
}

func (d *Discord) SendFile(ctx context.Context, channelID, caption, filename string, data []byte) error {
	msg := &discordgo.MessageSend{
		Content: caption,
		Files: []*discordgo.File{{
			Name:        filename,
			ContentType: "text/plain; charset=utf-8",
			Reader:      bytes.NewReader(data),
		}},
	}
	if _, err := d.api.ChannelMessageSendComplex(channelID, msg, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord send file: %w", err)
	}
	return nil
}
