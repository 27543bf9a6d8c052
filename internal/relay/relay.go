// Package relay answers chat messages with Gemini-generated text.
//
// Each inbound message is handled independently: the relay filters bot
// authors, shows a typing indicator, asks the generator for a response and
// delivers it inline or as an attachment. Failures are logged and counted,
// never returned, so the gateway keeps dispatching other messages.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"geminibot/internal/domain"
	"geminibot/internal/metrics"

	"github.com/google/uuid"
)

const (
	MinTypingDelay        = 500 * time.Millisecond
	defaultMessageTimeout = 5 * time.Minute
)

// Config holds the per-request knobs. It is copied into the relay and never mutated.
type Config struct {
	Model             string
	Instruction       string
	MaxTokens         int // 0 = provider default
	MaxMessageLength  int
	AttachmentName    string
	AttachmentCaption string
	TypingDelay       time.Duration // how long the indicator shows before generation starts
	Timeout           time.Duration // bounds the generation call
}

// Relay implements domain.MessageHandler. It holds no per-message state and
// is safe for concurrent use.
type Relay struct {
	cfg    Config
	gen    domain.Generator
	gw     domain.Gateway
	logger *slog.Logger
}

func New(cfg Config, gen domain.Generator, gw domain.Gateway, logger *slog.Logger) *Relay {
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = DiscordMaxMessageLen
	}
	if cfg.AttachmentName == "" {
		cfg.AttachmentName = DefaultAttachmentName
	}
	if cfg.AttachmentCaption == "" {
		cfg.AttachmentCaption = DefaultAttachmentCaption
	}
	if cfg.TypingDelay <= 0 {
		cfg.TypingDelay = MinTypingDelay
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultMessageTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{cfg: cfg, gen: gen, gw: gw, logger: logger}
}

// Handle answers one message. It never panics and never reports an error to
// the caller; every outcome is visible only in logs and metrics.
func (r *Relay) Handle(ctx context.Context, msg domain.InboundMessage) {
	metrics.MessagesTotal.Inc()
	if msg.FromBot() {
		metrics.MessagesIgnored.Inc()
		return
	}

	log := r.logger.With(
		"request_id", uuid.NewString(),
		"channel_id", msg.ChannelID,
		"msg_id", msg.ID,
	)

	metrics.InFlight.Inc()
	defer metrics.InFlight.Dec()
	defer func() {
		if p := recover(); p != nil {
			metrics.Failed(string(domain.KindUnknown)).Inc()
			log.Error("message handler panicked", "panic", p, "stack", string(debug.Stack()))
		}
	}()

	typing := r.gw.StartTyping(msg.ChannelID)
	defer typing.Stop()

	if err := r.answer(ctx, msg, log); err != nil {
		kind := domain.KindOf(err)
		metrics.Failed(string(kind)).Inc()
		log.Error("message not answered", "kind", kind, "err", err)
	}
}

func (r *Relay) answer(ctx context.Context, msg domain.InboundMessage, log *slog.Logger) error {
	if err := wait(ctx, r.cfg.TypingDelay); err != nil {
		return err
	}

	log.Info("request received", "author", msg.Author.Username, "content_len", len(msg.Content))

	text, err := r.generate(ctx, msg.Content)
	if err != nil {
		return err
	}

	d := SelectDelivery(text, r.cfg.MaxMessageLength, r.cfg.AttachmentName, r.cfg.AttachmentCaption)
	if err := r.deliver(ctx, msg.ChannelID, d); err != nil {
		return err
	}
	metrics.Delivered(string(d.Kind)).Inc()
	log.Info("response delivered", "delivery", d.Kind, "bytes", len(text))
	return nil
}

// generate runs the request and extraction steps. Errors from generators
// that do not use the domain sentinels are reported as generation failures.
func (r *Relay) generate(ctx context.Context, input string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := r.gen.Generate(ctx, r.request(input))
	metrics.GenerationLatency.ObserveSince(start)
	if err != nil {
		if domain.KindOf(err) == domain.KindUnknown {
			err = fmt.Errorf("%w: %s: %w", domain.ErrGeneration, r.gen.Name(), err)
		}
		return "", err
	}
	r.logger.Debug("response received", "generator", r.gen.Name(), "latency", time.Since(start))

	return domain.FirstText(resp)
}

func (r *Relay) request(input string) domain.GenerationRequest {
	return domain.GenerationRequest{
		Model:       r.cfg.Model,
		Instruction: r.cfg.Instruction,
		Input:       input,
		MaxTokens:   r.cfg.MaxTokens,
		Memory:      false,
		Kind:        domain.KindText,
	}
}

func (r *Relay) deliver(ctx context.Context, channelID string, d Delivery) error {
	var err error
	switch d.Kind {
	case DeliveryFile:
		err = r.gw.SendFile(ctx, channelID, d.Caption, d.Filename, d.Data)
	default:
		err = r.gw.SendText(ctx, channelID, d.Text)
	}
	if err != nil {
		return fmt.Errorf("%w: send %s: %w", domain.ErrDelivery, d.Kind, err)
	}
	return nil
}

func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
