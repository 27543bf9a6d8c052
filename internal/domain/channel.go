package domain

import "context"

// Gateway is the outbound side of a chat platform connection.
type Gateway interface {
	StartTyping(channelID string) TypingIndicator
	SendText(ctx context.Context, channelID, text string) error
	SendFile(ctx context.Context, channelID, caption, filename string, data []byte) error
}

// TypingIndicator keeps a typing signal visible in one channel until stopped.
// Stop must be safe to call more than once.
type TypingIndicator interface {
	Stop()
}

// MessageHandler consumes inbound messages from a gateway.
type MessageHandler interface {
	Handle(ctx context.Context, msg InboundMessage)
}
