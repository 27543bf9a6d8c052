package domain

import "time"

// Author identifies who sent an inbound message.
type Author struct {
	ID       string
	Username string
	Bot      bool // set for bot accounts, including this one
}

// InboundMessage is a chat message delivered by the gateway.
type InboundMessage struct {
	ID        string
	ChannelID string
	GuildID   string // empty for direct messages
	Author    Author
	Content   string
	Timestamp time.Time
}

// FromBot reports whether the message was written by a bot account.
func (m InboundMessage) FromBot() bool {
	return m.Author.Bot
}
