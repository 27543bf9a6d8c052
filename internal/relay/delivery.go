package relay

// DeliveryKind tells the gateway how a response is sent.
type DeliveryKind string

const (
	DeliveryInline DeliveryKind = "inline"
	DeliveryFile   DeliveryKind = "file"
)

const (
	// DiscordMaxMessageLen is the platform limit for a message body.
	DiscordMaxMessageLen     = 2000
	DefaultAttachmentName    = "response.txt"
	DefaultAttachmentCaption = "My response is too long for Discord, so I'm sending it to you as a file:"
)

// Delivery is the outbound form of one generated response.
type Delivery struct {
	Kind     DeliveryKind
	Text     string // inline body
	Data     []byte // file body
	Filename string
	Caption  string
}

// SelectDelivery routes text by its byte length: up to limit it is sent
// inline, beyond that as a named attachment with a fixed caption.
func SelectDelivery(text string, limit int, filename, caption string) Delivery {
	if len(text) <= limit {
		return Delivery{Kind: DeliveryInline, Text: text}
	}
	return Delivery{
		Kind:     DeliveryFile,
		Data:     []byte(text),
		Filename: filename,
		Caption:  caption,
	}
}
