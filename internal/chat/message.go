package chat

import (
	"context"
	"strconv"
)

// ID identifies a chat.
type ID int64

// String returns the decimal form used as a persistence key.
func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseID parses the decimal form produced by String.
func ParseID(s string) (ID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}

	return ID(n), nil
}

// Message is an inbound chat event. It is created per update and discarded
// after the reply is sent.
type Message struct {
	ChatID    ID
	MessageID int
	From      string // sender username, may be empty
	Text      string
	Caption   string
	HasMedia  bool
}

// ScanText returns the text the link pipeline should scan: the message text
// if present, else the caption of a media message.
func (m Message) ScanText() string {
	if m.Text != "" {
		return m.Text
	}

	if m.HasMedia {
		return m.Caption
	}

	return ""
}

// OutboundMessage is a message the bot wants delivered to a chat.
type OutboundMessage struct {
	ChatID  ID     `json:"chatId"`
	Text    string `json:"text"`
	ReplyTo int    `json:"replyTo,omitempty"`
}

// Sender delivers outbound messages to the chat transport.
type Sender interface {
	Send(ctx context.Context, msg OutboundMessage) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, msg OutboundMessage) error

func (f SenderFunc) Send(ctx context.Context, msg OutboundMessage) error {
	return f(ctx, msg)
}
