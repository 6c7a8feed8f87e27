// Package transport provides the delivery channels used to reach
// emergency contacts: SMTP email and an HTTP SMS gateway.
package transport

import (
	"context"
	"fmt"
	"strings"
)

// Channel identifies a delivery channel for emergency notifications.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// ParseChannel validates a channel string. The channel set is closed;
// anything outside it is rejected.
func ParseChannel(s string) (Channel, error) {
	switch Channel(strings.ToLower(strings.TrimSpace(s))) {
	case ChannelEmail:
		return ChannelEmail, nil
	case ChannelSMS:
		return ChannelSMS, nil
	default:
		return "", fmt.Errorf("unsupported notification channel %q", s)
	}
}

// Valid reports whether c is one of the supported channels.
func (c Channel) Valid() bool {
	return c == ChannelEmail || c == ChannelSMS
}

// Message is a rendered notification ready for delivery.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// EmailSender delivers email messages. Implementations return the
// provider message id on success.
type EmailSender interface {
	SendEmail(ctx context.Context, msg Message) (string, error)
}

// SMSSender delivers SMS messages. Implementations return the provider
// message id on success.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) (string, error)
}
