package mailer

import (
	"errors"
	"strings"
)

// ErrNoRecipients is returned when a message has no usable To address.
var ErrNoRecipients = errors.New("mailer: message has no recipients")

// Message is a single outgoing email.
type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
	Text    string
	// Tags are forwarded to providers that support message tagging.
	Tags map[string]string
}

// SendResult carries the provider reference for a delivered message.
type SendResult struct {
	ProviderMessageID string
}

// Provider delivers a message through one backend.
type Provider interface {
	Name() string
	Send(msg Message) (SendResult, error)
}

// Mailer sends messages through one provider with a default sender.
type Mailer struct {
	provider    Provider
	fromAddress string
}

// New creates a Mailer that uses provider and falls back to fromAddress.
func New(provider Provider, fromAddress string) *Mailer {
	return &Mailer{
		provider:    provider,
		fromAddress: fromAddress,
	}
}

// Send fills in the default sender, drops blank recipients and hands the
// message to the provider.
func (m *Mailer) Send(msg Message) (SendResult, error) {
	if msg.From == "" {
		msg.From = m.fromAddress
	}

	recipients := make([]string, 0, len(msg.To))
	for _, to := range msg.To {
		if trimmed := strings.TrimSpace(to); trimmed != "" {
			recipients = append(recipients, trimmed)
		}
	}
	if len(recipients) == 0 {
		return SendResult{}, ErrNoRecipients
	}
	msg.To = recipients

	return m.provider.Send(msg)
}

// ProviderName returns the name of the configured provider.
func (m *Mailer) ProviderName() string {
	return m.provider.Name()
}
