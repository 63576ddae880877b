package mailer

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// LogProvider writes messages to the application log instead of delivering
// them. It is used when no RESEND_API_KEY is configured.
type LogProvider struct {
	Logger *slog.Logger
}

// NewLogProvider creates a provider that only logs.
func NewLogProvider(logger *slog.Logger) *LogProvider {
	return &LogProvider{Logger: logger}
}

// Name returns the provider name.
func (l *LogProvider) Name() string {
	return "log"
}

// Send logs the message and returns a generated message ID.
func (l *LogProvider) Send(msg Message) (SendResult, error) {
	messageID := fmt.Sprintf("log-%s", uuid.New().String())
	attrs := []any{
		"provider", "log",
		"message_id", messageID,
		"from", msg.From,
		"to", strings.Join(msg.To, ", "),
		"subject", msg.Subject,
		"html_length", len(msg.HTML),
		"text_length", len(msg.Text),
	}
	for name, value := range msg.Tags {
		attrs = append(attrs, "tag_"+name, value)
	}
	l.Logger.Info("mailer: email logged (not sent)", attrs...)
	if msg.Text != "" {
		l.Logger.Debug("mailer: email text body", "message_id", messageID, "text", msg.Text)
	}
	return SendResult{ProviderMessageID: messageID}, nil
}
