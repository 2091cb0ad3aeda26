package notification

import (
	"context"

	"gigfinder-ticketing/pkg/logger"

	"go.uber.org/zap"
)

type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
	// Inline attachments are referenced from the HTML body as cid:<Filename>.
	Inline bool
}

type Message struct {
	To          string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Sender is the outbound email collaborator. Callers treat failures as best-effort.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender 開發環境用，只記錄不寄出
type LogSender struct{}

func NewLogSender() *LogSender {
	return &LogSender{}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	names := make([]string, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		names = append(names, a.Filename)
	}
	logger.WithComponent("mail").Info("email not sent, mail disabled",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("html_bytes", len(msg.HTML)),
		zap.Strings("attachments", names),
	)
	return nil
}
