package notify

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

var ErrNoRecipient = errors.New("message has no recipient")

// Message is a notification addressed to a phone number and/or email.
type Message struct {
	Name  string
	Phone string
	Email string
	Body  string
}

// Notifier dispatches messages to owners.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// LogNotifier writes messages to the log instead of a real channel.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(ctx context.Context, msg Message) error {
	if msg.Phone == "" && msg.Email == "" {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	n.log.Info("Reminder dispatched",
		zap.String("name", msg.Name),
		zap.String("phone", msg.Phone),
		zap.String("email", msg.Email),
		zap.String("body", msg.Body),
	)
	return nil
}

// NoOpNotifier drops every message.
type NoOpNotifier struct{}

func (NoOpNotifier) Send(ctx context.Context, msg Message) error { return nil }
