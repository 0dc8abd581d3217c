package notifier

import (
	"context"
	"fmt"

	"github.com/pfrederiksen/events-today/internal/event"
	"github.com/pfrederiksen/events-today/internal/logger"
	"github.com/pfrederiksen/events-today/internal/telegram"
)

// MessageSender sends one formatted message. *telegram.Client satisfies it.
type MessageSender interface {
	SendMessage(ctx context.Context, text string) error
}

// TelegramNotifier posts the digest to a Telegram chat
type TelegramNotifier struct {
	sender MessageSender
}

// NewTelegramNotifier creates a notifier sending through sender
func NewTelegramNotifier(sender MessageSender) *TelegramNotifier {
	return &TelegramNotifier{sender: sender}
}

// Notify sends the digest, one message per chunk. It stops at the first failure.
func (n *TelegramNotifier) Notify(ctx context.Context, title string, grouped *event.Grouped) error {
	msgs := telegram.FormatDigest(grouped, title)
	for i, msg := range msgs {
		if err := n.sender.SendMessage(ctx, msg); err != nil {
			return fmt.Errorf("sending digest message %d/%d: %w", i+1, len(msgs), err)
		}
		logger.IncrCounter("notify.messages")
	}
	logger.Info("Digest sent", logger.Fields{"messages": len(msgs)})
	return nil
}
