package notifier

import (
	"context"

	"github.com/pfrederiksen/events-today/internal/event"
)

// Notifier defines the interface for posting the daily digest
type Notifier interface {
	// Notify posts the digest of grouped under title
	Notify(ctx context.Context, title string, grouped *event.Grouped) error
}
