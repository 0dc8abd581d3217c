package notifier

import (
	"context"
	"fmt"
	"io"

	"github.com/pfrederiksen/events-today/internal/event"
	"github.com/pfrederiksen/events-today/internal/telegram"
)

// DryRunNotifier prints what would be posted without actually posting
type DryRunNotifier struct {
	w io.Writer
}

// NewDryRunNotifier creates a new dry-run notifier writing to w
func NewDryRunNotifier(w io.Writer) *DryRunNotifier {
	return &DryRunNotifier{w: w}
}

// Notify prints the messages that would be posted
func (n *DryRunNotifier) Notify(_ context.Context, title string, grouped *event.Grouped) error {
	msgs := telegram.FormatDigest(grouped, title)
	for i, msg := range msgs {
		fmt.Fprintf(n.w, "--- Message %d/%d ---\n", i+1, len(msgs))
		fmt.Fprintln(n.w, msg)
		fmt.Fprintf(n.w, "\n(Length: %d characters)\n\n", len(msg))
	}
	return nil
}
