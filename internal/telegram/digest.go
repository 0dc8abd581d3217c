package telegram

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/pfrederiksen/events-today/internal/event"
)

// MaxMessageLen is the Bot API limit on message text length.
const MaxMessageLen = 4096

// FormatDigest formats grouped records as one or more digest messages, splitting
// between venue sections so that no message exceeds MaxMessageLen.
func FormatDigest(grouped *event.Grouped, title string) []string {
	header := fmt.Sprintf("📬 <b>%s</b>\n\n", html.EscapeString(title))

	if grouped == nil || grouped.Len() == 0 {
		return []string{header + "No events found."}
	}

	header += fmt.Sprintf("🗓 %d event%s\n\n", grouped.Len(), pluralize(grouped.Len()))

	var messages []string
	var msg strings.Builder
	msg.WriteString(header)
	hasBody := false

	for _, rg := range grouped.Regions {
		regionLine := fmt.Sprintf("📍 <b>%s</b>\n", html.EscapeString(rg.Region))

		for i, vg := range rg.Venues {
			section := formatVenue(vg)
			// The region heading opens its first venue and every continuation message.
			if i == 0 {
				section = regionLine + section
			}

			if hasBody && msg.Len()+len(section) > MaxMessageLen {
				messages = append(messages, strings.TrimRight(msg.String(), "\n"))
				msg.Reset()
				hasBody = false
				if i > 0 {
					section = regionLine + section
				}
			}
			msg.WriteString(truncate(section, MaxMessageLen-msg.Len()))
			hasBody = true
		}
	}

	messages = append(messages, strings.TrimRight(msg.String(), "\n"))
	return messages
}

func formatVenue(vg *event.VenueGroup) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🏢 <i>%s</i>\n", html.EscapeString(vg.Venue)))
	for _, r := range vg.Events {
		title := html.EscapeString(r.Title)
		if r.URL != "" {
			title = fmt.Sprintf("<a href=\"%s\">%s</a>", html.EscapeString(r.URL), title)
		}
		b.WriteString("  • " + title)
		if r.Time != "" {
			b.WriteString(fmt.Sprintf(" (%s)", html.EscapeString(r.Time)))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}

// truncate cuts s to at most n bytes, on a line boundary when one is available.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if cut := strings.LastIndexByte(s[:n], '\n'); cut > 0 {
		return s[:cut+1]
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func pluralize(count int) string {
	if count == 1 {
		return ""
	}
	return "s"
}
