package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pfrederiksen/events-today/internal/event"
)

// Hydration reads the page data a Next.js bundle embeds for client-side hydration
// (the __NEXT_DATA__ script), as served by Bandsintown.
type Hydration struct{}

// Name implements JSONStrategy.
func (Hydration) Name() string { return "hydration" }

const hydrationScripts = `script#__NEXT_DATA__, script[type="application/json"]`

// Candidate lists of events, in the order they are tried.
var hydrationEventPaths = []string{
	"props.pageProps.events",
	"props.pageProps.upcomingEvents",
	"props.pageProps.initialData.events",
}

var (
	hydrationTitlePaths = []string{"title", "name", "artist.name"}
	hydrationStampPaths = []string{"datetime", "date", "starts_at", "startsAt", "startDate"}
	hydrationDescPaths  = []string{"formattedDate", "dateDescription", "date_description", "displayDate"}
	hydrationVenuePaths = []string{"venue.name", "location.name", "place.name"}
	hydrationLinkPaths  = []string{"url", "ticket_url", "ticketUrl", "tickets.0.url", "ticket.url", "offers.0.url", "event.url", "eventUrl"}
)

// TryExtract implements JSONStrategy.
func (h Hydration) TryExtract(in *Input) ([]event.Record, error) {
	var firstErr error

	scripts := in.Doc.Find(hydrationScripts)
	for i := 0; i < scripts.Length(); i++ {
		text := strings.TrimSpace(scripts.Eq(i).Text())
		if text == "" {
			continue
		}

		var data any
		if err := json.Unmarshal([]byte(text), &data); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("decoding hydration script %d: %w", i, err)
			}
			continue
		}

		events := findEventList(data)
		if len(events) == 0 {
			continue
		}

		if records := h.records(in, events); len(records) > 0 {
			return records, nil
		}
	}

	return nil, firstErr
}

func (h Hydration) records(in *Input, events []any) []event.Record {
	records := make([]event.Record, 0, len(events))
	for i, ev := range events {
		if _, ok := ev.(map[string]any); !ok {
			in.skip(i, "event is not an object")
			continue
		}

		title := cleanText(firstString(ev, hydrationTitlePaths...))
		if title == "" {
			in.skip(i, "missing title")
			continue
		}

		var date, tm string
		today := false
		parsed := false
		for _, p := range hydrationStampPaths {
			stamp := str(dig(ev, p))
			if t, ok := event.ParseTimestamp(stamp, in.Ref.Location); ok {
				date = event.FormatDate(t)
				if event.HasClock(stamp) {
					tm = event.FormatTime(t)
				}
				today = event.SameDay(t, in.Ref)
				parsed = true
				break
			}
		}
		if !parsed {
			date = cleanText(firstString(ev, hydrationDescPaths...))
			today = event.IsToday(date, in.Ref)
		}

		venue := cleanText(firstString(ev, hydrationVenuePaths...))
		link := firstString(ev, hydrationLinkPaths...)

		records = append(records, in.record(title, date, tm, link, venue, today))
	}
	return records
}

// findEventList walks the known property paths and returns the first list that looks
// like events. Cached query state is flattened as a last resort.
func findEventList(data any) []any {
	for _, p := range hydrationEventPaths {
		if list, ok := dig(data, p).([]any); ok && looksLikeEvents(list) {
			return list
		}
	}

	queries, _ := dig(data, "props.pageProps.dehydratedState.queries").([]any)
	flat := make([]any, 0)
	for _, q := range queries {
		switch d := dig(q, "state.data").(type) {
		case []any:
			flat = append(flat, d...)
		case map[string]any:
			if list, ok := d["events"].([]any); ok {
				flat = append(flat, list...)
			}
		}
	}
	if looksLikeEvents(flat) {
		return flat
	}
	return nil
}

// looksLikeEvents checks whether the first element carries a title- or venue-like field.
func looksLikeEvents(list []any) bool {
	if len(list) == 0 {
		return false
	}
	first, ok := list[0].(map[string]any)
	if !ok {
		return false
	}
	for _, k := range []string{"title", "name", "artist", "venue", "location"} {
		if _, ok := first[k]; ok {
			return true
		}
	}
	return false
}

