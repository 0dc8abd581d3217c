package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pfrederiksen/events-today/internal/event"
)

// JSONLD reads schema.org Event objects from application/ld+json script blocks.
// A block may hold a single object, an array, or objects under "@graph".
type JSONLD struct{}

// Name implements JSONStrategy.
func (JSONLD) Name() string { return "jsonld" }

// TryExtract implements JSONStrategy. A malformed block is skipped; its error is
// returned only when no block yields records.
func (j JSONLD) TryExtract(in *Input) ([]event.Record, error) {
	var firstErr error
	events := make([]map[string]any, 0)

	scripts := in.Doc.Find(`script[type*="ld+json"]`)
	for i := 0; i < scripts.Length(); i++ {
		text := strings.TrimSpace(scripts.Eq(i).Text())
		if text == "" {
			continue
		}
		var data any
		if err := json.Unmarshal([]byte(text), &data); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("decoding ld+json block %d: %w", i, err)
			}
			continue
		}
		events = collectEvents(data, events)
	}

	records := make([]event.Record, 0, len(events))
	for i, ev := range events {
		title := cleanText(str(ev["name"]))
		if title == "" {
			in.skip(i, "missing name")
			continue
		}

		var date, tm string
		today := false
		start := str(ev["startDate"])
		if t, ok := event.ParseTimestamp(start, in.Ref.Location); ok {
			date = event.FormatDate(t)
			if event.HasClock(start) {
				tm = event.FormatTime(t)
			}
			today = event.SameDay(t, in.Ref)
		} else {
			date = cleanText(start)
			today = event.IsToday(date, in.Ref)
		}

		venue := cleanText(firstString(ev, "location.name", "location.0.name"))
		link := firstString(ev, "url", "offers.0.url", "offers.url")

		records = append(records, in.record(title, date, tm, link, venue, today))
	}

	if len(records) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return records, nil
}

// collectEvents appends every Event-typed object found in data to out.
func collectEvents(data any, out []map[string]any) []map[string]any {
	switch v := data.(type) {
	case []any:
		for _, item := range v {
			out = collectEvents(item, out)
		}
	case map[string]any:
		if isEventType(v["@type"]) {
			out = append(out, v)
		}
		if graph, ok := v["@graph"]; ok {
			out = collectEvents(graph, out)
		}
	}
	return out
}

// isEventType accepts "Event" and its schema.org subtypes such as "MusicEvent".
func isEventType(t any) bool {
	switch v := t.(type) {
	case string:
		return strings.HasSuffix(v, "Event")
	case []any:
		for _, item := range v {
			if isEventType(item) {
				return true
			}
		}
	}
	return false
}
