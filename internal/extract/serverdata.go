package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/pfrederiksen/events-today/internal/event"
)

var serverDataAssign = regexp.MustCompile(`window\.__SERVER_DATA__\s*=\s*`)

// ServerData reads the search results Eventbrite embeds as
// window.__SERVER_DATA__ = {...}; in its listing pages.
type ServerData struct{}

// Name implements JSONStrategy.
func (ServerData) Name() string { return "serverdata" }

type serverData struct {
	SearchData struct {
		Events struct {
			Results []json.RawMessage `json:"results"`
		} `json:"events"`
	} `json:"search_data"`
}

type serverEvent struct {
	Name         string `json:"name"`
	StartDate    string `json:"start_date"`
	StartTime    string `json:"start_time"`
	URL          string `json:"url"`
	PrimaryVenue *struct {
		Name string `json:"name"`
	} `json:"primary_venue"`
}

// TryExtract implements JSONStrategy.
func (s ServerData) TryExtract(in *Input) ([]event.Record, error) {
	loc := serverDataAssign.FindStringIndex(in.Raw)
	if loc == nil {
		return nil, nil
	}

	// The decoder stops after the first complete value, ignoring the trailing ";" and script.
	var payload serverData
	if err := json.NewDecoder(strings.NewReader(in.Raw[loc[1]:])).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding __SERVER_DATA__: %w", err)
	}

	records := make([]event.Record, 0, len(payload.SearchData.Events.Results))
	for i, raw := range payload.SearchData.Events.Results {
		var ev serverEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			in.skip(i, "malformed result: "+err.Error())
			continue
		}

		title := cleanText(ev.Name)
		if title == "" {
			in.skip(i, "missing name")
			continue
		}

		venue := in.Source.Name
		if ev.PrimaryVenue != nil {
			if v := cleanText(ev.PrimaryVenue.Name); v != "" {
				venue = v
			}
		}

		var date, tm string
		today := false
		stamp := strings.TrimSpace(ev.StartDate)
		if st := strings.TrimSpace(ev.StartTime); stamp != "" && st != "" {
			stamp += "T" + st
		}
		if t, ok := event.ParseTimestamp(stamp, in.Ref.Location); ok {
			date = event.FormatDate(t)
			if strings.TrimSpace(ev.StartTime) != "" {
				tm = event.FormatTime(t)
			}
			today = event.SameDay(t, in.Ref)
		}

		records = append(records, in.record(title, date, tm, ev.URL, venue, today))
	}

	return records, nil
}
