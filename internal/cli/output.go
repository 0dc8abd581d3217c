package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pfrederiksen/events-today/internal/event"
	"github.com/pfrederiksen/events-today/internal/filter"
	"github.com/pfrederiksen/events-today/internal/pipeline"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// OutputResult contains data to be output
type OutputResult struct {
	RunID         string         `json:"run_id"`
	Command       string         `json:"command"`
	ReferenceDate string         `json:"reference_date"`
	CheckedAt     time.Time      `json:"checked_at"`
	Sources       int            `json:"sources,omitempty"`
	FailedSources []string       `json:"failed_sources,omitempty"`
	EmptySources  []string       `json:"empty_sources,omitempty"`
	TotalEvents   int            `json:"total_events"`
	Duplicates    int            `json:"duplicates"`
	EventCount    int            `json:"event_count"`
	Filter        string         `json:"filter,omitempty"`
	Events        []event.Record `json:"events"`
	Grouped       *event.Grouped `json:"grouped"`
}

func newOutputResult(out *pipeline.Outcome, f *filter.Filter, order SortOrder) *OutputResult {
	m := out.Manifest
	shown := f.Apply(out.Today)
	grouped := out.Grouped
	if !f.IsEmpty() {
		grouped = event.Group(shown)
	}
	events := make([]event.Record, len(shown))
	copy(events, shown)
	sortEvents(events, order)

	return &OutputResult{
		RunID:         m.RunID,
		Command:       m.Command,
		ReferenceDate: m.ReferenceDate,
		CheckedAt:     time.Now().UTC(),
		Sources:       m.Sources,
		FailedSources: m.FailedSources,
		EmptySources:  m.EmptySources,
		TotalEvents:   m.TotalEvents,
		Duplicates:    m.Duplicates,
		EventCount:    len(events),
		Events:        events,
		Filter:        filterDescription(f),
		Grouped:       grouped,
	}
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result *OutputResult, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeText(w, result, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, result *OutputResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// writeText outputs results as human-readable text
func writeText(w io.Writer, result *OutputResult, verbose bool) error {
	for _, name := range result.FailedSources {
		fmt.Fprintf(w, "FAILED: %s\n", name)
	}
	if verbose {
		for _, name := range result.EmptySources {
			fmt.Fprintf(w, "EMPTY: %s\n", name)
		}
	}

	if result.Filter != "" {
		fmt.Fprintf(w, "Filter: %s\n", result.Filter)
	}

	if result.EventCount == 0 {
		fmt.Fprintf(w, "No events found for %s.\n", result.ReferenceDate)
		return nil
	}

	for _, evt := range result.Events {
		when := evt.Time
		if when == "" {
			when = evt.Date
		}
		fmt.Fprintf(w, "%s @ %s (%s)\n", evt.Title, venueOf(evt), when)
		if verbose {
			fmt.Fprintf(w, "     Region: %s\n", regionOf(evt))
			if evt.Date != "" {
				fmt.Fprintf(w, "     Date: %s\n", evt.Date)
			}
			if evt.URL != "" {
				fmt.Fprintf(w, "     URL: %s\n", evt.URL)
			}
		}
	}

	regions := 0
	if result.Grouped != nil {
		regions = len(result.Grouped.Regions)
	}
	fmt.Fprintf(w, "\nTotal: %d events today across %d regions (%d extracted", result.EventCount, regions, result.TotalEvents)
	if result.Duplicates > 0 {
		fmt.Fprintf(w, ", %d likely duplicates", result.Duplicates)
	}
	fmt.Fprintln(w, ")")

	return nil
}

func filterDescription(f *filter.Filter) string {
	if f.IsEmpty() {
		return ""
	}
	return f.String()
}

func venueOf(r event.Record) string {
	if r.Venue == "" {
		return event.DefaultVenue
	}
	return r.Venue
}

func regionOf(r event.Record) string {
	if r.Region == "" {
		return event.DefaultRegion
	}
	return r.Region
}
