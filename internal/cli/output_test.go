package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/pfrederiksen/events-today/internal/event"
	"github.com/pfrederiksen/events-today/internal/filter"
	"github.com/pfrederiksen/events-today/internal/pipeline"
	"github.com/pfrederiksen/events-today/internal/storage"
)

func sampleResult() *OutputResult {
	events := []event.Record{
		{Title: "Band X", Date: "Fri May 2", Time: "8:00 PM", URL: "https://a.example/x", Venue: "The Hall", Region: "Downtown", IsToday: true},
		{Title: "Quiz", Date: "Tonight", IsToday: true},
	}
	return &OutputResult{
		RunID:         "run-1",
		Command:       "scrape",
		ReferenceDate: "2025-05-02",
		Sources:       3,
		FailedSources: []string{"Broken"},
		EmptySources:  []string{"Quiet"},
		TotalEvents:   7,
		Duplicates:    1,
		EventCount:    len(events),
		Events:        events,
		Grouped:       event.Group(events),
	}
}

func TestWriteOutput_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteOutput(&buf, sampleResult(), FormatText, false); err != nil {
		t.Fatalf("WriteOutput() error: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"FAILED: Broken",
		"Band X @ The Hall (8:00 PM)",
		"Quiz @ Unknown Venue (Tonight)",
		"Total: 2 events today across 2 regions (7 extracted, 1 likely duplicates)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "EMPTY:") || strings.Contains(out, "URL:") {
		t.Errorf("non-verbose output has verbose details:\n%s", out)
	}
}

func TestWriteOutput_TextVerbose(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteOutput(&buf, sampleResult(), FormatText, true); err != nil {
		t.Fatalf("WriteOutput() error: %v", err)
	}
	for _, want := range []string{"EMPTY: Quiet", "Region: Downtown", "Region: Other Areas", "URL: https://a.example/x"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("verbose output missing %q", want)
		}
	}
}

func TestWriteOutput_NoEvents(t *testing.T) {
	var buf bytes.Buffer
	result := &OutputResult{ReferenceDate: "2025-05-02", Events: []event.Record{}}
	if err := WriteOutput(&buf, result, FormatText, false); err != nil {
		t.Fatalf("WriteOutput() error: %v", err)
	}
	if got := buf.String(); got != "No events found for 2025-05-02.\n" {
		t.Errorf("output = %q", got)
	}
}

func TestWriteOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteOutput(&buf, sampleResult(), FormatJSON, false); err != nil {
		t.Fatalf("WriteOutput() error: %v", err)
	}

	var decoded struct {
		RunID      string         `json:"run_id"`
		EventCount int            `json:"event_count"`
		Events     []event.Record `json:"events"`
		Grouped    struct {
			Regions []struct {
				Region string `json:"region"`
			} `json:"regions"`
		} `json:"grouped"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if decoded.RunID != "run-1" || decoded.EventCount != 2 || len(decoded.Events) != 2 {
		t.Errorf("decoded = %+v", decoded)
	}
	if len(decoded.Grouped.Regions) != 2 || decoded.Grouped.Regions[0].Region != "Downtown" {
		t.Errorf("grouped regions = %+v", decoded.Grouped.Regions)
	}
}

func TestWriteOutput_UnknownFormat(t *testing.T) {
	if err := WriteOutput(&bytes.Buffer{}, sampleResult(), OutputFormat("xml"), false); err == nil {
		t.Error("WriteOutput() with unknown format should fail")
	}
}

func TestNewOutputResult_Filtered(t *testing.T) {
	today := []event.Record{
		{Title: "Late", Time: "10:00 PM", Venue: "The Hall", Region: "Downtown"},
		{Title: "Quiz", Venue: "The Pub"},
		{Title: "Early", Time: "6:00 PM", Venue: "The Hall", Region: "Downtown"},
	}
	out := &pipeline.Outcome{
		Manifest: &storage.Manifest{RunID: "run-1", ReferenceDate: "2025-05-02", TotalEvents: 5},
		Today:    today,
		Grouped:  event.Group(today),
	}

	result := newOutputResult(out, &filter.Filter{Venues: []string{"hall"}}, SortByTime)
	if result.EventCount != 2 || result.Events[0].Title != "Early" || result.Events[1].Title != "Late" {
		t.Errorf("Events = %+v", result.Events)
	}
	if len(result.Grouped.Regions) != 1 || result.Filter != "Venues: hall" {
		t.Errorf("Grouped = %+v, Filter = %q", result.Grouped.Regions, result.Filter)
	}
	if out.Today[0].Title != "Late" {
		t.Error("sorting must not reorder the outcome")
	}

	unfiltered := newOutputResult(out, filter.NewFilter(), SortNone)
	if unfiltered.EventCount != 3 || unfiltered.Filter != "" || unfiltered.Grouped != out.Grouped {
		t.Errorf("unfiltered result = %+v", unfiltered)
	}
}
