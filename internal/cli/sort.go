package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pfrederiksen/events-today/internal/event"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortNone    SortOrder = ""
	SortByTime  SortOrder = "time"
	SortByTitle SortOrder = "title"
	SortByVenue SortOrder = "venue"
)

// ParseSortOrder validates a --sort value.
func ParseSortOrder(s string) (SortOrder, error) {
	switch order := SortOrder(strings.ToLower(strings.TrimSpace(s))); order {
	case SortNone, SortByTime, SortByTitle, SortByVenue:
		return order, nil
	default:
		return "", fmt.Errorf("invalid sort order: %s (must be 'time', 'title' or 'venue')", s)
	}
}

// sortEvents sorts a slice of events based on the specified sort order. Ties keep
// extraction order.
func sortEvents(events []event.Record, sortOrder SortOrder) {
	switch sortOrder {
	case SortByTime:
		sort.SliceStable(events, func(i, j int) bool {
			return compareByTime(events[i], events[j])
		})
	case SortByTitle:
		sort.SliceStable(events, func(i, j int) bool {
			return strings.ToLower(events[i].Title) < strings.ToLower(events[j].Title)
		})
	case SortByVenue:
		sort.SliceStable(events, func(i, j int) bool {
			vi, vj := strings.ToLower(venueOf(events[i])), strings.ToLower(venueOf(events[j]))
			if vi != vj {
				return vi < vj
			}
			return compareByTime(events[i], events[j])
		})
	}
}

// compareByTime compares two events by their start time.
// Returns true if event i should come before event j
func compareByTime(i, j event.Record) bool {
	ti, okI := event.ParseClock(i.Time)
	tj, okJ := event.ParseClock(j.Time)

	// If both times are valid, compare them
	if okI && okJ {
		return ti < tj
	}

	// If only one time is valid, put the valid one first
	return okI
}
