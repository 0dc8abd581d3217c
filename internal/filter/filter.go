// Package filter narrows a record list for display.
//
// Filters select records by region, venue or title (case-insensitive substring
// match) and can drop records without a start time. They apply to what is printed
// or rendered on demand; run artifacts always hold the complete lists.
//
// Example usage:
//
//	f := filter.NewFilter()
//	f.Regions = []string{"downtown"}
//	f.TimedOnly = true
//	shown := f.Apply(records)
package filter

import (
	"fmt"
	"strings"

	"github.com/pfrederiksen/events-today/internal/event"
)

// Filter represents record filtering criteria
type Filter struct {
	// Region filtering (case-insensitive substring match, empty region counts as "Other Areas")
	Regions []string `json:"regions,omitempty"`

	// Venue filtering (case-insensitive substring match)
	Venues []string `json:"venues,omitempty"`

	// Title filtering (case-insensitive substring match)
	Titles []string `json:"titles,omitempty"`

	// Only records whose time reads as a clock time
	TimedOnly bool `json:"timed_only,omitempty"`
}

// NewFilter creates a new empty filter with no active criteria.
// The filter will match all records until criteria are added.
func NewFilter() *Filter {
	return &Filter{
		Regions: []string{},
		Venues:  []string{},
		Titles:  []string{},
	}
}

// IsEmpty checks if the filter has any active criteria.
func (f *Filter) IsEmpty() bool {
	return len(f.Regions) == 0 &&
		len(f.Venues) == 0 &&
		len(f.Titles) == 0 &&
		!f.TimedOnly
}

// Matches checks if a record matches all active filter criteria. Within one
// criterion any listed term is enough.
func (f *Filter) Matches(r event.Record) bool {
	if f.IsEmpty() {
		return true
	}

	region := r.Region
	if region == "" {
		region = event.DefaultRegion
	}
	if len(f.Regions) > 0 && !containsAny(region, f.Regions) {
		return false
	}

	if len(f.Venues) > 0 && !containsAny(r.Venue, f.Venues) {
		return false
	}

	if len(f.Titles) > 0 && !containsAny(r.Title, f.Titles) {
		return false
	}

	if f.TimedOnly {
		if _, ok := event.ParseClock(r.Time); !ok {
			return false
		}
	}

	return true
}

func containsAny(s string, terms []string) bool {
	s = strings.ToLower(s)
	for _, term := range terms {
		if strings.Contains(s, strings.ToLower(strings.TrimSpace(term))) {
			return true
		}
	}
	return false
}

// Apply returns the records that match. If the filter is empty, returns the
// original list unchanged.
func (f *Filter) Apply(records []event.Record) []event.Record {
	if f.IsEmpty() {
		return records
	}

	filtered := make([]event.Record, 0, len(records))
	for _, r := range records {
		if f.Matches(r) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// String returns a human-readable description of the active filter criteria.
// Format: "Regions: downtown | Venues: hall | Timed only"
func (f *Filter) String() string {
	if f.IsEmpty() {
		return "No active filters"
	}

	var parts []string

	if len(f.Regions) > 0 {
		parts = append(parts, fmt.Sprintf("Regions: %s", strings.Join(f.Regions, ", ")))
	}

	if len(f.Venues) > 0 {
		parts = append(parts, fmt.Sprintf("Venues: %s", strings.Join(f.Venues, ", ")))
	}

	if len(f.Titles) > 0 {
		parts = append(parts, fmt.Sprintf("Titles: %s", strings.Join(f.Titles, ", ")))
	}

	if f.TimedOnly {
		parts = append(parts, "Timed only")
	}

	return strings.Join(parts, " | ")
}
