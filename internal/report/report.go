// Package report renders grouped event records as a markdown document.
package report

import (
	"bufio"
	"fmt"
	"io"

	"github.com/pfrederiksen/events-today/internal/event"
)

// Render writes grouped as markdown under a top-level title: one heading per region,
// one sub-heading per venue and one block per event.
func Render(w io.Writer, title string, grouped *event.Grouped) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "# %s\n\n", title)

	if grouped == nil || grouped.Len() == 0 {
		fmt.Fprintln(bw, "No events found.")
		return bw.Flush()
	}

	for _, rg := range grouped.Regions {
		fmt.Fprintf(bw, "## %s\n\n", rg.Region)
		for _, vg := range rg.Venues {
			fmt.Fprintf(bw, "### %s\n\n", vg.Venue)
			for _, r := range vg.Events {
				writeEvent(bw, r)
			}
		}
	}

	return bw.Flush()
}

func writeEvent(w io.Writer, r event.Record) {
	fmt.Fprintf(w, "**%s**\n", r.Title)
	if r.Date != "" {
		fmt.Fprintf(w, "- Date: %s\n", r.Date)
	}
	if r.Time != "" {
		fmt.Fprintf(w, "- Time: %s\n", r.Time)
	}
	if r.URL != "" {
		fmt.Fprintf(w, "- [Link](%s)\n", r.URL)
	}
	fmt.Fprintln(w)
}

// Title returns the default report heading for ref, e.g. "Events for Friday, May 2, 2025".
func Title(ref event.RefDate) string {
	return fmt.Sprintf("Events for %s, %s %d, %d", ref.Weekday, ref.Month, ref.Day, ref.Year)
}
