// Package calendar exports records as an iCalendar (.ics) feed.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/pfrederiksen/events-today/internal/event"
)

// DefaultDuration is the assumed length of an event with a known start time.
const DefaultDuration = 3 * time.Hour

// GenerateICS generates an iCalendar feed with one VEVENT per record, all placed on
// ref's day. Records with a readable start time get timed entries; the rest are
// all-day. An empty record list yields an empty string.
func GenerateICS(records []event.Record, ref event.RefDate, calendarName string) string {
	if len(records) == 0 {
		return ""
	}

	var ics strings.Builder

	ics.WriteString("BEGIN:VCALENDAR\r\n")
	ics.WriteString("VERSION:2.0\r\n")
	ics.WriteString("PRODID:-//events-today//events-today//EN\r\n")
	ics.WriteString("CALSCALE:GREGORIAN\r\n")
	ics.WriteString("METHOD:PUBLISH\r\n")
	if calendarName != "" {
		ics.WriteString(fmt.Sprintf("X-WR-CALNAME:%s\r\n", escapeICS(calendarName)))
	}

	now := time.Now().UTC()
	for _, r := range records {
		writeEvent(&ics, r, ref, now)
	}

	ics.WriteString("END:VCALENDAR\r\n")
	return ics.String()
}

func writeEvent(ics *strings.Builder, r event.Record, ref event.RefDate, stamp time.Time) {
	ics.WriteString("BEGIN:VEVENT\r\n")

	// UID - stable across runs for the same title, venue and date
	ics.WriteString(fmt.Sprintf("UID:%s@events-today\r\n", r.Key()))
	ics.WriteString(fmt.Sprintf("DTSTAMP:%s\r\n", formatICSTime(stamp)))

	day := ref.Time()
	if offset, ok := event.ParseClock(r.Time); ok {
		start := time.Date(day.Year(), day.Month(), day.Day(),
			int(offset/time.Hour), int(offset%time.Hour/time.Minute), 0, 0, day.Location())
		ics.WriteString(fmt.Sprintf("DTSTART:%s\r\n", formatICSTime(start)))
		ics.WriteString(fmt.Sprintf("DTEND:%s\r\n", formatICSTime(start.Add(DefaultDuration))))
	} else {
		ics.WriteString(fmt.Sprintf("DTSTART;VALUE=DATE:%s\r\n", day.Format("20060102")))
		ics.WriteString(fmt.Sprintf("DTEND;VALUE=DATE:%s\r\n", day.AddDate(0, 0, 1).Format("20060102")))
	}

	ics.WriteString(fmt.Sprintf("SUMMARY:%s\r\n", escapeICS(r.Title)))

	var desc []string
	if r.Date != "" {
		desc = append(desc, "Date: "+r.Date)
	}
	if r.Time != "" {
		desc = append(desc, "Time: "+r.Time)
	}
	if r.SourceURL != "" {
		desc = append(desc, "Listed at: "+r.SourceURL)
	}
	if len(desc) > 0 {
		ics.WriteString(fmt.Sprintf("DESCRIPTION:%s\r\n", escapeICS(strings.Join(desc, "\n"))))
	}

	location := r.Venue
	if location != "" && r.Region != "" {
		location = fmt.Sprintf("%s, %s", r.Venue, r.Region)
	}
	if location != "" {
		ics.WriteString(fmt.Sprintf("LOCATION:%s\r\n", escapeICS(location)))
	}

	if r.URL != "" {
		ics.WriteString(fmt.Sprintf("URL:%s\r\n", r.URL))
	}

	ics.WriteString("STATUS:CONFIRMED\r\n")
	ics.WriteString("TRANSP:OPAQUE\r\n")
	ics.WriteString("END:VEVENT\r\n")
}

// formatICSTime formats a time.Time as an iCalendar datetime string
func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// escapeICS escapes special characters for iCalendar format
func escapeICS(s string) string {
	// Replace special characters according to RFC 5545
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
