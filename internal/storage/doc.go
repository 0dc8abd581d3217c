// Package storage persists the artifacts of a run as JSON and markdown files.
//
// Each run writes into a per-day directory named after the reference date
// (YYYY-MM-DD) under the output directory:
//
//	all_events.json          every extracted record
//	today_events.json        records that pass both date checks
//	all_events_clean.json    the cleanup step's output
//	today_events_clean.json  the today subset of the cleanup output
//	report.md                the grouped markdown report
//	report_clean.md          the report rendered from the cleanup output
//	today_events.ics         today's events as an iCalendar feed
//	today_events_clean.ics   the same feed from the cleanup output
//	run.json                 the run manifest
//
// The default output location is ~/.local/share/events-today/.
package storage
