// Package extract turns a fetched page into event records.
//
// An Engine tries, in order: a strategy registered for the source's name (for example
// the embedded server data on Eventbrite pages), the generic schema.org JSON-LD
// strategy, and finally CSS-selector driven HTML extraction. JSON strategies only run
// for sources in json mode; the first strategy that yields at least one record wins.
//
// Extraction is best-effort. A malformed page never aborts a run: the failure is
// reported to the Engine's Observer and the source contributes no records.
package extract
