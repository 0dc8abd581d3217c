// Package scraper provides the raw content for each source: an HTTP fetcher and a
// directory-backed provider for pages captured by an external browser step.
//
// Every provider returns one RawDocument per source with an explicit success flag.
// Failed fetches are dropped with Usable before extraction so a page that could not
// be loaded is never mistaken for a page without events.
package scraper
