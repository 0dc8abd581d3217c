// Package cli implements the command-line interface for events-today.
//
// The cli package provides the Cobra-based CLI: scrape fetches and extracts every
// registered source, extract does the same from pages captured by an external browser
// step, clean runs the language-model cleanup over the day's artifact, and report
// re-renders the markdown report from a saved artifact. Run summaries are printed as
// text or JSON.
package cli
