// Package source loads the registry of pages to scrape.
//
// The registry is a CSV file with a header row. Each row names one source, its region,
// the page URL, an extraction type (standard or json) and, for standard sources, the
// CSS selectors used to pull events out of the page.
package source
