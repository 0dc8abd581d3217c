package event

import (
	"crypto/sha1"
	"fmt"
	"strings"
)

// Record is a single event extracted from a source page.
type Record struct {
	Title     string `json:"title"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	URL       string `json:"url"`
	Venue     string `json:"venue"`
	Region    string `json:"region"`
	SourceURL string `json:"source_url"`
	IsToday   bool   `json:"is_today"`
}

// Key returns a deterministic identifier built from title, venue and date.
// Two records with the same key are considered duplicates by the cleanup step.
func (r Record) Key() string {
	h := sha1.New()
	h.Write([]byte(normalizeKeyPart(r.Title) + "|" + normalizeKeyPart(r.Venue) + "|" + normalizeKeyPart(r.Date)))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// WithToday returns a copy of the record with IsToday recomputed against ref.
func (r Record) WithToday(ref RefDate) Record {
	r.IsToday = IsToday(r.Date, ref)
	return r
}

func normalizeKeyPart(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// CollapseSpace replaces every run of whitespace (including newlines) with a single
// space and trims the result.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
