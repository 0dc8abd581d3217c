package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pfrederiksen/events-today/internal/logger"
)

// Mode selects how a source's page is parsed.
type Mode string

const (
	ModeStandard     Mode = "standard"
	ModeJSONEmbedded Mode = "json"
)

// ErrNoSources is returned when a registry has no usable rows.
var ErrNoSources = errors.New("no sources in registry")

// Selectors are the CSS selectors for standard extraction. Any of them may be empty.
type Selectors struct {
	Container string `json:"container,omitempty"`
	Title     string `json:"title,omitempty"`
	Date      string `json:"date,omitempty"`
	Time      string `json:"time,omitempty"`
	Link      string `json:"link,omitempty"`
}

// Descriptor identifies one page to scrape. Name is the join key between fetch results
// and extraction, so it must be unique within a registry.
type Descriptor struct {
	Name      string    `json:"name"`
	Kind      string    `json:"kind,omitempty"`
	Region    string    `json:"region,omitempty"`
	URL       string    `json:"url"`
	Mode      Mode      `json:"mode"`
	Selectors Selectors `json:"selectors"`
}

// Registry is an ordered list of source descriptors.
type Registry struct {
	Sources []Descriptor
}

// ParseMode converts an extraction_type value. Empty means standard.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard":
		return ModeStandard, nil
	case "json":
		return ModeJSONEmbedded, nil
	default:
		return "", fmt.Errorf("unknown extraction type: %q", s)
	}
}

// columns in the registry file
const (
	colSource    = "source"
	colType      = "type"
	colRegion    = "region"
	colURL       = "url"
	colContainer = "container_selector"
	colTitle     = "title_selector"
	colDate      = "date_selector"
	colTime      = "time_selector"
	colLink      = "url_selector"
	colMode      = "extraction_type"
)

// Load reads a registry from a CSV file.
func Load(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening registry: %w", err)
	}
	defer f.Close()

	reg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("reading registry %s: %w", path, err)
	}
	return reg, nil
}

// Parse reads a registry from CSV. Columns are located by header name.
// Rows without a source name or URL are skipped.
func Parse(r io.Reader) (*Registry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoSources
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, required := range []string{colSource, colURL} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}

	reg := &Registry{Sources: make([]Descriptor, 0)}
	seen := make(map[string]bool)
	line := 1

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		get := func(col string) string {
			i, ok := idx[col]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		name := get(colSource)
		url := get(colURL)
		if name == "" || url == "" {
			logger.Warn("Skipping registry row", logger.Fields{
				"line":   line,
				"source": name,
				"reason": "missing source or url",
			})
			continue
		}

		mode, err := ParseMode(get(colMode))
		if err != nil {
			return nil, fmt.Errorf("line %d (%s): %w", line, name, err)
		}

		key := strings.ToLower(name)
		if seen[key] {
			return nil, fmt.Errorf("line %d: duplicate source name %q", line, name)
		}
		seen[key] = true

		reg.Sources = append(reg.Sources, Descriptor{
			Name:   name,
			Kind:   get(colType),
			Region: get(colRegion),
			URL:    url,
			Mode:   mode,
			Selectors: Selectors{
				Container: get(colContainer),
				Title:     get(colTitle),
				Date:      get(colDate),
				Time:      get(colTime),
				Link:      get(colLink),
			},
		})
	}

	if len(reg.Sources) == 0 {
		return nil, ErrNoSources
	}
	return reg, nil
}

// Filter returns a registry restricted to the named sources (case-insensitive).
// With no names the registry is returned unchanged.
func (r *Registry) Filter(names ...string) (*Registry, error) {
	if len(names) == 0 {
		return r, nil
	}

	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[strings.ToLower(strings.TrimSpace(n))] = true
	}

	out := &Registry{Sources: make([]Descriptor, 0, len(names))}
	for _, d := range r.Sources {
		if want[strings.ToLower(d.Name)] {
			out.Sources = append(out.Sources, d)
		}
	}
	if len(out.Sources) == 0 {
		return nil, fmt.Errorf("%w matching %s", ErrNoSources, strings.Join(names, ", "))
	}
	return out, nil
}

// Lookup returns the descriptor with the given name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	for _, d := range r.Sources {
		if strings.EqualFold(d.Name, name) {
			return d, true
		}
	}
	return Descriptor{}, false
}
