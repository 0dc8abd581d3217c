package extract

import (
	"html"
	"net/url"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/pfrederiksen/events-today/internal/event"
)

// stripPolicy removes all markup from text taken out of embedded JSON.
var stripPolicy = bluemonday.StrictPolicy()

// cleanText strips markup and entities from s and collapses whitespace.
func cleanText(s string) string {
	if s == "" {
		return ""
	}
	return event.CollapseSpace(html.UnescapeString(stripPolicy.Sanitize(s)))
}

// resolveURL makes href absolute against base. Unresolvable values are returned as-is.
func resolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil || u.IsAbs() {
		return href
	}
	b, err := url.Parse(base)
	if err != nil || !b.IsAbs() {
		return href
	}
	return b.ResolveReference(u).String()
}

// dig walks a decoded JSON value along a dotted path. Numeric segments index arrays.
func dig(v any, path string) any {
	for _, key := range strings.Split(path, ".") {
		switch node := v.(type) {
		case map[string]any:
			v = node[key]
		case []any:
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i >= len(node) {
				return nil
			}
			v = node[i]
		default:
			return nil
		}
	}
	return v
}

// str converts a decoded JSON scalar to a string.
func str(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// firstString returns the first non-empty string found along paths.
func firstString(v any, paths ...string) string {
	for _, p := range paths {
		if s := str(dig(v, p)); s != "" {
			return s
		}
	}
	return ""
}
