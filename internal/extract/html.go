package extract

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/pfrederiksen/events-today/internal/event"
)

// fieldMatchers holds the compiled selectors of a source. A nil matcher means the
// field has no (valid) selector and resolves to "".
type fieldMatchers struct {
	title, date, time, link goquery.Matcher
}

// extractHTML is the selector-driven fallback and the only path for standard sources.
func (e *Engine) extractHTML(in *Input) []event.Record {
	in.stage = StageHTML
	records := make([]event.Record, 0)
	sel := in.Source.Selectors

	if strings.TrimSpace(sel.Container) == "" {
		e.observer.Observe(Decision{
			Source: in.Source.Name,
			Stage:  StageHTML,
			Kind:   KindNoMatch,
			Reason: "no container selector",
			Index:  -1,
		})
		return records
	}

	container, err := cascadia.Compile(sel.Container)
	if err != nil {
		e.observer.Observe(Decision{
			Source: in.Source.Name,
			Stage:  StageHTML,
			Kind:   KindFailed,
			Reason: "invalid container selector",
			Index:  -1,
			Err:    err,
		})
		return records
	}

	fields := fieldMatchers{
		title: e.compileField(in, "title", sel.Title),
		date:  e.compileField(in, "date", sel.Date),
		time:  e.compileField(in, "time", sel.Time),
		link:  e.compileField(in, "link", sel.Link),
	}

	matches := in.Doc.FindMatcher(container)
	if n := matches.Length(); n > e.maxContainers {
		e.observer.Observe(Decision{
			Source: in.Source.Name,
			Stage:  StageHTML,
			Kind:   KindCapped,
			Reason: fmt.Sprintf("processing first %d of %d containers", e.maxContainers, n),
			Index:  -1,
			Count:  n,
		})
		matches = matches.Slice(0, e.maxContainers)
	}

	venueFromTime := e.venueFromTime[strings.ToLower(in.Source.Name)]

	matches.Each(func(i int, s *goquery.Selection) {
		if rec, ok := e.containerRecord(in, i, s, fields, venueFromTime); ok {
			records = append(records, rec)
		}
	})

	if len(records) == 0 {
		e.observer.Observe(Decision{
			Source: in.Source.Name,
			Stage:  StageHTML,
			Kind:   KindNoMatch,
			Reason: fmt.Sprintf("%d containers, no records", matches.Length()),
			Index:  -1,
		})
	} else {
		e.observer.Observe(Decision{
			Source: in.Source.Name,
			Stage:  StageHTML,
			Kind:   KindMatched,
			Index:  -1,
			Count:  len(records),
		})
	}

	return records
}

// containerRecord resolves one container. A panic while reading the container skips it.
func (e *Engine) containerRecord(in *Input, i int, s *goquery.Selection, f fieldMatchers, venueFromTime bool) (rec event.Record, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			in.observer.Observe(Decision{
				Source: in.Source.Name,
				Stage:  StageHTML,
				Kind:   KindSkipped,
				Reason: "error reading container",
				Index:  i,
				Err:    fmt.Errorf("%v", r),
			})
			ok = false
		}
	}()

	title := firstText(s, f.title)
	if title == "" {
		title = event.CollapseSpace(s.Find("a").First().Text())
	}
	if title == "" {
		in.skip(i, "empty title")
		return event.Record{}, false
	}
	if utf8.RuneCountInString(title) > e.maxTitleLen {
		in.skip(i, "title too long")
		return event.Record{}, false
	}

	date := allText(s, f.date)
	tm := allText(s, f.time)
	link := firstAttr(s, f.link, "href")

	venue := in.Source.Name
	if venueFromTime {
		if tm != "" {
			venue = tm
		}
		tm = ""
	}

	return in.record(title, date, tm, link, venue, event.IsToday(date, in.Ref)), true
}

// compileField compiles a field selector; an invalid one is reported and treated as absent.
func (e *Engine) compileField(in *Input, field, sel string) goquery.Matcher {
	if strings.TrimSpace(sel) == "" {
		return nil
	}
	m, err := cascadia.Compile(sel)
	if err != nil {
		e.observer.Observe(Decision{
			Source: in.Source.Name,
			Stage:  StageHTML,
			Kind:   KindError,
			Reason: "invalid " + field + " selector",
			Index:  -1,
			Err:    err,
		})
		return nil
	}
	return m
}

// firstText returns the collapsed text of the first descendant matching m.
func firstText(s *goquery.Selection, m goquery.Matcher) string {
	if m == nil {
		return ""
	}
	return event.CollapseSpace(s.FindMatcher(m).First().Text())
}

// allText joins the trimmed text of every descendant matching m with single spaces.
// Dates are often split across sibling nodes ("Fri" and "May 2").
func allText(s *goquery.Selection, m goquery.Matcher) string {
	if m == nil {
		return ""
	}
	parts := make([]string, 0)
	s.FindMatcher(m).Each(func(_ int, el *goquery.Selection) {
		if t := strings.TrimSpace(el.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	return event.CollapseSpace(strings.Join(parts, " "))
}

// firstAttr returns attr of the first descendant matching m, or of the container
// itself when it is the only match (a card that is itself a link).
func firstAttr(s *goquery.Selection, m goquery.Matcher, attr string) string {
	if m == nil {
		return ""
	}
	el := s.FindMatcher(m).First()
	if el.Length() == 0 && s.IsMatcher(m) {
		el = s
	}
	v, _ := el.Attr(attr)
	return strings.TrimSpace(v)
}
