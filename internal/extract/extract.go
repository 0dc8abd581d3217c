package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/events-today/internal/event"
	"github.com/pfrederiksen/events-today/internal/source"
)

const (
	DefaultMaxContainers = 30
	DefaultMaxTitleLen   = 100
)

// Stage names reported in decisions.
const (
	StageEngine = "engine"
	StageHTML   = "html"
)

// Document is a fetched page: its URL and raw HTML.
type Document struct {
	URL  string
	HTML string
}

// Input is what a JSON strategy sees for one source.
type Input struct {
	Source  source.Descriptor
	PageURL string
	Raw     string
	Doc     *goquery.Document
	Ref     event.RefDate

	observer Observer
	stage    string
}

// skip reports a dropped record.
func (in *Input) skip(index int, reason string) {
	in.observer.Observe(Decision{
		Source: in.Source.Name,
		Stage:  in.stage,
		Kind:   KindSkipped,
		Reason: reason,
		Index:  index,
	})
}

// record builds a record owned by the input's source.
func (in *Input) record(title, date, tm, link, venue string, today bool) event.Record {
	return event.Record{
		Title:     title,
		Date:      date,
		Time:      tm,
		URL:       resolveURL(in.PageURL, link),
		Venue:     venue,
		Region:    in.Source.Region,
		SourceURL: in.PageURL,
		IsToday:   today,
	}
}

// JSONStrategy extracts records from data embedded in a page. A strategy returns no
// records and no error when the page does not carry its data, and an error when the
// data is there but malformed.
type JSONStrategy interface {
	Name() string
	TryExtract(in *Input) ([]event.Record, error)
}

// Engine extracts records from fetched pages. It holds no per-call state and is safe
// for concurrent use.
type Engine struct {
	observer      Observer
	named         map[string]JSONStrategy
	generic       []JSONStrategy
	venueFromTime map[string]bool
	maxContainers int
	maxTitleLen   int
}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver sets the observer that receives every extraction decision.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithStrategy registers s for the source named name, replacing any existing one.
func WithStrategy(name string, s JSONStrategy) Option {
	return func(e *Engine) { e.named[strings.ToLower(name)] = s }
}

// WithVenueFromTime marks a source whose time selector yields the venue name.
func WithVenueFromTime(name string) Option {
	return func(e *Engine) { e.venueFromTime[strings.ToLower(name)] = true }
}

// WithMaxContainers caps how many containers are processed per page.
func WithMaxContainers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxContainers = n
		}
	}
}

// WithMaxTitleLen sets the longest title, in characters, accepted from HTML.
func WithMaxTitleLen(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxTitleLen = n
		}
	}
}

// New creates an Engine with the built-in strategies registered.
func New(opts ...Option) *Engine {
	e := &Engine{
		observer: nopObserver{},
		named: map[string]JSONStrategy{
			"eventbrite":  ServerData{},
			"bandsintown": Hydration{},
		},
		generic:       []JSONStrategy{JSONLD{}},
		venueFromTime: map[string]bool{"songkick": true},
		maxContainers: DefaultMaxContainers,
		maxTitleLen:   DefaultMaxTitleLen,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the records found in doc for desc. It never fails: problems are
// reported to the observer and yield fewer (or zero) records.
func (e *Engine) Extract(desc source.Descriptor, doc Document, ref event.RefDate) (records []event.Record) {
	defer func() {
		if r := recover(); r != nil {
			e.observer.Observe(Decision{
				Source: desc.Name,
				Stage:  StageEngine,
				Kind:   KindFailed,
				Reason: "panic during extraction",
				Index:  -1,
				Err:    fmt.Errorf("%v", r),
			})
			records = []event.Record{}
		}
	}()

	pageURL := doc.URL
	if pageURL == "" {
		pageURL = desc.URL
	}

	parsed, err := goquery.NewDocumentFromReader(strings.NewReader(doc.HTML))
	if err != nil {
		e.observer.Observe(Decision{
			Source: desc.Name,
			Stage:  StageEngine,
			Kind:   KindFailed,
			Reason: "parsing HTML",
			Index:  -1,
			Err:    err,
		})
		return []event.Record{}
	}

	in := &Input{
		Source:   desc,
		PageURL:  pageURL,
		Raw:      doc.HTML,
		Doc:      parsed,
		Ref:      ref,
		observer: e.observer,
	}

	if desc.Mode == source.ModeJSONEmbedded {
		for _, s := range e.strategiesFor(desc.Name) {
			if recs, ok := e.try(s, in); ok {
				return recs
			}
		}
	}

	return e.extractHTML(in)
}

// strategiesFor returns the JSON strategies to try for a source, in priority order.
func (e *Engine) strategiesFor(name string) []JSONStrategy {
	out := make([]JSONStrategy, 0, len(e.generic)+1)
	if s, ok := e.named[strings.ToLower(name)]; ok {
		out = append(out, s)
	}
	return append(out, e.generic...)
}

// try runs one strategy, converting a panic or error into a fallback decision.
func (e *Engine) try(s JSONStrategy, in *Input) (recs []event.Record, ok bool) {
	in.stage = s.Name()
	decision := Decision{Source: in.Source.Name, Stage: s.Name(), Index: -1}

	defer func() {
		if r := recover(); r != nil {
			decision.Kind = KindError
			decision.Err = fmt.Errorf("panic: %v", r)
			e.observer.Observe(decision)
			recs, ok = nil, false
		}
	}()

	recs, err := s.TryExtract(in)
	switch {
	case err != nil:
		decision.Kind = KindError
		decision.Err = err
	case len(recs) == 0:
		decision.Kind = KindNoMatch
	default:
		decision.Kind = KindMatched
		decision.Count = len(recs)
	}
	e.observer.Observe(decision)

	return recs, decision.Kind == KindMatched
}
