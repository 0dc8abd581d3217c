package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pfrederiksen/events-today/internal/logger"
	"github.com/pfrederiksen/events-today/internal/source"
)

const (
	UserAgent    = "events-today/1.0 (github.com/pfrederiksen/events-today)"
	Timeout      = 30 * time.Second
	DefaultDelay = 2 * time.Second

	// maxBodySize bounds a single page read.
	maxBodySize = 10 << 20
)

// RawDocument is the fetched content of one source.
type RawDocument struct {
	Source string `json:"source"`
	URL    string `json:"url"`
	HTML   string `json:"-"`
	OK     bool   `json:"ok"`
	Err    error  `json:"-"`
}

// Provider supplies raw documents for sources.
type Provider interface {
	FetchAll(ctx context.Context, sources []source.Descriptor) []RawDocument
}

// Usable returns the documents whose fetch succeeded, logging the rest to log (the
// default logger when nil).
func Usable(docs []RawDocument, log *logger.Logger) []RawDocument {
	if log == nil {
		log = logger.Default()
	}
	ok := make([]RawDocument, 0, len(docs))
	for _, d := range docs {
		if !d.OK {
			log.Warn("Skipping source with failed fetch", logger.Fields{
				"source": d.Source,
				"url":    d.URL,
			})
			continue
		}
		ok = append(ok, d)
	}
	return ok
}

// Fetcher retrieves pages over HTTP, one source at a time with a delay in between.
type Fetcher struct {
	client  *http.Client
	ua      string
	delay   time.Duration
	log     *logger.Logger
	metrics *logger.Metrics
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient sets a custom HTTP client.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.ua = ua
		}
	}
}

// WithDelay sets the pause between consecutive requests.
func WithDelay(d time.Duration) Option {
	return func(f *Fetcher) {
		if d >= 0 {
			f.delay = d
		}
	}
}

// WithLogger sets the logger fetch failures are reported to.
func WithLogger(l *logger.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.log = l
		}
	}
}

// WithMetrics records fetch.source timings and fetch.failed counts on m instead of the
// package-level tracker.
func WithMetrics(m *logger.Metrics) Option {
	return func(f *Fetcher) {
		if m != nil {
			f.metrics = m
		}
	}
}

// New creates a new Fetcher
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client: &http.Client{
			Timeout: Timeout,
		},
		ua:      UserAgent,
		delay:   DefaultDelay,
		log:     logger.Default(),
		metrics: logger.DefaultMetrics(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves the page of one source.
func (f *Fetcher) Fetch(ctx context.Context, desc source.Descriptor) RawDocument {
	doc := RawDocument{Source: desc.Name, URL: desc.URL}

	html, finalURL, err := f.get(ctx, desc.URL)
	if err != nil {
		doc.Err = err
		f.metrics.IncrCounter("fetch.failed")
		f.log.Error("Fetch failed", logger.Fields{"source": desc.Name, "url": desc.URL}, err)
		return doc
	}

	doc.HTML = html
	doc.URL = finalURL
	doc.OK = true
	return doc
}

// FetchAll fetches every source in order, pausing between requests. Cancelling ctx
// marks the remaining sources as failed.
func (f *Fetcher) FetchAll(ctx context.Context, sources []source.Descriptor) []RawDocument {
	docs := make([]RawDocument, 0, len(sources))
	for i, desc := range sources {
		if i > 0 && f.delay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(f.delay):
			}
		}
		if err := ctx.Err(); err != nil {
			docs = append(docs, RawDocument{Source: desc.Name, URL: desc.URL, Err: err})
			continue
		}

		start := time.Now()
		doc := f.Fetch(ctx, desc)
		f.metrics.RecordTiming("fetch.source", time.Since(start))
		docs = append(docs, doc)
	}
	return docs
}

func (f *Fetcher) get(ctx context.Context, pageURL string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", "", fmt.Errorf("reading body: %w", err)
	}

	return string(body), resp.Request.URL.String(), nil
}

// DirProvider reads pages saved by an external fetch step as <dir>/<slug>.html,
// where slug is derived from the source name (see Slug).
type DirProvider struct {
	Dir    string
	Logger *logger.Logger
}

// FetchAll implements Provider.
func (p DirProvider) FetchAll(ctx context.Context, sources []source.Descriptor) []RawDocument {
	log := p.Logger
	if log == nil {
		log = logger.Default()
	}
	docs := make([]RawDocument, 0, len(sources))
	for _, desc := range sources {
		doc := RawDocument{Source: desc.Name, URL: desc.URL}
		if err := ctx.Err(); err != nil {
			doc.Err = err
			docs = append(docs, doc)
			continue
		}

		path := filepath.Join(p.Dir, Slug(desc.Name)+".html")
		data, err := os.ReadFile(path)
		if err != nil {
			doc.Err = fmt.Errorf("reading captured page: %w", err)
			log.Warn("Captured page unavailable", logger.Fields{"source": desc.Name, "path": path})
		} else {
			doc.HTML = string(data)
			doc.OK = true
		}
		docs = append(docs, doc)
	}
	return docs
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// Slug turns a source name into a file-name friendly key: "The Fox Theater" → "the-fox-theater".
func Slug(name string) string {
	return strings.Trim(slugInvalid.ReplaceAllString(strings.ToLower(name), "-"), "-")
}
