package scraper

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pfrederiksen/events-today/internal/logger"
	"github.com/pfrederiksen/events-today/internal/source"
)

func TestFetch(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		statusCode int
		wantOK     bool
	}{
		{
			name:       "successful fetch",
			body:       `<html><body><div class="event">Band X</div></body></html>`,
			statusCode: http.StatusOK,
			wantOK:     true,
		},
		{
			name:       "HTTP error",
			statusCode: http.StatusNotFound,
			wantOK:     false,
		},
		{
			name:       "server error",
			statusCode: http.StatusServiceUnavailable,
			wantOK:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if ua := r.Header.Get("User-Agent"); !strings.Contains(ua, "events-today") {
					t.Errorf("User-Agent = %q, should contain 'events-today'", ua)
				}
				w.WriteHeader(tt.statusCode)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			f := New(WithDelay(0))
			doc := f.Fetch(context.Background(), source.Descriptor{Name: "Test", URL: server.URL})

			if doc.OK != tt.wantOK {
				t.Fatalf("Fetch() OK = %v, want %v (err: %v)", doc.OK, tt.wantOK, doc.Err)
			}
			if tt.wantOK && doc.HTML != tt.body {
				t.Errorf("Fetch() HTML = %q, want %q", doc.HTML, tt.body)
			}
			if !tt.wantOK && doc.Err == nil {
				t.Error("failed fetch should carry an error")
			}
			if doc.Source != "Test" {
				t.Errorf("Source = %q, want Test", doc.Source)
			}
		})
	}
}

func TestFetch_FollowsRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/events/", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/events/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	doc := New().Fetch(context.Background(), source.Descriptor{Name: "R", URL: server.URL + "/old"})
	if !doc.OK {
		t.Fatalf("Fetch() failed: %v", doc.Err)
	}
	if doc.URL != server.URL+"/events/" {
		t.Errorf("URL = %q, want the final URL after redirect", doc.URL)
	}
}

func TestFetchAll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/down" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(r.URL.Path))
	}))
	defer server.Close()

	sources := []source.Descriptor{
		{Name: "A", URL: server.URL + "/a"},
		{Name: "Down", URL: server.URL + "/down"},
		{Name: "B", URL: server.URL + "/b"},
	}

	docs := New(WithDelay(time.Millisecond)).FetchAll(context.Background(), sources)
	if len(docs) != 3 {
		t.Fatalf("FetchAll() returned %d docs, want 3", len(docs))
	}
	if docs[0].HTML != "/a" || docs[2].HTML != "/b" {
		t.Errorf("documents out of order: %q, %q", docs[0].HTML, docs[2].HTML)
	}
	if docs[1].OK {
		t.Error("failed source should not be OK")
	}

	usable := Usable(docs, nil)
	if len(usable) != 2 || usable[0].Source != "A" || usable[1].Source != "B" {
		t.Errorf("Usable() = %+v", usable)
	}
}

func TestFetchAll_RecordsOnInjectedMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/down" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	var buf bytes.Buffer
	m := logger.NewMetrics()
	before := logger.DefaultMetrics().Counter("fetch.failed")

	f := New(WithDelay(0), WithMetrics(m), WithLogger(logger.New(logger.LevelDebug, &buf)))
	f.FetchAll(context.Background(), []source.Descriptor{
		{Name: "Up", URL: server.URL + "/up"},
		{Name: "Down", URL: server.URL + "/down"},
	})

	if got := m.Counter("fetch.failed"); got != 1 {
		t.Errorf("fetch.failed = %d, want 1", got)
	}
	timings := m.GetSnapshot()["timings"].(map[string]map[string]interface{})
	if got := timings["fetch.source"]["count"]; got != 2 {
		t.Errorf("fetch.source count = %v, want 2", got)
	}
	if after := logger.DefaultMetrics().Counter("fetch.failed"); after != before {
		t.Errorf("default metrics changed: fetch.failed %d -> %d", before, after)
	}
	if !strings.Contains(buf.String(), `"source":"Down"`) {
		t.Errorf("fetch failure not logged to injected logger: %s", buf.String())
	}
}

func TestFetchAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	docs := New().FetchAll(ctx, []source.Descriptor{{Name: "A", URL: "http://127.0.0.1:1/"}})
	if len(docs) != 1 || docs[0].OK || docs[0].Err == nil {
		t.Errorf("cancelled fetch = %+v", docs)
	}
}

func TestDirProvider(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "the-fox-theater.html"), []byte("<html>fox</html>"), 0644); err != nil {
		t.Fatal(err)
	}

	p := DirProvider{Dir: dir}
	docs := p.FetchAll(context.Background(), []source.Descriptor{
		{Name: "The Fox Theater", URL: "https://fox.example.com"},
		{Name: "Missing Venue", URL: "https://missing.example.com"},
	})

	if !docs[0].OK || docs[0].HTML != "<html>fox</html>" || docs[0].URL != "https://fox.example.com" {
		t.Errorf("docs[0] = %+v", docs[0])
	}
	if docs[1].OK || docs[1].Err == nil {
		t.Errorf("missing capture should fail, got %+v", docs[1])
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"The Fox Theater", "the-fox-theater"},
		{"Eventbrite", "eventbrite"},
		{"  Yoshi's (Oakland) ", "yoshi-s-oakland"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Slug(tt.in); got != tt.want {
			t.Errorf("Slug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNew(t *testing.T) {
	f := New()
	if f.client == nil {
		t.Error("fetcher client is nil")
	}
	if f.ua != UserAgent || f.delay != DefaultDelay {
		t.Errorf("defaults = %q/%v", f.ua, f.delay)
	}

	custom := New(WithUserAgent("custom/1.0"), WithDelay(0), WithClient(&http.Client{Timeout: time.Second}))
	if custom.ua != "custom/1.0" || custom.delay != 0 || custom.client.Timeout != time.Second {
		t.Errorf("options not applied: %+v", custom)
	}
}
