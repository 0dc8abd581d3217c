// Package pipeline wires the registry, raw content provider, extraction engine,
// aggregator, cleanup oracle and artifact store into the daily run.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pfrederiksen/events-today/internal/calendar"
	"github.com/pfrederiksen/events-today/internal/event"
	"github.com/pfrederiksen/events-today/internal/extract"
	"github.com/pfrederiksen/events-today/internal/logger"
	"github.com/pfrederiksen/events-today/internal/report"
	"github.com/pfrederiksen/events-today/internal/scraper"
	"github.com/pfrederiksen/events-today/internal/source"
	"github.com/pfrederiksen/events-today/internal/storage"
)

// DefaultWorkers bounds concurrent per-source extraction when Options.Workers is unset.
const DefaultWorkers = 4

// ErrConfig marks failures that abort a run before any extraction.
var ErrConfig = errors.New("configuration error")

// Cleaner normalizes a record list. *llm.Oracle satisfies it.
type Cleaner interface {
	Clean(ctx context.Context, records []event.Record, ref event.RefDate) ([]event.Record, error)
}

// Options configures a run. Store is optional for Run; without it nothing is persisted.
type Options struct {
	Command  string
	Registry *source.Registry
	Provider scraper.Provider
	Engine   *extract.Engine
	Store    *storage.Store
	Cleaner  Cleaner
	Ref      event.RefDate
	Workers  int
	Metrics  *logger.Metrics
	Logger   *logger.Logger
}

func (o *Options) defaults() {
	if o.Engine == nil {
		o.Engine = extract.New()
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.Metrics == nil {
		o.Metrics = logger.NewMetrics()
	}
	if o.Logger == nil {
		o.Logger = logger.Default()
	}
	if o.Command == "" {
		o.Command = "scrape"
	}
}

// Outcome is the result of Run or Clean.
type Outcome struct {
	Manifest *storage.Manifest
	All      []event.Record
	Today    []event.Record
	Grouped  *event.Grouped
	Report   []byte
}

// Run fetches every registered source, extracts and aggregates their records, applies
// the two-pass date filter and persists the artifacts.
func Run(ctx context.Context, opts Options) (*Outcome, error) {
	opts.defaults()
	if opts.Registry == nil || len(opts.Registry.Sources) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrConfig, source.ErrNoSources)
	}
	if opts.Provider == nil {
		return nil, fmt.Errorf("%w: no raw content provider", ErrConfig)
	}

	manifest := storage.NewManifest(opts.Command, opts.Ref)
	manifest.Sources = len(opts.Registry.Sources)
	opts.Logger = opts.Logger.With(logger.Fields{"run_id": manifest.RunID})
	log := opts.Logger

	log.Info("Starting run", logger.Fields{
		"command":        opts.Command,
		"reference_date": opts.Ref.String(),
		"sources":        manifest.Sources,
	})

	docs := opts.Provider.FetchAll(ctx, opts.Registry.Sources)
	for _, d := range docs {
		if !d.OK {
			manifest.FailedSources = append(manifest.FailedSources, d.Source)
			opts.Metrics.IncrCounter("extract.sources.failed")
		}
	}

	perSource, err := extractAll(ctx, opts, scraper.Usable(docs, log), manifest)
	if err != nil {
		return nil, err
	}

	agg := event.Aggregate(perSource)
	today := event.FilterToday(agg.Flat, opts.Ref)
	grouped := event.Group(today)

	var buf bytes.Buffer
	if err := report.Render(&buf, report.Title(opts.Ref), grouped); err != nil {
		return nil, fmt.Errorf("rendering report: %w", err)
	}

	manifest.TotalEvents = len(agg.Flat)
	manifest.TodayEvents = len(today)
	manifest.Duplicates = event.DuplicateCount(agg.Flat)
	opts.Metrics.SetGauge("events.total", float64(manifest.TotalEvents))
	opts.Metrics.SetGauge("events.today", float64(manifest.TodayEvents))

	out := &Outcome{
		Manifest: manifest,
		All:      agg.Flat,
		Today:    today,
		Grouped:  grouped,
		Report:   buf.Bytes(),
	}

	if opts.Store != nil {
		if err := persist(opts.Store, opts.Ref, out, storage.AllEvents, storage.TodayEvents, storage.TodayCalendar); err != nil {
			return nil, err
		}
	}

	log.Info("Run complete", logger.Fields{
		"total_events":   manifest.TotalEvents,
		"today_events":   manifest.TodayEvents,
		"duplicates":     manifest.Duplicates,
		"failed_sources": len(manifest.FailedSources),
		"metrics":        opts.Metrics.GetSnapshot(),
	})
	return out, nil
}

// extractAll runs the engine over docs with at most opts.Workers sources in flight.
// Results keep registry order regardless of completion order.
func extractAll(ctx context.Context, opts Options, docs []scraper.RawDocument, manifest *storage.Manifest) ([][]event.Record, error) {
	results := make([][]event.Record, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for i, doc := range docs {
		desc, ok := opts.Registry.Lookup(doc.Source)
		if !ok {
			opts.Logger.Warn("Document for unknown source", logger.Fields{"source": doc.Source})
			results[i] = []event.Record{}
			continue
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			records := opts.Engine.Extract(desc, extract.Document{URL: doc.URL, HTML: doc.HTML}, opts.Ref)
			opts.Metrics.RecordTiming("extract.source", time.Since(start))
			opts.Metrics.AddCounter("extract.records", int64(len(records)))
			if len(records) == 0 {
				opts.Metrics.IncrCounter("extract.sources.empty")
			}
			results[i] = records
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("extracting sources: %w", err)
	}

	for i, doc := range docs {
		if len(results[i]) == 0 {
			manifest.EmptySources = append(manifest.EmptySources, doc.Source)
		}
		opts.Logger.Debug("Extracted source", logger.Fields{
			"source":  doc.Source,
			"records": len(results[i]),
		})
	}
	return results, nil
}

// Clean loads the persisted all-events artifact for opts.Ref, runs it through the
// cleaner and writes the cleaned artifacts. The raw artifacts are left untouched when
// the cleaner fails.
func Clean(ctx context.Context, opts Options) (*Outcome, error) {
	opts.defaults()
	if opts.Store == nil {
		return nil, fmt.Errorf("%w: no artifact store", ErrConfig)
	}
	if opts.Cleaner == nil {
		return nil, fmt.Errorf("%w: no cleaner", ErrConfig)
	}

	records, err := opts.Store.LoadEvents(opts.Ref, storage.AllEvents)
	if err != nil {
		if errors.Is(err, storage.ErrArtifactMissing) {
			return nil, fmt.Errorf("%w: run scrape first: %w", ErrConfig, err)
		}
		return nil, err
	}

	manifest := storage.NewManifest("clean", opts.Ref)
	log := opts.Logger.With(logger.Fields{"run_id": manifest.RunID})
	log.Info("Cleaning events", logger.Fields{"records": len(records)})

	start := time.Now()
	cleaned, err := opts.Cleaner.Clean(ctx, records, opts.Ref)
	opts.Metrics.RecordTiming("clean.request", time.Since(start))
	if err != nil {
		log.Error("Cleanup failed; raw artifacts remain valid", nil, err)
		return nil, fmt.Errorf("cleaning events: %w", err)
	}

	// The oracle's today flag is advisory: the strict pass still applies.
	today := event.FilterToday(cleaned, opts.Ref)
	grouped := event.Group(today)

	var buf bytes.Buffer
	if err := report.Render(&buf, report.Title(opts.Ref), grouped); err != nil {
		return nil, fmt.Errorf("rendering report: %w", err)
	}

	manifest.TotalEvents = len(cleaned)
	manifest.TodayEvents = len(today)
	manifest.Duplicates = event.DuplicateCount(cleaned)

	out := &Outcome{
		Manifest: manifest,
		All:      cleaned,
		Today:    today,
		Grouped:  grouped,
		Report:   buf.Bytes(),
	}
	if err := persist(opts.Store, opts.Ref, out, storage.AllEventsClean, storage.TodayEventsClean, storage.TodayCalendarClean); err != nil {
		return nil, err
	}

	log.Info("Cleanup complete", logger.Fields{
		"input":        len(records),
		"output":       len(cleaned),
		"today_events": len(today),
	})
	return out, nil
}

func persist(store *storage.Store, ref event.RefDate, out *Outcome, allName, todayName, calendarName string) error {
	if err := store.SaveEvents(ref, allName, out.All); err != nil {
		return fmt.Errorf("saving events: %w", err)
	}
	if err := store.SaveEvents(ref, todayName, out.Today); err != nil {
		return fmt.Errorf("saving today's events: %w", err)
	}
	if err := store.SaveReport(ref, storage.ReportFor(todayName), out.Report); err != nil {
		return fmt.Errorf("saving report: %w", err)
	}
	if err := store.SaveCalendar(ref, calendarName, calendar.GenerateICS(out.Today, ref, report.Title(ref))); err != nil {
		return fmt.Errorf("saving calendar: %w", err)
	}
	if err := store.SaveManifest(ref, out.Manifest); err != nil {
		return fmt.Errorf("saving manifest: %w", err)
	}
	return nil
}

// Rerender regroups a persisted artifact and rewrites its report without touching the
// event lists. name selects the artifact, e.g. storage.TodayEventsClean, whose report
// is storage.ReportFileClean.
func Rerender(store *storage.Store, ref event.RefDate, name string) (*Outcome, error) {
	records, err := store.LoadEvents(ref, name)
	if err != nil {
		if errors.Is(err, storage.ErrArtifactMissing) {
			return nil, fmt.Errorf("%w: %w", ErrConfig, err)
		}
		return nil, err
	}

	today := event.FilterToday(records, ref)
	grouped := event.Group(today)

	var buf bytes.Buffer
	if err := report.Render(&buf, report.Title(ref), grouped); err != nil {
		return nil, fmt.Errorf("rendering report: %w", err)
	}
	if err := store.SaveReport(ref, storage.ReportFor(name), buf.Bytes()); err != nil {
		return nil, fmt.Errorf("saving report: %w", err)
	}
	return &Outcome{
		All:     records,
		Today:   today,
		Grouped: grouped,
		Report:  buf.Bytes(),
	}, nil
}
