package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/events-today/internal/config"
	"github.com/pfrederiksen/events-today/internal/event"
	"github.com/pfrederiksen/events-today/internal/extract"
	"github.com/pfrederiksen/events-today/internal/filter"
	"github.com/pfrederiksen/events-today/internal/llm"
	"github.com/pfrederiksen/events-today/internal/logger"
	"github.com/pfrederiksen/events-today/internal/notifier"
	"github.com/pfrederiksen/events-today/internal/pipeline"
	"github.com/pfrederiksen/events-today/internal/report"
	"github.com/pfrederiksen/events-today/internal/scraper"
	"github.com/pfrederiksen/events-today/internal/source"
	"github.com/pfrederiksen/events-today/internal/storage"
	"github.com/pfrederiksen/events-today/internal/telegram"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

// flags shared by every subcommand
type rootFlags struct {
	config    string
	date      string
	sources   []string
	verbose   bool
	format    string
	sortOrder string
	outputDir string
	registry  string
	regions   []string
	venues    []string
	titles    []string
	timedOnly bool
}

func (f *rootFlags) filter() *filter.Filter {
	return &filter.Filter{
		Regions:   f.regions,
		Venues:    f.venues,
		Titles:    f.titles,
		TimedOnly: f.timedOnly,
	}
}

// env is everything a subcommand needs after flags and config are resolved.
type env struct {
	cfg     *config.Config
	ref     event.RefDate
	format  OutputFormat
	sort    SortOrder
	store   *storage.Store
	log     *logger.Logger
	metrics *logger.Metrics
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "events-today",
		Short: "Find what's on today across local venue and ticketing sites",
		Long: `A CLI tool that scrapes event listings from a registry of venue and ticketing
sites, keeps the ones happening today and writes a report grouped by region and venue.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.config, "config", "", "Path to a YAML config file")
	pf.StringVar(&flags.date, "date", "", "Reference date as YYYY-MM-DD (default: today in the configured timezone)")
	pf.StringSliceVar(&flags.sources, "source", nil, "Only process the named source (repeatable)")
	pf.BoolVar(&flags.verbose, "verbose", false, "Enable verbose logging")
	pf.StringVar(&flags.format, "format", "text", "Output format: text or json")
	pf.StringVar(&flags.sortOrder, "sort", "", "Sort the printed events by time, title or venue (default: extraction order)")
	pf.StringVar(&flags.outputDir, "output-dir", "", "Directory for run artifacts (overrides config)")
	pf.StringVar(&flags.registry, "registry", "", "Source registry CSV (overrides config)")
	pf.StringSliceVar(&flags.regions, "region", nil, "Only show events whose region contains this text (repeatable)")
	pf.StringSliceVar(&flags.venues, "venue", nil, "Only show events whose venue contains this text (repeatable)")
	pf.StringSliceVar(&flags.titles, "match", nil, "Only show events whose title contains this text (repeatable)")
	pf.BoolVar(&flags.timedOnly, "timed-only", false, "Only show events with a start time")

	cmd.AddCommand(
		newScrapeCmd(flags),
		newExtractCmd(flags),
		newCleanCmd(flags),
		newReportCmd(flags),
		newNotifyCmd(flags),
	)
	return cmd
}

func newScrapeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Fetch every source, extract events and write today's report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(flags)
			if err != nil {
				return err
			}

			var provider scraper.Provider
			if dir := e.cfg.Fetch.CaptureDir; dir != "" {
				provider = scraper.DirProvider{Dir: dir, Logger: e.log}
			} else {
				provider = scraper.New(
					scraper.WithClient(&http.Client{Timeout: e.cfg.Fetch.Timeout}),
					scraper.WithUserAgent(e.cfg.Fetch.UserAgent),
					scraper.WithDelay(e.cfg.Fetch.Delay),
					scraper.WithLogger(e.log),
					scraper.WithMetrics(e.metrics),
				)
			}
			return runExtraction(cmd, flags, e, "scrape", provider)
		},
	}
}

func newExtractCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "extract <capture-dir>",
		Short: "Extract events from pages saved by an external browser step",
		Long: `Extract events from pages saved by an external browser step. Each source's page
is read from <capture-dir>/<slug>.html, where slug is the lower-cased source name with
runs of other characters replaced by '-' ("The Fox Theater" -> the-fox-theater.html).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(flags)
			if err != nil {
				return err
			}
			return runExtraction(cmd, flags, e, "extract", scraper.DirProvider{Dir: args[0], Logger: e.log})
		},
	}
}

func runExtraction(cmd *cobra.Command, flags *rootFlags, e *env, command string, provider scraper.Provider) error {
	reg, err := source.Load(e.cfg.Registry)
	if err != nil {
		return fmt.Errorf("loading source registry: %w", err)
	}
	reg, err = reg.Filter(flags.sources...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	out, err := pipeline.Run(ctx, pipeline.Options{
		Command:  command,
		Registry: reg,
		Provider: provider,
		Engine:   extract.New(extract.WithObserver(extract.NewLogObserver(e.log))),
		Store:    e.store,
		Ref:      e.ref,
		Workers:  e.cfg.Workers,
		Metrics:  e.metrics,
		Logger:   e.log,
	})
	if err != nil {
		return err
	}

	if flags.verbose {
		fmt.Fprintf(os.Stderr, "Artifacts written to %s\n", e.store.Dir(e.ref))
	}
	return WriteOutput(cmd.OutOrStdout(), newOutputResult(out, flags.filter(), e.sort), e.format, flags.verbose)
}

func newCleanCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Normalize and deduplicate the day's events with a language model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(flags)
			if err != nil {
				return err
			}
			if err := e.cfg.RequireLLM(); err != nil {
				return err
			}

			client := llm.NewClient(e.cfg.LLM.APIKey,
				llm.WithBaseURL(e.cfg.LLM.BaseURL),
				llm.WithHTTPClient(&http.Client{Timeout: e.cfg.LLM.Timeout}),
			)
			oracle := llm.NewOracle(client, e.cfg.LLM.Model, e.cfg.LLM.Temperature, e.cfg.LLM.MaxTokens)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			out, err := pipeline.Clean(ctx, pipeline.Options{
				Store:   e.store,
				Cleaner: oracle,
				Ref:     e.ref,
				Logger:  e.log,
			})
			if err != nil {
				return err
			}
			return WriteOutput(cmd.OutOrStdout(), newOutputResult(out, flags.filter(), e.sort), e.format, flags.verbose)
		},
	}
}

func newReportCmd(flags *rootFlags) *cobra.Command {
	var clean bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Re-render the markdown report from a saved artifact and print it",
		Long: `Re-render the markdown report from a saved artifact and print it. The raw
artifact is rendered to report.md and, with --clean, the cleaned one to report_clean.md.
The saved report always covers every event; --region, --venue, --match and --timed-only
narrow only what is printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(flags)
			if err != nil {
				return err
			}

			name := storage.TodayEvents
			if clean {
				name = storage.TodayEventsClean
			}
			out, err := pipeline.Rerender(e.store, e.ref, name)
			if err != nil {
				return err
			}

			f := flags.filter()
			if f.IsEmpty() {
				_, err = cmd.OutOrStdout().Write(out.Report)
				return err
			}
			e.log.Debug("Filtering report", logger.Fields{"filter": f.String()})
			return report.Render(cmd.OutOrStdout(), report.Title(e.ref), event.Group(f.Apply(out.Today)))
		},
	}
	cmd.Flags().BoolVar(&clean, "clean", false, "Render from the cleaned artifact")
	return cmd
}

func newNotifyCmd(flags *rootFlags) *cobra.Command {
	var (
		clean  bool
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Post today's digest to the configured Telegram chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(flags)
			if err != nil {
				return err
			}

			name := storage.TodayEvents
			if clean {
				name = storage.TodayEventsClean
			}
			records, err := e.store.LoadEvents(e.ref, name)
			if err != nil {
				return err
			}
			records = flags.filter().Apply(event.FilterToday(records, e.ref))

			var n notifier.Notifier
			if dryRun {
				n = notifier.NewDryRunNotifier(cmd.OutOrStdout())
			} else {
				if err := e.cfg.RequireTelegram(); err != nil {
					return err
				}
				client, err := telegram.NewClient(e.cfg.Notify.TelegramBotToken, e.cfg.Notify.TelegramChatID)
				if err != nil {
					return err
				}
				n = notifier.NewTelegramNotifier(client)
			}

			return n.Notify(cmd.Context(), report.Title(e.ref), event.Group(records))
		},
	}
	cmd.Flags().BoolVar(&clean, "clean", false, "Send the cleaned artifact")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the messages instead of sending them")
	return cmd
}

// setup resolves config, logging, the reference date and the artifact store.
func setup(flags *rootFlags) (*env, error) {
	format := OutputFormat(strings.ToLower(flags.format))
	if format != FormatText && format != FormatJSON {
		return nil, fmt.Errorf("invalid format: %s (must be 'text' or 'json')", flags.format)
	}
	sortOrder, err := ParseSortOrder(flags.sortOrder)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(flags.config)
	if err != nil {
		return nil, err
	}
	if flags.outputDir != "" {
		cfg.OutputDir = flags.outputDir
	}
	if flags.registry != "" {
		cfg.Registry = flags.registry
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if flags.verbose {
		level = logger.LevelDebug
	}
	log := logger.New(level, os.Stderr)
	logger.SetDefault(log)

	ref, err := referenceDate(flags.date, cfg)
	if err != nil {
		return nil, err
	}

	store, err := storage.New(cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}

	return &env{
		cfg:     cfg,
		ref:     ref,
		format:  format,
		sort:    sortOrder,
		store:   store,
		log:     log,
		metrics: logger.NewMetrics(),
	}, nil
}

func referenceDate(value string, cfg *config.Config) (event.RefDate, error) {
	loc, err := cfg.Location()
	if err != nil {
		return event.RefDate{}, err
	}
	if value == "" {
		return event.NewRefDate(time.Now().In(loc)), nil
	}
	t, err := time.ParseInLocation("2006-01-02", value, loc)
	if err != nil {
		return event.RefDate{}, fmt.Errorf("invalid --date %q (want YYYY-MM-DD): %w", value, err)
	}
	return event.NewRefDate(t), nil
}

// Execute runs the CLI
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}
