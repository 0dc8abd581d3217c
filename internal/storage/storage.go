package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pfrederiksen/events-today/internal/event"
)

// Artifact file names.
const (
	AllEvents          = "all_events.json"
	TodayEvents        = "today_events.json"
	AllEventsClean     = "all_events_clean.json"
	TodayEventsClean   = "today_events_clean.json"
	ReportFile         = "report.md"
	ReportFileClean    = "report_clean.md"
	TodayCalendar      = "today_events.ics"
	TodayCalendarClean = "today_events_clean.ics"
	ManifestFile       = "run.json"
)

// ErrArtifactMissing is returned when a prerequisite artifact has not been written yet.
var ErrArtifactMissing = errors.New("artifact missing")

// Manifest summarizes one run.
type Manifest struct {
	RunID         string    `json:"run_id"`
	Command       string    `json:"command"`
	ReferenceDate string    `json:"reference_date"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Sources       int       `json:"sources"`
	FailedSources []string  `json:"failed_sources"`
	EmptySources  []string  `json:"empty_sources"`
	TotalEvents   int       `json:"total_events"`
	TodayEvents   int       `json:"today_events"`
	Duplicates    int       `json:"duplicates"`
}

// NewManifest starts a manifest for command with a fresh run ID.
func NewManifest(command string, ref event.RefDate) *Manifest {
	return &Manifest{
		RunID:         uuid.NewString(),
		Command:       command,
		ReferenceDate: ref.String(),
		StartedAt:     time.Now().UTC(),
		FailedSources: make([]string, 0),
		EmptySources:  make([]string, 0),
	}
}

// Store handles persistence of run artifacts.
type Store struct {
	dataDir string
}

// New creates a Store rooted at dataDir, creating the directory if needed.
func New(dataDir string) (*Store, error) {
	// Expand ~ to home directory
	if strings.HasPrefix(dataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, dataDir[2:])
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return &Store{dataDir: dataDir}, nil
}

// Dir returns the per-day directory for ref.
func (s *Store) Dir(ref event.RefDate) string {
	return filepath.Join(s.dataDir, ref.String())
}

// Path returns the location of the named artifact for ref.
func (s *Store) Path(ref event.RefDate, name string) string {
	return filepath.Join(s.Dir(ref), name)
}

// SaveEvents writes records as an indented JSON array. A nil slice is written as [].
func (s *Store) SaveEvents(ref event.RefDate, name string, records []event.Record) error {
	if records == nil {
		records = []event.Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	return s.write(ref, name, data)
}

// LoadEvents reads a JSON array of records written by SaveEvents.
func (s *Store) LoadEvents(ref event.RefDate, name string) ([]event.Record, error) {
	path := s.Path(ref, name)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactMissing, path)
		}
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}

	var records []event.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	if records == nil {
		records = []event.Record{}
	}
	return records, nil
}

// SaveReport writes a rendered markdown report under name.
func (s *Store) SaveReport(ref event.RefDate, name string, report []byte) error {
	return s.write(ref, name, report)
}

// ReportFor returns the report file rendered from the events artifact name: cleaned
// artifacts get their own report so the raw one is never overwritten.
func ReportFor(eventsName string) string {
	switch eventsName {
	case AllEventsClean, TodayEventsClean:
		return ReportFileClean
	default:
		return ReportFile
	}
}

// SaveCalendar writes an iCalendar feed under name. An empty feed removes a stale file.
func (s *Store) SaveCalendar(ref event.RefDate, name string, ics string) error {
	if ics == "" {
		err := os.Remove(s.Path(ref, name))
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing %s: %w", name, err)
		}
		return nil
	}
	return s.write(ref, name, []byte(ics))
}

// SaveManifest stamps the finish time and writes the manifest.
func (s *Store) SaveManifest(ref event.RefDate, m *Manifest) error {
	m.FinishedAt = time.Now().UTC()

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	return s.write(ref, ManifestFile, data)
}

// LoadManifest reads the manifest written for ref.
func (s *Store) LoadManifest(ref event.RefDate) (*Manifest, error) {
	path := s.Path(ref, ManifestFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactMissing, path)
		}
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}

func (s *Store) write(ref event.RefDate, name string, data []byte) error {
	if err := os.MkdirAll(s.Dir(ref), 0755); err != nil {
		return fmt.Errorf("creating run directory: %w", err)
	}

	// Write through a temp file so a crashed run never leaves a truncated artifact.
	path := s.Path(ref, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}
