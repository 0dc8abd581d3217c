package extract

import (
	"sync"

	"github.com/pfrederiksen/events-today/internal/logger"
)

// Kind classifies an extraction decision.
type Kind string

const (
	KindMatched Kind = "matched"  // a strategy produced records
	KindNoMatch Kind = "no_match" // a strategy found nothing; falling back
	KindError   Kind = "error"    // a strategy hit malformed input; falling back
	KindSkipped Kind = "skipped"  // a single container or record was dropped
	KindCapped  Kind = "capped"   // containers beyond the cap were ignored
	KindFailed  Kind = "failed"   // the whole source yields no records
)

// Decision describes one skip, fallback or success during extraction.
type Decision struct {
	Source string
	Stage  string
	Kind   Kind
	Reason string
	Index  int
	Count  int
	Err    error
}

// Observer receives extraction decisions. Implementations must be safe for
// concurrent use when an Engine is shared between goroutines.
type Observer interface {
	Observe(Decision)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Decision)

// Observe calls f(d).
func (f ObserverFunc) Observe(d Decision) { f(d) }

type nopObserver struct{}

func (nopObserver) Observe(Decision) {}

// LogObserver writes decisions to a structured logger.
type LogObserver struct {
	Logger *logger.Logger
}

// NewLogObserver returns an observer logging to l, or to the default logger when l is nil.
func NewLogObserver(l *logger.Logger) *LogObserver {
	if l == nil {
		l = logger.Default()
	}
	return &LogObserver{Logger: l}
}

// Observe logs d at a level matching its kind.
func (o *LogObserver) Observe(d Decision) {
	fields := logger.Fields{
		"source": d.Source,
		"stage":  d.Stage,
		"kind":   string(d.Kind),
	}
	if d.Reason != "" {
		fields["reason"] = d.Reason
	}
	if d.Index >= 0 && d.Kind == KindSkipped {
		fields["index"] = d.Index
	}
	if d.Count > 0 {
		fields["count"] = d.Count
	}

	switch d.Kind {
	case KindFailed:
		o.Logger.Error("Source extraction failed", fields, d.Err)
	case KindError:
		o.Logger.Warn("Extraction strategy failed, falling back", withErr(fields, d.Err))
	case KindMatched:
		o.Logger.Info("Extraction strategy matched", fields)
	case KindCapped:
		o.Logger.Warn("Container cap reached", fields)
	default:
		o.Logger.Debug("Extraction decision", withErr(fields, d.Err))
	}
}

func withErr(fields logger.Fields, err error) logger.Fields {
	if err != nil {
		fields["error"] = err.Error()
	}
	return fields
}

// Recorder keeps every decision it observes.
type Recorder struct {
	mu        sync.Mutex
	decisions []Decision
}

// Observe records d.
func (r *Recorder) Observe(d Decision) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decisions = append(r.decisions, d)
}

// Decisions returns a copy of the recorded decisions.
func (r *Recorder) Decisions() []Decision {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Decision, len(r.decisions))
	copy(out, r.decisions)
	return out
}

// Find returns the recorded decisions of the given kind.
func (r *Recorder) Find(kind Kind) []Decision {
	var out []Decision
	for _, d := range r.Decisions() {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}
