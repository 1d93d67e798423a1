package digest

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
)

type Recipient struct {
	DisplayName string `json:"name" yaml:"name"`
	Address     string `json:"email" yaml:"email"`
}

func (r Recipient) String() string {
	name := strings.TrimSpace(r.DisplayName)
	addr := strings.TrimSpace(r.Address)
	if name == "" {
		return addr
	}
	return fmt.Sprintf("%s <%s>", name, addr)
}

type SolvedItem struct {
	Title    string    `json:"title"`
	Platform string    `json:"platform"`
	URL      string    `json:"url"`
	SolvedAt time.Time `json:"solved_at,omitempty"`
}

// TimeWindow is the half-open interval [Start, End).
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Days is the number of calendar days the window spans, at least 1.
func (w TimeWindow) Days() int {
	s := time.Date(w.Start.Year(), w.Start.Month(), w.Start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(w.End.Year(), w.End.Month(), w.End.Day(), 0, 0, 0, 0, time.UTC)
	d := int(e.Sub(s) / (24 * time.Hour))
	if d < 1 {
		return 1
	}
	return d
}

type TriggerKind string

const (
	TriggerAutomatic TriggerKind = "automatic"
	TriggerManual    TriggerKind = "manual"
)

// Trigger says why a run started. Start and End are only meaningful for manual
// triggers and are read as calendar dates.
type Trigger struct {
	Kind  TriggerKind `json:"kind"`
	Start time.Time   `json:"start,omitempty"`
	End   time.Time   `json:"end,omitempty"`
}

func Automatic() Trigger {
	return Trigger{Kind: TriggerAutomatic}
}

func Manual(start, end time.Time) Trigger {
	return Trigger{Kind: TriggerManual, Start: start, End: end}
}

func (t Trigger) IsAutomatic() bool {
	return t.Kind != TriggerManual
}

func (t Trigger) String() string {
	if t.IsAutomatic() {
		return string(TriggerAutomatic)
	}
	return fmt.Sprintf("%s %s..%s", TriggerManual, t.Start.Format(DateLayout), t.End.Format(DateLayout))
}

type OutcomeKind string

const (
	OutcomeReported  OutcomeKind = "reported"
	OutcomeMotivated OutcomeKind = "motivated"
	OutcomeSkipped   OutcomeKind = "skipped"
	OutcomeFailed    OutcomeKind = "failed"
)

type Outcome struct {
	Kind        OutcomeKind
	DocumentRef string
	Stage       Stage
	Err         error
}

func Reported(ref string) Outcome { return Outcome{Kind: OutcomeReported, DocumentRef: ref} }
func Motivated() Outcome          { return Outcome{Kind: OutcomeMotivated} }
func Skipped() Outcome            { return Outcome{Kind: OutcomeSkipped} }

func Failed(stage Stage, cause error) Outcome {
	return Outcome{Kind: OutcomeFailed, Stage: stage, Err: cause}
}

func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeReported:
		return fmt.Sprintf("reported(%s)", o.DocumentRef)
	case OutcomeFailed:
		return fmt.Sprintf("failed(%s: %v)", o.Stage, o.Err)
	default:
		return string(o.Kind)
	}
}

type RecipientOutcome struct {
	Recipient Recipient
	Outcome   Outcome
	Items     int
	// Degraded is set when the report went out with the fallback narrative.
	Degraded bool
}

type RunReport struct {
	ID         string
	Trigger    Trigger
	Window     TimeWindow
	StartedAt  time.Time
	FinishedAt time.Time

	// Suppressed is true when the guard stopped an automatic run before it began.
	Suppressed bool

	DirectoryErr error
	MarkerErr    error
	Outcomes     []RecipientOutcome
}

func (r RunReport) Count(kind OutcomeKind) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Outcome.Kind == kind {
			n++
		}
	}
	return n
}

// Err folds every failure recorded in the report into one error, or nil.
func (r RunReport) Err() error {
	var result *multierror.Error
	if r.DirectoryErr != nil {
		result = multierror.Append(result, fmt.Errorf("recipients: %w", r.DirectoryErr))
	}
	for _, o := range r.Outcomes {
		if o.Outcome.Kind != OutcomeFailed {
			continue
		}
		result = multierror.Append(result, o.Outcome.Err)
	}
	if r.MarkerErr != nil {
		result = multierror.Append(result, fmt.Errorf("record marker: %w", r.MarkerErr))
	}
	return result.ErrorOrNil()
}

func (r RunReport) Summary() string {
	if r.Suppressed {
		return "suppressed: automatic digest already ran today"
	}
	return fmt.Sprintf("recipients=%d reported=%d motivated=%d skipped=%d failed=%d",
		len(r.Outcomes),
		r.Count(OutcomeReported),
		r.Count(OutcomeMotivated),
		r.Count(OutcomeSkipped),
		r.Count(OutcomeFailed),
	)
}

// Document is a rendered report ready for delivery.
type Document struct {
	Name        string
	ContentType string
	Title       string
	Data        []byte
}
