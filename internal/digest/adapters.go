package digest

import (
	"context"
	"time"
)

// RecipientDirectory lists who receives digests. An empty list is valid.
type RecipientDirectory interface {
	ListRecipients(ctx context.Context) ([]Recipient, error)
}

// ActivitySource returns the items a recipient solved inside the window.
type ActivitySource interface {
	SolvedItems(ctx context.Context, recipient Recipient, window TimeWindow) ([]SolvedItem, error)
}

type AnalysisInput struct {
	Items  []SolvedItem
	Window TimeWindow
	Period string
}

// NarrativeAnalyzer produces report prose (markdown or an HTML snippet).
type NarrativeAnalyzer interface {
	Analyze(ctx context.Context, in AnalysisInput) (string, error)
}

type RenderInput struct {
	Recipient   Recipient
	Items       []SolvedItem
	Narrative   string
	Window      TimeWindow
	Period      string
	GeneratedAt time.Time
}

type DocumentRenderer interface {
	Render(ctx context.Context, in RenderInput) (Document, error)
}

// Deliverer sends either a rendered report or the no-activity fallback message.
// DeliverReport returns a reference to what was sent.
type Deliverer interface {
	DeliverReport(ctx context.Context, recipient Recipient, doc Document) (string, error)
	DeliverMotivation(ctx context.Context, recipient Recipient) error
}

// MarkerStore persists the last automatic run instant. ok is false when no
// marker has been written yet.
type MarkerStore interface {
	Read(ctx context.Context) (last time.Time, ok bool, err error)
	Write(ctx context.Context, at time.Time) error
}
