package digest

import (
	"context"
	"errors"
	"sync"
	"time"
)

type memoryMarker struct {
	mu      sync.Mutex
	last    time.Time
	ok      bool
	readErr error
	writes  int
}

func (m *memoryMarker) Read(ctx context.Context) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return time.Time{}, false, m.readErr
	}
	return m.last, m.ok, nil
}

func (m *memoryMarker) Write(ctx context.Context, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = at
	m.ok = true
	m.writes++
	return nil
}

func (m *memoryMarker) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

type staticDirectory struct {
	recipients []Recipient
	err        error
	calls      int
	mu         sync.Mutex
}

func (d *staticDirectory) ListRecipients(ctx context.Context) ([]Recipient, error) {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()
	return append([]Recipient(nil), d.recipients...), d.err
}

// fakeActivity returns items per address; addresses listed in failFor error out.
type fakeActivity struct {
	items   map[string][]SolvedItem
	failFor map[string]bool
	panicOn map[string]bool
	// onFetch runs after each successful lookup.
	onFetch func(Recipient)
}

func (f *fakeActivity) SolvedItems(ctx context.Context, r Recipient, w TimeWindow) ([]SolvedItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.onFetch != nil {
		defer f.onFetch(r)
	}
	if f.panicOn[r.Address] {
		panic("activity exploded")
	}
	if f.failFor[r.Address] {
		return nil, errors.New("query failed")
	}
	return f.items[r.Address], nil
}

type fakeAnalyzer struct {
	err   error
	calls int
	mu    sync.Mutex
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, in AnalysisInput) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return "great work", nil
}

type fakeRenderer struct {
	failFor    map[string]bool
	mu         sync.Mutex
	narratives map[string]string
}

func (f *fakeRenderer) Render(ctx context.Context, in RenderInput) (Document, error) {
	if f.failFor[in.Recipient.Address] {
		return Document{}, errors.New("render failed")
	}
	f.mu.Lock()
	if f.narratives == nil {
		f.narratives = make(map[string]string)
	}
	f.narratives[in.Recipient.Address] = in.Narrative
	f.mu.Unlock()
	return Document{Name: "daily-summary.html", ContentType: "text/html", Data: []byte(in.Narrative)}, nil
}

type delivery struct {
	Address    string
	Motivation bool
	Document   string
}

type fakeDeliverer struct {
	mu      sync.Mutex
	sent    []delivery
	failFor map[string]bool
}

func (f *fakeDeliverer) DeliverReport(ctx context.Context, r Recipient, doc Document) (string, error) {
	if f.failFor[r.Address] {
		return "", errors.New("smtp down")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, delivery{Address: r.Address, Document: doc.Name})
	return "<ref-" + r.Address + ">", nil
}

func (f *fakeDeliverer) DeliverMotivation(ctx context.Context, r Recipient) error {
	if f.failFor[r.Address] {
		return errors.New("smtp down")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, delivery{Address: r.Address, Motivation: true})
	return nil
}

func (f *fakeDeliverer) Sent() []delivery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]delivery(nil), f.sent...)
}
