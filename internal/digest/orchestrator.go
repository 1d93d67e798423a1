package digest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"grindlog/internal/digestlog"
)

// FallbackNarrative replaces the analysis when the analyzer fails.
const FallbackNarrative = "Personalized analysis is currently unavailable. Your solved problems are listed below, keep up the great work!"

type failurePolicy int

const (
	// policyAbort ends processing for the recipient and records Failed(stage).
	policyAbort failurePolicy = iota
	// policyDegrade substitutes a fallback value and carries on.
	policyDegrade
)

var stagePolicies = map[Stage]failurePolicy{
	StageFetch:   policyAbort,
	StageAnalyze: policyDegrade,
	StageRender:  policyAbort,
	StageDeliver: policyAbort,
}

type Orchestrator struct {
	directory RecipientDirectory
	activity  ActivitySource
	analyzer  NarrativeAnalyzer
	renderer  DocumentRenderer
	deliverer Deliverer
	guard     *Guard
	resolver  Resolver

	concurrency int
	now         func() time.Time
	log         *digestlog.Logger

	// autoMu serializes automatic runs so the guard check and the marker
	// write happen as one step.
	autoMu sync.Mutex
}

type Options struct {
	Directory RecipientDirectory
	Activity  ActivitySource
	Analyzer  NarrativeAnalyzer
	Renderer  DocumentRenderer
	Deliverer Deliverer
	Guard     *Guard
	Location  *time.Location

	// Concurrency bounds per-recipient workers; values below 1 mean sequential.
	Concurrency int
	Now         func() time.Time
	Log         *digestlog.Logger
}

func NewOrchestrator(opts Options) (*Orchestrator, error) {
	switch {
	case opts.Directory == nil:
		return nil, errors.New("recipient directory is required")
	case opts.Activity == nil:
		return nil, errors.New("activity source is required")
	case opts.Analyzer == nil:
		return nil, errors.New("narrative analyzer is required")
	case opts.Renderer == nil:
		return nil, errors.New("document renderer is required")
	case opts.Deliverer == nil:
		return nil, errors.New("deliverer is required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Orchestrator{
		directory:   opts.Directory,
		activity:    opts.Activity,
		analyzer:    opts.Analyzer,
		renderer:    opts.Renderer,
		deliverer:   opts.Deliverer,
		guard:       opts.Guard,
		resolver:    NewResolver(opts.Location),
		concurrency: concurrency,
		now:         now,
		log:         opts.Log,
	}, nil
}

func (o *Orchestrator) Guard() *Guard { return o.guard }

func (o *Orchestrator) Resolver() Resolver { return o.resolver }

// Run executes one digest pass. The returned error is non-nil only when the
// run could not start (an invalid manual range); per-recipient failures are
// recorded in the report.
//
// Cancellation of ctx does not reach the adapters: a started pass always
// completes for every recipient, so a shutdown mid-run cannot leave the
// marker written while recipients were never attempted.
func (o *Orchestrator) Run(ctx context.Context, trigger Trigger) (RunReport, error) {
	ctx = context.WithoutCancel(ctx)
	if trigger.IsAutomatic() {
		o.autoMu.Lock()
		defer o.autoMu.Unlock()
	}

	now := o.now()
	report := RunReport{
		ID:        uuid.NewString(),
		Trigger:   trigger,
		StartedAt: now,
	}

	if trigger.IsAutomatic() && !o.guard.ShouldRunAutomatic(ctx, now) {
		report.Suppressed = true
		report.FinishedAt = o.now()
		o.log.Logf(digestlog.KindRun, "run %s: automatic digest already ran today, skipping", report.ID)
		return report, nil
	}

	window, err := o.resolver.Resolve(trigger, now)
	if err != nil {
		report.FinishedAt = o.now()
		return report, err
	}
	report.Window = window
	o.log.Logf(digestlog.KindRun, "run %s: %s window %s .. %s", report.ID, trigger, window.Start.Format(time.RFC3339), window.End.Format(time.RFC3339))

	recipients, err := o.directory.ListRecipients(ctx)
	if err != nil {
		report.DirectoryErr = err
		o.log.Errorf("run %s: list recipients: %v", report.ID, err)
		recipients = nil
	}
	if len(recipients) == 0 {
		o.log.Infof("run %s: no recipients to process", report.ID)
	}

	report.Outcomes = o.processAll(ctx, trigger, window, recipients)

	if trigger.IsAutomatic() {
		if err := o.guard.RecordRan(ctx, now); err != nil {
			report.MarkerErr = err
			o.log.Errorf("run %s: record marker: %v", report.ID, err)
		}
	}

	report.FinishedAt = o.now()
	o.log.Logf(digestlog.KindRun, "run %s finished: %s", report.ID, report.Summary())
	return report, nil
}

func (o *Orchestrator) processAll(ctx context.Context, trigger Trigger, window TimeWindow, recipients []Recipient) []RecipientOutcome {
	outcomes := make([]RecipientOutcome, len(recipients))
	if len(recipients) == 0 {
		return outcomes
	}
	period := DescribePeriod(trigger)

	var g errgroup.Group
	g.SetLimit(o.concurrency)
	for i, rcpt := range recipients {
		g.Go(func() error {
			outcomes[i] = o.processRecipient(ctx, trigger, window, period, rcpt)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (o *Orchestrator) processRecipient(ctx context.Context, trigger Trigger, window TimeWindow, period string, rcpt Recipient) RecipientOutcome {
	out := RecipientOutcome{Recipient: rcpt}

	var items []SolvedItem
	if err := o.attempt(StageFetch, rcpt, func() (err error) {
		items, err = o.activity.SolvedItems(ctx, rcpt, window)
		return err
	}); err != nil && !o.settle(&out, err) {
		return out
	}
	out.Items = len(items)

	if len(items) == 0 {
		if !trigger.IsAutomatic() {
			o.log.Infof("%s: nothing solved %s, no email sent", rcpt.Address, period)
			out.Outcome = Skipped()
			return out
		}
		o.log.Infof("%s: nothing solved %s, sending motivation", rcpt.Address, period)
		if err := o.attempt(StageDeliver, rcpt, func() error {
			return o.deliverer.DeliverMotivation(ctx, rcpt)
		}); err != nil && !o.settle(&out, err) {
			return out
		}
		out.Outcome = Motivated()
		return out
	}

	narrative := ""
	if err := o.attempt(StageAnalyze, rcpt, func() (err error) {
		narrative, err = o.analyzer.Analyze(ctx, AnalysisInput{Items: items, Window: window, Period: period})
		return err
	}); err != nil {
		if !o.settle(&out, err) {
			return out
		}
		narrative = FallbackNarrative
	}

	var doc Document
	if err := o.attempt(StageRender, rcpt, func() (err error) {
		doc, err = o.renderer.Render(ctx, RenderInput{
			Recipient:   rcpt,
			Items:       items,
			Narrative:   narrative,
			Window:      window,
			Period:      period,
			GeneratedAt: o.now(),
		})
		return err
	}); err != nil && !o.settle(&out, err) {
		return out
	}

	var ref string
	if err := o.attempt(StageDeliver, rcpt, func() (err error) {
		ref, err = o.deliverer.DeliverReport(ctx, rcpt, doc)
		return err
	}); err != nil && !o.settle(&out, err) {
		return out
	}
	o.log.Logf(digestlog.KindSend, "%s: report delivered (%d items, ref %s)", rcpt.Address, len(items), ref)
	out.Outcome = Reported(ref)
	return out
}

// attempt runs one stage, converting errors and panics into a *StageError.
func (o *Orchestrator) attempt(stage Stage, rcpt Recipient, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &StageError{Stage: stage, Recipient: rcpt, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if runErr := fn(); runErr != nil {
		return &StageError{Stage: stage, Recipient: rcpt, Err: runErr}
	}
	return nil
}

// settle applies the stage's failure policy to err and reports whether
// processing of the recipient continues.
func (o *Orchestrator) settle(out *RecipientOutcome, err error) bool {
	var se *StageError
	if !errors.As(err, &se) {
		se = &StageError{Stage: StageFetch, Recipient: out.Recipient, Err: err}
	}
	if stagePolicies[se.Stage] == policyDegrade {
		out.Degraded = true
		o.log.Warnf("%s: %s failed, continuing with fallback: %v", out.Recipient.Address, se.Stage, se.Err)
		return true
	}
	out.Outcome = Failed(se.Stage, se)
	o.log.Errorf("%s: %s failed: %v", out.Recipient.Address, se.Stage, se.Err)
	return false
}
