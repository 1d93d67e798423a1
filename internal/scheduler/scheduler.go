package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	robcron "github.com/robfig/cron/v3"

	"grindlog/internal/digest"
	"grindlog/internal/digestlog"
)

var (
	ErrQueueFull = errors.New("manual digest queue is full")
	ErrStopped   = errors.New("scheduler is stopped")
)

// Runner executes one digest pass; *digest.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, trigger digest.Trigger) (digest.RunReport, error)
}

type TicketState string

const (
	TicketQueued  TicketState = "queued"
	TicketRunning TicketState = "running"
	TicketDone    TicketState = "done"
	TicketFailed  TicketState = "failed"
)

// Ticket identifies an accepted manual request.
type Ticket struct {
	ID          string      `json:"ticket"`
	Start       string      `json:"startDate"`
	End         string      `json:"endDate"`
	SubmittedAt time.Time   `json:"submittedAt"`
	State       TicketState `json:"state"`
	Summary     string      `json:"summary,omitempty"`
	Error       string      `json:"error,omitempty"`
}

type manualJob struct {
	ticket  string
	trigger digest.Trigger
}

type Options struct {
	Runner   Runner
	Location *time.Location
	// Schedule is "HH:MM" (daily) or a five-field cron expression.
	Schedule string
	// CatchUp fires one automatic run at Start; the runner's guard decides
	// whether it does any work.
	CatchUp    bool
	QueueSize  int
	RunLogPath string
	// OnResult, when set, receives every finished run.
	OnResult func(digest.RunReport, error)
	Log      *digestlog.Logger
}

type Scheduler struct {
	runner     Runner
	loc        *time.Location
	spec       string
	catchUp    bool
	runLogPath string
	onResult   func(digest.RunReport, error)
	log        *digestlog.Logger

	cron  *robcron.Cron
	queue chan manualJob

	mu       sync.Mutex
	tickets  map[string]*Ticket
	order    []string
	stopped  bool
	started  bool
	lastRun  *RunRecord
	inflight sync.WaitGroup
	workerWG sync.WaitGroup
}

const maxTrackedTickets = 100

func New(opts Options) (*Scheduler, error) {
	if opts.Runner == nil {
		return nil, errors.New("runner is required")
	}
	spec, err := CronSpec(opts.Schedule)
	if err != nil {
		return nil, err
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	size := opts.QueueSize
	if size <= 0 {
		size = 8
	}
	s := &Scheduler{
		runner:     opts.Runner,
		loc:        loc,
		spec:       spec,
		catchUp:    opts.CatchUp,
		runLogPath: strings.TrimSpace(opts.RunLogPath),
		onResult:   opts.OnResult,
		log:        opts.Log,
		queue:      make(chan manualJob, size),
		tickets:    make(map[string]*Ticket),
	}
	s.cron = robcron.New(
		robcron.WithLocation(loc),
		robcron.WithParser(cronParser),
		robcron.WithChain(robcron.Recover(cronLogger{log: opts.Log})),
	)
	return s, nil
}

// Start registers the daily job, launches the manual-queue worker and, when
// enabled, the start-up catch-up run. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("scheduler already started")
	}
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	s.started = true
	s.mu.Unlock()

	if _, err := s.cron.AddFunc(s.spec, func() { s.runAutomatic(ctx, "schedule") }); err != nil {
		return fmt.Errorf("register digest schedule: %w", err)
	}
	s.cron.Start()

	s.workerWG.Add(1)
	go s.worker(ctx)

	if s.catchUp {
		s.inflight.Add(1)
		go func() {
			defer s.inflight.Done()
			s.runAutomatic(ctx, "startup")
		}()
	}
	if next, err := s.NextRun(time.Now()); err == nil {
		s.log.Logf(digestlog.KindRun, "digest scheduled (%s, %s); next run %s", s.spec, s.loc, next.Format(time.RFC3339))
	}
	return nil
}

// Stop halts the timer, drains the manual queue and waits for in-flight runs.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	started := s.started
	close(s.queue)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		if started {
			<-s.cron.Stop().Done()
		}
		s.workerWG.Wait()
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit validates a manual range and queues it. Range errors are returned
// synchronously; the run itself happens on the worker.
func (s *Scheduler) Submit(start, end time.Time) (Ticket, error) {
	if err := digest.ValidateRange(start, end); err != nil {
		return Ticket{}, err
	}
	t := &Ticket{
		ID:          uuid.NewString(),
		Start:       start.Format(digest.DateLayout),
		End:         end.Format(digest.DateLayout),
		SubmittedAt: time.Now().UTC(),
		State:       TicketQueued,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return Ticket{}, ErrStopped
	}
	select {
	case s.queue <- manualJob{ticket: t.ID, trigger: digest.Manual(start, end)}:
	default:
		return Ticket{}, ErrQueueFull
	}
	s.trackLocked(t)
	s.log.Logf(digestlog.KindRun, "manual digest %s queued for %s..%s", t.ID, t.Start, t.End)
	return *t, nil
}

// RunNow executes a trigger synchronously, recording it in the run log.
func (s *Scheduler) RunNow(ctx context.Context, trigger digest.Trigger) (digest.RunReport, error) {
	return s.execute(ctx, trigger, "")
}

func (s *Scheduler) Lookup(id string) (Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[strings.TrimSpace(id)]
	if !ok {
		return Ticket{}, false
	}
	return *t, true
}

type Status struct {
	Schedule string     `json:"schedule"`
	Timezone string     `json:"timezone"`
	NextRun  time.Time  `json:"nextRun"`
	Pending  int        `json:"pending"`
	LastRun  *RunRecord `json:"lastRun,omitempty"`
}

func (s *Scheduler) Status(now time.Time) Status {
	next, _ := s.NextRun(now)
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		Schedule: s.spec,
		Timezone: s.loc.String(),
		NextRun:  next,
		Pending:  len(s.queue),
	}
	if s.lastRun != nil {
		rec := *s.lastRun
		st.LastRun = &rec
	}
	return st
}

func (s *Scheduler) NextRun(now time.Time) (time.Time, error) {
	return NextRun(s.spec, s.loc, now)
}

func (s *Scheduler) worker(ctx context.Context) {
	defer s.workerWG.Done()
	for job := range s.queue {
		s.setTicket(job.ticket, func(t *Ticket) { t.State = TicketRunning })
		report, err := s.execute(ctx, job.trigger, job.ticket)
		s.setTicket(job.ticket, func(t *Ticket) {
			t.Summary = report.Summary()
			if err != nil {
				t.State = TicketFailed
				t.Error = err.Error()
				return
			}
			t.State = TicketDone
		})
	}
}

func (s *Scheduler) runAutomatic(ctx context.Context, reason string) {
	if ctx.Err() != nil {
		return
	}
	s.log.Logf(digestlog.KindRun, "automatic digest firing (%s)", reason)
	_, _ = s.execute(ctx, digest.Automatic(), "")
}

// execute detaches the run from ctx cancellation: jobs drained by Stop run
// to completion instead of failing every recipient.
func (s *Scheduler) execute(ctx context.Context, trigger digest.Trigger, ticket string) (report digest.RunReport, err error) {
	ctx = context.WithoutCancel(ctx)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("digest run panicked: %v", r)
			s.log.Errorf("%v", err)
		}
		rec := NewRunRecord(report, err)
		rec.Ticket = ticket
		if rec.Trigger == "" {
			rec.Trigger = trigger.String()
		}
		s.mu.Lock()
		s.lastRun = &rec
		s.mu.Unlock()
		if s.runLogPath != "" {
			if logErr := AppendRunRecord(s.runLogPath, rec); logErr != nil {
				s.log.Warnf("append run log: %v", logErr)
			}
		}
		if s.onResult != nil {
			s.onResult(report, err)
		}
	}()

	report, err = s.runner.Run(ctx, trigger)
	if err != nil {
		s.log.Errorf("digest run (%s) rejected: %v", trigger, err)
		return report, err
	}
	if runErr := report.Err(); runErr != nil {
		s.log.Warnf("digest run %s completed with failures: %v", report.ID, runErr)
	}
	return report, nil
}

func (s *Scheduler) trackLocked(t *Ticket) {
	s.tickets[t.ID] = t
	s.order = append(s.order, t.ID)
	for len(s.order) > maxTrackedTickets {
		delete(s.tickets, s.order[0])
		s.order = s.order[1:]
	}
}

func (s *Scheduler) setTicket(id string, fn func(*Ticket)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tickets[id]; ok {
		fn(t)
	}
}

type cronLogger struct {
	log *digestlog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugf("cron: %s %v", msg, keysAndValues)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorf("cron: %s: %v %v", msg, err, keysAndValues)
}
