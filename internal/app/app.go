package app

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"grindlog/internal/activity"
	"grindlog/internal/analysis"
	"grindlog/internal/config"
	"grindlog/internal/digest"
	"grindlog/internal/digestlog"
	"grindlog/internal/gateway"
	"grindlog/internal/marker"
	"grindlog/internal/recipients"
	"grindlog/internal/report"
	"grindlog/internal/scheduler"
)

// App is the fully wired digest service.
type App struct {
	Config       config.Config
	Log          *digestlog.Logger
	Location     *time.Location
	Directory    *recipients.Directory
	Marker       marker.Store
	Orchestrator *digest.Orchestrator
	Scheduler    *scheduler.Scheduler

	closers []func(context.Context) error
}

// Build connects every adapter. Recipient and credential problems are
// returned as *digest.ConfigurationError before anything runs.
func Build(ctx context.Context, cfg config.Config, log *digestlog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &digest.ConfigurationError{Source: "config", Err: err}
	}
	loc, err := scheduler.LoadLocation(cfg.Digest.Timezone)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Log: log, Location: loc}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close(context.Background())
		}
	}()

	a.Directory = recipients.New(cfg.Recipients)
	if err := a.Directory.Check(ctx); err != nil {
		return nil, err
	}
	if err := cfg.Email.Validate(); err != nil {
		return nil, &digest.ConfigurationError{Source: "email", Err: err}
	}

	store, closeStore, err := marker.Open(cfg.Digest.Marker)
	if err != nil {
		return nil, err
	}
	a.Marker = store
	a.closers = append(a.closers, func(context.Context) error { return closeStore() })

	source, err := activity.Connect(ctx, cfg.Activity)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, source.Close)

	analyzer, err := analysis.FromConfig(cfg.ModelConfig, log)
	if err != nil {
		return nil, fmt.Errorf("narrative analyzer: %w", err)
	}
	renderer, err := report.New(cfg.Digest.ReportFormat)
	if err != nil {
		return nil, err
	}
	policy, err := digest.ParseFaultPolicy(cfg.Digest.FaultPolicy)
	if err != nil {
		return nil, err
	}

	a.Orchestrator, err = digest.NewOrchestrator(digest.Options{
		Directory: a.Directory,
		Activity:  source,
		Analyzer:  analyzer,
		Renderer:  renderer,
		Deliverer: gateway.NewMailer(cfg.Email, nil, log),
		Guard: digest.NewGuard(digest.GuardOptions{
			Store:       store,
			Location:    loc,
			FaultPolicy: policy,
			Log:         log,
		}),
		Location:    loc,
		Concurrency: cfg.Digest.Concurrency,
		Log:         log,
	})
	if err != nil {
		return nil, err
	}

	a.Scheduler, err = scheduler.New(scheduler.Options{
		Runner:     a.Orchestrator,
		Location:   loc,
		Schedule:   cfg.Digest.Schedule,
		CatchUp:    cfg.CatchUp(),
		QueueSize:  cfg.Digest.QueueSize,
		RunLogPath: cfg.Digest.RunLog,
		Log:        log,
	})
	if err != nil {
		return nil, err
	}

	log.Infof("digest wired: zone=%s schedule=%s format=%s marker=%s analysis=%v",
		loc, cfg.Digest.Schedule, cfg.Digest.ReportFormat, cfg.Digest.Marker.Backend, analyzer.Available())
	ok = true
	return a, nil
}

// OpenMarker opens only the marker store, for maintenance commands.
func OpenMarker(cfg config.Config) (marker.Store, func() error, error) {
	return marker.Open(cfg.Digest.Marker)
}

func (a *App) Close(ctx context.Context) error {
	var result *multierror.Error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			result = multierror.Append(result, err)
		}
	}
	a.closers = nil
	return result.ErrorOrNil()
}
