package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"grindlog/internal/app"
	"grindlog/internal/config"
	"grindlog/internal/digestlog"
)

func shutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT}
}

func loadConfig(flags *rootFlags) (config.Config, error) {
	if err := config.LoadDotEnv(flags.envPath); err != nil {
		return config.Config{}, err
	}
	return config.LoadConfig(flags.configPath)
}

// buildApp loads config, opens the log and wires every adapter. The returned
// cleanup closes both.
func buildApp(ctx context.Context, flags *rootFlags) (*app.App, func(), error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, nil, err
	}
	log, err := digestlog.Open(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Errorf("start-up failed: %v", err)
		_ = log.Close()
		return nil, nil, err
	}
	cleanup := func() {
		if err := a.Close(context.Background()); err != nil {
			log.Warnf("close adapters: %v", err)
		}
		_ = log.Close()
	}
	return a, cleanup, nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, shutdownSignals()...)
}
