package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"grindlog/internal/appinfo"
	"grindlog/internal/server"
)

const stopTimeout = 2 * time.Minute

func serveCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daily scheduler and the manual-trigger HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			a, cleanup, err := buildApp(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			a.Log.Infof("%s starting", appinfo.Display())
			if err := a.Scheduler.Start(ctx); err != nil {
				return err
			}
			defer func() {
				stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
				defer cancel()
				if err := a.Scheduler.Stop(stopCtx); err != nil {
					a.Log.Warnf("scheduler stop: %v", err)
				}
				a.Log.Infof("%s stopped", appinfo.Name)
			}()

			if !a.Config.ServerEnabled() {
				<-ctx.Done()
				return nil
			}

			gin.SetMode(gin.ReleaseMode)
			srv, err := server.New(server.Options{
				Dispatcher: a.Scheduler,
				Resolver:   a.Orchestrator.Resolver(),
				RunLogPath: a.Config.Digest.RunLog,
				Log:        a.Log,
			})
			if err != nil {
				return err
			}
			return srv.Run(ctx, a.Config.Server.Listen)
		},
	}
}
