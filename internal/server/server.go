package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"grindlog/internal/digest"
	"grindlog/internal/digestlog"
	"grindlog/internal/scheduler"
)

const DefaultListen = ":5000"

// Dispatcher is the part of the scheduler the HTTP surface needs.
type Dispatcher interface {
	Submit(start, end time.Time) (scheduler.Ticket, error)
	Lookup(id string) (scheduler.Ticket, bool)
	Status(now time.Time) scheduler.Status
}

type Options struct {
	Dispatcher Dispatcher
	Resolver   digest.Resolver
	RunLogPath string
	Log        *digestlog.Logger
	Now        func() time.Time
}

// Server exposes the manual trigger and read-only status over HTTP.
type Server struct {
	dispatcher Dispatcher
	resolver   digest.Resolver
	runLogPath string
	log        *digestlog.Logger
	now        func() time.Time
	router     *gin.Engine
}

func New(opts Options) (*Server, error) {
	if opts.Dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	router := gin.New()
	router.Use(gin.RecoveryWithWriter(opts.Log.Writer()), requestLogger(opts.Log))

	s := &Server{
		dispatcher: opts.Dispatcher,
		resolver:   opts.Resolver,
		runLogPath: strings.TrimSpace(opts.RunLogPath),
		log:        opts.Log,
		now:        now,
		router:     router,
	}

	api := router.Group("/api")
	{
		api.GET("/health", s.handleHealth)
		api.POST("/digest/send", s.handleSend)
		api.GET("/digest/status", s.handleStatus)
		api.GET("/digest/tickets/:id", s.handleTicket)
		api.GET("/digest/runs", s.handleRuns)
	}
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if strings.TrimSpace(addr) == "" {
		addr = DefaultListen
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Logf(digestlog.KindHTTP, "listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}

func requestLogger(log *digestlog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Logf(digestlog.KindHTTP, "%s %s -> %d (%s)",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Round(time.Millisecond))
	}
}
