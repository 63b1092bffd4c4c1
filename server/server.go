package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/fitdash/activity"
	"github.com/fitdash/apperrors"
	"github.com/fitdash/charts"
	"github.com/fitdash/export"
	"github.com/fitdash/notify"
	"github.com/fitdash/settings"
	"github.com/fitdash/timespan"
)

// Deps are the collaborators the HTTP layer is built from
type Deps struct {
	Addr       string
	StaticDir  string
	CookieName string
	Clock      timespan.Clock
	Settings   *settings.Repository
	Charts     []*charts.Container
	Activity   *activity.Section
	Exporter   *export.Exporter
	Notifier   *notify.Notifier
	Metrics    http.Handler
	Recorder   HTTPRecorder
	Errors     *apperrors.Handler
	Logger     *slog.Logger
}

type Server struct {
	deps    Deps
	charts  map[string]*charts.Container
	logger  *slog.Logger
	errors  *apperrors.Handler
	handler http.Handler
}

func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	errs := deps.Errors
	if errs == nil {
		errs = apperrors.NewHandler(logger)
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.New()
	}
	if deps.CookieName == "" {
		deps.CookieName = "fitdash_client"
	}

	s := &Server{
		deps:   deps,
		charts: make(map[string]*charts.Container, len(deps.Charts)),
		logger: logger,
		errors: errs,
	}
	for _, c := range deps.Charts {
		s.charts[c.Slug()] = c
	}

	mux := http.NewServeMux()
	s.routes(mux)

	var h http.Handler = mux
	h = clientMiddleware(deps.CookieName)(h)
	h = recoverMiddleware(logger)(h)
	h = loggingMiddleware(logger, deps.Recorder, func(r *http.Request) string {
		_, pattern := mux.Handler(r)
		return pattern
	})(h)
	s.handler = h
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	if s.deps.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.deps.StaticDir))
		mux.Handle("GET /static/", http.StripPrefix("/static/", fs))
	}

	mux.HandleFunc("GET /{$}", s.indexHandler)
	mux.HandleFunc("GET /analytics", s.analyticsHandler)
	mux.HandleFunc("POST /analytics/range", s.rangeHandler)
	mux.HandleFunc("POST /analytics/range/custom", s.customRangeHandler)
	mux.HandleFunc("GET /analytics/charts/{slug}", s.chartHandler)
	mux.HandleFunc("POST /analytics/charts/{slug}/count", s.countHandler)
	mux.HandleFunc("GET /analytics/activity", s.activityHandler)
	mux.HandleFunc("POST /analytics/export", s.exportHandler)
	mux.HandleFunc("GET /healthz", s.healthHandler)
	if s.deps.Metrics != nil {
		mux.Handle("GET /metrics", s.deps.Metrics)
	}
}

// Handler is the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.deps.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server starting", "addr", s.deps.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("Server shutting down")
	return srv.Shutdown(shutdownCtx)
}
