package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/fitdash/activity"
	"github.com/fitdash/appcache"
	"github.com/fitdash/apperrors"
	"github.com/fitdash/backend"
	"github.com/fitdash/charts"
	"github.com/fitdash/config"
	"github.com/fitdash/export"
	"github.com/fitdash/metrics"
	"github.com/fitdash/notify"
	"github.com/fitdash/query"
	"github.com/fitdash/server"
	"github.com/fitdash/settings"
	"github.com/fitdash/timespan"
)

// App is the fully wired dashboard
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Clock     timespan.Clock
	Metrics   *metrics.Metrics
	Settings  *settings.Repository
	Queries   *query.Client
	Dashboard server.Dashboard
	Notifier  *notify.Notifier
	Exporter  *export.Exporter
	Janitor   *appcache.Janitor

	closers []io.Closer
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	return errors.Join(errs...)
}

func openSettingsStore(cfg config.SettingsConfig) (settings.Store, error) {
	switch cfg.Store {
	case "redis":
		return settings.NewRedisStore(settings.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			TTL:      cfg.Redis.TTL,
		})
	case "memory":
		return settings.NewMemoryStore(), nil
	default:
		return settings.NewFileStore(cfg.FilePath)
	}
}

// pageURL is where a browser reaches the dashboard
func pageURL(cfg config.ServerConfig) string {
	base := cfg.PublicURL
	if base == "" {
		addr := cfg.Addr
		if strings.HasPrefix(addr, ":") {
			addr = "localhost" + addr
		}
		base = "http://" + addr
	}
	return strings.TrimSuffix(base, "/") + "/analytics"
}

// Build wires every component from cfg. capturer overrides the configured one
// when not empty.
func Build(cfg *config.Config, logger *slog.Logger, capturer string) (*App, error) {
	app := &App{Config: cfg, Logger: logger, Metrics: metrics.New(), Notifier: notify.New()}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	app.Clock = timespan.NewClock(loc)

	store, err := openSettingsStore(cfg.Settings)
	if err != nil {
		return nil, apperrors.NewStorageError(err, "open settings store")
	}
	app.closers = append(app.closers, store)
	app.Settings = settings.NewRepository(store, logger)

	var persistence query.Persistence
	purgers := map[string]appcache.Purger{}
	if cfg.Cache.DB.Enabled() {
		db, err := appcache.Open(appcache.DBConfig{
			Host:     cfg.Cache.DB.Host,
			Port:     cfg.Cache.DB.Port,
			User:     cfg.Cache.DB.User,
			Password: cfg.Cache.DB.Password,
			DBName:   cfg.Cache.DB.DBName,
		})
		if err != nil {
			app.Close()
			return nil, apperrors.NewStorageError(err, "open application cache")
		}
		if sqlDB, err := db.DB(); err == nil {
			app.closers = append(app.closers, sqlDB)
		}
		cache := appcache.NewStore(db)
		persistence = cache
		purgers["application_cache"] = cache
		logger.Info("Application cache enabled", "host", cfg.Cache.DB.Host, "db", cfg.Cache.DB.DBName)
	}

	app.Queries = query.NewClient(query.Options{
		TTL:         cfg.Cache.TTL,
		Persistence: persistence,
		Recorder:    app.Metrics,
		Logger:      logger,
	})
	purgers["queries"] = appcache.PurgeFunc(func(context.Context) (int64, error) {
		return int64(app.Queries.PurgeExpired()), nil
	})

	janitor, err := appcache.NewJanitor(cfg.Cache.PurgeSchedule, purgers, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Janitor = janitor

	retry := backend.DefaultRetryConfig()
	retry.MaxAttempts = cfg.Backend.RetryAttempts
	client := backend.NewClient(backend.Config{
		Endpoint: cfg.Backend.Endpoint,
		Token:    cfg.Backend.Token,
		Timeout:  cfg.Backend.Timeout,
		Retry:    retry,
		Recorder: app.Metrics,
	}, logger)

	section := activity.NewSection(activity.Deps{
		Source:   client,
		Queries:  app.Queries,
		Recorder: app.Metrics,
		Logger:   logger,
	})
	app.Dashboard = server.NewDashboard(
		charts.Adapters(charts.DefaultPalette),
		charts.ContainerDeps{
			Preferences: client,
			Fitness:     client,
			Queries:     app.Queries,
			Counts:      app.Settings,
			Recorder:    app.Metrics,
			Logger:      logger,
		},
		section,
	)

	if capturer == "" {
		capturer = cfg.Export.Capturer
	}
	var c export.Capturer
	switch capturer {
	case "browser":
		c = export.NewBrowserCapturer(export.BrowserOptions{
			DebugURL:   cfg.Export.DebugURL,
			PageURL:    pageURL(cfg.Server),
			CookieName: cfg.Server.CookieName,
			Timeout:    cfg.Export.Timeout,
		})
	case "render":
		c = export.NewRenderCapturer(app.Dashboard.Snapshot, charts.TileSize{
			Width:  cfg.Export.TileWidth,
			Height: cfg.Export.TileHeight,
		})
	default:
		app.Close()
		return nil, fmt.Errorf("unknown capturer %q", capturer)
	}
	app.Exporter = export.NewExporter(c, app.Notifier, app.Metrics, logger)

	return app, nil
}

// Server builds the HTTP server for the app
func (a *App) Server() *server.Server {
	return server.New(server.Deps{
		Addr:       a.Config.Server.Addr,
		StaticDir:  a.Config.Server.StaticDir,
		CookieName: a.Config.Server.CookieName,
		Clock:      a.Clock,
		Settings:   a.Settings,
		Charts:     a.Dashboard.Charts,
		Activity:   a.Dashboard.Activity,
		Exporter:   a.Exporter,
		Notifier:   a.Notifier,
		Metrics:    a.Metrics.Handler(),
		Recorder:   a.Metrics,
		Errors:     apperrors.NewHandler(a.Logger),
		Logger:     a.Logger,
	})
}
