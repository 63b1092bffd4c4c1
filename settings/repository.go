package settings

import (
	"context"
	"log/slog"

	"github.com/fitdash/apperrors"
	"github.com/fitdash/timespan"
)

const (
	timeSpanKey = "TimeSpanSettings"

	// DefaultCount is the number of chart items shown before the user changes it
	DefaultCount = 10
)

// CountKey is the storage key for a chart's display count
func CountKey(chartTitle string) string {
	return chartTitle + "-count"
}

// Repository gives typed access to one client's view state
type Repository struct {
	store  Store
	logger *slog.Logger
}

func NewRepository(store Store, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{store: store, logger: logger}
}

func scoped(clientID, key string) string {
	return clientID + ":" + key
}

// TimeSpan returns the client's time span settings. Absent or unreadable values
// yield the default.
func (r *Repository) TimeSpan(ctx context.Context, clientID string) (timespan.Settings, error) {
	var s timespan.Settings
	found, err := r.store.Get(ctx, scoped(clientID, timeSpanKey), &s)
	if err != nil {
		if found {
			r.logger.WarnContext(ctx, "Discarding unreadable time span settings", "client_id", clientID, "error", err)
			return timespan.Default(), nil
		}
		return timespan.Default(), apperrors.NewStorageError(err, "load time span settings")
	}
	if !found {
		return timespan.Default(), nil
	}
	if _, err := timespan.ParseRange(string(s.Range)); err != nil {
		r.logger.WarnContext(ctx, "Discarding stored time span with unknown range", "client_id", clientID, "range", s.Range)
		return timespan.Default(), nil
	}
	return s, nil
}

// SetTimeSpan replaces the client's time span settings wholesale
func (r *Repository) SetTimeSpan(ctx context.Context, clientID string, s timespan.Settings) error {
	if err := r.store.Set(ctx, scoped(clientID, timeSpanKey), s); err != nil {
		return apperrors.NewStorageError(err, "save time span settings")
	}
	return nil
}

// Count returns the persisted display count for a chart, DefaultCount if unset
func (r *Repository) Count(ctx context.Context, clientID, chartTitle string) (int, error) {
	var n int
	found, err := r.store.Get(ctx, scoped(clientID, CountKey(chartTitle)), &n)
	if err != nil {
		if found {
			r.logger.WarnContext(ctx, "Discarding unreadable chart count", "client_id", clientID, "chart", chartTitle, "error", err)
			return DefaultCount, nil
		}
		return DefaultCount, apperrors.NewStorageError(err, "load chart count")
	}
	if !found {
		return DefaultCount, nil
	}
	return n, nil
}

func (r *Repository) SetCount(ctx context.Context, clientID, chartTitle string, n int) error {
	if err := r.store.Set(ctx, scoped(clientID, CountKey(chartTitle)), n); err != nil {
		return apperrors.NewStorageError(err, "save chart count")
	}
	return nil
}
