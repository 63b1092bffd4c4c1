package charts

import (
	"context"
	"html/template"
	"log/slog"
	"time"

	"github.com/fitdash/models"
	"github.com/fitdash/query"
	"github.com/fitdash/settings"
	"github.com/fitdash/timespan"
)

// MinCount is the smallest display count a counter accepts
const MinCount = 2

// State is what a chart card shows
type State string

const (
	StateHidden  State = "hidden"
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateError   State = "error"
	StateEmpty   State = "empty"
	StateReady   State = "ready"
)

// ChartView is everything a chart card needs to render
type ChartView struct {
	Title       string
	Slug        string
	State       State
	Projection  Projection
	HTML        template.HTML
	Count       int
	MinCount    int
	MaxCount    int
	ShowCounter bool
	Err         error
}

// PreferencesSource loads the viewer's preferences
type PreferencesSource interface {
	UserPreferences(ctx context.Context) (models.UserPreferences, error)
}

// FitnessSource loads fitness analytics for a date range
type FitnessSource interface {
	FitnessAnalytics(ctx context.Context, dr timespan.DateRange) (models.FitnessAnalytics, error)
}

// CountStore persists per-chart display counts
type CountStore interface {
	Count(ctx context.Context, clientID, chartTitle string) (int, error)
	SetCount(ctx context.Context, clientID, chartTitle string, n int) error
}

// Recorder observes rendered chart states
type Recorder interface {
	ChartRendered(chart, state string)
}

// HTMLRenderer turns a projection into embeddable markup
type HTMLRenderer func(slug string, p Projection) (template.HTML, error)

// PreferencesKey caches the viewer's preferences alongside analytics
var PreferencesKey = query.Key{Name: "users.preferences"}

// ClampCount bounds a display count to [MinCount, totalItems]. With fewer than
// MinCount items there is nothing to choose and totalItems is returned.
func ClampCount(n, totalItems int) int {
	if totalItems < MinCount {
		return max(totalItems, 0)
	}
	return min(max(n, MinCount), totalItems)
}

// Container fetches analytics for one adapter and decides which state its
// card is in.
type Container struct {
	adapter  Adapter
	prefs    PreferencesSource
	fitness  FitnessSource
	queries  *query.Client
	counts   CountStore
	render   HTMLRenderer
	recorder Recorder
	logger   *slog.Logger
}

// ContainerDeps groups the collaborators shared by every chart container
type ContainerDeps struct {
	Preferences PreferencesSource
	Fitness     FitnessSource
	Queries     *query.Client
	Counts      CountStore
	Render      HTMLRenderer
	Recorder    Recorder
	Logger      *slog.Logger
}

func NewContainer(adapter Adapter, deps ContainerDeps) *Container {
	render := deps.Render
	if render == nil {
		render = RenderHTML
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Container{
		adapter:  adapter,
		prefs:    deps.Preferences,
		fitness:  deps.Fitness,
		queries:  deps.Queries,
		counts:   deps.Counts,
		render:   render,
		recorder: deps.Recorder,
		logger:   logger,
	}
}

func (c *Container) Title() string    { return c.adapter.Title() }
func (c *Container) Slug() string     { return c.adapter.Slug() }
func (c *Container) Adapter() Adapter { return c.adapter }

func (c *Container) done(view ChartView) ChartView {
	if c.recorder != nil {
		c.recorder.ChartRendered(view.Title, string(view.State))
	}
	return view
}

// Preferences returns the cached viewer preferences, fetching them on a miss
func (c *Container) Preferences(ctx context.Context) query.Result[models.UserPreferences] {
	return query.Fetch(ctx, c.queries, PreferencesKey, query.Active, c.prefs.UserPreferences)
}

// Analytics returns fitness analytics for dr. An inactive request only reports
// what is already cached.
func (c *Container) Analytics(ctx context.Context, dr timespan.DateRange, active query.Activation) query.Result[models.FitnessAnalytics] {
	key := query.FitnessAnalyticsKey(dr)
	if !active {
		return query.Peek[models.FitnessAnalytics](c.queries, key)
	}
	return query.Fetch(ctx, c.queries, key, active, func(ctx context.Context) (models.FitnessAnalytics, error) {
		return c.fitness.FitnessAnalytics(ctx, dr)
	})
}

// View resolves the card state for one client and date range. Hours are shown
// in loc, the viewer's zone.
func (c *Container) View(ctx context.Context, clientID string, dr timespan.DateRange, active query.Activation, loc *time.Location) ChartView {
	return c.ViewWith(ctx, c.Preferences(ctx), clientID, dr, active, loc)
}

// ViewWith is View with preferences the caller already loaded, so a page of
// cards asks for them once.
func (c *Container) ViewWith(ctx context.Context, prefs query.Result[models.UserPreferences], clientID string, dr timespan.DateRange, active query.Activation, loc *time.Location) ChartView {
	view := ChartView{
		Title:    c.adapter.Title(),
		Slug:     c.adapter.Slug(),
		MinCount: MinCount,
	}

	if prefs.Status == query.Error {
		view.State = StateError
		view.Err = prefs.Err
		return c.done(view)
	}
	if !prefs.Data.FitnessEnabled() {
		view.State = StateHidden
		return c.done(view)
	}

	res := c.Analytics(ctx, dr, active)
	switch res.Status {
	case query.Idle:
		view.State = StateIdle
		return c.done(view)
	case query.Loading:
		view.State = StateLoading
		return c.done(view)
	case query.Error:
		view.State = StateError
		view.Err = res.Err
		return c.done(view)
	}

	stored := settings.DefaultCount
	if c.adapter.CounterEnabled() && c.counts != nil {
		n, err := c.counts.Count(ctx, clientID, c.adapter.Title())
		if err != nil {
			c.logger.WarnContext(ctx, "Failed to load chart count", "chart", c.adapter.Title(), "error", err)
		} else {
			stored = n
		}
	}

	adapter := c.adapter
	if l, ok := adapter.(Localizer); ok {
		adapter = l.Localize(loc, time.Now())
	}

	total := adapter.Project(res.Data, 0).TotalItems
	count := stored
	if total >= MinCount {
		count = ClampCount(stored, total)
	}
	projection := adapter.Project(res.Data, count)

	view.Projection = projection
	view.Count = count
	view.MaxCount = total
	view.ShowCounter = c.adapter.CounterEnabled() && total >= MinCount

	if projection.TotalItems == 0 {
		view.State = StateEmpty
		return c.done(view)
	}

	html, err := c.render(c.adapter.Slug(), projection)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to render chart", "chart", c.adapter.Title(), "error", err)
		view.State = StateError
		view.Err = err
		return c.done(view)
	}
	view.HTML = html
	view.State = StateReady
	return c.done(view)
}

// SetCount clamps n against the chart's current item count and persists it
func (c *Container) SetCount(ctx context.Context, clientID string, dr timespan.DateRange, n int) (int, error) {
	res := query.Peek[models.FitnessAnalytics](c.queries, query.FitnessAnalyticsKey(dr))
	if res.Status == query.Ready {
		if total := c.adapter.Project(res.Data, 0).TotalItems; total >= MinCount {
			n = ClampCount(n, total)
		}
	}
	n = max(n, MinCount)
	if err := c.counts.SetCount(ctx, clientID, c.adapter.Title(), n); err != nil {
		return 0, err
	}
	return n, nil
}
