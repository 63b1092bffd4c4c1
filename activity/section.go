package activity

import (
	"context"
	"html/template"
	"log/slog"

	"github.com/fitdash/charts"
	"github.com/fitdash/models"
	"github.com/fitdash/query"
	"github.com/fitdash/timespan"
)

const (
	Title        = "Activity"
	ChartID      = "chart-activity"
	EmptyMessage = "No activity found in the selected period"
	NoValue      = "N/A"
)

// Source loads activity buckets for a date range
type Source interface {
	DailyUserActivities(ctx context.Context, dr timespan.DateRange) (models.DailyUserActivities, error)
}

// Renderer turns chart data into embeddable markup
type Renderer func(id string, data models.ChartData) (template.HTML, error)

// Summary holds the two statistics shown above the chart
type Summary struct {
	Total    string
	Duration string
}

// View is everything the activity section needs to render
type View struct {
	State   charts.State
	Summary Summary
	Data    models.ChartData
	HTML    template.HTML
	Err     error
}

type Deps struct {
	Source   Source
	Queries  *query.Client
	Render   Renderer
	Recorder charts.Recorder
	Logger   *slog.Logger
}

// Section fetches and shapes the stacked activity chart
type Section struct {
	source   Source
	queries  *query.Client
	render   Renderer
	recorder charts.Recorder
	logger   *slog.Logger
}

func NewSection(deps Deps) *Section {
	render := deps.Render
	if render == nil {
		render = charts.RenderStackedBarHTML
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Section{
		source:   deps.Source,
		queries:  deps.Queries,
		render:   render,
		recorder: deps.Recorder,
		logger:   logger,
	}
}

// Fetch returns the activity payload for dr. An inactive request only reports
// what is already cached.
func (s *Section) Fetch(ctx context.Context, dr timespan.DateRange, active query.Activation) query.Result[models.DailyUserActivities] {
	key := query.DailyUserActivitiesKey(dr)
	if !active {
		return query.Peek[models.DailyUserActivities](s.queries, key)
	}
	return query.Fetch(ctx, s.queries, key, active, func(ctx context.Context) (models.DailyUserActivities, error) {
		return s.source.DailyUserActivities(ctx, dr)
	})
}

// ChartData builds the stacked bar input: one x label per bucket and one
// series per present category, zero filled where a bucket lacks it.
func (r Reshaped) ChartData() models.ChartData {
	data := models.ChartData{
		Title:  Title,
		XAxis:  make([]string, 0, len(r.Buckets)),
		Series: make([]models.Series, 0, len(r.Series)),
	}
	for _, b := range r.Buckets {
		data.XAxis = append(data.XAxis, FormatTick(b.Day, r.GroupedBy))
	}
	for _, c := range r.Series {
		values := make([]float64, len(r.Buckets))
		for i, b := range r.Buckets {
			values[i] = b.Values[c.Name]
		}
		data.Series = append(data.Series, models.Series{
			Name:   c.Name,
			Label:  charts.HumanName(c.Name),
			Color:  c.Color,
			Values: values,
		})
	}
	return data
}

// Summarize formats the statistics. Without data the total reads "0 items"
// and the duration "N/A".
func Summarize(r *Reshaped) Summary {
	if r == nil {
		return Summary{Total: FormatItems(0), Duration: NoValue}
	}
	return Summary{
		Total:    FormatItems(r.TotalCount),
		Duration: FormatDuration(r.TotalDuration),
	}
}

func (s *Section) done(v View) View {
	if s.recorder != nil {
		s.recorder.ChartRendered(Title, string(v.State))
	}
	return v
}

// View resolves the section state for dr
func (s *Section) View(ctx context.Context, dr timespan.DateRange, active query.Activation) View {
	view := View{Summary: Summarize(nil)}

	res := s.Fetch(ctx, dr, active)
	switch res.Status {
	case query.Idle:
		view.State = charts.StateIdle
		return s.done(view)
	case query.Loading:
		view.State = charts.StateLoading
		return s.done(view)
	case query.Error:
		view.State = charts.StateError
		view.Err = res.Err
		return s.done(view)
	}

	reshaped := Reshape(res.Data)
	view.Summary = Summarize(&reshaped)
	if reshaped.TotalCount == 0 {
		view.State = charts.StateEmpty
		return s.done(view)
	}

	view.Data = reshaped.ChartData()
	html, err := s.render(ChartID, view.Data)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to render activity chart", "error", err)
		view.State = charts.StateError
		view.Err = err
		return s.done(view)
	}
	view.HTML = html
	view.State = charts.StateReady
	return s.done(view)
}
