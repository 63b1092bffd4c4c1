package charts

import (
	"context"
	"errors"
	"html/template"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fitdash/models"
	"github.com/fitdash/query"
	"github.com/fitdash/settings"
	"github.com/fitdash/timespan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	prefs     models.UserPreferences
	prefsErr  error
	payload   models.FitnessAnalytics
	err       error
	fetches   int32
	prefCalls int32
	lastRange timespan.DateRange
}

func (f *fakeBackend) UserPreferences(context.Context) (models.UserPreferences, error) {
	atomic.AddInt32(&f.prefCalls, 1)
	return f.prefs, f.prefsErr
}

func (f *fakeBackend) FitnessAnalytics(_ context.Context, dr timespan.DateRange) (models.FitnessAnalytics, error) {
	atomic.AddInt32(&f.fetches, 1)
	f.lastRange = dr
	return f.payload, f.err
}

func enabled() models.UserPreferences {
	var p models.UserPreferences
	p.FeaturesEnabled.Fitness.Enabled = true
	return p
}

var may = timespan.DateRange{StartDate: "2024-05-01", EndDate: "2024-05-31"}

func newTestContainer(adapter Adapter, backend *fakeBackend) (*Container, *settings.Repository) {
	repo := settings.NewRepository(settings.NewMemoryStore(), nil)
	c := NewContainer(adapter, ContainerDeps{
		Preferences: backend,
		Fitness:     backend,
		Queries:     query.NewClient(query.Options{}),
		Counts:      repo,
		Render: func(slug string, p Projection) (template.HTML, error) {
			return template.HTML("<div id=\"" + ChartID(slug) + "\"></div>"), nil
		},
	})
	return c, repo
}

func TestViewHiddenWhenFitnessDisabled(t *testing.T) {
	backend := &fakeBackend{payload: samplePayload()}
	c, _ := newTestContainer(MusclesAdapter{Palette: DefaultPalette}, backend)

	view := c.View(context.Background(), "client", may, query.Active, time.UTC)
	assert.Equal(t, StateHidden, view.State)
	assert.Zero(t, atomic.LoadInt32(&backend.fetches))
}

func TestViewReadyWithDefaultCount(t *testing.T) {
	backend := &fakeBackend{prefs: enabled(), payload: samplePayload()}
	c, _ := newTestContainer(MusclesAdapter{Palette: DefaultPalette}, backend)

	view := c.View(context.Background(), "client", may, query.Active, time.UTC)
	require.Equal(t, StateReady, view.State)
	assert.Equal(t, may, backend.lastRange)
	assert.Equal(t, 3, view.Count, "default 10 clamps to the 3 available items")
	assert.Equal(t, 3, view.MaxCount)
	assert.Equal(t, MinCount, view.MinCount)
	assert.True(t, view.ShowCounter)
	assert.Len(t, view.Projection.Items, 3)
	assert.Contains(t, string(view.HTML), "chart-muscles")
}

func TestViewUsesPersistedCount(t *testing.T) {
	backend := &fakeBackend{prefs: enabled(), payload: samplePayload()}
	c, repo := newTestContainer(MusclesAdapter{Palette: DefaultPalette}, backend)
	require.NoError(t, repo.SetCount(context.Background(), "client", "Muscles worked out", 2))

	view := c.View(context.Background(), "client", may, query.Active, time.UTC)
	assert.Equal(t, 2, view.Count)
	assert.Len(t, view.Projection.Items, 2)
}

func TestViewEmpty(t *testing.T) {
	backend := &fakeBackend{prefs: enabled()}
	c, _ := newTestContainer(ExercisesAdapter{Palette: DefaultPalette}, backend)

	view := c.View(context.Background(), "client", may, query.Active, time.UTC)
	assert.Equal(t, StateEmpty, view.State)
	assert.False(t, view.ShowCounter)
	assert.Empty(t, view.HTML)
}

func TestViewSingleZeroSliceHidesCounter(t *testing.T) {
	backend := &fakeBackend{prefs: enabled(), payload: models.FitnessAnalytics{
		WorkoutMuscles: []models.WorkoutMuscle{{Muscle: "quadriceps", Count: 0}},
	}}
	c, _ := newTestContainer(MusclesAdapter{Palette: DefaultPalette}, backend)

	view := c.View(context.Background(), "client", may, query.Active, time.UTC)
	require.Equal(t, StateReady, view.State)
	assert.False(t, view.ShowCounter)
	require.Len(t, view.Projection.Items, 1)
	assert.Zero(t, view.Projection.Items[0].Value)
}

func TestViewErrorIsExplicit(t *testing.T) {
	backend := &fakeBackend{prefs: enabled(), err: errors.New("backend down")}
	c, _ := newTestContainer(MusclesAdapter{Palette: DefaultPalette}, backend)

	view := c.View(context.Background(), "client", may, query.Active, time.UTC)
	assert.Equal(t, StateError, view.State)
	assert.EqualError(t, view.Err, "backend down")
}

func TestViewPreferencesError(t *testing.T) {
	backend := &fakeBackend{prefsErr: errors.New("unauthorized")}
	c, _ := newTestContainer(MusclesAdapter{Palette: DefaultPalette}, backend)

	view := c.View(context.Background(), "client", may, query.Active, time.UTC)
	assert.Equal(t, StateError, view.State)
}

func TestViewInactiveOnlyPeeks(t *testing.T) {
	backend := &fakeBackend{prefs: enabled(), payload: samplePayload()}
	c, _ := newTestContainer(MusclesAdapter{Palette: DefaultPalette}, backend)

	view := c.View(context.Background(), "client", may, query.Inactive, time.UTC)
	assert.Equal(t, StateIdle, view.State)
	assert.Zero(t, atomic.LoadInt32(&backend.fetches))

	c.View(context.Background(), "client", may, query.Active, time.UTC)
	view = c.View(context.Background(), "client", may, query.Inactive, time.UTC)
	assert.Equal(t, StateReady, view.State)
	assert.EqualValues(t, 1, atomic.LoadInt32(&backend.fetches))
}

func TestViewTimeOfDayUsesViewerZone(t *testing.T) {
	backend := &fakeBackend{prefs: enabled(), payload: samplePayload()}
	c, _ := newTestContainer(TimeOfDayAdapter{}, backend)

	view := c.View(context.Background(), "client", may, query.Active, time.FixedZone("UTC-5", -5*3600))
	require.Equal(t, StateReady, view.State)
	assert.False(t, view.ShowCounter)
	assert.Equal(t, float64(18), view.Projection.Points[0].X)
}

func TestSetCountClampsBeforePersisting(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{prefs: enabled(), payload: samplePayload()}
	c, repo := newTestContainer(MusclesAdapter{Palette: DefaultPalette}, backend)
	c.View(ctx, "client", may, query.Active, time.UTC)

	n, err := c.SetCount(ctx, "client", may, 50)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = c.SetCount(ctx, "client", may, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	stored, err := repo.Count(ctx, "client", "Muscles worked out")
	require.NoError(t, err)
	assert.Equal(t, 2, stored)
}

func TestViewWithUsesGivenPreferences(t *testing.T) {
	backend := &fakeBackend{prefs: enabled(), payload: samplePayload()}
	c, _ := newTestContainer(MusclesAdapter{Palette: DefaultPalette}, backend)

	prefs := query.Result[models.UserPreferences]{Status: query.Ready, Data: enabled()}
	view := c.ViewWith(context.Background(), prefs, "client", may, query.Active, time.UTC)
	assert.Equal(t, StateReady, view.State)
	assert.Zero(t, atomic.LoadInt32(&backend.prefCalls))

	failed := query.Result[models.UserPreferences]{Status: query.Error, Err: errors.New("backend down")}
	view = c.ViewWith(context.Background(), failed, "client", may, query.Active, time.UTC)
	assert.Equal(t, StateError, view.State)
	assert.Zero(t, atomic.LoadInt32(&backend.prefCalls))
}
