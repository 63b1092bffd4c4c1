package charts

import (
	"time"

	"github.com/fitdash/models"
)

// Kind is the chart type an adapter draws
type Kind string

const (
	KindPie     Kind = "pie"
	KindBar     Kind = "bar"
	KindScatter Kind = "scatter"
)

// Projection is an adapter's view of one payload
type Projection struct {
	Title       string
	Kind        Kind
	SeriesLabel string
	TotalItems  int
	Items       []models.ChartItem
	Points      []models.ScatterPoint
}

// Adapter projects fitness analytics into chart data
type Adapter interface {
	Title() string
	Slug() string
	Kind() Kind
	CounterEnabled() bool
	// Project returns the first count ranked items (count is ignored when the
	// counter is disabled) and the number of items available.
	Project(p models.FitnessAnalytics, count int) Projection
}

// ranked truncates a ranked list, naming and coloring each item
func ranked(names []string, values []int, count int, palette Palette) []models.ChartItem {
	n := min(max(count, 0), len(names))
	items := make([]models.ChartItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, models.ChartItem{
			Name:  HumanName(names[i]),
			Value: float64(values[i]),
			Color: palette.Pick(names[i]),
		})
	}
	return items
}

// MusclesAdapter draws the muscles worked out as a pie
type MusclesAdapter struct {
	Palette Palette
}

func (MusclesAdapter) Title() string        { return "Muscles worked out" }
func (MusclesAdapter) Slug() string         { return "muscles" }
func (MusclesAdapter) Kind() Kind           { return KindPie }
func (MusclesAdapter) CounterEnabled() bool { return true }

func (a MusclesAdapter) Project(p models.FitnessAnalytics, count int) Projection {
	names := make([]string, len(p.WorkoutMuscles))
	values := make([]int, len(p.WorkoutMuscles))
	for i, m := range p.WorkoutMuscles {
		names[i], values[i] = m.Muscle, m.Count
	}
	return Projection{
		Title:      a.Title(),
		Kind:       a.Kind(),
		TotalItems: len(p.WorkoutMuscles),
		Items:      ranked(names, values, count, a.Palette),
	}
}

// ExercisesAdapter draws the exercises done as bars
type ExercisesAdapter struct {
	Palette Palette
}

func (ExercisesAdapter) Title() string        { return "Exercises done" }
func (ExercisesAdapter) Slug() string         { return "exercises" }
func (ExercisesAdapter) Kind() Kind           { return KindBar }
func (ExercisesAdapter) CounterEnabled() bool { return true }

func (a ExercisesAdapter) Project(p models.FitnessAnalytics, count int) Projection {
	names := make([]string, len(p.WorkoutExercises))
	values := make([]int, len(p.WorkoutExercises))
	for i, e := range p.WorkoutExercises {
		names[i], values[i] = e.Exercise, e.Count
	}
	return Projection{
		Title:       a.Title(),
		Kind:        a.Kind(),
		SeriesLabel: "Times done",
		TotalItems:  len(p.WorkoutExercises),
		Items:       ranked(names, values, count, a.Palette),
	}
}

// TimeOfDayAdapter scatters workout counts by the viewer's local hour
type TimeOfDayAdapter struct {
	// Location is the viewer's zone; nil keeps UTC hours
	Location *time.Location
	// Day picks the zone offset in effect, so daylight saving applies
	Day time.Time
}

func (TimeOfDayAdapter) Title() string        { return "Time of day" }
func (TimeOfDayAdapter) Slug() string         { return "time-of-day" }
func (TimeOfDayAdapter) Kind() Kind           { return KindScatter }
func (TimeOfDayAdapter) CounterEnabled() bool { return false }

func (a TimeOfDayAdapter) Project(p models.FitnessAnalytics, _ int) Projection {
	points := make([]models.ScatterPoint, 0, len(p.Hours))
	for _, h := range p.Hours {
		points = append(points, models.ScatterPoint{
			X: float64(LocalHour(h.Hour, a.Day, a.Location)),
			Y: float64(h.Count),
		})
	}
	return Projection{
		Title:      a.Title(),
		Kind:       a.Kind(),
		TotalItems: len(points),
		Points:     points,
	}
}

// Localize returns a copy that reports hours in loc as of day
func (a TimeOfDayAdapter) Localize(loc *time.Location, day time.Time) Adapter {
	a.Location = loc
	a.Day = day
	return a
}

// Localizer is implemented by adapters whose projection depends on the
// viewer's time zone
type Localizer interface {
	Localize(loc *time.Location, day time.Time) Adapter
}

// LocalHour is the wall clock hour in loc when it is utcHour:00 UTC on day.
// Fractional offsets round down to the hour the instant falls in.
func LocalHour(utcHour int, day time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := day.UTC().Date()
	return time.Date(y, m, d, utcHour, 0, 0, 0, time.UTC).In(loc).Hour()
}

// Adapters returns the fitness charts in page order
func Adapters(palette Palette) []Adapter {
	return []Adapter{
		MusclesAdapter{Palette: palette},
		ExercisesAdapter{Palette: palette},
		TimeOfDayAdapter{},
	}
}
