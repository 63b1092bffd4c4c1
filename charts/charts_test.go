package charts

import (
	"bytes"
	"image/png"
	"testing"
	"time"

	"github.com/fitdash/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePayload() models.FitnessAnalytics {
	return models.FitnessAnalytics{
		WorkoutMuscles: []models.WorkoutMuscle{
			{Muscle: "chest", Count: 9},
			{Muscle: "lower_back", Count: 5},
			{Muscle: "quadriceps", Count: 4},
		},
		WorkoutExercises: []models.WorkoutExercise{
			{Exercise: "bench_press", Count: 7},
			{Exercise: "squat", Count: 3},
		},
		Hours: []models.HourCount{{Hour: 23, Count: 2}, {Hour: 6, Count: 1}},
	}
}

func TestPalettePickIsDeterministic(t *testing.T) {
	a := DefaultPalette.Pick("biceps")
	for i := 0; i < 10; i++ {
		assert.Equal(t, a, DefaultPalette.Pick("biceps"))
	}
	assert.Contains(t, DefaultPalette, a)
	assert.Empty(t, Palette{}.Pick("biceps"))
}

func TestHumanName(t *testing.T) {
	tests := map[string]string{
		"lower_back":   "Lower back",
		"AUDIO_BOOK":   "Audio book",
		"chest":        "Chest",
		"Bench Press":  "Bench press",
		"VISUAL_NOVEL": "Visual novel",
		"":             "",
	}
	for in, want := range tests {
		assert.Equal(t, want, HumanName(in), in)
	}
}

func TestMusclesAdapterTruncates(t *testing.T) {
	p := MusclesAdapter{Palette: DefaultPalette}.Project(samplePayload(), 2)

	assert.Equal(t, 3, p.TotalItems)
	require.Len(t, p.Items, 2)
	assert.Equal(t, "Chest", p.Items[0].Name)
	assert.Equal(t, "Lower back", p.Items[1].Name)
	assert.Equal(t, float64(5), p.Items[1].Value)
	assert.Equal(t, DefaultPalette.Pick("lower_back"), p.Items[1].Color)
	assert.Equal(t, KindPie, p.Kind)
}

func TestMusclesAdapterKeepsZeroCounts(t *testing.T) {
	payload := models.FitnessAnalytics{WorkoutMuscles: []models.WorkoutMuscle{{Muscle: "quadriceps", Count: 0}}}

	p := MusclesAdapter{Palette: DefaultPalette}.Project(payload, 10)
	assert.Equal(t, 1, p.TotalItems)
	require.Len(t, p.Items, 1)
	assert.Equal(t, "Quadriceps", p.Items[0].Name)
	assert.Zero(t, p.Items[0].Value)
}

func TestExercisesAdapter(t *testing.T) {
	a := ExercisesAdapter{Palette: DefaultPalette}
	p := a.Project(samplePayload(), 10)

	assert.Equal(t, "Exercises done", a.Title())
	assert.Equal(t, "Times done", p.SeriesLabel)
	assert.Equal(t, 2, p.TotalItems)
	assert.Equal(t, "Bench press", p.Items[0].Name)
}

func TestTimeOfDayAdapter(t *testing.T) {
	a := TimeOfDayAdapter{}
	assert.False(t, a.CounterEnabled())

	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	p := a.Localize(time.FixedZone("UTC+2", 2*3600), day).Project(samplePayload(), 0)
	assert.Equal(t, 2, p.TotalItems)
	assert.Equal(t, []models.ScatterPoint{{X: 1, Y: 2}, {X: 8, Y: 1}}, p.Points)
}

func TestLocalHourStaysInRange(t *testing.T) {
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	for offset := -23; offset <= 23; offset++ {
		zone := time.FixedZone("fixed", offset*3600)
		back := time.FixedZone("back", -offset*3600)
		for hour := 0; hour < 24; hour++ {
			got := LocalHour(hour, day, zone)
			require.GreaterOrEqual(t, got, 0)
			require.Less(t, got, 24)
			require.Equal(t, ((hour+offset)%24+24)%24, got)
			require.Equal(t, hour, LocalHour(got, day, back), "rotation must be reversible")
		}
	}
	assert.Equal(t, 10, LocalHour(10, day, nil))
}

func TestLocalHourFractionalZones(t *testing.T) {
	winter := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	summer := time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC)

	stJohns, err := time.LoadLocation("America/St_Johns")
	require.NoError(t, err)
	// 10:00 UTC is 06:30 NST (-3:30) and 07:30 NDT (-2:30)
	assert.Equal(t, 6, LocalHour(10, winter, stJohns))
	assert.Equal(t, 7, LocalHour(10, summer, stJohns))

	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	assert.Equal(t, 15, LocalHour(10, winter, kolkata))
	assert.Equal(t, 5, LocalHour(23, winter, kolkata))

	assert.Equal(t, 6, LocalHour(10, winter, time.FixedZone("NST", -(3*3600+30*60))))
}

func TestClampCount(t *testing.T) {
	assert.Equal(t, 2, ClampCount(1, 5))
	assert.Equal(t, 5, ClampCount(10, 5))
	assert.Equal(t, 3, ClampCount(3, 5))
	assert.Equal(t, 1, ClampCount(10, 1))
	assert.Equal(t, 0, ClampCount(10, 0))
	for total := 2; total < 30; total++ {
		for n := -5; n < 40; n++ {
			got := ClampCount(n, total)
			require.True(t, got >= MinCount && got <= total)
		}
	}
}

func TestRenderHTML(t *testing.T) {
	for _, a := range Adapters(DefaultPalette) {
		t.Run(a.Slug(), func(t *testing.T) {
			html, err := RenderHTML(a.Slug(), a.Project(samplePayload(), 10))
			require.NoError(t, err)
			assert.Contains(t, string(html), ChartID(a.Slug()))
		})
	}

	html, err := RenderHTML("muscles", MusclesAdapter{Palette: DefaultPalette}.Project(samplePayload(), 10))
	require.NoError(t, err)
	assert.Contains(t, string(html), "Lower back")

	_, err = RenderHTML("x", Projection{Kind: "radar"})
	assert.Error(t, err)
}

func TestRenderStackedBarHTML(t *testing.T) {
	data := models.ChartData{
		Title: "Activity",
		XAxis: []string{"Jan 1", "Jan 2"},
		Series: []models.Series{
			{Name: "WORKOUT", Label: "Workout", Color: "#7950f2", Values: []float64{1, 0}},
			{Name: "BOOK", Label: "Book", Color: "#82c91e", Values: []float64{0, 2}},
		},
	}
	html, err := RenderStackedBarHTML("chart-activity", data)
	require.NoError(t, err)
	assert.Contains(t, string(html), "chart-activity")
	assert.Contains(t, string(html), "Workout")
	assert.Contains(t, string(html), "stack")
}

func decodePNG(t *testing.T, data []byte) (int, int) {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img.Bounds().Dx(), img.Bounds().Dy()
}

func TestRenderPNG(t *testing.T) {
	size := TileSize{Width: 400, Height: 300}
	for _, a := range Adapters(DefaultPalette) {
		t.Run(a.Slug(), func(t *testing.T) {
			data, err := RenderPNG(a.Project(samplePayload(), 10), size)
			require.NoError(t, err)
			w, h := decodePNG(t, data)
			assert.Equal(t, 400, w)
			assert.Equal(t, 300, h)
		})
	}
}

func TestRenderPNGEdgeCases(t *testing.T) {
	size := TileSize{Width: 320, Height: 200}

	data, err := RenderPNG(Projection{Title: "Muscles worked out", Kind: KindPie}, size)
	require.NoError(t, err)
	decodePNG(t, data)

	zero := MusclesAdapter{Palette: DefaultPalette}.Project(models.FitnessAnalytics{
		WorkoutMuscles: []models.WorkoutMuscle{{Muscle: "quadriceps"}},
	}, 10)
	data, err = RenderPNG(zero, size)
	require.NoError(t, err)
	decodePNG(t, data)
}

func TestRenderStackedBarPNGSkipsEmptyBuckets(t *testing.T) {
	data := models.ChartData{
		Title: "Activity",
		XAxis: []string{"Jan", "Feb"},
		Series: []models.Series{
			{Label: "Workout", Color: "#7950f2", Values: []float64{3, 0}},
		},
	}
	out, err := RenderStackedBarPNG(data, DefaultTile)
	require.NoError(t, err)
	w, _ := decodePNG(t, out)
	assert.Equal(t, DefaultTile.Width, w)

	out, err = RenderStackedBarPNG(models.ChartData{Title: "Activity"}, DefaultTile)
	require.NoError(t, err)
	decodePNG(t, out)
}
