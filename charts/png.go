package charts

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"

	"github.com/fitdash/models"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// TileSize is the pixel size of one exported chart
type TileSize struct {
	Width  int
	Height int
}

var DefaultTile = TileSize{Width: 640, Height: 380}

func hexColor(hex string) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(hex, "#"))
}

// pointStyle renders points only (no connecting line)
func pointStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    5,
		DotColor:    col,
	}
}

func maxValue(items []models.ChartItem) float64 {
	m := 0.0
	for _, item := range items {
		if item.Value > m {
			m = item.Value
		}
	}
	return m
}

// RenderPNG draws a projection with go-chart. Projections with nothing to draw
// become a message tile.
func RenderPNG(p Projection, size TileSize) ([]byte, error) {
	if p.TotalItems == 0 {
		return MessagePNG(p.Title, "No data found", size)
	}

	var buf bytes.Buffer
	var err error

	switch p.Kind {
	case KindPie:
		if maxValue(p.Items) == 0 {
			return MessagePNG(p.Title, "All values are zero", size)
		}
		values := make([]chart.Value, 0, len(p.Items))
		for _, item := range p.Items {
			values = append(values, chart.Value{
				Label: item.Name,
				Value: item.Value,
				Style: chart.Style{FillColor: hexColor(item.Color)},
			})
		}
		pie := chart.PieChart{
			Title:  p.Title,
			Width:  size.Width,
			Height: size.Height,
			Values: values,
		}
		err = pie.Render(chart.PNG, &buf)

	case KindBar:
		bars := make([]chart.Value, 0, len(p.Items))
		for _, item := range p.Items {
			bars = append(bars, chart.Value{
				Label: item.Name,
				Value: item.Value,
				Style: chart.Style{FillColor: hexColor(item.Color), StrokeColor: hexColor(item.Color)},
			})
		}
		bar := chart.BarChart{
			Title:      p.Title,
			Width:      size.Width,
			Height:     size.Height,
			BarWidth:   max(8, size.Width/(2*len(bars)+2)),
			Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
			YAxis:      chart.YAxis{Range: &chart.ContinuousRange{Min: 0, Max: max(1, maxValue(p.Items))}},
			Bars:       bars,
		}
		err = bar.Render(chart.PNG, &buf)

	case KindScatter:
		xs := make([]float64, 0, len(p.Points))
		ys := make([]float64, 0, len(p.Points))
		maxY := 1.0
		for _, pt := range p.Points {
			xs = append(xs, pt.X)
			ys = append(ys, pt.Y)
			maxY = max(maxY, pt.Y)
		}
		ch := chart.Chart{
			Title:      p.Title,
			Width:      size.Width,
			Height:     size.Height,
			Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
			XAxis:      chart.XAxis{Name: "Hour", Range: &chart.ContinuousRange{Min: 0, Max: 23}},
			YAxis:      chart.YAxis{Name: "Count", Range: &chart.ContinuousRange{Min: 0, Max: maxY}},
			Series: []chart.Series{
				chart.ContinuousSeries{
					Name:    "Workouts",
					XValues: xs,
					YValues: ys,
					Style:   pointStyle(hexColor("#339af0")),
				},
			},
		}
		err = ch.Render(chart.PNG, &buf)

	default:
		return nil, fmt.Errorf("unknown chart kind %q", p.Kind)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to render %s image: %w", p.Title, err)
	}
	return buf.Bytes(), nil
}

// RenderStackedBarPNG draws each bucket of data as one stacked bar. Buckets
// with no values are skipped.
func RenderStackedBarPNG(data models.ChartData, size TileSize) ([]byte, error) {
	bars := make([]chart.StackedBar, 0, len(data.XAxis))
	for i, label := range data.XAxis {
		values := make([]chart.Value, 0, len(data.Series))
		for _, series := range data.Series {
			if i >= len(series.Values) || series.Values[i] == 0 {
				continue
			}
			values = append(values, chart.Value{
				Label: series.Label,
				Value: series.Values[i],
				Style: chart.Style{FillColor: hexColor(series.Color), StrokeColor: hexColor(series.Color)},
			})
		}
		if len(values) == 0 {
			continue
		}
		bars = append(bars, chart.StackedBar{Name: label, Values: values})
	}
	if len(bars) == 0 {
		return MessagePNG(data.Title, "No activity found in the selected period", size)
	}

	sbc := chart.StackedBarChart{
		Title:      data.Title,
		Width:      size.Width,
		Height:     size.Height,
		BarSpacing: 4,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		Bars:       bars,
	}

	var buf bytes.Buffer
	if err := sbc.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render %s image: %w", data.Title, err)
	}
	return buf.Bytes(), nil
}

// MessagePNG draws a titled tile carrying a single message
func MessagePNG(title, message string, size TileSize) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	textCol := image.NewUniform(color.RGBA{R: 33, G: 37, B: 41, A: 255})
	dr := &font.Drawer{Dst: img, Src: textCol, Face: face}

	tw := dr.MeasureString(title).Ceil()
	dr.Dot = fixed.Point26_6{X: fixed.I((size.Width - tw) / 2), Y: fixed.I(24)}
	dr.DrawString(title)

	mw := dr.MeasureString(message).Ceil()
	dr.Dot = fixed.Point26_6{X: fixed.I((size.Width - mw) / 2), Y: fixed.I(size.Height / 2)}
	dr.DrawString(message)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode message image: %w", err)
	}
	return buf.Bytes(), nil
}
