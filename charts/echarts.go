package charts

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/fitdash/models"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const (
	chartWidth  = "100%"
	chartHeight = "300px"
	theme       = "macarons"
)

func initOpts(id string) charts.GlobalOpts {
	return charts.WithInitializationOpts(opts.Initialization{
		Theme:   theme,
		Width:   chartWidth,
		Height:  chartHeight,
		ChartID: id,
	})
}

// ChartID is the DOM id used for a chart so repeated swaps replace it in place
func ChartID(slug string) string {
	return "chart-" + slug
}

// RenderHTML draws a projection with go-echarts and returns the HTML to embed
func RenderHTML(slug string, p Projection) (template.HTML, error) {
	var buf bytes.Buffer
	var err error

	switch p.Kind {
	case KindPie:
		err = generatePieChart(slug, p).Render(&buf)
	case KindBar:
		err = generateBarChart(slug, p).Render(&buf)
	case KindScatter:
		err = generateScatterChart(slug, p).Render(&buf)
	default:
		return "", fmt.Errorf("unknown chart kind %q", p.Kind)
	}
	if err != nil {
		return "", fmt.Errorf("failed to render %s chart: %w", p.Title, err)
	}
	return template.HTML(buf.String()), nil
}

func generatePieChart(slug string, p Projection) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		initOpts(ChartID(slug)),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "item",
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
	)

	items := make([]opts.PieData, 0, len(p.Items))
	for _, item := range p.Items {
		items = append(items, opts.PieData{
			Name:      item.Name,
			Value:     item.Value,
			ItemStyle: &opts.ItemStyle{Color: item.Color},
		})
	}

	pie.AddSeries(p.Title, items).
		SetSeriesOptions(
			charts.WithPieChartOpts(opts.PieChart{Radius: "70%"}),
			charts.WithLabelOpts(opts.Label{
				Show:      opts.Bool(true),
				Formatter: "{d}%",
			}),
		)
	return pie
}

func generateBarChart(slug string, p Projection) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		initOpts(ChartID(slug)),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
			AxisPointer: &opts.AxisPointer{
				Type: "shadow",
			},
		}),
		charts.WithXAxisOpts(opts.XAxis{
			AxisLabel: &opts.AxisLabel{
				Rotate: 30,
			},
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
	)

	names := make([]string, 0, len(p.Items))
	items := make([]opts.BarData, 0, len(p.Items))
	for _, item := range p.Items {
		names = append(names, item.Name)
		items = append(items, opts.BarData{
			Value:     item.Value,
			ItemStyle: &opts.ItemStyle{Color: item.Color},
		})
	}

	bar.SetXAxis(names)
	bar.AddSeries(p.SeriesLabel, items)
	return bar
}

func generateScatterChart(slug string, p Projection) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		initOpts(ChartID(slug)),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:      opts.Bool(true),
			Trigger:   "item",
			Formatter: "{c}",
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Type: "value",
			Name: "Hour",
			Min:  0,
			Max:  23,
			AxisLabel: &opts.AxisLabel{
				Formatter: "{value}h",
			},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Type: "value",
			Name: "Count",
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
	)

	points := make([]opts.ScatterData, 0, len(p.Points))
	for _, pt := range p.Points {
		points = append(points, opts.ScatterData{
			Value:      []float64{pt.X, pt.Y},
			SymbolSize: 12,
		})
	}

	scatter.AddSeries("Workouts", points,
		charts.WithItemStyleOpts(opts.ItemStyle{Color: "#339af0"}),
	)
	return scatter
}

// RenderStackedBarHTML draws one stacked bar series per data series, the same
// way heart rate zones are stacked per day.
func RenderStackedBarHTML(id string, data models.ChartData) (template.HTML, error) {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		initOpts(id),
		charts.WithLegendOpts(opts.Legend{
			Bottom:     "bottom",
			Padding:    8,
			ItemHeight: 20,
			Show:       opts.Bool(true),
		}),
		charts.WithGridOpts(opts.Grid{
			Bottom: "20%", // Reserves space at bottom for legend
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Trigger: "axis",
			AxisPointer: &opts.AxisPointer{
				Type: "shadow",
			},
			BackgroundColor: "rgba(255, 255, 255, 0.9)",
			BorderColor:     "#ccc",
		}),
	)

	bar.SetXAxis(data.XAxis)

	for _, series := range data.Series {
		values := make([]opts.BarData, len(series.Values))
		for i, v := range series.Values {
			values[i] = opts.BarData{Value: v}
		}
		bar.AddSeries(series.Label, values,
			charts.WithBarChartOpts(opts.BarChart{Stack: "total"}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: series.Color}),
		)
	}

	var buf bytes.Buffer
	if err := bar.Render(&buf); err != nil {
		return "", fmt.Errorf("failed to render %s chart: %w", data.Title, err)
	}
	return template.HTML(buf.String()), nil
}
