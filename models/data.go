package models

// ChartData is a category axis with one value slice per named series
type ChartData struct {
	Title    string
	Subtitle string
	XAxis    []string
	Series   []Series
}

type Series struct {
	Name   string
	Label  string
	Color  string
	Values []float64
}

// ChartItem is a ranked, named value such as a pie slice or a bar
type ChartItem struct {
	Name  string
	Value float64
	Color string
}

// ScatterPoint is a single x/y observation
type ScatterPoint struct {
	X float64
	Y float64
}
