package visualization

import (
	"fmt"
	"io"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Curve is one named series of per-iteration values.
type Curve struct {
	Name   string
	Values []float64
}

// Chart dimensions in pixels.
const (
	ChartWidth  = 800
	ChartHeight = 400
)

// RenderOccupancyPNG plots the fraction of occupied (node, repetition) slots
// after each iteration. Iteration 0 is the founding state.
func RenderOccupancyPNG(w io.Writer, occupied []float64) error {
	return RenderCurvesPNG(w, "occupied fraction", []Curve{{Name: "occupied", Values: occupied}})
}

// RenderCurvesPNG plots one or more per-iteration curves on a shared axis.
func RenderCurvesPNG(w io.Writer, yName string, curves []Curve) error {
	if len(curves) == 0 {
		return fmt.Errorf("render chart: no curves")
	}
	colors := []drawing.Color{
		chart.ColorRed,
		chart.ColorBlue,
		chart.ColorGreen,
		{R: 255, G: 165, B: 0, A: 255},
	}

	series := make([]chart.Series, 0, len(curves))
	xMax := 1.0
	for i, c := range curves {
		if len(c.Values) < 2 {
			return fmt.Errorf("render chart: curve %q needs at least 2 points, got %d", c.Name, len(c.Values))
		}
		xs := make([]float64, len(c.Values))
		for j := range xs {
			xs[j] = float64(j)
		}
		if last := xs[len(xs)-1]; last > xMax {
			xMax = last
		}
		series = append(series, chart.ContinuousSeries{
			Name:    c.Name,
			XValues: xs,
			YValues: c.Values,
			Style: chart.Style{
				StrokeColor: colors[i%len(colors)],
				StrokeWidth: 3.0,
			},
		})
	}

	graph := chart.Chart{
		Width:  ChartWidth,
		Height: ChartHeight,
		XAxis: chart.XAxis{
			Name:  "iteration",
			Style: chart.Style{FontSize: 10.0},
			Range: &chart.ContinuousRange{Min: 0, Max: xMax},
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%d", int(v.(float64)))
			},
		},
		YAxis: chart.YAxis{
			Name:  yName,
			Style: chart.Style{FontSize: 10.0},
			Range: &chart.ContinuousRange{Min: 0, Max: 1},
		},
		Series: series,
	}
	if len(curves) > 1 {
		graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	}

	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
