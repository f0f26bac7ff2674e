package chart

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/kartoza/ancu-kesehatan/internal/bmi"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Default image size, an 8x2 inch figure at 100 dpi
const (
	DefaultWidth  = 800
	DefaultHeight = 200
)

// Options controls the zone chart
type Options struct {
	Width  int
	Height int
	// AxisName labels the x axis
	AxisName string
	// Labels maps categories to legend entries; missing ones use the category key
	Labels map[bmi.Category]string
}

// ZoneColor parses a zone's hex colour into a go-chart colour
func ZoneColor(z bmi.Zone) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(z.Color, "#"))
}

// XMax returns the right edge of the x axis for a marker value
func XMax(value float64) float64 {
	if value <= bmi.ChartMax-1 || math.IsNaN(value) {
		return bmi.ChartMax
	}
	return math.Ceil(value + 2)
}

// Build assembles the zone chart with a dashed marker at value
func Build(value float64, opts Options) gochart.Chart {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}

	var series []gochart.Series
	for _, z := range bmi.Zones() {
		name := string(z.Category)
		if l, ok := opts.Labels[z.Category]; ok {
			name = l
		}
		c := ZoneColor(z)
		series = append(series, gochart.ContinuousSeries{
			Name:    name,
			XValues: []float64{z.Min, z.Max},
			YValues: []float64{1, 1},
			Style: gochart.Style{
				StrokeColor: c.WithAlpha(128),
				StrokeWidth: 1,
				FillColor:   c.WithAlpha(128),
			},
		})
	}

	if !math.IsNaN(value) && !math.IsInf(value, 0) {
		series = append(series, gochart.ContinuousSeries{
			Name:    fmt.Sprintf("BMI %.1f", value),
			XValues: []float64{value, value},
			YValues: []float64{0, 1},
			Style: gochart.Style{
				StrokeColor:     drawing.ColorBlack,
				StrokeWidth:     2,
				StrokeDashArray: []float64{6, 4},
			},
		})
	}

	ch := gochart.Chart{
		Width:      opts.Width,
		Height:     opts.Height,
		Background: gochart.Style{Padding: gochart.Box{Top: 14, Left: 16, Right: 12, Bottom: 16}},
		XAxis: gochart.XAxis{
			Name:  opts.AxisName,
			Range: &gochart.ContinuousRange{Min: 0, Max: XMax(value)},
		},
		YAxis: gochart.YAxis{
			Style: gochart.Hidden(),
			Range: &gochart.ContinuousRange{Min: 0, Max: 1},
		},
		Series: series,
	}
	ch.Elements = []gochart.Renderable{gochart.LegendThin(&ch)}
	return ch
}

// RenderPNG writes the zone chart for value as a PNG
func RenderPNG(w io.Writer, value float64, opts Options) error {
	ch := Build(value, opts)
	if err := ch.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
