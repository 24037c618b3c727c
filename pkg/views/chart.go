package views

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNoBars is returned when there is nothing to plot.
var ErrNoBars = errors.New("no bars to render")

const (
	chartWidth  = 900
	chartHeight = 420
	gaugeSize   = 420
)

// RenderBarPNG draws bars, in the given order, as a PNG bar chart.
func RenderBarPNG(w io.Writer, title string, bars []Bar) error {
	if len(bars) == 0 {
		return ErrNoBars
	}

	values := make([]chart.Value, 0, len(bars))
	lo, hi := 0.0, 0.0
	for _, b := range bars {
		col := hexColor(b.Color)
		values = append(values, chart.Value{
			Label: b.Label,
			Value: b.Value,
			Style: chart.Style{FillColor: col, StrokeColor: col, StrokeWidth: 1},
		})
		lo = math.Min(lo, b.Value)
		hi = math.Max(hi, b.Value)
	}
	// zero-height ranges make go-chart divide by zero
	if hi == lo {
		hi = lo + 1
	}

	graph := chart.BarChart{
		Title:      title,
		Width:      chartWidth,
		Height:     chartHeight,
		BarWidth:   barWidth(len(bars)),
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		YAxis: chart.YAxis{
			Range:          &chart.ContinuousRange{Min: lo, Max: hi * 1.1},
			ValueFormatter: axisFormatter,
		},
		Bars: values,
	}
	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render bar chart: %w", err)
	}
	return nil
}

// RenderGaugePNG draws the gauge as a ring: the filled share up to the needle in
// the accent colour, the rest of the scale in its band colours.
func RenderGaugePNG(w io.Writer, g SalaryGauge) error {
	needle := g.Min + (g.Max-g.Min)*g.Percent/100

	values := make([]chart.Value, 0, len(g.Steps)+1)
	if needle > g.Min {
		values = append(values, sliceValue(needle-g.Min, FormatUSD(g.Value), ColorAccent))
	}
	for _, s := range g.Steps {
		if rest := s.To - math.Max(s.From, needle); rest > 0 {
			values = append(values, sliceValue(rest, "", s.Color))
		}
	}

	graph := chart.PieChart{
		Title:  g.Title,
		Width:  gaugeSize,
		Height: gaugeSize,
		Values: values,
	}
	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render gauge: %w", err)
	}
	return nil
}

func sliceValue(v float64, label, color string) chart.Value {
	col := hexColor(color)
	return chart.Value{
		Label: label,
		Value: v,
		Style: chart.Style{FillColor: col, StrokeColor: drawing.ColorWhite, StrokeWidth: 1, FontColor: drawing.ColorWhite},
	}
}

func barWidth(n int) int {
	w := (chartWidth - 120) / (n * 2)
	if w > 120 {
		return 120
	}
	if w < 10 {
		return 10
	}
	return w
}

func axisFormatter(v interface{}) string {
	f, ok := v.(float64)
	if !ok {
		return fmt.Sprint(v)
	}
	if math.Abs(f) >= 1000 {
		return FormatCount(int(math.Round(f)))
	}
	return fmt.Sprintf("%.2f", f)
}

func hexColor(hex string) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(hex, "#"))
}
