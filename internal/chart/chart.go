// Package chart renders the monthly temperature series as a PNG line chart.
package chart

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/couchcryptid/era5-temperature-etl/internal/domain"
)

// ErrNoData is returned when there is no point to draw.
var ErrNoData = errors.New("chart: series has no points")

const (
	width  = 12 * vg.Inch
	height = 5 * vg.Inch
)

var namedColors = map[string]color.RGBA{
	"blue":  {R: 0, G: 0, B: 255, A: 255},
	"red":   {R: 255, G: 0, B: 0, A: 255},
	"green": {R: 0, G: 128, B: 0, A: 255},
	"black": {R: 0, G: 0, B: 0, A: 255},
}

// RenderPNG draws series as a single line with point markers. Months absent
// from the series break the line so gaps stay visible.
func RenderPNG(w io.Writer, series []domain.SeriesPoint, opts domain.ChartOptions) error {
	if len(series) == 0 {
		return ErrNoData
	}
	c, err := parseColor(opts.Color)
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = opts.Title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = opts.XAxisTitle
	p.Y.Label.Text = opts.YAxisTitle
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}
	p.Add(plotter.NewGrid())

	for i, seg := range Segments(series) {
		line, points, err := plotter.NewLinePoints(seg)
		if err != nil {
			return fmt.Errorf("build line: %w", err)
		}
		line.Color = c
		line.Width = vg.Points(opts.LineWidth)
		points.Shape = draw.CircleGlyph{}
		points.Color = c
		points.Radius = vg.Points(opts.PointSize)
		p.Add(line, points)
		if i == 0 && opts.SeriesLabel != "" {
			p.Legend.Add(opts.SeriesLabel, line, points)
		}
	}
	p.Legend.Top = true

	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("create png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

// Segments splits a chronological series into runs of consecutive months.
// X values are Unix seconds.
func Segments(series []domain.SeriesPoint) []plotter.XYs {
	var (
		out     []plotter.XYs
		current plotter.XYs
	)
	for i, pt := range series {
		if i > 0 && !pt.Date.Equal(series[i-1].Date.AddDate(0, 1, 0)) {
			out = append(out, current)
			current = nil
		}
		current = append(current, plotter.XY{X: float64(pt.Date.Unix()), Y: pt.Temperature})
	}
	if len(current) > 0 {
		out = append(out, current)
	}
	return out
}

func parseColor(s string) (color.RGBA, error) {
	s = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "#"))
	if s == "" {
		return namedColors["blue"], nil
	}
	if c, ok := namedColors[s]; ok {
		return c, nil
	}
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("chart: invalid color %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("chart: invalid color %q", s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}
