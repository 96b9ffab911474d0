package viz

import (
	"github.com/guptarohit/asciigraph"
)

var seriesColors = []asciigraph.AnsiColor{
	asciigraph.Cyan,
	asciigraph.Magenta,
	asciigraph.Yellow,
	asciigraph.Green,
	asciigraph.Red,
	asciigraph.Blue,
}

type PlotOptions struct {
	Width   int
	Height  int
	Caption string
}

func (o PlotOptions) options() []asciigraph.Option {
	opts := []asciigraph.Option{asciigraph.Precision(3)}
	if o.Width > 0 {
		opts = append(opts, asciigraph.Width(o.Width))
	}
	if o.Height > 0 {
		opts = append(opts, asciigraph.Height(o.Height))
	}
	if o.Caption != "" {
		opts = append(opts, asciigraph.Caption(o.Caption))
	}
	return opts
}

// Plot draws one series. Empty input yields an empty string.
func Plot(data []float64, o PlotOptions) string {
	if len(data) == 0 {
		return ""
	}
	return asciigraph.Plot(data, o.options()...)
}

// PlotMany overlays several series, each in its own color.
func PlotMany(data [][]float64, o PlotOptions) string {
	series := make([][]float64, 0, len(data))
	for _, d := range data {
		if len(d) > 0 {
			series = append(series, d)
		}
	}
	if len(series) == 0 {
		return ""
	}
	colors := make([]asciigraph.AnsiColor, len(series))
	for i := range colors {
		colors[i] = seriesColors[i%len(seriesColors)]
	}
	return asciigraph.PlotMany(series, append(o.options(), asciigraph.SeriesColors(colors...))...)
}

// Downsample keeps at most n evenly spaced points of data.
func Downsample(data []float64, n int) []float64 {
	if n <= 0 || len(data) <= n {
		return data
	}
	if n == 1 {
		return data[:1]
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = data[i*(len(data)-1)/(n-1)]
	}
	return out
}
