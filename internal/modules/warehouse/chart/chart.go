package chart

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"cropvault-server/internal/modules/warehouse/types"
)

type Format string

const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"

	defaultWidth  = 800
	defaultHeight = 320
)

func (f Format) ContentType() string {
	if f == FormatPNG {
		return "image/png"
	}
	return "image/svg+xml"
}

// SeriesStyle is the legend label and colours of a metric.
type SeriesStyle struct {
	Label           string `json:"label"`
	BorderColor     string `json:"borderColor"`
	BackgroundColor string `json:"backgroundColor"`

	stroke drawing.Color
	fill   drawing.Color
}

var styles = map[types.Metric]SeriesStyle{
	types.MetricTemp: {
		Label:           "Temperature (°C)",
		BorderColor:     "#f85149",
		BackgroundColor: "rgba(248, 81, 73, 0.1)",
		stroke:          drawing.Color{R: 248, G: 81, B: 73, A: 255},
		fill:            drawing.Color{R: 248, G: 81, B: 73, A: 26},
	},
	types.MetricHumid: {
		Label:           "Humidity (%)",
		BorderColor:     "#58a6ff",
		BackgroundColor: "rgba(88, 166, 255, 0.1)",
		stroke:          drawing.Color{R: 88, G: 166, B: 255, A: 255},
		fill:            drawing.Color{R: 88, G: 166, B: 255, A: 26},
	},
}

func Style(m types.Metric) SeriesStyle {
	if s, ok := styles[m]; ok {
		return s
	}
	return styles[types.MetricTemp]
}

var monthNames = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// Labels returns the x-axis labels; weekly labels end with now's weekday.
func Labels(p types.Period, now time.Time) []string {
	switch p {
	case types.PeriodWeekly:
		out := make([]string, 7)
		for i := range out {
			out[i] = now.AddDate(0, 0, -(6 - i)).Weekday().String()[:3]
		}
		return out
	case types.PeriodMonthly:
		out := make([]string, p.Len())
		for i := range out {
			out[i] = strconv.Itoa(i + 1)
		}
		return out
	case types.PeriodYearly:
		out := make([]string, len(monthNames))
		copy(out, monthNames)
		return out
	default:
		return nil
	}
}

// Dataset describes the active chart.
type Dataset struct {
	Period types.Period `json:"period"`
	Metric types.Metric `json:"metric"`
	Labels []string     `json:"labels"`
	Data   []float64    `json:"data"`
	SeriesStyle
}

func Build(sel types.Selection, series []float64, now time.Time) Dataset {
	labels := Labels(sel.Period, now)
	data := make([]float64, len(labels))
	copy(data, series)
	return Dataset{
		Period:      sel.Period,
		Metric:      sel.Metric,
		Labels:      labels,
		Data:        data,
		SeriesStyle: Style(sel.Metric),
	}
}

// Render draws ds as a filled line chart.
func Render(w io.Writer, f Format, ds Dataset) error {
	if len(ds.Labels) < 2 || len(ds.Data) != len(ds.Labels) {
		return fmt.Errorf("render chart: need matching labels and data, got %d/%d", len(ds.Labels), len(ds.Data))
	}

	xs := make([]float64, len(ds.Data))
	ticks := make([]gochart.Tick, len(ds.Labels))
	for i := range xs {
		xs[i] = float64(i)
		ticks[i] = gochart.Tick{Value: float64(i), Label: ds.Labels[i]}
	}

	style := Style(ds.Metric)
	ch := gochart.Chart{
		Width:      defaultWidth,
		Height:     defaultHeight,
		Background: gochart.Style{Padding: gochart.Box{Top: 24, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      gochart.XAxis{Ticks: ticks},
		YAxis:      gochart.YAxis{Name: ds.Metric.Unit(), Range: yRange(ds.Data)},
		Series: []gochart.Series{
			gochart.ContinuousSeries{
				Name:    style.Label,
				XValues: xs,
				YValues: ds.Data,
				Style: gochart.Style{
					StrokeColor: style.stroke,
					StrokeWidth: 2,
					FillColor:   style.fill,
					DotColor:    style.stroke,
					DotWidth:    3,
				},
			},
		},
	}
	ch.Elements = []gochart.Renderable{gochart.Legend(&ch)}

	rp := gochart.SVG
	if f == FormatPNG {
		rp = gochart.PNG
	}
	if err := ch.Render(rp, w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

// yRange always includes zero and is never empty, so an all-zero series
// still renders.
func yRange(data []float64) *gochart.ContinuousRange {
	lo, hi := 0.0, 0.0
	for _, v := range data {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi <= lo {
		hi = lo + 1
	}
	pad := (hi - lo) * 0.1
	if lo < 0 {
		lo -= pad
	}
	return &gochart.ContinuousRange{Min: lo, Max: hi + pad}
}

func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatSVG, FormatPNG:
		return f, nil
	default:
		return "", fmt.Errorf("invalid chart format %q (allowed: svg, png)", s)
	}
}
