package stats

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"cropvault-server/internal/modules/warehouse/types"
)

// Weekly covers the seven calendar days ending with now's day, oldest first.
// The first row for a day wins.
func Weekly(doc Document, m types.Metric, now time.Time) []float64 {
	out := make([]float64, types.PeriodWeekly.Len())
	for i := range out {
		d := now.AddDate(0, 0, -(6 - i))
		y, mo, day := d.Date()
		for _, e := range doc.Daily {
			p, ok := parseDate(e.Date)
			if ok && len(p) == 3 && p[0] == y && p[1] == int(mo) && p[2] == day {
				out[i] = e.Value(m)
				break
			}
		}
	}
	return out
}

// Monthly places the daily rows of now's month at index day-1.
func Monthly(doc Document, m types.Metric, now time.Time) []float64 {
	out := make([]float64, types.PeriodMonthly.Len())
	y, mo, _ := now.Date()
	for _, e := range doc.Daily {
		p, ok := parseDate(e.Date)
		if !ok || len(p) != 3 || p[0] != y || p[1] != int(mo) {
			continue
		}
		if p[2] >= 1 && p[2] <= len(out) {
			out[p[2]-1] = e.Value(m)
		}
	}
	return out
}

// Yearly places the monthly rows of now's year at index month-1.
func Yearly(doc Document, m types.Metric, now time.Time) []float64 {
	out := make([]float64, types.PeriodYearly.Len())
	y := now.Year()
	for _, e := range doc.Monthly {
		p, ok := parseDate(e.Date)
		if !ok || len(p) < 2 || p[0] != y {
			continue
		}
		if p[1] >= 1 && p[1] <= len(out) {
			out[p[1]-1] = e.Value(m)
		}
	}
	return out
}

// Series buckets doc for the given selection.
func Series(doc Document, sel types.Selection, now time.Time) ([]float64, error) {
	switch sel.Period {
	case types.PeriodWeekly:
		return Weekly(doc, sel.Metric, now), nil
	case types.PeriodMonthly:
		return Monthly(doc, sel.Metric, now), nil
	case types.PeriodYearly:
		return Yearly(doc, sel.Metric, now), nil
	default:
		return nil, fmt.Errorf("unknown period %q", sel.Period)
	}
}

// Summarize ignores zero entries, which mean no data.
func Summarize(series []float64) types.Summary {
	var s types.Summary
	var sum float64
	for _, v := range series {
		if v == 0 || math.IsNaN(v) {
			continue
		}
		if s.Count == 0 || v < s.Min {
			s.Min = v
		}
		if s.Count == 0 || v > s.Max {
			s.Max = v
		}
		sum += v
		s.Count++
	}
	if s.Count > 0 {
		s.HasData = true
		s.Avg = sum / float64(s.Count)
	}
	return s
}

// Boxes is a summary formatted for the stat boxes.
type Boxes struct {
	Avg  string `json:"avg"`
	Max  string `json:"max"`
	Min  string `json:"min"`
	Unit string `json:"unit,omitempty"`
}

const NoData = "--"

func FormatSummary(s types.Summary, m types.Metric) Boxes {
	if !s.HasData {
		return Boxes{Avg: NoData, Max: NoData, Min: NoData}
	}
	return Boxes{
		Avg:  strconv.FormatFloat(s.Avg, 'f', 1, 64),
		Max:  strconv.FormatFloat(s.Max, 'f', 1, 64),
		Min:  strconv.FormatFloat(s.Min, 'f', 1, 64),
		Unit: m.Unit(),
	}
}
