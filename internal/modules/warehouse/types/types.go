package types

import (
	"fmt"
	"time"
)

// CropProfile is one entry of the crop catalog.
type CropProfile struct {
	Name     string  `json:"name"`
	Emoji    string  `json:"emoji"`
	Category string  `json:"category"`
	TempMin  float64 `json:"tempMin"`
	TempMax  float64 `json:"tempMax"`
	HumidMin float64 `json:"humidMin"`
	HumidMax float64 `json:"humidMax"`
	Notes    string  `json:"notes"`
}

// Reading is the latest warehouse push.
type Reading struct {
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	ReceivedAt  time.Time `json:"receivedAt"`
}

const (
	DefaultTempMax  = 30.0
	DefaultHumidMax = 70.0
)

// Thresholds are the per-metric alert limits plus the alarm silence flag.
type Thresholds struct {
	TempMax  float64 `json:"tempMax"`
	HumidMax float64 `json:"humidMax"`
	Silence  bool    `json:"silence"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{TempMax: DefaultTempMax, HumidMax: DefaultHumidMax}
}

type Period string

const (
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
)

var Periods = []Period{PeriodWeekly, PeriodMonthly, PeriodYearly}

// Len is the fixed series length for the period.
func (p Period) Len() int {
	switch p {
	case PeriodWeekly:
		return 7
	case PeriodMonthly:
		return 31
	case PeriodYearly:
		return 12
	default:
		return 0
	}
}

func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case PeriodWeekly, PeriodMonthly, PeriodYearly:
		return p, nil
	default:
		return "", fmt.Errorf("invalid period %q (allowed: weekly, monthly, yearly)", s)
	}
}

type Metric string

const (
	MetricTemp  Metric = "temp"
	MetricHumid Metric = "humid"
)

var Metrics = []Metric{MetricTemp, MetricHumid}

func (m Metric) Unit() string {
	if m == MetricTemp {
		return "°C"
	}
	return "%"
}

func ParseMetric(s string) (Metric, error) {
	switch m := Metric(s); m {
	case MetricTemp, MetricHumid:
		return m, nil
	default:
		return "", fmt.Errorf("invalid metric %q (allowed: temp, humid)", s)
	}
}

// Selection is the period/metric combination currently charted.
type Selection struct {
	Period Period `json:"period"`
	Metric Metric `json:"metric"`
}

func DefaultSelection() Selection {
	return Selection{Period: PeriodWeekly, Metric: MetricTemp}
}

// Summary holds min/max/avg over the entries of a series that carry data.
type Summary struct {
	HasData bool    `json:"hasData"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Avg     float64 `json:"avg"`
	Count   int     `json:"count"`
}
