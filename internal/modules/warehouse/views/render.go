package views

import (
	"errors"
	"html/template"
	"io"
	"io/fs"
	"net/url"

	"cropvault-server/internal/modules/warehouse/matcher"
	"cropvault-server/internal/modules/warehouse/readings"
	"cropvault-server/internal/modules/warehouse/stats"
	"cropvault-server/internal/modules/warehouse/types"
)

var dashboardTmpl *template.Template

var funcs = template.FuncMap{
	"pathEscape": url.PathEscape,
}

// loadTemplatesFromFS loads dashboard templates from the given fs and dir.
// Used by LoadTemplates and by tests to simulate failure scenarios.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	dashboardTmpl, err = template.New("views").Funcs(funcs).ParseFS(sub, "*.html", "partials/*.html")
	if err != nil {
		return err
	}
	return nil
}

// LoadTemplates loads embedded dashboard templates. Call during startup before
// serving requests; if it returns an error, do not start the server.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

// ReadingsData is the view model for the live readings panel.
type ReadingsData struct {
	HasReading   bool
	Reading      types.Reading
	Status       readings.Status
	Silenced     bool
	SilenceLabel string
}

// ThresholdsData is the view model for the threshold inputs.
type ThresholdsData struct {
	TempMax  float64
	HumidMax float64
}

// CropData is the view model for the crop panel. Selected marks a response
// to a selection, which also resets the search box out of band.
type CropData struct {
	Crop       *matcher.CropView
	QuickPicks []types.CropProfile
	Selected   bool
}

// Tab is one period or metric switch.
type Tab struct {
	Value  string
	Label  string
	Active bool
}

type StatsData struct {
	Period  types.Period
	Metric  types.Metric
	Periods []Tab
	Metrics []Tab
	Boxes   stats.Boxes
}

type AutocompleteData struct {
	Query string
	Crops []types.CropProfile
}

type DashboardData struct {
	Readings   ReadingsData
	Thresholds ThresholdsData
	Crop       CropData
	Stats      StatsData
}

var (
	periodLabels = map[types.Period]string{
		types.PeriodWeekly:  "Weekly",
		types.PeriodMonthly: "Monthly",
		types.PeriodYearly:  "Yearly",
	}
	metricLabels = map[types.Metric]string{
		types.MetricTemp:  "Temperature",
		types.MetricHumid: "Humidity",
	}
)

// NewStatsData builds the tab bar for sel.
func NewStatsData(sel types.Selection, boxes stats.Boxes) StatsData {
	d := StatsData{Period: sel.Period, Metric: sel.Metric, Boxes: boxes}
	for _, p := range types.Periods {
		d.Periods = append(d.Periods, Tab{Value: string(p), Label: periodLabels[p], Active: p == sel.Period})
	}
	for _, m := range types.Metrics {
		d.Metrics = append(d.Metrics, Tab{Value: string(m), Label: metricLabels[m], Active: m == sel.Metric})
	}
	return d
}

func render(w io.Writer, name string, data any) error {
	if dashboardTmpl == nil {
		return errors.New("dashboard template not loaded: call views.LoadTemplates during startup")
	}
	return dashboardTmpl.ExecuteTemplate(w, name, data)
}

func RenderDashboard(w io.Writer, data *DashboardData) error {
	return render(w, "dashboard.html", data)
}

// RenderReadingsPartial executes only the readings partial into w.
// Use for HTMX fragment refresh after a live push.
func RenderReadingsPartial(w io.Writer, data *ReadingsData) error {
	return render(w, "partials/readings.html", data)
}

func RenderThresholdsPartial(w io.Writer, data *ThresholdsData) error {
	return render(w, "partials/thresholds.html", data)
}

func RenderCropPartial(w io.Writer, data *CropData) error {
	return render(w, "partials/crop.html", data)
}

func RenderStatsPartial(w io.Writer, data *StatsData) error {
	return render(w, "partials/stats.html", data)
}

func RenderAutocompletePartial(w io.Writer, data *AutocompleteData) error {
	return render(w, "partials/autocomplete.html", data)
}
