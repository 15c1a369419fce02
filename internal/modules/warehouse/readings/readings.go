package readings

import (
	"strconv"

	"cropvault-server/internal/modules/warehouse/types"
)

const (
	StatusExceeded = "● Exceeded"
	StatusNormal   = "● Normal"

	SeverityDanger  = "danger"
	SeverityWarning = "warning"

	AlertText = "Alert: Thresholds Exceeded"
)

// Status is the display state derived from one reading.
type Status struct {
	Temperature    string `json:"temperature"`
	Humidity       string `json:"humidity"`
	TempExceeded   bool   `json:"tempExceeded"`
	HumidExceeded  bool   `json:"humidExceeded"`
	TempStatus     string `json:"tempStatus"`
	HumidStatus    string `json:"humidStatus"`
	TempCardClass  string `json:"tempCardClass"`
	HumidCardClass string `json:"humidCardClass"`
	Alert          bool   `json:"alert"`
	AlertText      string `json:"alertText,omitempty"`
	// Severity is empty when there is no alert.
	Severity string `json:"severity,omitempty"`
}

// Evaluate compares each value against its own threshold. Equal is not exceeded.
func Evaluate(r types.Reading, t types.Thresholds) Status {
	tOver := r.Temperature > t.TempMax
	hOver := r.Humidity > t.HumidMax

	s := Status{
		Temperature:    FormatValue(r.Temperature),
		Humidity:       FormatValue(r.Humidity),
		TempExceeded:   tOver,
		HumidExceeded:  hOver,
		TempStatus:     statusText(tOver),
		HumidStatus:    statusText(hOver),
		TempCardClass:  cardClass(tOver, "danger"),
		HumidCardClass: cardClass(hOver, "warn"),
		Alert:          tOver || hOver,
	}
	if s.Alert {
		s.AlertText = AlertText
		s.Severity = SeverityWarning
		if tOver {
			s.Severity = SeverityDanger
		}
	}
	return s
}

// FormatValue renders a reading with one decimal.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func statusText(over bool) string {
	if over {
		return StatusExceeded
	}
	return StatusNormal
}

func cardClass(over bool, modifier string) string {
	if over {
		return "reading-card " + modifier
	}
	return "reading-card"
}
