package matcher

import (
	"strconv"

	"cropvault-server/internal/modules/warehouse/types"
)

const (
	BadgeSuitable   = "✓ Suitable"
	BadgeOutOfRange = "✗ Out of Range"
)

// Badge is the suitability marker of one metric.
type Badge struct {
	OK    bool   `json:"ok"`
	Text  string `json:"text"`
	Class string `json:"class"`
}

// CropView is a crop profile prepared for display against the live reading.
type CropView struct {
	Name       string `json:"name"`
	Emoji      string `json:"emoji"`
	Category   string `json:"category"`
	TempRange  string `json:"tempRange"`
	HumidRange string `json:"humidRange"`
	Notes      string `json:"notes"`
	TempBadge  Badge  `json:"tempBadge"`
	HumidBadge Badge  `json:"humidBadge"`
}

func Show(crop types.CropProfile, r types.Reading) CropView {
	return CropView{
		Name:       crop.Name,
		Emoji:      crop.Emoji,
		Category:   crop.Category,
		TempRange:  formatRange(crop.TempMin, crop.TempMax, "°C"),
		HumidRange: formatRange(crop.HumidMin, crop.HumidMax, "%"),
		Notes:      crop.Notes,
		TempBadge:  badge(InRange(r.Temperature, crop.TempMin, crop.TempMax)),
		HumidBadge: badge(InRange(r.Humidity, crop.HumidMin, crop.HumidMax)),
	}
}

// InRange is inclusive on both ends.
func InRange(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}

func badge(ok bool) Badge {
	if ok {
		return Badge{OK: true, Text: BadgeSuitable, Class: "ok"}
	}
	return Badge{Text: BadgeOutOfRange, Class: "bad"}
}

func formatRange(lo, hi float64, unit string) string {
	return strconv.FormatFloat(lo, 'f', -1, 64) + "–" + strconv.FormatFloat(hi, 'f', -1, 64) + unit
}
