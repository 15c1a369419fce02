package stats

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"cropvault-server/internal/modules/warehouse/types"
)

// Document is the spreadsheet export: daily rows keyed YYYY-MM-DD and
// monthly rows keyed YYYY-MM.
type Document struct {
	Daily   []Entry `json:"daily"`
	Monthly []Entry `json:"monthly"`
}

type Entry struct {
	Date  string `json:"date"`
	Temp  Value  `json:"temp"`
	Humid Value  `json:"humid"`
}

func (e Entry) Value(m types.Metric) float64 {
	if m == types.MetricHumid {
		return float64(e.Humid)
	}
	return float64(e.Temp)
}

// Value is a spreadsheet cell. Numbers and numeric strings decode to their
// value; anything else decodes to 0, which means no data.
type Value float64

func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	var f float64
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			*v = 0
			return nil
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			*v = 0
			return nil
		}
		f = parsed
	} else if err := json.Unmarshal(b, &f); err != nil {
		*v = 0
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		f = 0
	}
	*v = Value(f)
	return nil
}

// parseDate reads the leading integers of a dash-separated date such as
// "2026-02-05" or "2026-7". Trailing garbage after the digits of a part is
// ignored, so "2026-02-05T00:00:00Z" yields day 5.
func parseDate(s string) (parts []int, ok bool) {
	for _, p := range strings.SplitN(strings.TrimSpace(s), "-", 3) {
		n, ok := leadingInt(p)
		if !ok {
			return nil, false
		}
		parts = append(parts, n)
	}
	return parts, len(parts) > 0
}

func leadingInt(s string) (int, bool) {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	return n, err == nil
}
