package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"cropvault-server/internal/modules/warehouse/catalog"
	"cropvault-server/internal/modules/warehouse/types"
	"cropvault-server/internal/utils"
)

const (
	maxCropsLimit = 100
	maxBodyBytes  = 1 << 16

	// thresholdsChangedEvent makes HTMX refresh panels that depend on thresholds.
	thresholdsChangedEvent = "thresholds-changed"
)

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

func isJSON(r *http.Request) bool {
	ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && ct == "application/json"
}

func writeHTML(w http.ResponseWriter, render func(io.Writer) error) {
	utils.WriteRendered(w, "text/html; charset=utf-8", "failed to render", render)
}

// parseCropsQuery returns the search query and limit (default 8, max 100).
func parseCropsQuery(r *http.Request) (query string, limit int, err error) {
	q := r.URL.Query()
	query = strings.TrimSpace(q.Get("q"))
	limit = catalog.DefaultSearchLimit
	if s := q.Get("limit"); s != "" {
		n, convErr := strconv.Atoi(s)
		if convErr != nil {
			return "", 0, errors.New("invalid 'limit' (expected integer)")
		}
		if n <= 0 {
			return "", 0, errors.New("'limit' must be > 0")
		}
		if n > maxCropsLimit {
			return "", 0, fmt.Errorf("'limit' must be <= %d", maxCropsLimit)
		}
		limit = n
	}
	return query, limit, nil
}

// readFields reads the named fields from a JSON object body or a form.
// JSON numbers and booleans are formatted back to text so both paths parse
// the same way.
func readFields(w http.ResponseWriter, r *http.Request, names ...string) (map[string]string, error) {
	out := make(map[string]string, len(names))
	if isJSON(r) {
		var body map[string]any
		dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
		if err := dec.Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("invalid JSON body: %w", err)
		}
		for _, n := range names {
			switch v := body[n].(type) {
			case nil:
			case string:
				out[n] = v
			case float64:
				out[n] = strconv.FormatFloat(v, 'f', -1, 64)
			case bool:
				out[n] = strconv.FormatBool(v)
			default:
				return nil, fmt.Errorf("invalid %q (expected number, boolean or string)", n)
			}
		}
		return out, nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("invalid form: %w", err)
	}
	for _, n := range names {
		if r.Form.Has(n) {
			out[n] = r.Form.Get(n)
		}
	}
	return out, nil
}

// parseSelection overlays the period and metric fields on cur. Missing fields
// keep the current value.
func parseSelection(fields map[string]string, cur types.Selection) (types.Selection, error) {
	sel := cur
	if s, ok := fields["period"]; ok && s != "" {
		p, err := types.ParsePeriod(s)
		if err != nil {
			return cur, err
		}
		sel.Period = p
	}
	if s, ok := fields["metric"]; ok && s != "" {
		m, err := types.ParseMetric(s)
		if err != nil {
			return cur, err
		}
		sel.Metric = m
	}
	return sel, nil
}

// parseBoolDefault parses s, returning def for an empty value.
func parseBoolDefault(s string, def bool) (bool, error) {
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return def, fmt.Errorf("invalid boolean %q", s)
	}
	return v, nil
}
