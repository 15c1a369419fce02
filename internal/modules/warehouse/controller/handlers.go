package controller

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"cropvault-server/internal/modules/warehouse/chart"
	"cropvault-server/internal/modules/warehouse/service"
	"cropvault-server/internal/modules/warehouse/types"
	"cropvault-server/internal/modules/warehouse/views"
	"cropvault-server/internal/utils"
)

func (c *warehouseControllerImpl) readingsData() views.ReadingsData {
	snap := c.service.Snapshot()
	return views.ReadingsData{
		HasReading:   snap.HasReading,
		Reading:      snap.Reading,
		Status:       snap.Status,
		Silenced:     snap.Thresholds.Silence,
		SilenceLabel: snap.SilenceLabel,
	}
}

func (c *warehouseControllerImpl) thresholdsData() views.ThresholdsData {
	t := c.service.Thresholds()
	return views.ThresholdsData{TempMax: t.TempMax, HumidMax: t.HumidMax}
}

func (c *warehouseControllerImpl) cropData(selected bool) views.CropData {
	return views.CropData{
		Crop:       c.service.Snapshot().Crop,
		QuickPicks: c.service.QuickPicks(),
		Selected:   selected,
	}
}

func statsData(v service.StatsView) views.StatsData {
	return views.NewStatsData(v.Selection, v.Boxes)
}

func (c *warehouseControllerImpl) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	data := &views.DashboardData{
		Readings:   c.readingsData(),
		Thresholds: c.thresholdsData(),
		Crop:       c.cropData(false),
		Stats:      statsData(c.service.StatsView()),
	}
	writeHTML(w, func(out io.Writer) error { return views.RenderDashboard(out, data) })
}

func (c *warehouseControllerImpl) handleReadingsPartial(w http.ResponseWriter, r *http.Request) {
	data := c.readingsData()
	writeHTML(w, func(out io.Writer) error { return views.RenderReadingsPartial(out, &data) })
}

func (c *warehouseControllerImpl) handleThresholdsPartial(w http.ResponseWriter, r *http.Request) {
	data := c.thresholdsData()
	writeHTML(w, func(out io.Writer) error { return views.RenderThresholdsPartial(out, &data) })
}

func (c *warehouseControllerImpl) handleCropPartial(w http.ResponseWriter, r *http.Request) {
	data := c.cropData(false)
	writeHTML(w, func(out io.Writer) error { return views.RenderCropPartial(out, &data) })
}

func (c *warehouseControllerImpl) handleStatsPartial(w http.ResponseWriter, r *http.Request) {
	data := statsData(c.service.StatsView())
	writeHTML(w, func(out io.Writer) error { return views.RenderStatsPartial(out, &data) })
}

func (c *warehouseControllerImpl) handleAutocompletePartial(w http.ResponseWriter, r *http.Request) {
	query, limit, err := parseCropsQuery(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	data := views.AutocompleteData{Query: query, Crops: c.service.SearchCrops(query, limit)}
	writeHTML(w, func(out io.Writer) error { return views.RenderAutocompletePartial(out, &data) })
}

func (c *warehouseControllerImpl) handleCrops(w http.ResponseWriter, r *http.Request) {
	query, limit, err := parseCropsQuery(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	crops := c.service.Crops()
	if query != "" {
		crops = c.service.SearchCrops(query, limit)
	}
	if crops == nil {
		crops = []types.CropProfile{}
	}
	utils.WriteJSON(w, http.StatusOK, crops)
}

func (c *warehouseControllerImpl) handleCrop(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	crop, ok := c.service.FindCrop(name)
	if !ok {
		utils.WriteError(w, http.StatusNotFound, "unknown crop "+name)
		return
	}
	utils.WriteJSON(w, http.StatusOK, crop)
}

func (c *warehouseControllerImpl) handleSelectCrop(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	fields, err := readFields(w, r, "updateThresholds")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	update, err := parseBoolDefault(fields["updateThresholds"], true)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := c.service.ShowCrop(r.Context(), name, update)
	if errors.Is(err, service.ErrUnknownCrop) {
		utils.WriteError(w, http.StatusNotFound, "unknown crop "+name)
		return
	}
	if err != nil {
		slog.Error("select crop failed", "crop", name, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to apply crop thresholds")
		return
	}

	if update {
		w.Header().Set("HX-Trigger", thresholdsChangedEvent)
	}
	if isHTMX(r) {
		data := c.cropData(true)
		writeHTML(w, func(out io.Writer) error { return views.RenderCropPartial(out, &data) })
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"crop":       view,
		"thresholds": c.service.Thresholds(),
	})
}

func (c *warehouseControllerImpl) handleReading(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, c.service.Snapshot())
}

func (c *warehouseControllerImpl) handleGetThresholds(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, c.service.Thresholds())
}

func (c *warehouseControllerImpl) handleSetThresholds(w http.ResponseWriter, r *http.Request) {
	fields, err := readFields(w, r, "tempMax", "humidMax")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	t, err := c.service.SetThresholds(r.Context(), fields["tempMax"], fields["humidMax"])
	if err != nil {
		slog.Error("set thresholds failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to save thresholds")
		return
	}
	w.Header().Set("HX-Trigger", thresholdsChangedEvent)
	if isHTMX(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	utils.WriteJSON(w, http.StatusOK, t)
}

func (c *warehouseControllerImpl) handleToggleSilence(w http.ResponseWriter, r *http.Request) {
	silenced, err := c.service.ToggleSilence(r.Context())
	if err != nil {
		slog.Warn("toggle silence failed", "error", err)
		if !isHTMX(r) {
			utils.WriteError(w, http.StatusBadGateway, "failed to publish silence flag")
			return
		}
	}
	if isHTMX(r) {
		data := c.readingsData()
		writeHTML(w, func(out io.Writer) error { return views.RenderReadingsPartial(out, &data) })
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{"silence": silenced})
}

func (c *warehouseControllerImpl) handleSelection(w http.ResponseWriter, r *http.Request) {
	fields, err := readFields(w, r, "period", "metric")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	sel, err := parseSelection(fields, c.service.Selection())
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	// A failed fetch still answers with the cached view.
	view, err := c.service.Select(r.Context(), sel)
	if err != nil {
		slog.Warn("stats refresh failed, serving cached series", "period", sel.Period, "metric", sel.Metric, "error", err)
	}
	if isHTMX(r) {
		data := statsData(view)
		writeHTML(w, func(out io.Writer) error { return views.RenderStatsPartial(out, &data) })
		return
	}
	utils.WriteJSON(w, http.StatusOK, view)
}

func (c *warehouseControllerImpl) handleStats(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, c.service.StatsView())
}

func (c *warehouseControllerImpl) chartSelection(r *http.Request) (types.Selection, error) {
	q := r.URL.Query()
	return parseSelection(map[string]string{
		"period": q.Get("period"),
		"metric": q.Get("metric"),
	}, c.service.Selection())
}

func (c *warehouseControllerImpl) handleChartData(w http.ResponseWriter, r *http.Request) {
	sel, err := c.chartSelection(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	utils.WriteJSON(w, http.StatusOK, c.service.ChartFor(sel))
}

func (c *warehouseControllerImpl) handleChartImage(format chart.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sel, err := c.chartSelection(r)
		if err != nil {
			utils.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		ds := c.service.ChartFor(sel)
		w.Header().Set("Cache-Control", "no-cache")
		utils.WriteRendered(w, format.ContentType(), "failed to render chart", func(out io.Writer) error {
			return chart.Render(out, format, ds)
		})
	}
}
