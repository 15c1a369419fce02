package controller

import (
	"context"
	"net/http"

	"cropvault-server/internal/modules/warehouse/chart"
	"cropvault-server/internal/modules/warehouse/matcher"
	"cropvault-server/internal/modules/warehouse/service"
	"cropvault-server/internal/modules/warehouse/types"
)

// WarehouseService is the part of service.Service the handlers use.
type WarehouseService interface {
	Snapshot() service.Snapshot
	Thresholds() types.Thresholds
	SetThresholds(ctx context.Context, tempRaw, humidRaw string) (types.Thresholds, error)
	ToggleSilence(ctx context.Context) (bool, error)
	ShowCrop(ctx context.Context, name string, updateThresholds bool) (matcher.CropView, error)
	Select(ctx context.Context, sel types.Selection) (service.StatsView, error)
	Selection() types.Selection
	StatsView() service.StatsView
	ChartFor(sel types.Selection) chart.Dataset
	Crops() []types.CropProfile
	SearchCrops(query string, limit int) []types.CropProfile
	QuickPicks() []types.CropProfile
	FindCrop(name string) (types.CropProfile, bool)
}

type WarehouseController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type warehouseControllerImpl struct {
	service WarehouseService
	live    http.Handler
}

func NewWarehouseController(service WarehouseService, live http.Handler) WarehouseController {
	return &warehouseControllerImpl{service: service, live: live}
}

func (c *warehouseControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /", c.handleDashboard)

	mux.HandleFunc("GET /partials/readings", c.handleReadingsPartial)
	mux.HandleFunc("GET /partials/thresholds", c.handleThresholdsPartial)
	mux.HandleFunc("GET /partials/crop", c.handleCropPartial)
	mux.HandleFunc("GET /partials/stats", c.handleStatsPartial)
	mux.HandleFunc("GET /partials/autocomplete", c.handleAutocompletePartial)

	mux.HandleFunc("GET /api/v1/crops", c.handleCrops)
	mux.HandleFunc("GET /api/v1/crops/{name}", c.handleCrop)
	mux.HandleFunc("POST /api/v1/crops/{name}/select", c.handleSelectCrop)
	mux.HandleFunc("GET /api/v1/reading", c.handleReading)
	mux.HandleFunc("GET /api/v1/thresholds", c.handleGetThresholds)
	mux.HandleFunc("POST /api/v1/thresholds", c.handleSetThresholds)
	mux.HandleFunc("POST /api/v1/silence/toggle", c.handleToggleSilence)
	mux.HandleFunc("POST /api/v1/selection", c.handleSelection)
	mux.HandleFunc("GET /api/v1/stats", c.handleStats)
	mux.HandleFunc("GET /api/v1/chart", c.handleChartData)
	mux.HandleFunc("GET /chart.svg", c.handleChartImage(chart.FormatSVG))
	mux.HandleFunc("GET /chart.png", c.handleChartImage(chart.FormatPNG))

	if c.live != nil {
		mux.Handle("GET /ws", c.live)
	}
}
