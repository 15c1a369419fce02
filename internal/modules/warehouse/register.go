package warehouse

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"cropvault-server/internal/config"
	"cropvault-server/internal/modules/warehouse/catalog"
	"cropvault-server/internal/modules/warehouse/controller"
	"cropvault-server/internal/modules/warehouse/live"
	"cropvault-server/internal/modules/warehouse/repository"
	"cropvault-server/internal/modules/warehouse/service"
	"cropvault-server/internal/modules/warehouse/state"
	"cropvault-server/internal/modules/warehouse/stats"
	"cropvault-server/internal/modules/warehouse/thresholds"
)

// Broker is the realtime store: it delivers readings and holds the retained
// threshold and silence topics.
type Broker interface {
	thresholds.Remote
	service.ReadingSource
}

// Feature is the wired warehouse dashboard.
type Feature struct {
	Service *service.Service
	Hub     *live.Hub
}

// RegisterFeature builds the dashboard and registers its routes on mux. The
// reading handler is installed on broker, so call it before connecting.
func RegisterFeature(ctx context.Context, mux *http.ServeMux, cfg config.Config, db *sql.DB, broker Broker, logger *slog.Logger) (*Feature, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cat := catalog.LoadOrEmpty(cfg.CropsPath, logger)
	store := thresholds.NewStore(repository.NewRepository(db), broker, logger)
	if _, err := store.Load(ctx); err != nil {
		return nil, err
	}

	statsSvc := stats.NewService(stats.NewClient(cfg.StatsURL, cfg.StatsTimeout, logger), cfg.Location, logger)
	svc := service.NewService(cat, store, statsSvc, state.NewDashboard(), logger)

	hub := live.NewHub(logger)
	hub.Initial = func() any { return svc.Snapshot() }
	svc.AttachBroadcaster(hub)
	svc.Register(broker)

	controller.NewWarehouseController(svc, hub).RegisterRoutes(mux)
	return &Feature{Service: svc, Hub: hub}, nil
}
