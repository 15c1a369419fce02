package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cropvault-server/internal/modules/warehouse/catalog"
	"cropvault-server/internal/modules/warehouse/chart"
	"cropvault-server/internal/modules/warehouse/matcher"
	"cropvault-server/internal/modules/warehouse/readings"
	"cropvault-server/internal/modules/warehouse/state"
	"cropvault-server/internal/modules/warehouse/stats"
	"cropvault-server/internal/modules/warehouse/thresholds"
	"cropvault-server/internal/modules/warehouse/types"
)

var ErrUnknownCrop = errors.New("unknown crop")

const autoClearTimeout = 5 * time.Second

// Broadcaster pushes snapshots to live clients.
type Broadcaster interface {
	Broadcast(v any) error
}

// Snapshot is everything the readings and crop panels show.
type Snapshot struct {
	Type         string            `json:"type"`
	Reading      types.Reading     `json:"reading"`
	HasReading   bool              `json:"hasReading"`
	Status       readings.Status   `json:"status"`
	Thresholds   types.Thresholds  `json:"thresholds"`
	SilenceLabel string            `json:"silenceLabel"`
	Crop         *matcher.CropView `json:"crop,omitempty"`
}

// StatsView is the stat boxes and chart of the active selection.
type StatsView struct {
	Selection types.Selection `json:"selection"`
	Summary   types.Summary   `json:"summary"`
	Boxes     stats.Boxes     `json:"boxes"`
	Chart     chart.Dataset   `json:"chart"`
}

type Service struct {
	catalog *catalog.Catalog
	store   *thresholds.Store
	stats   *stats.Service
	dash    *state.Dashboard
	logger  *slog.Logger

	mu       sync.RWMutex
	cropView *matcher.CropView
	alerting bool
}

func NewService(cat *catalog.Catalog, store *thresholds.Store, statsSvc *stats.Service, dash *state.Dashboard, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		catalog: cat,
		store:   store,
		stats:   statsSvc,
		dash:    dash,
		logger:  logger.With("component", "warehouse"),
	}
	dash.Subscribe(s.onReadingDisplay)
	dash.Subscribe(s.onReadingCrop)
	return s
}

// AttachBroadcaster registers b as the last reading observer.
func (s *Service) AttachBroadcaster(b Broadcaster) {
	s.dash.Subscribe(func(state.Event) {
		if err := b.Broadcast(s.Snapshot()); err != nil {
			s.logger.Error("broadcast snapshot failed", "error", err)
		}
	})
}

// Start performs the initial statistics fetch for the current selection.
func (s *Service) Start(ctx context.Context) {
	if _, err := s.Select(ctx, s.dash.Selection()); err != nil {
		s.logger.Warn("initial stats fetch failed", "error", err)
	}
}

func (s *Service) onReadingDisplay(ev state.Event) {
	status := readings.Evaluate(ev.Reading, s.store.Current())

	s.mu.Lock()
	changed := status.Alert != s.alerting
	s.alerting = status.Alert
	s.mu.Unlock()
	if changed && status.Alert {
		s.logger.Warn("thresholds exceeded",
			"temperature", ev.Reading.Temperature,
			"humidity", ev.Reading.Humidity,
			"severity", status.Severity,
		)
	} else if changed {
		s.logger.Info("readings back in range")
	}

	if status.Alert {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), autoClearTimeout)
	defer cancel()
	if _, err := s.store.AutoClear(ctx); err != nil {
		s.logger.Warn("auto clear silence failed", "error", err)
	}
}

func (s *Service) onReadingCrop(ev state.Event) {
	if ev.Crop == "" {
		return
	}
	crop, ok := s.catalog.Find(ev.Crop)
	if !ok {
		return
	}
	view := matcher.Show(crop, ev.Reading)
	s.mu.Lock()
	defer s.mu.Unlock()
	// A ShowCrop that landed while this reading was in flight wins.
	if s.dash.Crop() != ev.Crop {
		return
	}
	s.cropView = &view
}

// Snapshot evaluates the latest reading against the current thresholds.
func (s *Service) Snapshot() Snapshot {
	r, ok := s.dash.Reading()
	t := s.store.Current()

	s.mu.RLock()
	var crop *matcher.CropView
	if s.cropView != nil {
		v := *s.cropView
		crop = &v
	}
	s.mu.RUnlock()

	return Snapshot{
		Type:         "reading",
		Reading:      r,
		HasReading:   ok,
		Status:       readings.Evaluate(r, t),
		Thresholds:   t,
		SilenceLabel: thresholds.SilenceLabel(t.Silence),
		Crop:         crop,
	}
}

// ShowCrop displays a crop against the latest reading. With
// updateThresholds the crop's maxima become the alert thresholds.
func (s *Service) ShowCrop(ctx context.Context, name string, updateThresholds bool) (matcher.CropView, error) {
	crop, ok := s.catalog.Find(name)
	if !ok {
		return matcher.CropView{}, fmt.Errorf("%w: %q", ErrUnknownCrop, name)
	}
	s.dash.SetCrop(crop.Name)

	if updateThresholds {
		if _, err := s.store.Apply(ctx, types.Thresholds{TempMax: crop.TempMax, HumidMax: crop.HumidMax}); err != nil {
			return matcher.CropView{}, err
		}
	}

	r, _ := s.dash.Reading()
	view := matcher.Show(crop, r)
	s.mu.Lock()
	s.cropView = &view
	s.mu.Unlock()
	return view, nil
}

func (s *Service) Thresholds() types.Thresholds {
	return s.store.Current()
}

func (s *Service) SetThresholds(ctx context.Context, tempRaw, humidRaw string) (types.Thresholds, error) {
	return s.store.SetThresholds(ctx, tempRaw, humidRaw)
}

func (s *Service) ToggleSilence(ctx context.Context) (bool, error) {
	return s.store.ToggleSilence(ctx)
}

// Select makes sel the active selection and refreshes its series. A failed
// fetch still returns the view built from the cached series.
func (s *Service) Select(ctx context.Context, sel types.Selection) (StatsView, error) {
	s.dash.SetPeriod(sel.Period)
	s.dash.SetMetric(sel.Metric)
	_, err := s.stats.Refresh(ctx, sel)
	return s.StatsView(), err
}

func (s *Service) SelectPeriod(ctx context.Context, p types.Period) (StatsView, error) {
	sel := s.dash.SetPeriod(p)
	_, err := s.stats.Refresh(ctx, sel)
	return s.StatsView(), err
}

func (s *Service) SelectMetric(ctx context.Context, m types.Metric) (StatsView, error) {
	sel := s.dash.SetMetric(m)
	_, err := s.stats.Refresh(ctx, sel)
	return s.StatsView(), err
}

// StatsView builds the view of the active selection from the cache.
func (s *Service) StatsView() StatsView {
	sel := s.dash.Selection()
	series := s.stats.Cached(sel)
	summary := stats.Summarize(series)
	return StatsView{
		Selection: sel,
		Summary:   summary,
		Boxes:     stats.FormatSummary(summary, sel.Metric),
		Chart:     chart.Build(sel, series, s.stats.Now()),
	}
}

// ChartFor builds the dataset of any combination from the cache without
// changing the active selection.
func (s *Service) ChartFor(sel types.Selection) chart.Dataset {
	return chart.Build(sel, s.stats.Cached(sel), s.stats.Now())
}

func (s *Service) Selection() types.Selection {
	return s.dash.Selection()
}

func (s *Service) Crops() []types.CropProfile {
	return s.catalog.All()
}

func (s *Service) SearchCrops(query string, limit int) []types.CropProfile {
	return s.catalog.Search(query, limit)
}

func (s *Service) QuickPicks() []types.CropProfile {
	return s.catalog.QuickPicks(catalog.DefaultQuickPicks)
}

func (s *Service) FindCrop(name string) (types.CropProfile, bool) {
	return s.catalog.Find(name)
}
