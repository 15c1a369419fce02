package stats

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"cropvault-server/internal/modules/warehouse/types"
)

// Result is the outcome of one refresh.
type Result struct {
	Selection types.Selection `json:"selection"`
	Series    []float64       `json:"series"`
	Summary   types.Summary   `json:"summary"`
	// Stale is set when a newer refresh of the same selection was issued
	// while this one was in flight; Series is then the cached value.
	Stale bool `json:"-"`
}

// Service caches one series per period/metric combination. Every refresh
// takes a generation number first; a response is stored only if no newer
// refresh of the same combination started meanwhile.
type Service struct {
	fetcher Fetcher
	loc     *time.Location
	now     func() time.Time
	logger  *slog.Logger

	mu     sync.Mutex
	gen    map[types.Selection]uint64
	series map[types.Selection][]float64
}

func NewService(fetcher Fetcher, loc *time.Location, logger *slog.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		fetcher: fetcher,
		loc:     loc,
		now:     time.Now,
		logger:  logger.With("component", "stats"),
		gen:     make(map[types.Selection]uint64),
		series:  make(map[types.Selection][]float64),
	}
}

// Now is the current time in the bucketing location.
func (s *Service) Now() time.Time {
	return s.now().In(s.loc)
}

// Cached returns the stored series for sel, all zeros when never fetched.
func (s *Service) Cached(sel types.Selection) []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cachedLocked(sel)
}

func (s *Service) cachedLocked(sel types.Selection) []float64 {
	out := make([]float64, sel.Period.Len())
	copy(out, s.series[sel])
	return out
}

// Refresh fetches the document and recomputes the series for sel. On failure
// the cached series is left untouched and returned with the error.
func (s *Service) Refresh(ctx context.Context, sel types.Selection) (Result, error) {
	s.mu.Lock()
	s.gen[sel]++
	gen := s.gen[sel]
	s.mu.Unlock()

	doc, err := s.fetcher.Fetch(ctx)
	if err != nil {
		s.logger.Error("stats fetch failed", "period", sel.Period, "metric", sel.Metric, "error", err)
		cached := s.Cached(sel)
		return Result{Selection: sel, Series: cached, Summary: Summarize(cached)}, err
	}

	series, err := Series(doc, sel, s.Now())
	if err != nil {
		cached := s.Cached(sel)
		return Result{Selection: sel, Series: cached, Summary: Summarize(cached)}, err
	}

	s.mu.Lock()
	if s.gen[sel] != gen {
		cached := s.cachedLocked(sel)
		s.mu.Unlock()
		s.logger.Debug("discarding stale stats response", "period", sel.Period, "metric", sel.Metric, "generation", gen)
		return Result{Selection: sel, Series: cached, Summary: Summarize(cached), Stale: true}, nil
	}
	s.series[sel] = series
	s.mu.Unlock()

	out := make([]float64, len(series))
	copy(out, series)
	return Result{Selection: sel, Series: out, Summary: Summarize(out)}, nil
}
