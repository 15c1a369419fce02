package stats

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"cropvault-server/internal/modules/warehouse/types"
)

type fetchFunc func(ctx context.Context) (Document, error)

func (f fetchFunc) Fetch(ctx context.Context) (Document, error) { return f(ctx) }

func newTestService(f Fetcher) *Service {
	s := NewService(f, time.UTC, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = func() time.Time { return time.Date(2026, 7, 15, 10, 0, 0, 0, time.UTC) }
	return s
}

var (
	weeklyTemp  = types.Selection{Period: types.PeriodWeekly, Metric: types.MetricTemp}
	yearlyHumid = types.Selection{Period: types.PeriodYearly, Metric: types.MetricHumid}
)

func TestRefresh_storesRequestedSelection(t *testing.T) {
	doc := Document{Monthly: []Entry{{Date: "2026-07", Temp: 10, Humid: 65}}}
	s := newTestService(fetchFunc(func(context.Context) (Document, error) { return doc, nil }))

	res, err := s.Refresh(context.Background(), yearlyHumid)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if res.Series[6] != 65 || res.Summary.Avg != 65 {
		t.Errorf("result = %+v", res)
	}
	if got := s.Cached(yearlyHumid); got[6] != 65 {
		t.Errorf("cached yearly/humid = %v", got)
	}
	if got := s.Cached(types.Selection{Period: types.PeriodYearly, Metric: types.MetricTemp}); got[6] != 0 {
		t.Errorf("yearly/temp written by humid refresh: %v", got)
	}
}

func TestRefresh_failureKeepsCache(t *testing.T) {
	calls := 0
	s := newTestService(fetchFunc(func(context.Context) (Document, error) {
		calls++
		if calls == 1 {
			return Document{Daily: []Entry{{Date: "2026-07-15", Temp: 4}}}, nil
		}
		return Document{}, errors.New("network down")
	}))
	ctx := context.Background()

	if _, err := s.Refresh(ctx, weeklyTemp); err != nil {
		t.Fatalf("first Refresh: %v", err)
	}
	res, err := s.Refresh(ctx, weeklyTemp)
	if err == nil {
		t.Fatal("second Refresh = nil; want error")
	}
	if res.Series[6] != 4 {
		t.Errorf("series after failure = %v; want cached value kept", res.Series)
	}
}

func TestRefresh_discardsStaleResponse(t *testing.T) {
	slow := make(chan struct{})
	entered := make(chan struct{})
	first := true
	s := newTestService(fetchFunc(func(context.Context) (Document, error) {
		if first {
			first = false
			close(entered)
			<-slow
			return Document{Daily: []Entry{{Date: "2026-07-15", Temp: 1}}}, nil
		}
		return Document{Daily: []Entry{{Date: "2026-07-15", Temp: 2}}}, nil
	}))
	ctx := context.Background()

	done := make(chan Result)
	go func() {
		res, _ := s.Refresh(ctx, weeklyTemp)
		done <- res
	}()
	<-entered

	newer, err := s.Refresh(ctx, weeklyTemp)
	if err != nil {
		t.Fatalf("newer Refresh: %v", err)
	}
	close(slow)
	older := <-done

	if newer.Series[6] != 2 {
		t.Errorf("newer series = %v", newer.Series)
	}
	if !older.Stale {
		t.Error("older response not marked stale")
	}
	if got := s.Cached(weeklyTemp); got[6] != 2 {
		t.Errorf("cache = %v; stale response overwrote newer one", got)
	}
}

func TestCached_defaultsToZeros(t *testing.T) {
	s := newTestService(fetchFunc(func(context.Context) (Document, error) { return Document{}, nil }))
	got := s.Cached(types.Selection{Period: types.PeriodMonthly, Metric: types.MetricTemp})
	if len(got) != 31 {
		t.Fatalf("len = %d; want 31", len(got))
	}
}
