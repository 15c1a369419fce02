package state

import (
	"sync"
	"testing"

	"cropvault-server/internal/modules/warehouse/types"
)

func TestNewDashboard_defaults(t *testing.T) {
	d := NewDashboard()
	if d.Selection() != types.DefaultSelection() {
		t.Errorf("Selection() = %+v; want weekly/temp", d.Selection())
	}
	if _, ok := d.Reading(); ok {
		t.Error("Reading() ok before first push")
	}
	if d.Crop() != "" {
		t.Errorf("Crop() = %q; want empty", d.Crop())
	}
}

func TestPublishReading_notifiesInOrder(t *testing.T) {
	d := NewDashboard()
	d.SetCrop("Rice")

	var order []string
	d.Subscribe(func(ev Event) {
		order = append(order, "display")
		// Observers may read state without deadlocking.
		if r, ok := d.Reading(); !ok || r != ev.Reading {
			t.Errorf("Reading() inside observer = %+v, %v", r, ok)
		}
	})
	d.Subscribe(func(ev Event) {
		order = append(order, "crop:"+ev.Crop)
	})

	d.PublishReading(types.Reading{Temperature: 12, Humidity: 65})

	if len(order) != 2 || order[0] != "display" || order[1] != "crop:Rice" {
		t.Errorf("order = %v", order)
	}
}

func TestSelection_updates(t *testing.T) {
	d := NewDashboard()
	d.SetPeriod(types.PeriodYearly)
	got := d.SetMetric(types.MetricHumid)
	if got != (types.Selection{Period: types.PeriodYearly, Metric: types.MetricHumid}) {
		t.Errorf("selection = %+v", got)
	}
}

func TestDashboard_concurrentAccess(t *testing.T) {
	d := NewDashboard()
	var mu sync.Mutex
	count := 0
	d.Subscribe(func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			d.PublishReading(types.Reading{Temperature: float64(i)})
		}(i)
		go func() {
			defer wg.Done()
			d.SetCrop("Wheat")
			_ = d.Selection()
		}()
	}
	wg.Wait()

	if count != 20 {
		t.Errorf("observer calls = %d; want 20", count)
	}
}
