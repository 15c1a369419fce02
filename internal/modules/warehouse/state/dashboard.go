package state

import (
	"sync"

	"cropvault-server/internal/modules/warehouse/types"
)

// Event is delivered to observers after a new reading is stored.
type Event struct {
	Reading types.Reading
	// Crop is the displayed crop name at the time of the reading, empty if none.
	Crop string
}

// Dashboard owns the live reading, the chart selection and the displayed
// crop. It is shared between the MQTT callback and HTTP handlers.
type Dashboard struct {
	mu         sync.RWMutex
	reading    types.Reading
	hasReading bool
	selection  types.Selection
	crop       string
	observers  []func(Event)
}

func NewDashboard() *Dashboard {
	return &Dashboard{selection: types.DefaultSelection()}
}

// Subscribe registers fn; observers run in registration order.
func (d *Dashboard) Subscribe(fn func(Event)) {
	d.mu.Lock()
	d.observers = append(d.observers, fn)
	d.mu.Unlock()
}

// PublishReading stores r and notifies observers outside the lock.
func (d *Dashboard) PublishReading(r types.Reading) {
	d.mu.Lock()
	d.reading = r
	d.hasReading = true
	ev := Event{Reading: r, Crop: d.crop}
	observers := make([]func(Event), len(d.observers))
	copy(observers, d.observers)
	d.mu.Unlock()

	for _, fn := range observers {
		fn(ev)
	}
}

// Reading returns the latest reading; ok is false before the first push.
// The zero reading is what the display shows until then.
func (d *Dashboard) Reading() (types.Reading, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.reading, d.hasReading
}

func (d *Dashboard) Selection() types.Selection {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.selection
}

func (d *Dashboard) SetPeriod(p types.Period) types.Selection {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.selection.Period = p
	return d.selection
}

func (d *Dashboard) SetMetric(m types.Metric) types.Selection {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.selection.Metric = m
	return d.selection
}

func (d *Dashboard) Crop() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.crop
}

func (d *Dashboard) SetCrop(name string) {
	d.mu.Lock()
	d.crop = name
	d.mu.Unlock()
}
