package mqtt

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"cropvault-server/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type doneToken struct {
	err  error
	done chan struct{}
}

func newDoneToken(err error) *doneToken {
	ch := make(chan struct{})
	close(ch)
	return &doneToken{err: err, done: ch}
}

func (t *doneToken) Wait() bool                     { return true }
func (t *doneToken) WaitTimeout(time.Duration) bool { return true }
func (t *doneToken) Done() <-chan struct{}          { return t.done }
func (t *doneToken) Error() error                   { return t.err }

type published struct {
	topic    string
	retained bool
	payload  string
}

// fakePaho records publishes and reports itself connected.
type fakePaho struct {
	mu         sync.Mutex
	published  []published
	publishErr error
}

func (f *fakePaho) IsConnected() bool      { return true }
func (f *fakePaho) IsConnectionOpen() bool { return true }
func (f *fakePaho) Connect() mqtt.Token    { return newDoneToken(nil) }
func (f *fakePaho) Disconnect(uint)        {}
func (f *fakePaho) Publish(topic string, _ byte, retained bool, payload interface{}) mqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, published{topic: topic, retained: retained, payload: payload.(string)})
	return newDoneToken(f.publishErr)
}
func (f *fakePaho) Subscribe(string, byte, mqtt.MessageHandler) mqtt.Token { return newDoneToken(nil) }
func (f *fakePaho) SubscribeMultiple(map[string]byte, mqtt.MessageHandler) mqtt.Token {
	return newDoneToken(nil)
}
func (f *fakePaho) Unsubscribe(...string) mqtt.Token        { return newDoneToken(nil) }
func (f *fakePaho) AddRoute(string, mqtt.MessageHandler)    {}
func (f *fakePaho) OptionsReader() mqtt.ClientOptionsReader { return mqtt.ClientOptionsReader{} }

func testConfig() config.Config {
	return config.Config{MQTTReadingTopic: "warehouse", MQTTThresholdTopic: "thresholds"}
}

func newTestClient(t *testing.T, paho *fakePaho, connected bool) *Client {
	t.Helper()
	c := newClient(testConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.client = paho
	c.setConnected(connected)
	return c
}

func TestParseReading(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    ReadingMessage
		wantErr bool
	}{
		{name: "valid", payload: `{"temperature": 21.5, "humidity": 64}`, want: ReadingMessage{Temperature: 21.5, Humidity: 64}},
		{name: "zero values are readings", payload: `{"temperature": 0, "humidity": 0}`, want: ReadingMessage{}},
		{name: "negative temperature", payload: `{"temperature": -2.5, "humidity": 90}`, want: ReadingMessage{Temperature: -2.5, Humidity: 90}},
		{name: "missing humidity", payload: `{"temperature": 21.5}`, wantErr: true},
		{name: "missing temperature", payload: `{"humidity": 50}`, wantErr: true},
		{name: "not json", payload: `21.5,64`, wantErr: true},
		{name: "string values", payload: `{"temperature": "hot", "humidity": 50}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseReading([]byte(tt.payload))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseReading(%s) error = %v, wantErr %v", tt.payload, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseReading(%s) = %+v; want %+v", tt.payload, got, tt.want)
			}
		})
	}
}

func TestParseSilence(t *testing.T) {
	tests := []struct {
		payload string
		want    bool
		wantErr bool
	}{
		{"true", true, false},
		{"false", false, false},
		{` "true" `, true, false},
		{"yes", false, true},
		{"", false, true},
	}
	for _, tt := range tests {
		got, err := ParseSilence([]byte(tt.payload))
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseSilence(%q) = %v, %v; want %v, err=%v", tt.payload, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestHandleMessage_dispatchesReadings(t *testing.T) {
	c := newTestClient(t, &fakePaho{}, true)

	var got []ReadingMessage
	c.SetReadingHandler(func(r ReadingMessage) error {
		got = append(got, r)
		return nil
	})

	c.handleMessage("warehouse", []byte(`{"temperature": 12, "humidity": 80}`))
	c.handleMessage("warehouse", []byte(`garbage`))
	c.handleMessage("elsewhere", []byte(`{"temperature": 1, "humidity": 1}`))
	c.handleMessage("warehouse", []byte(`{"temperature": 12, "humidity": 80}`))

	if len(got) != 2 {
		t.Fatalf("handler called %d times; want 2 (no dedup, invalid dropped)", len(got))
	}
	if got[0] != (ReadingMessage{Temperature: 12, Humidity: 80}) {
		t.Errorf("reading = %+v", got[0])
	}
}

func TestHandleMessage_handlerErrorIsContained(t *testing.T) {
	c := newTestClient(t, &fakePaho{}, true)
	c.SetReadingHandler(func(ReadingMessage) error { return errors.New("boom") })

	c.handleMessage("warehouse", []byte(`{"temperature": 12, "humidity": 80}`))
}

func TestHandleMessage_mirrorsSilence(t *testing.T) {
	c := newTestClient(t, &fakePaho{}, true)

	if _, ok := c.Silence(); ok {
		t.Fatal("silence known before any message")
	}
	c.handleMessage("thresholds/silence", []byte("true"))
	if v, ok := c.Silence(); !ok || !v {
		t.Errorf("Silence() = %v, %v; want true, true", v, ok)
	}
	c.handleMessage("thresholds/silence", []byte("maybe"))
	if v, _ := c.Silence(); !v {
		t.Error("invalid payload overwrote mirrored silence")
	}
}

func TestPublishThresholds(t *testing.T) {
	paho := &fakePaho{}
	c := newTestClient(t, paho, true)

	if err := c.PublishThresholds(context.Background(), 15, 70.5); err != nil {
		t.Fatalf("PublishThresholds: %v", err)
	}

	want := []published{
		{topic: "thresholds/tempMax", retained: true, payload: "15"},
		{topic: "thresholds/humidMax", retained: true, payload: "70.5"},
	}
	if len(paho.published) != len(want) {
		t.Fatalf("published %d messages; want %d", len(paho.published), len(want))
	}
	for i := range want {
		if paho.published[i] != want[i] {
			t.Errorf("published[%d] = %+v; want %+v", i, paho.published[i], want[i])
		}
	}
}

func TestPublishSilence_updatesMirror(t *testing.T) {
	paho := &fakePaho{}
	c := newTestClient(t, paho, true)

	if err := c.PublishSilence(context.Background(), true); err != nil {
		t.Fatalf("PublishSilence: %v", err)
	}
	if v, ok := c.Silence(); !ok || !v {
		t.Errorf("Silence() = %v, %v; want true, true", v, ok)
	}
	if len(paho.published) != 1 || paho.published[0].payload != "true" || paho.published[0].topic != "thresholds/silence" {
		t.Errorf("published = %+v", paho.published)
	}
}

func TestPublish_errors(t *testing.T) {
	t.Run("not connected", func(t *testing.T) {
		c := newTestClient(t, &fakePaho{}, false)
		if err := c.PublishSilence(context.Background(), true); !errors.Is(err, ErrNotConnected) {
			t.Fatalf("err = %v; want ErrNotConnected", err)
		}
		if _, ok := c.Silence(); ok {
			t.Error("failed publish updated mirror")
		}
	})

	t.Run("broker error", func(t *testing.T) {
		c := newTestClient(t, &fakePaho{publishErr: errors.New("not authorized")}, true)
		if err := c.PublishThresholds(context.Background(), 1, 2); err == nil {
			t.Fatal("PublishThresholds = nil; want error")
		}
	})
}

func TestConnect_afterDisconnectFails(t *testing.T) {
	c := newTestClient(t, &fakePaho{}, true)
	c.Disconnect()
	c.Disconnect()

	if c.IsConnected() {
		t.Error("IsConnected after Disconnect")
	}
	if err := c.Connect(context.Background()); err == nil {
		t.Fatal("Connect after Disconnect = nil; want error")
	}
}

func TestNewClient_unorderedHandlers(t *testing.T) {
	cfg := testConfig()
	cfg.MQTTBroker, cfg.MQTTPort, cfg.MQTTClientID = "localhost", 1883, "cropvault-test"
	c := NewClient(cfg, nil)

	opts := c.client.OptionsReader()
	if opts.Order() {
		t.Error("Order() = true; reading handlers publish and must not run on the ordered router")
	}
	if opts.ClientID() != "cropvault-test" {
		t.Errorf("ClientID() = %q", opts.ClientID())
	}
}
