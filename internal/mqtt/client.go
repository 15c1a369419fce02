package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"cropvault-server/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	qosAtLeastOnce = byte(1)
	tokenTimeout   = 5 * time.Second
)

var ErrNotConnected = errors.New("mqtt client not connected")

// ReadingMessage is the payload of the reading topic.
type ReadingMessage struct {
	Temperature float64
	Humidity    float64
}

type readingWire struct {
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
}

// Client is the realtime store connection: it receives warehouse readings,
// mirrors the retained silence flag and publishes retained thresholds.
type Client struct {
	client mqtt.Client
	cfg    config.Config
	logger *slog.Logger

	mu        sync.RWMutex
	connected bool
	silence   bool
	silenceOK bool
	onReading func(ReadingMessage) error

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewClient(cfg config.Config, logger *slog.Logger) *Client {
	c := newClient(cfg, logger)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(cfg.MQTTClientID)

	// Session settings
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	// Keepalive / timeouts
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	// Handlers publish (silence auto-clear), which deadlocks the ordered router.
	opts.SetOrderMatters(false)

	// Subscriptions are (re)made on every connect because the session is clean.
	opts.SetOnConnectHandler(func(mc mqtt.Client) {
		c.setConnected(true)
		c.logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)
		if err := c.subscribe(mc); err != nil {
			c.logger.Error("mqtt subscribe failed", "error", err)
		}
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.setConnected(false)
		c.logger.Warn("mqtt connection lost", "error", err)
	})

	c.client = mqtt.NewClient(opts)
	return c
}

func newClient(cfg config.Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
	}
}

// SetReadingHandler must be called before Connect so retained readings
// delivered right after CONNACK are not lost.
func (c *Client) SetReadingHandler(handler func(ReadingMessage) error) {
	c.mu.Lock()
	c.onReading = handler
	c.mu.Unlock()
}

// Connect waits for the initial connection, honouring ctx and Disconnect.
func (c *Client) Connect(ctx context.Context) error {
	select {
	case <-c.stopCh:
		return fmt.Errorf("client stopped")
	default:
	}

	if c.IsConnected() {
		return nil
	}

	token := c.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			c.client.Disconnect(0)
			return ctx.Err()
		case <-c.stopCh:
			c.client.Disconnect(0)
			return fmt.Errorf("client stopped")
		default:
		}
	}
}

func (c *Client) readingTopic() string { return c.cfg.MQTTReadingTopic }

func (c *Client) thresholdTopic(leaf string) string {
	return c.cfg.MQTTThresholdTopic + "/" + leaf
}

func (c *Client) subscribe(mc mqtt.Client) error {
	filters := map[string]byte{
		c.readingTopic():            qosAtLeastOnce,
		c.thresholdTopic("silence"): qosAtLeastOnce,
	}
	token := mc.SubscribeMultiple(filters, func(_ mqtt.Client, msg mqtt.Message) {
		c.handleMessage(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(tokenTimeout) {
		return fmt.Errorf("subscribe timeout for topics %v", filters)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	c.logger.Info("subscribed to mqtt topics", "reading", c.readingTopic(), "silence", c.thresholdTopic("silence"))
	return nil
}

func (c *Client) handleMessage(topic string, payload []byte) {
	c.logger.Debug("received mqtt message", "topic", topic, "size", len(payload))

	switch topic {
	case c.thresholdTopic("silence"):
		v, err := ParseSilence(payload)
		if err != nil {
			c.logger.Warn("invalid silence payload", "topic", topic, "error", err, "payload", string(payload))
			return
		}
		c.setSilence(v)
	case c.readingTopic():
		reading, err := ParseReading(payload)
		if err != nil {
			c.logger.Warn("invalid reading message", "topic", topic, "error", err, "payload", string(payload))
			return
		}
		c.mu.RLock()
		handler := c.onReading
		c.mu.RUnlock()
		if handler == nil {
			return
		}
		if err := handler(reading); err != nil {
			c.logger.Error("reading handler failed", "topic", topic, "error", err)
		}
	default:
		c.logger.Debug("ignoring mqtt message", "topic", topic)
	}
}

// ParseReading decodes {"temperature": n, "humidity": n}; both fields are required.
func ParseReading(payload []byte) (ReadingMessage, error) {
	var w readingWire
	if err := json.Unmarshal(payload, &w); err != nil {
		return ReadingMessage{}, fmt.Errorf("decode reading: %w", err)
	}
	if w.Temperature == nil {
		return ReadingMessage{}, errors.New("temperature is required")
	}
	if w.Humidity == nil {
		return ReadingMessage{}, errors.New("humidity is required")
	}
	return ReadingMessage{Temperature: *w.Temperature, Humidity: *w.Humidity}, nil
}

// ParseSilence accepts a JSON boolean or a quoted "true"/"false".
func ParseSilence(payload []byte) (bool, error) {
	s := strings.Trim(strings.TrimSpace(string(payload)), `"`)
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("silence: %w", err)
	}
	return v, nil
}

// PublishThresholds writes both retained threshold topics.
func (c *Client) PublishThresholds(ctx context.Context, tempMax, humidMax float64) error {
	if err := c.publish(ctx, c.thresholdTopic("tempMax"), strconv.FormatFloat(tempMax, 'f', -1, 64)); err != nil {
		return err
	}
	return c.publish(ctx, c.thresholdTopic("humidMax"), strconv.FormatFloat(humidMax, 'f', -1, 64))
}

func (c *Client) PublishSilence(ctx context.Context, silenced bool) error {
	if err := c.publish(ctx, c.thresholdTopic("silence"), strconv.FormatBool(silenced)); err != nil {
		return err
	}
	c.setSilence(silenced)
	return nil
}

// Silence returns the last known remote silence flag; ok is false until one
// has been observed or written.
func (c *Client) Silence() (silenced bool, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.silence, c.silenceOK
}

func (c *Client) publish(ctx context.Context, topic, payload string) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	token := c.client.Publish(topic, qosAtLeastOnce, true, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(tokenTimeout):
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		c.logger.Error("mqtt publish failed", "topic", topic, "error", err)
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	c.logger.Debug("published", "topic", topic, "payload", payload)
	return nil
}

// IsConnected returns whether the client is connected.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	connected := c.connected
	c.mu.RUnlock()
	return connected && c.client != nil && c.client.IsConnected()
}

// Disconnect is idempotent; after it Connect returns "client stopped".
func (c *Client) Disconnect() {
	c.stopOnce.Do(func() { close(c.stopCh) })

	if c.client != nil && c.IsConnected() {
		token := c.client.Unsubscribe(c.readingTopic(), c.thresholdTopic("silence"))
		token.WaitTimeout(2 * time.Second)
	}
	if c.client != nil {
		c.client.Disconnect(250)
	}

	c.setConnected(false)
	c.logger.Info("mqtt client disconnected")
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

func (c *Client) setSilence(v bool) {
	c.mu.Lock()
	c.silence = v
	c.silenceOK = true
	c.mu.Unlock()
}
