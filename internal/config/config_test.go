package config

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"
)

var envKeys = []string{
	"APP_ENV", "LOG_LEVEL", "HTTP_ADDR", "STATIC_DIR",
	"DB_DRIVER", "DB_DSN", "SQLITE_PATH", "DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS", "DB_CONN_MAX_LIFETIME",
	"MQTT_BROKER", "MQTT_PORT", "MQTT_CLIENT_ID", "MQTT_READING_TOPIC", "MQTT_THRESHOLD_TOPIC",
	"CROPS_PATH", "STATS_URL", "STATS_TIMEOUT", "TIME_ZONE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	got, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v, want nil", err)
	}

	if got.AppEnv != "dev" {
		t.Errorf("AppEnv = %q, want %q", got.AppEnv, "dev")
	}
	if got.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want %v", got.LogLevel, slog.LevelInfo)
	}
	if got.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", got.HTTPAddr, ":8080")
	}
	if !filepath.IsAbs(got.StaticDir) {
		t.Errorf("StaticDir = %q, want absolute path", got.StaticDir)
	}
	if got.CropsPath != filepath.Join(got.StaticDir, "crops.json") {
		t.Errorf("CropsPath = %q, want crops.json under StaticDir", got.CropsPath)
	}
	if got.MQTTPort != 1883 {
		t.Errorf("MQTTPort = %d, want 1883", got.MQTTPort)
	}
	if got.MQTTReadingTopic != "warehouse" {
		t.Errorf("MQTTReadingTopic = %q, want warehouse", got.MQTTReadingTopic)
	}
	if got.MQTTThresholdTopic != "thresholds" {
		t.Errorf("MQTTThresholdTopic = %q, want thresholds", got.MQTTThresholdTopic)
	}
	if got.StatsTimeout != 10*time.Second {
		t.Errorf("StatsTimeout = %v, want 10s", got.StatsTimeout)
	}
	if got.StatsURL != "" {
		t.Errorf("StatsURL = %q, want empty", got.StatsURL)
	}
	if got.Location != time.Local {
		t.Errorf("Location = %v, want Local", got.Location)
	}
}

func TestLoadFromEnv_AppEnv_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		appEnv string
	}{
		{name: "staging", appEnv: "staging"},
		{name: "uppercase invalid", appEnv: "DEV"},
		{name: "random", appEnv: "whatever"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("APP_ENV", tt.appEnv)

			if _, err := LoadFromEnv(); err == nil {
				t.Fatalf("LoadFromEnv() error = nil, want non-nil")
			}
		})
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("HTTP_ADDR", "  :9090  ")
	t.Setenv("MQTT_PORT", "8883")
	t.Setenv("MQTT_THRESHOLD_TOPIC", "/cold/thresholds/")
	t.Setenv("STATS_URL", "https://example.com/exec")
	t.Setenv("STATS_TIMEOUT", "3s")
	t.Setenv("TIME_ZONE", "UTC")
	t.Setenv("CROPS_PATH", "/etc/cropvault/crops.json")

	got, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v, want nil", err)
	}
	if got.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want :9090", got.HTTPAddr)
	}
	if got.MQTTPort != 8883 {
		t.Errorf("MQTTPort = %d, want 8883", got.MQTTPort)
	}
	if got.MQTTThresholdTopic != "cold/thresholds" {
		t.Errorf("MQTTThresholdTopic = %q, want cold/thresholds", got.MQTTThresholdTopic)
	}
	if got.StatsURL != "https://example.com/exec" {
		t.Errorf("StatsURL = %q", got.StatsURL)
	}
	if got.StatsTimeout != 3*time.Second {
		t.Errorf("StatsTimeout = %v, want 3s", got.StatsTimeout)
	}
	if got.Location.String() != "UTC" {
		t.Errorf("Location = %v, want UTC", got.Location)
	}
	if got.CropsPath != "/etc/cropvault/crops.json" {
		t.Errorf("CropsPath = %q", got.CropsPath)
	}
}

func TestLoadFromEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "mqtt port not a number", key: "MQTT_PORT", val: "abc"},
		{name: "mqtt port out of range", key: "MQTT_PORT", val: "70000"},
		{name: "max open conns", key: "DB_MAX_OPEN_CONNS", val: "many"},
		{name: "conn lifetime", key: "DB_CONN_MAX_LIFETIME", val: "forever"},
		{name: "stats url scheme", key: "STATS_URL", val: "ftp://example.com"},
		{name: "stats url garbage", key: "STATS_URL", val: "not a url"},
		{name: "stats timeout zero", key: "STATS_TIMEOUT", val: "0s"},
		{name: "time zone", key: "TIME_ZONE", val: "Mars/Olympus"},
		{name: "log level", key: "LOG_LEVEL", val: "loud"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)

			if _, err := LoadFromEnv(); err == nil {
				t.Fatalf("LoadFromEnv() with %s=%q error = nil, want non-nil", tt.key, tt.val)
			}
		})
	}
}

func TestParseLogLevel_Valid(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want slog.Level
	}{
		{name: "debug", in: "debug", want: slog.LevelDebug},
		{name: "info", in: "info", want: slog.LevelInfo},
		{name: "warn", in: "warn", want: slog.LevelWarn},
		{name: "warning", in: "warning", want: slog.LevelWarn},
		{name: "error", in: "error", want: slog.LevelError},
		{name: "case insensitive", in: "DeBuG", want: slog.LevelDebug},
		{name: "trims whitespace", in: "  warn \n", want: slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLogLevel(tt.in)
			if err != nil {
				t.Fatalf("parseLogLevel(%q) error = %v, want nil", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseLogLevel_Invalid(t *testing.T) {
	for _, in := range []string{"", "nope", "warns", "1"} {
		got, err := parseLogLevel(in)
		if err == nil {
			t.Fatalf("parseLogLevel(%q) error = nil, want non-nil", in)
		}
		if got != slog.LevelInfo {
			t.Errorf("parseLogLevel(%q) = %v, want %v on error", in, got, slog.LevelInfo)
		}
	}
}
