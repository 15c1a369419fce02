package thresholds

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"

	"cropvault-server/internal/modules/warehouse/repository"
	"cropvault-server/internal/modules/warehouse/types"
)

const (
	LabelMuted   = "Alarm Muted"
	LabelUnmuted = "Mute Alarm"
)

// Remote is the realtime store copy of the thresholds read by the device.
type Remote interface {
	PublishThresholds(ctx context.Context, tempMax, humidMax float64) error
	PublishSilence(ctx context.Context, silenced bool) error
	Silence() (silenced bool, ok bool)
}

// Store keeps the effective thresholds and the silence button state. Writes go
// to the local settings table and to the remote store.
type Store struct {
	repo   repository.SettingsRepository
	remote Remote
	logger *slog.Logger

	mu      sync.RWMutex
	current types.Thresholds
}

func NewStore(repo repository.SettingsRepository, remote Remote, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		repo:    repo,
		remote:  remote,
		logger:  logger.With("component", "thresholds"),
		current: types.DefaultThresholds(),
	}
}

// ParseThreshold returns def when raw is empty, not a finite number, or zero.
func ParseThreshold(raw string, def float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return def
	}
	return orDefault(v, def)
}

func orDefault(v, def float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v == 0 {
		return def
	}
	return v
}

// Load reads the locally persisted thresholds; missing keys keep the defaults.
func (s *Store) Load(ctx context.Context) (types.Thresholds, error) {
	t := types.DefaultThresholds()

	raw, ok, err := s.repo.GetSetting(ctx, repository.KeyTempThreshold)
	if err != nil {
		return s.Current(), fmt.Errorf("load thresholds: %w", err)
	}
	if ok {
		t.TempMax = ParseThreshold(raw, types.DefaultTempMax)
	}
	raw, ok, err = s.repo.GetSetting(ctx, repository.KeyHumidThreshold)
	if err != nil {
		return s.Current(), fmt.Errorf("load thresholds: %w", err)
	}
	if ok {
		t.HumidMax = ParseThreshold(raw, types.DefaultHumidMax)
	}

	s.mu.Lock()
	t.Silence = s.current.Silence
	s.current = t
	s.mu.Unlock()

	s.logger.Info("thresholds loaded", "temp_max", t.TempMax, "humid_max", t.HumidMax)
	return t, nil
}

// Current returns the effective thresholds; Silence is the button state.
func (s *Store) Current() types.Thresholds {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// SetThresholds applies user input; unusable values fall back to 30 and 70.
func (s *Store) SetThresholds(ctx context.Context, tempRaw, humidRaw string) (types.Thresholds, error) {
	return s.Apply(ctx, types.Thresholds{
		TempMax:  ParseThreshold(tempRaw, types.DefaultTempMax),
		HumidMax: ParseThreshold(humidRaw, types.DefaultHumidMax),
	})
}

// Apply writes numeric thresholds to both copies. Only a local write failure
// is returned; the remote copy is best effort.
func (s *Store) Apply(ctx context.Context, t types.Thresholds) (types.Thresholds, error) {
	tempMax := orDefault(t.TempMax, types.DefaultTempMax)
	humidMax := orDefault(t.HumidMax, types.DefaultHumidMax)

	err := s.repo.PutSettings(ctx, map[string]string{
		repository.KeyTempThreshold:  strconv.FormatFloat(tempMax, 'f', -1, 64),
		repository.KeyHumidThreshold: strconv.FormatFloat(humidMax, 'f', -1, 64),
	})
	if err != nil {
		return s.Current(), fmt.Errorf("persist thresholds: %w", err)
	}

	s.mu.Lock()
	s.current.TempMax = tempMax
	s.current.HumidMax = humidMax
	out := s.current
	s.mu.Unlock()

	if err := s.remote.PublishThresholds(ctx, tempMax, humidMax); err != nil {
		s.logger.Warn("publish thresholds failed", "temp_max", tempMax, "humid_max", humidMax, "error", err)
	}
	s.logger.Info("thresholds updated", "temp_max", tempMax, "humid_max", humidMax)
	return out, nil
}

// SetSilence updates the button state and writes the remote flag.
func (s *Store) SetSilence(ctx context.Context, silenced bool) error {
	s.mu.Lock()
	s.current.Silence = silenced
	s.mu.Unlock()

	if err := s.remote.PublishSilence(ctx, silenced); err != nil {
		return fmt.Errorf("publish silence: %w", err)
	}
	s.logger.Info("alarm silence set", "silence", silenced)
	return nil
}

// ToggleSilence flips the button state and returns the new value.
func (s *Store) ToggleSilence(ctx context.Context) (bool, error) {
	next := !s.Current().Silence
	return next, s.SetSilence(ctx, next)
}

// AutoClear resets the remote silence flag once readings are back in range.
// The read and the write are separate steps; a concurrent writer may be
// overwritten.
func (s *Store) AutoClear(ctx context.Context) (bool, error) {
	silenced, ok := s.remote.Silence()
	if !ok || !silenced {
		return false, nil
	}
	if err := s.remote.PublishSilence(ctx, false); err != nil {
		return false, fmt.Errorf("clear silence: %w", err)
	}
	s.mu.Lock()
	s.current.Silence = false
	s.mu.Unlock()
	s.logger.Info("alarm silence cleared, readings back in range")
	return true, nil
}

// SilenceLabel is the mute button text for the given state.
func SilenceLabel(silenced bool) string {
	if silenced {
		return LabelMuted
	}
	return LabelUnmuted
}
