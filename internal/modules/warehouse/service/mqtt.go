package service

import (
	"time"

	"cropvault-server/internal/modules/warehouse/types"
	"cropvault-server/internal/mqtt"
)

// ReadingSource delivers warehouse readings.
type ReadingSource interface {
	SetReadingHandler(handler func(msg mqtt.ReadingMessage) error)
}

// Register routes every reading from src into the dashboard state.
func (s *Service) Register(src ReadingSource) {
	src.SetReadingHandler(func(msg mqtt.ReadingMessage) error {
		s.logger.Debug("processing reading",
			"temperature", msg.Temperature,
			"humidity", msg.Humidity,
		)
		s.dash.PublishReading(types.Reading{
			Temperature: msg.Temperature,
			Humidity:    msg.Humidity,
			ReceivedAt:  time.Now().UTC(),
		})
		return nil
	})
}
