package services

import (
	"context"
	"log"

	"fire-backend/internal/acquisition"
	"fire-backend/internal/models"
)

// SensorService moves readings from the MQTT subscriber into the reading buffer
type SensorService struct {
	buffer *acquisition.Buffer

	// Input channel from the MQTT subscriber
	ReadingChan chan *models.Reading

	// Sensors declared in the topology; readings from others are ignored
	known map[int]bool
}

// SensorServiceConfig holds configuration for sensor service
type SensorServiceConfig struct {
	ReadingChannelSize int
}

// DefaultSensorServiceConfig returns default configuration
func DefaultSensorServiceConfig() SensorServiceConfig {
	return SensorServiceConfig{
		ReadingChannelSize: 200,
	}
}

// NewSensorService creates a new sensor service for the given placements
func NewSensorService(
	buffer *acquisition.Buffer,
	placements []models.SensorPlacement,
	config SensorServiceConfig,
) *SensorService {
	known := make(map[int]bool, len(placements))
	for _, p := range placements {
		known[p.ID] = true
	}
	return &SensorService{
		buffer:      buffer,
		ReadingChan: make(chan *models.Reading, config.ReadingChannelSize),
		known:       known,
	}
}

// Start processes readings until context is cancelled or the channel is closed
func (s *SensorService) Start(ctx context.Context) {
	log.Println("SensorService: Starting...")

	for {
		select {
		case <-ctx.Done():
			log.Println("SensorService: Shutting down...")
			return
		case reading, ok := <-s.ReadingChan:
			if !ok {
				log.Println("SensorService: Reading channel closed, shutting down...")
				return
			}
			s.processReading(reading)
		}
	}
}

// processReading stores a single reading in the buffer
func (s *SensorService) processReading(reading *models.Reading) {
	if !s.known[reading.SensorID] {
		log.Printf("SensorService: Ignoring %s from unregistered sensor %d", reading.Metric, reading.SensorID)
		return
	}
	s.buffer.Update(reading)
}
