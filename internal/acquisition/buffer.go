package acquisition

import (
	"log"
	"sync"
	"time"

	"fire-backend/internal/models"
)

// MaxClockSkew is how far a reading's timestamp may lie ahead of the local clock
// before it is no longer trusted
const MaxClockSkew = 5 * time.Second

// SensorState holds the latest readings received for one sensor
type SensorState struct {
	SensorID        int
	LastTemperature *models.Reading
	LastSmoke       *models.Reading
}

// Buffer keeps the most recent temperature and smoke reading per sensor.
// It is written by MQTT handlers and read by the detection cycle.
type Buffer struct {
	sensors map[int]*SensorState
	maxAge  time.Duration
	now     func() time.Time
	mu      sync.RWMutex
}

// NewBuffer creates a buffer. Readings older than maxAge fail with a stale
// ReadError; maxAge <= 0 disables the check.
func NewBuffer(maxAge time.Duration) *Buffer {
	return &Buffer{
		sensors: make(map[int]*SensorState),
		maxAge:  maxAge,
		now:     time.Now,
	}
}

// Update stores a reading, replacing the previous one of the same metric.
// A reading older than the stored one (e.g. a QoS 1 redelivery) is discarded.
// It reports whether the reading was stored.
func (b *Buffer) Update(reading *models.Reading) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, exists := b.sensors[reading.SensorID]
	if !exists {
		state = &SensorState{SensorID: reading.SensorID}
		b.sensors[reading.SensorID] = state
		log.Printf("Buffer: Now tracking sensor %d", reading.SensorID)
	}

	var slot **models.Reading
	switch reading.Metric {
	case models.MetricTemperature:
		slot = &state.LastTemperature
	case models.MetricSmoke:
		slot = &state.LastSmoke
	default:
		log.Printf("Buffer: Ignoring unknown metric %q from sensor %d", reading.Metric, reading.SensorID)
		return false
	}

	// A stored reading from a clock too far ahead never blocks newer ones
	prev := *slot
	if prev != nil && reading.ReceivedAt.Before(prev.ReceivedAt) && prev.ReceivedAt.Sub(b.now()) <= MaxClockSkew {
		log.Printf("Buffer: Discarding out-of-order %s from sensor %d (%s older than stored)",
			reading.Metric, reading.SensorID, prev.ReceivedAt.Sub(reading.ReceivedAt))
		return false
	}
	*slot = reading
	return true
}

// ReadTemperature returns the latest temperature of a sensor
func (b *Buffer) ReadTemperature(sensorID int) (float64, error) {
	return b.read(sensorID, models.MetricTemperature)
}

// ReadSmokeLevel returns the latest smoke level of a sensor
func (b *Buffer) ReadSmokeLevel(sensorID int) (float64, error) {
	return b.read(sensorID, models.MetricSmoke)
}

func (b *Buffer) read(sensorID int, metric models.Metric) (float64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var reading *models.Reading
	if state, ok := b.sensors[sensorID]; ok {
		if metric == models.MetricTemperature {
			reading = state.LastTemperature
		} else {
			reading = state.LastSmoke
		}
	}

	if reading == nil {
		return 0, &ReadError{SensorID: sensorID, Metric: metric, Err: ErrNoReading}
	}

	if b.maxAge > 0 {
		// A timestamp too far in the future cannot prove the sensor is alive
		if age := b.now().Sub(reading.ReceivedAt); age > b.maxAge || age < -MaxClockSkew {
			return 0, &ReadError{SensorID: sensorID, Metric: metric, Err: ErrStaleReading, Age: age}
		}
	}

	return reading.Value, nil
}

// TrackedSensors returns the ids of all sensors that have reported at least once
func (b *Buffer) TrackedSensors() []int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ids := make([]int, 0, len(b.sensors))
	for id := range b.sensors {
		ids = append(ids, id)
	}
	return ids
}
