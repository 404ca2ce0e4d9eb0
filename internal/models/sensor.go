package models

import "time"

// SensorRecord is one sensor's snapshot for a single detection cycle
type SensorRecord struct {
	ID          int     `json:"id"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Floor       int     `json:"floor"`
	Room        int     `json:"room"`
	Temperature float64 `json:"temperature"` // Celsius
	SmokeLevel  float64 `json:"smoke_level"` // Raw detector units
}

// SensorPlacement describes where a sensor is installed (no readings)
type SensorPlacement struct {
	ID    int     `yaml:"id" json:"id"`
	X     float64 `yaml:"x" json:"x"`
	Y     float64 `yaml:"y" json:"y"`
	Floor int     `yaml:"floor" json:"floor"`
	Room  int     `yaml:"room" json:"room"`
}

// Record builds a SensorRecord from the placement and the given readings
func (p SensorPlacement) Record(temperature, smokeLevel float64) SensorRecord {
	return SensorRecord{
		ID:          p.ID,
		X:           p.X,
		Y:           p.Y,
		Floor:       p.Floor,
		Room:        p.Room,
		Temperature: temperature,
		SmokeLevel:  smokeLevel,
	}
}

// Metric names a kind of sensor reading
type Metric string

const (
	MetricTemperature Metric = "temperature"
	MetricSmoke       Metric = "smoke"
)

// Reading is a raw value received from a sensor over MQTT
type Reading struct {
	SensorID   int       `json:"sensor_id"`
	Metric     Metric    `json:"metric"`
	Value      float64   `json:"value"`
	ReceivedAt time.Time `json:"received_at"`
}
