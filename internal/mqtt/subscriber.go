package mqtt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"fire-backend/internal/acquisition"
	"fire-backend/internal/models"
)

// Subscriber handles MQTT subscriptions and writes sensor readings to a channel
type Subscriber struct {
	client mqtt.Client

	// Output channel (written by subscriber, read by the sensor service)
	ReadingChan chan *models.Reading

	routes []route

	subscribeTimeout time.Duration
	sendTimeout      time.Duration
	now              func() time.Time
}

// SubscriberConfig holds configuration for MQTT subscriber
type SubscriberConfig struct {
	TemperatureTopic string // e.g., "sensor/+/temperature"
	SmokeTopic       string // e.g., "sensor/+/smoke"
}

// route binds a topic filter to the metric it carries and the topic level holding the sensor id
type route struct {
	filter    string
	metric    models.Metric
	idSegment int
}

// NewSubscriber creates a new MQTT subscriber writing to readingChan.
// Empty topics are not subscribed.
func NewSubscriber(client mqtt.Client, config SubscriberConfig, readingChan chan *models.Reading) *Subscriber {
	s := &Subscriber{
		client:           client,
		ReadingChan:      readingChan,
		subscribeTimeout: 10 * time.Second,
		sendTimeout:      1 * time.Second,
		now:              time.Now,
	}
	for _, r := range []route{
		{filter: config.TemperatureTopic, metric: models.MetricTemperature},
		{filter: config.SmokeTopic, metric: models.MetricSmoke},
	} {
		if r.filter == "" {
			continue
		}
		r.idSegment = sensorIDSegment(r.filter)
		s.routes = append(s.routes, r)
	}
	return s
}

// SubscribeAll subscribes to every configured sensor topic with QoS 1
func (s *Subscriber) SubscribeAll() error {
	for _, r := range s.routes {
		token := s.client.Subscribe(r.filter, 1, func(_ mqtt.Client, msg mqtt.Message) {
			s.handleMessage(r, msg)
		})
		if !token.WaitTimeout(s.subscribeTimeout) {
			return fmt.Errorf("timed out subscribing to %s topic %s", r.metric, r.filter)
		}
		if err := token.Error(); err != nil {
			return fmt.Errorf("failed to subscribe to %s topic %s: %w", r.metric, r.filter, err)
		}
		log.Printf("MQTT Subscriber: %s readings on %s (sensor id at level %d)", r.metric, r.filter, r.idSegment)
	}
	return nil
}

// handleMessage parses a payload and forwards it to the reading channel
func (s *Subscriber) handleMessage(r route, msg mqtt.Message) {
	reading, err := parseReading(r.metric, msg.Topic(), r.idSegment, msg.Payload(), s.now())
	if err != nil {
		log.Printf("MQTT Subscriber: Error parsing %s message on %s: %v", r.metric, msg.Topic(), err)
		return
	}

	// Write to channel (non-blocking with timeout)
	select {
	case s.ReadingChan <- reading:
	case <-time.After(s.sendTimeout):
		log.Printf("Warning: Reading channel full, dropping %s from sensor %d", r.metric, reading.SensorID)
	}
}

// sensorIDSegment returns the topic level matched by the last single-level
// wildcard of filter. Filters without one use level 1 (sensor/{id}/...).
func sensorIDSegment(filter string) int {
	levels := strings.Split(filter, "/")
	for i := len(levels) - 1; i >= 0; i-- {
		if levels[i] == "+" {
			return i
		}
	}
	return 1
}

// jsonReading is the structured payload some firmware sends instead of a bare number
type jsonReading struct {
	Value     *float64 `json:"value"`
	Timestamp string   `json:"timestamp"`
}

// parseReading builds a Reading from a topic whose level idSegment holds the sensor id.
// The payload is either a bare float or {"value": 48.2, "timestamp": "<RFC3339>"}.
func parseReading(metric models.Metric, topic string, idSegment int, payload []byte, receivedAt time.Time) (*models.Reading, error) {
	sensorID, err := extractSensorID(topic, idSegment)
	if err != nil {
		return nil, err
	}

	var value float64
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var jr jsonReading
		if err := json.Unmarshal(trimmed, &jr); err != nil {
			return nil, fmt.Errorf("invalid json payload: %w", err)
		}
		if jr.Value == nil {
			return nil, fmt.Errorf("json payload has no value")
		}
		value = *jr.Value

		// Device timestamp wins when parseable and not ahead of the receive time
		// by more than the allowed clock skew
		if ts, err := time.Parse(time.RFC3339, jr.Timestamp); err == nil {
			if ts.Sub(receivedAt) <= acquisition.MaxClockSkew {
				receivedAt = ts
			} else {
				log.Printf("MQTT Subscriber: Sensor %d clock is %s ahead, using receive time",
					sensorID, ts.Sub(receivedAt).Round(time.Second))
			}
		}
	} else {
		value, err = strconv.ParseFloat(string(trimmed), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q: %w", payload, err)
		}
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, fmt.Errorf("non-finite value %q", payload)
	}

	return &models.Reading{
		SensorID:   sensorID,
		Metric:     metric,
		Value:      value,
		ReceivedAt: receivedAt,
	}, nil
}

// extractSensorID reads the numeric sensor ID at topic level idSegment
// Example: ("sensor/12/temperature", 1) -> 12
func extractSensorID(topic string, idSegment int) (int, error) {
	levels := strings.Split(topic, "/")
	if idSegment < 0 || idSegment >= len(levels) {
		return 0, fmt.Errorf("no sensor id in topic %q", topic)
	}
	id, err := strconv.Atoi(levels[idSegment])
	if err != nil {
		return 0, fmt.Errorf("invalid sensor id in topic %q: %w", topic, err)
	}
	return id, nil
}
