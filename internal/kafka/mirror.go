// Package kafka mirrors dispatched fire alerts to a Kafka topic.
package kafka

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"fire-backend/internal/models"
)

// MessageWriter is the subset of kafka.Writer used by Mirror
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Mirror writes alert payloads to Kafka, keyed by location so a location's
// alerts stay ordered within one partition
type Mirror struct {
	writer MessageWriter
	topic  string
}

// NewWriter builds a kafka.Writer for the alert topic
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: false,
		BatchTimeout:           50 * time.Millisecond,
	}
}

// NewMirror creates a mirror over the given writer
func NewMirror(writer MessageWriter, topic string) *Mirror {
	return &Mirror{writer: writer, topic: topic}
}

// Name identifies this sink in logs and metrics
func (m *Mirror) Name() string {
	return "kafka"
}

// Publish writes one alert to Kafka
func (m *Mirror) Publish(ctx context.Context, alert *models.DispatchedAlert) error {
	msg := kafka.Message{
		Key:   []byte(alert.Record.Location),
		Value: alert.Payload,
		Time:  alert.Timestamp,
		Headers: []kafka.Header{
			{Key: "cycle_id", Value: []byte(alert.CycleID)},
		},
	}

	if err := m.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write alert to kafka topic %s: %w", m.topic, err)
	}

	log.Printf("Kafka Mirror: Fire alert for %s written to %s", alert.Record.Location, m.topic)
	return nil
}

// Close flushes and closes the underlying writer
func (m *Mirror) Close() error {
	return m.writer.Close()
}
