package mqtt

import (
	"context"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"fire-backend/internal/models"
)

// Publisher publishes encoded fire alerts to the alert topic
type Publisher struct {
	client mqtt.Client

	alertTopic     string
	qos            byte
	publishTimeout time.Duration
}

// PublisherConfig holds configuration for MQTT publisher
type PublisherConfig struct {
	AlertTopic     string // e.g., "building/fire-alert"
	PublishTimeout time.Duration
}

// NewPublisher creates a new MQTT alert publisher
func NewPublisher(client mqtt.Client, config PublisherConfig) *Publisher {
	topic := config.AlertTopic
	if topic == "" {
		topic = models.FireAlertTopic
	}
	timeout := config.PublishTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Publisher{
		client:         client,
		alertTopic:     topic,
		qos:            1,
		publishTimeout: timeout,
	}
}

// Name identifies this sink in logs and metrics
func (p *Publisher) Name() string {
	return "mqtt"
}

// Publish sends the alert payload to the alert topic and waits for the broker ack
func (p *Publisher) Publish(ctx context.Context, alert *models.DispatchedAlert) error {
	token := p.client.Publish(p.alertTopic, p.qos, false, alert.Payload)

	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publish to %s cancelled: %w", p.alertTopic, ctx.Err())
	case <-time.After(p.publishTimeout):
		return fmt.Errorf("publish to %s timed out after %s", p.alertTopic, p.publishTimeout)
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish fire alert: %w", err)
	}

	log.Printf("MQTT Publisher: Fire alert for %s sent to %s", alert.Record.Location, p.alertTopic)
	return nil
}
