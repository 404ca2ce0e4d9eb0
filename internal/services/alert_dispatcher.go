package services

import (
	"context"
	"log"
	"time"

	"fire-backend/internal/metrics"
	"fire-backend/internal/models"
)

// AlertSink receives every dispatched alert
type AlertSink interface {
	Name() string
	Publish(ctx context.Context, alert *models.DispatchedAlert) error
}

// AlertDispatcher fans alerts out from the detection service to every sink
type AlertDispatcher struct {
	sinks   []AlertSink
	metrics *metrics.Metrics

	// Input channel (written by the detection service)
	AlertChan chan *models.DispatchedAlert

	publishTimeout time.Duration
}

// NewAlertDispatcher creates a dispatcher reading from alertChan
func NewAlertDispatcher(alertChan chan *models.DispatchedAlert, m *metrics.Metrics, sinks ...AlertSink) *AlertDispatcher {
	return &AlertDispatcher{
		sinks:          sinks,
		metrics:        m,
		AlertChan:      alertChan,
		publishTimeout: 10 * time.Second,
	}
}

// Start publishes alerts until the context is cancelled or the channel is closed
func (d *AlertDispatcher) Start(ctx context.Context) {
	log.Printf("AlertDispatcher: Starting with %d sinks...", len(d.sinks))

	for {
		select {
		case <-ctx.Done():
			log.Println("AlertDispatcher: Context cancelled, shutting down...")
			return

		case alert, ok := <-d.AlertChan:
			if !ok {
				log.Println("AlertDispatcher: Alert channel closed, shutting down...")
				return
			}
			d.Dispatch(ctx, alert)
		}
	}
}

// Dispatch publishes one alert to every sink. A failing sink does not stop the others.
func (d *AlertDispatcher) Dispatch(ctx context.Context, alert *models.DispatchedAlert) {
	for _, sink := range d.sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, d.publishTimeout)
		err := sink.Publish(sinkCtx, alert)
		cancel()

		d.metrics.ObserveSinkPublish(sink.Name(), err)
		if err != nil {
			log.Printf("AlertDispatcher: Error publishing alert for %s to %s: %v", alert.Record.Location, sink.Name(), err)
		}
	}
}
