package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fire-backend/internal/acquisition"
	"fire-backend/internal/alert"
	"fire-backend/internal/database"
	"fire-backend/internal/detection"
	"fire-backend/internal/kafka"
	"fire-backend/internal/location"
	"fire-backend/internal/metrics"
	"fire-backend/internal/mqtt"
	"fire-backend/internal/services"
	"fire-backend/pkg/config"
)

func main() {
	log.Println("Starting Fire Detection Backend...")

	// Load configuration
	cfg := config.Load()

	policy, err := acquisition.ParseFailurePolicy(cfg.AcquisitionFailurePolicy)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// === Building topology ===
	topo, err := location.LoadTopology(cfg.TopologyPath)
	if err != nil {
		log.Fatalf("Failed to load building topology: %v", err)
	}
	index := location.NewIndex(topo)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === Metrics ===
	m := metrics.New(prometheus.DefaultRegisterer)
	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Printf("Metrics: Serving on %s/metrics", cfg.MetricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("Metrics: Server error: %v", err)
			}
		}()
	}

	// === Initialize MQTT Client ===
	log.Println("Connecting to MQTT broker...")
	mqttClient, err := mqtt.NewClient(mqtt.ClientConfig{
		Broker:   cfg.MQTTBroker,
		ClientID: cfg.MQTTClientID,
		Username: cfg.MQTTUsername,
		Password: cfg.MQTTPassword,
	})
	if err != nil {
		log.Fatalf("Failed to initialize MQTT client: %v", err)
	}
	defer mqttClient.Close()

	// === Alert sinks ===
	sinks := []services.AlertSink{
		mqtt.NewPublisher(mqttClient.GetNativeClient(), mqtt.PublisherConfig{
			AlertTopic: cfg.MQTTTopicFireAlert,
		}),
	}

	if cfg.ClickHouseEnabled {
		db, err := database.NewClickHouseDB(
			cfg.ClickHouseAddr,
			cfg.ClickHouseDB,
			cfg.ClickHouseUser,
			cfg.ClickHousePass,
		)
		if err != nil {
			log.Fatalf("Failed to initialize ClickHouse: %v", err)
		}
		defer db.Close()

		logRecentAlerts(ctx, db)
		sinks = append(sinks, db)
	}

	if len(cfg.KafkaBrokers) > 0 {
		writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.KafkaAlertTopic)
		mirror := kafka.NewMirror(writer, cfg.KafkaAlertTopic)
		defer mirror.Close()

		log.Printf("Kafka: Mirroring alerts to %s on %v", cfg.KafkaAlertTopic, cfg.KafkaBrokers)
		sinks = append(sinks, mirror)
	}

	// === Sensor ingestion ===
	buffer := acquisition.NewBuffer(cfg.ReadingMaxAge)
	sensorService := services.NewSensorService(buffer, topo.Sensors, services.SensorServiceConfig{
		ReadingChannelSize: cfg.ReadingChannelSize,
	})

	subscriber := mqtt.NewSubscriber(
		mqttClient.GetNativeClient(),
		mqtt.SubscriberConfig{
			TemperatureTopic: cfg.MQTTTopicTemperature,
			SmokeTopic:       cfg.MQTTTopicSmoke,
		},
		sensorService.ReadingChan,
	)
	if err := subscriber.SubscribeAll(); err != nil {
		log.Fatalf("Failed to subscribe to MQTT topics: %v", err)
	}
	mqttClient.OnReconnect(func() {
		if err := subscriber.SubscribeAll(); err != nil {
			log.Printf("MQTT Client: Failed to restore subscriptions: %v", err)
		}
	})

	go sensorService.Start(ctx)

	// === Detection ===
	classifier := detection.NewClassifierWithConfirmation(
		detection.Thresholds{Temperature: cfg.TemperatureThreshold, Smoke: cfg.SmokeThreshold},
		detection.Thresholds{Temperature: cfg.ConfirmTemperatureThreshold, Smoke: cfg.ConfirmSmokeThreshold},
	)

	detectionConfig := services.DefaultDetectionServiceConfig()
	detectionConfig.Interval = cfg.DetectionInterval
	detectionConfig.ChannelSize = cfg.AlertChannelSize

	detectionService := services.NewDetectionService(
		acquisition.NewAcquirer(buffer, topo.Sensors, policy),
		classifier,
		alert.NewAssembler(index),
		m,
		detectionConfig,
	)

	// The dispatcher reads the detection service's output channel
	dispatcher := services.NewAlertDispatcher(detectionService.AlertChan, m, sinks...)

	go dispatcher.Start(ctx)
	go detectionService.Start(ctx)

	// === Log startup info ===
	log.Println("=== Fire Detection Backend is running ===")
	log.Printf("Building: %d floors %v, %d sensors", len(topo.Floors), index.Floors(), len(topo.Sensors))
	log.Printf("Trip thresholds: Temp=%.2f°C, Smoke=%.0f", cfg.TemperatureThreshold, cfg.SmokeThreshold)
	log.Printf("Confirm thresholds: Temp=%.2f°C, Smoke=%.0f", cfg.ConfirmTemperatureThreshold, cfg.ConfirmSmokeThreshold)
	log.Printf("Detection interval: %s, reading max age: %s, failure policy: %s",
		cfg.DetectionInterval, cfg.ReadingMaxAge, policy)
	log.Printf("MQTT Topics:")
	log.Printf("  - Temperature: %s", cfg.MQTTTopicTemperature)
	log.Printf("  - Smoke:       %s", cfg.MQTTTopicSmoke)
	log.Printf("  - Fire alert:  %s", cfg.MQTTTopicFireAlert)
	log.Println("Press Ctrl+C to exit...")

	// === Wait for interrupt signal ===
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// === Graceful shutdown ===
	log.Println("Shutdown signal received, stopping services...")
	cancel() // Cancel context to stop all goroutines

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Metrics: Shutdown error: %v", err)
		}
		shutdownCancel()
	}

	// Give services time to finish processing
	time.Sleep(2 * time.Second)

	log.Println("Shutdown complete. Goodbye!")
}

// logRecentAlerts prints the alert history of the last 24 hours from the alert log
func logRecentAlerts(ctx context.Context, db *database.ClickHouseDB) {
	queryCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	summaries, err := db.GetAlertSummary(queryCtx, time.Now().Add(-24*time.Hour))
	if err != nil {
		log.Printf("Warning: failed to read alert history: %v", err)
		return
	}
	if len(summaries) == 0 {
		log.Println("No fire alerts in the last 24 hours")
		return
	}
	for _, s := range summaries {
		log.Printf("Recent alerts: %s: %d alerts, max %.1f°C, last at %s",
			s.Location, s.Alerts, s.MaxTemperature, s.LastSeen.Format(time.RFC3339))
	}
}
