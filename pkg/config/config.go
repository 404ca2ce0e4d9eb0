package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// MQTT Configuration
	MQTTBroker   string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string

	// MQTT topics
	MQTTTopicTemperature string
	MQTTTopicSmoke       string
	MQTTTopicFireAlert   string

	// ClickHouse Configuration (alert log)
	ClickHouseEnabled bool
	ClickHouseAddr    string
	ClickHouseDB      string
	ClickHouseUser    string
	ClickHousePass    string

	// Kafka alert mirror (disabled when no brokers are set)
	KafkaBrokers    []string
	KafkaAlertTopic string

	// Detection thresholds
	TemperatureThreshold        float64
	SmokeThreshold              float64
	ConfirmTemperatureThreshold float64
	ConfirmSmokeThreshold       float64

	// Detection cycle
	DetectionInterval        time.Duration
	ReadingMaxAge            time.Duration
	AcquisitionFailurePolicy string

	// Channel buffer sizes
	ReadingChannelSize int
	AlertChannelSize   int

	// Building topology (YAML); empty uses the built-in layout
	TopologyPath string

	// Prometheus endpoint; empty disables it
	MetricsAddr string
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	temperatureThreshold := getEnvFloat("TEMPERATURE_THRESHOLD", 50.0)
	smokeThreshold := getEnvFloat("SMOKE_THRESHOLD", 300)

	return &Config{
		// MQTT Configuration
		MQTTBroker:   getEnv("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTClientID: getEnv("MQTT_CLIENT_ID", "fire-backend"),
		MQTTUsername: getEnv("MQTT_USERNAME", ""),
		MQTTPassword: getEnv("MQTT_PASSWORD", ""),

		// MQTT topics
		MQTTTopicTemperature: getEnv("MQTT_TOPIC_TEMPERATURE", "sensor/+/temperature"),
		MQTTTopicSmoke:       getEnv("MQTT_TOPIC_SMOKE", "sensor/+/smoke"),
		MQTTTopicFireAlert:   getEnv("MQTT_TOPIC_FIRE_ALERT", "building/fire-alert"),

		// ClickHouse Configuration
		ClickHouseEnabled: getEnvBool("CLICKHOUSE_ENABLED", true),
		ClickHouseAddr:    getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDB:      getEnv("CLICKHOUSE_DB", "fire"),
		ClickHouseUser:    getEnv("CLICKHOUSE_USER", "default"),
		ClickHousePass:    getEnv("CLICKHOUSE_PASS", ""),

		// Kafka
		KafkaBrokers:    getEnvList("KAFKA_BROKERS"),
		KafkaAlertTopic: getEnv("KAFKA_ALERT_TOPIC", "building.fire-alert"),

		// Detection thresholds (confirmation defaults to the trip thresholds)
		TemperatureThreshold:        temperatureThreshold,
		SmokeThreshold:              smokeThreshold,
		ConfirmTemperatureThreshold: getEnvFloat("CONFIRM_TEMPERATURE_THRESHOLD", temperatureThreshold),
		ConfirmSmokeThreshold:       getEnvFloat("CONFIRM_SMOKE_THRESHOLD", smokeThreshold),

		// Detection cycle
		DetectionInterval:        getEnvDuration("DETECTION_INTERVAL", 5*time.Second),
		ReadingMaxAge:            getEnvDuration("READING_MAX_AGE", 30*time.Second),
		AcquisitionFailurePolicy: getEnv("ACQUISITION_FAILURE_POLICY", "skip"),

		ReadingChannelSize: getEnvInt("READING_CHANNEL_SIZE", 200),
		AlertChannelSize:   getEnvInt("ALERT_CHANNEL_SIZE", 50),

		TopologyPath: getEnv("TOPOLOGY_PATH", ""),
		MetricsAddr:  getEnv("METRICS_ADDR", ":9102"),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("Warning: failed to parse %s as float, using default: %v", key, err)
		return defaultValue
	}
	return floatValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil || intValue < 0 {
		log.Printf("Warning: failed to parse %s as non-negative int, using default: %v", key, err)
		return defaultValue
	}
	return intValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as bool, using default: %v", key, err)
		return defaultValue
	}
	return boolValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		log.Printf("Warning: failed to parse %s as positive duration, using default: %v", key, err)
		return defaultValue
	}
	return d
}

// getEnvList splits a comma-separated value, dropping empty entries
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
