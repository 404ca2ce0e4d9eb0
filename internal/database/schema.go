package database

// SQL schemas for all ClickHouse tables

const (
	// FireAlertsTableSQL creates the fire_alerts table.
	// Only dispatched alerts are stored, never raw sensor readings.
	FireAlertsTableSQL = `
		CREATE TABLE IF NOT EXISTS fire_alerts (
			timestamp DateTime64(3),
			cycle_id String,
			location String,
			temperature Float64,
			smoke_level Int32,
			affected_rooms Array(String),
			escalated Bool
		) ENGINE = MergeTree()
		ORDER BY (location, timestamp)
		PARTITION BY toYYYYMM(timestamp)
		TTL toDateTime(timestamp) + INTERVAL 90 DAY
	`

	insertFireAlertSQL = `
		INSERT INTO fire_alerts (timestamp, cycle_id, location, temperature, smoke_level, affected_rooms, escalated)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	alertSummarySQL = `
		SELECT
			location,
			count() AS alerts,
			max(temperature) AS max_temperature,
			max(timestamp) AS last_seen
		FROM fire_alerts
		WHERE timestamp >= ?
		GROUP BY location
		ORDER BY alerts DESC, location
	`
)

// AllTables returns all table creation SQL statements
func AllTables() []string {
	return []string{
		FireAlertsTableSQL,
	}
}
