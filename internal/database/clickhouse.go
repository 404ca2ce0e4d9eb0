package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"fire-backend/internal/models"
)

// ClickHouseDB is the fire alert log
type ClickHouseDB struct {
	conn driver.Conn
}

// connectTimeout bounds the ping and schema setup done by NewClickHouseDB
const connectTimeout = 15 * time.Second

// alertLogOptions builds the connection options for the alert log database
func alertLogOptions(addr, database, username, password string) *clickhouse.Options {
	return &clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	}
}

// NewClickHouseDB connects to the alert log and creates the fire_alerts table
func NewClickHouseDB(addr, database, username, password string) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(alertLogOptions(addr, database, username, password))
	if err != nil {
		return nil, fmt.Errorf("failed to open ClickHouse connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	db, err := openAlertLog(ctx, conn)
	if err != nil {
		return nil, err
	}

	log.Printf("ClickHouse: Alert log ready at %s/%s", addr, database)
	return db, nil
}

// openAlertLog pings conn and creates the schema, closing conn if either fails
func openAlertLog(ctx context.Context, conn driver.Conn) (*ClickHouseDB, error) {
	if err := conn.Ping(ctx); err != nil {
		closeAfterFailedSetup(conn)
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	db := &ClickHouseDB{conn: conn}
	if err := db.InitSchema(ctx); err != nil {
		closeAfterFailedSetup(conn)
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return db, nil
}

func closeAfterFailedSetup(conn driver.Conn) {
	if err := conn.Close(); err != nil {
		log.Printf("ClickHouse: Error closing connection after failed setup: %v", err)
	}
}

// InitSchema creates the necessary tables if they don't exist
func (db *ClickHouseDB) InitSchema(ctx context.Context) error {
	for _, tableSQL := range AllTables() {
		if err := db.conn.Exec(ctx, tableSQL); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	log.Println("ClickHouse: fire_alerts schema initialized")
	return nil
}

// Name identifies this sink in logs and metrics
func (db *ClickHouseDB) Name() string {
	return "clickhouse"
}

// Publish appends a dispatched alert to the alert log
func (db *ClickHouseDB) Publish(ctx context.Context, alert *models.DispatchedAlert) error {
	return db.SaveAlert(ctx, alert)
}

// SaveAlert saves a dispatched fire alert to the database
func (db *ClickHouseDB) SaveAlert(ctx context.Context, alert *models.DispatchedAlert) error {
	err := db.conn.Exec(ctx, insertFireAlertSQL,
		alert.Timestamp,
		alert.CycleID,
		alert.Record.Location,
		alert.Record.Temperature,
		int32(alert.Record.SmokeLevel),
		alert.Record.AffectedLocations,
		alert.Escalated,
	)

	if err != nil {
		return fmt.Errorf("failed to insert fire alert: %w", err)
	}

	return nil
}

// AlertSummary is the per-location count of alerts over a time window
type AlertSummary struct {
	Location       string
	Alerts         uint64
	MaxTemperature float64
	LastSeen       time.Time
}

// GetAlertSummary returns alert counts per location since the given time
func (db *ClickHouseDB) GetAlertSummary(ctx context.Context, since time.Time) ([]AlertSummary, error) {
	rows, err := db.conn.Query(ctx, alertSummarySQL, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query alert summary: %w", err)
	}
	defer rows.Close()

	var summaries []AlertSummary
	for rows.Next() {
		var s AlertSummary
		if err := rows.Scan(&s.Location, &s.Alerts, &s.MaxTemperature, &s.LastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan alert summary: %w", err)
		}
		summaries = append(summaries, s)
	}

	return summaries, rows.Err()
}

// Close closes the ClickHouse connection
func (db *ClickHouseDB) Close() error {
	if db.conn != nil {
		if err := db.conn.Close(); err != nil {
			return fmt.Errorf("failed to close ClickHouse connection: %w", err)
		}
		log.Println("ClickHouse connection closed")
	}
	return nil
}
