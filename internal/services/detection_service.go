package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"fire-backend/internal/acquisition"
	"fire-backend/internal/alert"
	"fire-backend/internal/cluster"
	"fire-backend/internal/detection"
	"fire-backend/internal/metrics"
	"fire-backend/internal/models"
)

// ErrAlertQueueFull means the dispatcher did not accept an alert within the enqueue timeout
var ErrAlertQueueFull = errors.New("alert queue full")

// Acquirer produces the sensor records of one detection cycle
type Acquirer interface {
	Acquire() ([]models.SensorRecord, []*acquisition.ReadError, error)
}

// DetectionService runs the detect-and-alert cycle on a fixed interval.
// Each cycle is one synchronous pass: acquire, cluster, classify, rank, assemble.
type DetectionService struct {
	acquirer   Acquirer
	classifier *detection.Classifier
	assembler  *alert.Assembler
	metrics    *metrics.Metrics

	// Configuration
	interval       time.Duration
	enqueueTimeout time.Duration

	// Output channel for assembled alerts (read by the AlertDispatcher)
	AlertChan chan *models.DispatchedAlert

	now   func() time.Time
	newID func() string
}

// DetectionServiceConfig holds configuration for the detection service
type DetectionServiceConfig struct {
	Interval    time.Duration // Time between cycles
	ChannelSize int           // Size of the alert channel
}

// DefaultDetectionServiceConfig returns default configuration
func DefaultDetectionServiceConfig() DetectionServiceConfig {
	return DetectionServiceConfig{
		Interval:    5 * time.Second,
		ChannelSize: 50,
	}
}

// NewDetectionService creates a new detection service
func NewDetectionService(
	acquirer Acquirer,
	classifier *detection.Classifier,
	assembler *alert.Assembler,
	m *metrics.Metrics,
	config DetectionServiceConfig,
) *DetectionService {
	return &DetectionService{
		acquirer:       acquirer,
		classifier:     classifier,
		assembler:      assembler,
		metrics:        m,
		interval:       config.Interval,
		enqueueTimeout: 1 * time.Second,
		AlertChan:      make(chan *models.DispatchedAlert, config.ChannelSize),
		now:            time.Now,
		newID:          uuid.NewString,
	}
}

// CycleReport summarizes one detection cycle
type CycleReport struct {
	CycleID    string
	StartedAt  time.Time
	Records    []models.SensorRecord
	ReadErrors []*acquisition.ReadError
	Clusters   []cluster.Cluster
	Alarming   []cluster.Cluster // At least one member tripped the instantaneous rule
	Escalated  []cluster.Cluster // Confirmed by averaged readings, ranked by severity
	Alerts     []*models.DispatchedAlert // Handed to the dispatcher
	Dropped    []error                   // Alerts that could not be assembled, encoded or enqueued
}

// Start begins the detection loop. Runs until context is cancelled.
func (ds *DetectionService) Start(ctx context.Context) {
	log.Println("DetectionService: Starting detection loop...")
	trip, confirm := ds.classifier.TripThresholds(), ds.classifier.ConfirmThresholds()
	log.Printf("DetectionService: Interval=%v, trip=(%.2f°C, smoke %.2f), confirm=(%.2f°C, smoke %.2f)",
		ds.interval, trip.Temperature, trip.Smoke, confirm.Temperature, confirm.Smoke)

	ticker := time.NewTicker(ds.interval)
	defer ticker.Stop()

	// Initial cycle
	ds.runAndLog(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("DetectionService: Shutting down...")
			close(ds.AlertChan)
			log.Println("DetectionService: Shutdown complete")
			return
		case <-ticker.C:
			ds.runAndLog(ctx)
		}
	}
}

func (ds *DetectionService) runAndLog(ctx context.Context) {
	report, err := ds.RunCycle(ctx)
	if err != nil {
		log.Printf("DetectionService: Cycle %s skipped: %v", report.CycleID, err)
		return
	}
	if len(report.Alerts) > 0 || len(report.Dropped) > 0 {
		log.Printf("DetectionService: Cycle %s: %d sensors, %d locations, %d alarming, %d escalated, %d alerts, %d dropped",
			report.CycleID, len(report.Records), len(report.Clusters), len(report.Alarming),
			len(report.Escalated), len(report.Alerts), len(report.Dropped))
	}
}

// RunCycle performs one detection cycle. A non-nil error means the cycle was
// abandoned during acquisition and no alerts were produced.
func (ds *DetectionService) RunCycle(ctx context.Context) (*CycleReport, error) {
	report := &CycleReport{
		CycleID:   ds.newID(),
		StartedAt: ds.now(),
	}

	records, readErrors, err := ds.acquirer.Acquire()
	report.ReadErrors = readErrors
	for _, re := range readErrors {
		log.Printf("DetectionService: Read failed: %v", re)
		ds.metrics.IncReadError(string(re.Metric))
	}
	if err != nil {
		ds.metrics.ObserveCycle(metrics.ResultAborted, ds.now().Sub(report.StartedAt))
		return report, fmt.Errorf("cycle %s: %w", report.CycleID, err)
	}

	report.Records = records
	report.Clusters = cluster.Build(records)

	var confirmed, unconfirmedAlarming []cluster.Cluster
	for _, c := range report.Clusters {
		_, tripped := ds.classifier.Peak(c)
		if tripped {
			report.Alarming = append(report.Alarming, c)
		}

		ok, err := ds.classifier.Confirmed(c)
		if err != nil {
			// Build never yields empty clusters
			log.Printf("DetectionService: Skipping location: %v", err)
			continue
		}
		switch {
		case ok:
			confirmed = append(confirmed, c)
		case tripped:
			unconfirmedAlarming = append(unconfirmedAlarming, c)
		}
	}

	report.Escalated = cluster.Rank(confirmed)
	ds.metrics.SetCycleState(len(records), len(report.Alarming), len(report.Escalated))

	for _, c := range report.Escalated {
		ds.dispatch(ctx, report, c, true)
	}
	for _, c := range cluster.Rank(unconfirmedAlarming) {
		ds.dispatch(ctx, report, c, false)
	}

	ds.metrics.ObserveCycle(metrics.ResultOK, ds.now().Sub(report.StartedAt))
	return report, nil
}

// dispatch assembles, encodes and enqueues the alert for one location.
// Failures drop this alert only.
func (ds *DetectionService) dispatch(ctx context.Context, report *CycleReport, c cluster.Cluster, escalated bool) {
	// Confirmed locations may have no tripped member; fall back to the hottest one
	trigger, ok := ds.classifier.Peak(c)
	if !ok {
		trigger, _ = cluster.Hottest(c.Sensors)
	}

	record, err := ds.assembler.Assemble(c, trigger)
	if err != nil {
		ds.drop(report, "unknown_location", fmt.Errorf("floor=%d room=%d: %w", c.Floor, c.Room, err))
		return
	}

	payload, err := alert.Encode(record)
	if err != nil {
		ds.drop(report, "encoding", err)
		return
	}

	da := &models.DispatchedAlert{
		CycleID:   report.CycleID,
		Timestamp: report.StartedAt,
		Escalated: escalated,
		Record:    record,
		Payload:   payload,
	}
	log.Printf("DetectionService: FIRE at %s (temp=%.2f°C, smoke=%d, escalated=%v)",
		record.Location, record.Temperature, record.SmokeLevel, escalated)

	if err := ds.enqueue(ctx, da); err != nil {
		reason := "cancelled"
		if errors.Is(err, ErrAlertQueueFull) {
			reason = "queue_full"
		}
		ds.drop(report, reason, fmt.Errorf("alert for %s: %w", record.Location, err))
		return
	}
	report.Alerts = append(report.Alerts, da)
}

func (ds *DetectionService) drop(report *CycleReport, reason string, err error) {
	log.Printf("DetectionService: Dropping alert (%s): %v", reason, err)
	report.Dropped = append(report.Dropped, err)
	ds.metrics.IncAlertDropped(reason)
}

// enqueue hands the alert to the dispatcher (non-blocking with timeout)
func (ds *DetectionService) enqueue(ctx context.Context, da *models.DispatchedAlert) error {
	select {
	case ds.AlertChan <- da:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(ds.enqueueTimeout):
		return ErrAlertQueueFull
	}
}
