// Package acquisition turns buffered sensor readings into per-cycle sensor records.
//
// A failed read never becomes a zero reading. What happens to the cycle is
// decided by the FailurePolicy.
package acquisition

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"fire-backend/internal/models"
)

var (
	// ErrNoReading means the sensor has not reported this metric yet
	ErrNoReading = errors.New("no reading received")
	// ErrStaleReading means the last reading is older than the allowed age
	ErrStaleReading = errors.New("reading is stale")
)

// ReadError reports a failed read of one metric from one sensor
type ReadError struct {
	SensorID int
	Metric   models.Metric
	Err      error
	Age      time.Duration // Set for stale readings; negative when timestamped in the future
}

func (e *ReadError) Error() string {
	if e.Age != 0 {
		return fmt.Sprintf("sensor %d %s: %v (age %s)", e.SensorID, e.Metric, e.Err, e.Age.Round(time.Millisecond))
	}
	return fmt.Sprintf("sensor %d %s: %v", e.SensorID, e.Metric, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// Source reads the current value of a sensor's metrics
type Source interface {
	ReadTemperature(sensorID int) (float64, error)
	ReadSmokeLevel(sensorID int) (float64, error)
}

// FailurePolicy decides what a read failure does to the detection cycle
type FailurePolicy string

const (
	// PolicySkip drops the failing sensor from this cycle and carries on
	PolicySkip FailurePolicy = "skip"
	// PolicyAbort abandons the whole cycle
	PolicyAbort FailurePolicy = "abort"
)

// ParseFailurePolicy parses a policy name
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case PolicySkip:
		return PolicySkip, nil
	case PolicyAbort:
		return PolicyAbort, nil
	default:
		return "", fmt.Errorf("unknown acquisition failure policy %q", s)
	}
}

// ErrCycleAborted is returned by Acquire under PolicyAbort when any read failed
var ErrCycleAborted = errors.New("acquisition aborted")

// Acquirer reads every placed sensor once per cycle
type Acquirer struct {
	source     Source
	placements []models.SensorPlacement
	policy     FailurePolicy
}

// NewAcquirer creates an acquirer over the given sensor placements
func NewAcquirer(source Source, placements []models.SensorPlacement, policy FailurePolicy) *Acquirer {
	return &Acquirer{
		source:     source,
		placements: placements,
		policy:     policy,
	}
}

// Acquire returns one record per sensor that could be read, in placement order,
// along with every read failure. Under PolicyAbort any failure also yields a
// non-nil error wrapping ErrCycleAborted and the read errors; records is nil then.
func (a *Acquirer) Acquire() ([]models.SensorRecord, []*ReadError, error) {
	records := make([]models.SensorRecord, 0, len(a.placements))
	var failures []*ReadError

	for _, p := range a.placements {
		temperature, tempErr := a.source.ReadTemperature(p.ID)
		smoke, smokeErr := a.source.ReadSmokeLevel(p.ID)

		if tempErr != nil {
			failures = append(failures, asReadError(p.ID, models.MetricTemperature, tempErr))
		}
		if smokeErr != nil {
			failures = append(failures, asReadError(p.ID, models.MetricSmoke, smokeErr))
		}
		if tempErr != nil || smokeErr != nil {
			continue
		}

		records = append(records, p.Record(temperature, smoke))
	}

	if len(failures) > 0 && a.policy == PolicyAbort {
		errs := make([]error, 0, len(failures)+1)
		errs = append(errs, ErrCycleAborted)
		for _, f := range failures {
			errs = append(errs, f)
		}
		return nil, failures, errors.Join(errs...)
	}

	return records, failures, nil
}

func asReadError(sensorID int, metric models.Metric, err error) *ReadError {
	var re *ReadError
	if errors.As(err, &re) {
		return re
	}
	return &ReadError{SensorID: sensorID, Metric: metric, Err: err}
}
