// Package detection decides whether readings and locations are in a fire condition.
//
// Two rules are applied. The instantaneous rule trips on a single sensor when
// either signal is strictly above its threshold. The confirmation rule looks
// at a whole cluster and requires both averaged signals to reach their
// thresholds before the location is escalated.
package detection

import (
	"fmt"

	"fire-backend/internal/cluster"
	"fire-backend/internal/models"
)

// Thresholds holds the temperature and smoke limits for one rule
type Thresholds struct {
	Temperature float64 // Celsius
	Smoke       float64 // Raw detector units
}

// Classifier applies the instantaneous and confirmation rules
type Classifier struct {
	trip    Thresholds
	confirm Thresholds
}

// NewClassifier creates a classifier whose confirmation thresholds equal the trip thresholds
func NewClassifier(trip Thresholds) *Classifier {
	return &Classifier{trip: trip, confirm: trip}
}

// NewClassifierWithConfirmation creates a classifier with separate confirmation thresholds
func NewClassifierWithConfirmation(trip, confirm Thresholds) *Classifier {
	return &Classifier{trip: trip, confirm: confirm}
}

// TripThresholds returns the thresholds of the instantaneous rule
func (c *Classifier) TripThresholds() Thresholds {
	return c.trip
}

// ConfirmThresholds returns the thresholds of the confirmation rule
func (c *Classifier) ConfirmThresholds() Thresholds {
	return c.confirm
}

// IsAlarming reports whether a single reading trips the alarm.
// Either signal strictly above its threshold is enough.
func (c *Classifier) IsAlarming(temperature, smoke float64) bool {
	return temperature > c.trip.Temperature || smoke > c.trip.Smoke
}

// IsAffected reports whether both averaged signals of the cluster reach the
// given thresholds. An empty cluster returns cluster.ErrEmptyCluster.
func IsAffected(c cluster.Cluster, tempThreshold, smokeThreshold float64) (bool, error) {
	avgTemp, avgSmoke, err := c.Average()
	if err != nil {
		return false, fmt.Errorf("cluster floor=%d room=%d: %w", c.Floor, c.Room, err)
	}
	return avgTemp >= tempThreshold && avgSmoke >= smokeThreshold, nil
}

// Confirmed applies IsAffected with the classifier's confirmation thresholds
func (c *Classifier) Confirmed(cl cluster.Cluster) (bool, error) {
	return IsAffected(cl, c.confirm.Temperature, c.confirm.Smoke)
}

// TrippedSensors returns the members of the cluster that trip the instantaneous rule,
// in cluster order
func (c *Classifier) TrippedSensors(cl cluster.Cluster) []models.SensorRecord {
	var tripped []models.SensorRecord
	for _, s := range cl.Sensors {
		if c.IsAlarming(s.Temperature, s.SmokeLevel) {
			tripped = append(tripped, s)
		}
	}
	return tripped
}

// Peak returns the tripped sensor with the highest (temperature, smoke).
// The first one wins on an exact tie. ok is false when nothing tripped.
func (c *Classifier) Peak(cl cluster.Cluster) (peak models.SensorRecord, ok bool) {
	return cluster.Hottest(c.TrippedSensors(cl))
}
