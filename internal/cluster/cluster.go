// Package cluster groups sensor records by location and ranks the resulting
// clusters by severity.
package cluster

import (
	"errors"
	"sort"

	"fire-backend/internal/models"
)

// ErrEmptyCluster is returned when averaging a cluster with no sensors
var ErrEmptyCluster = errors.New("cluster has no sensors")

// Key identifies a physical location
type Key struct {
	Floor int
	Room  int
}

// Cluster is the set of sensors sharing one (floor, room) location
// within a single detection cycle
type Cluster struct {
	Sensors []models.SensorRecord
	Floor   int
	Room    int
}

// Key returns the location key of the cluster
func (c Cluster) Key() Key {
	return Key{Floor: c.Floor, Room: c.Room}
}

// Average returns the mean temperature and smoke level of the cluster
func (c Cluster) Average() (float64, float64, error) {
	return Average(c)
}

// Build partitions sensors into clusters keyed by (floor, room).
// Clusters appear in order of first appearance of their key, and sensors
// keep input order inside each cluster.
func Build(sensors []models.SensorRecord) []Cluster {
	clusters := make([]Cluster, 0)

	for _, sensor := range sensors {
		found := false
		for i := range clusters {
			if clusters[i].Floor == sensor.Floor && clusters[i].Room == sensor.Room {
				clusters[i].Sensors = append(clusters[i].Sensors, sensor)
				found = true
				break
			}
		}
		if !found {
			clusters = append(clusters, Cluster{
				Sensors: []models.SensorRecord{sensor},
				Floor:   sensor.Floor,
				Room:    sensor.Room,
			})
		}
	}

	return clusters
}

// Average computes the arithmetic mean of temperature and smoke level
func Average(c Cluster) (avgTemperature, avgSmoke float64, err error) {
	if len(c.Sensors) == 0 {
		return 0, 0, ErrEmptyCluster
	}

	var totalTemperature, totalSmoke float64
	for _, s := range c.Sensors {
		totalTemperature += s.Temperature
		totalSmoke += s.SmokeLevel
	}

	n := float64(len(c.Sensors))
	return totalTemperature / n, totalSmoke / n, nil
}

// CompareSeverity orders two clusters by descending (avg temperature, avg smoke).
// It returns -1 when a ranks first, 1 when b ranks first and 0 on a tie.
// Empty clusters rank after every non-empty one.
func CompareSeverity(a, b Cluster) int {
	aTemp, aSmoke, aErr := Average(a)
	bTemp, bSmoke, bErr := Average(b)

	switch {
	case aErr != nil && bErr != nil:
		return 0
	case aErr != nil:
		return 1
	case bErr != nil:
		return -1
	}

	return compareSeverityKey(aTemp, aSmoke, bTemp, bSmoke)
}

func compareSeverityKey(aTemp, aSmoke, bTemp, bSmoke float64) int {
	switch {
	case aTemp > bTemp:
		return -1
	case aTemp < bTemp:
		return 1
	case aSmoke > bSmoke:
		return -1
	case aSmoke < bSmoke:
		return 1
	default:
		return 0
	}
}

// Hottest returns the record with the highest (temperature, smoke), using the
// same ordering as CompareSeverity. The first one wins on an exact tie.
// ok is false when sensors is empty.
func Hottest(sensors []models.SensorRecord) (hottest models.SensorRecord, ok bool) {
	for _, s := range sensors {
		if !ok || compareSeverityKey(s.Temperature, s.SmokeLevel, hottest.Temperature, hottest.SmokeLevel) < 0 {
			hottest = s
			ok = true
		}
	}
	return hottest, ok
}

// Rank returns a copy of clusters sorted by descending severity.
// Clusters that tie keep their input order.
func Rank(clusters []Cluster) []Cluster {
	type ranked struct {
		cluster Cluster
		temp    float64
		smoke   float64
		empty   bool
	}

	// Averages are computed once per cluster rather than once per comparison
	items := make([]ranked, len(clusters))
	for i, c := range clusters {
		temp, smoke, err := Average(c)
		items[i] = ranked{cluster: c, temp: temp, smoke: smoke, empty: err != nil}
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.empty || b.empty {
			return !a.empty && b.empty
		}
		return compareSeverityKey(a.temp, a.smoke, b.temp, b.smoke) < 0
	})

	out := make([]Cluster, len(items))
	for i, item := range items {
		out[i] = item.cluster
	}
	return out
}
