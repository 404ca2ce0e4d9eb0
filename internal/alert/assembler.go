package alert

import (
	"encoding/json"
	"fmt"
	"math"

	"fire-backend/internal/cluster"
	"fire-backend/internal/location"
	"fire-backend/internal/models"
)

// EncodingError reports an alert that could not be serialized
type EncodingError struct {
	Location string
	Err      error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("failed to encode alert for %q: %v", e.Location, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// Assembler builds alert records from detected clusters.
// The location index is injected by the caller and never modified.
type Assembler struct {
	index *location.Index
}

// NewAssembler creates an assembler over the given location index
func NewAssembler(index *location.Index) *Assembler {
	return &Assembler{index: index}
}

// Assemble builds the alert for a cluster, reporting the trigger sensor's
// instantaneous readings and the rooms on the cluster's floor
func (a *Assembler) Assemble(c cluster.Cluster, trigger models.SensorRecord) (models.AlertRecord, error) {
	place, err := a.index.Describe(c.Floor, c.Room)
	if err != nil {
		return models.AlertRecord{}, err
	}

	floorLabel, err := a.index.FloorLabel(c.Floor)
	if err != nil {
		return models.AlertRecord{}, err
	}

	rooms, err := a.index.AffectedRooms(floorLabel)
	if err != nil {
		return models.AlertRecord{}, err
	}

	return models.AlertRecord{
		Location:          place,
		Temperature:       trigger.Temperature,
		SmokeLevel:        smokeUnits(trigger.SmokeLevel),
		AffectedLocations: rooms,
	}, nil
}

// smokeUnits converts a smoke reading to whole detector units for the wire format
func smokeUnits(v float64) int {
	return int(math.Round(v))
}

// Encode serializes an alert record to JSON
func Encode(record models.AlertRecord) ([]byte, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return nil, &EncodingError{Location: record.Location, Err: err}
	}
	return payload, nil
}
