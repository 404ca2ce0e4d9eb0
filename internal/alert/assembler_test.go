package alert

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"testing"

	"fire-backend/internal/cluster"
	"fire-backend/internal/location"
	"fire-backend/internal/models"
)

func TestAssemble(t *testing.T) {
	a := NewAssembler(location.NewIndex(location.DefaultTopology()))

	trigger := models.SensorRecord{ID: 2, Floor: 1, Room: 101, Temperature: 72.5, SmokeLevel: 412.6}
	c := cluster.Cluster{Floor: 1, Room: 101, Sensors: []models.SensorRecord{trigger}}

	record, err := a.Assemble(c, trigger)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	want := models.AlertRecord{
		Location:          "Room A, Floor 1",
		Temperature:       72.5,
		SmokeLevel:        413,
		AffectedLocations: []string{"Room A", "Room B"},
	}
	if !reflect.DeepEqual(record, want) {
		t.Fatalf("got %+v want %+v", record, want)
	}
}

func TestAssembleUnknownLocation(t *testing.T) {
	a := NewAssembler(location.NewIndex(location.DefaultTopology()))

	trigger := models.SensorRecord{ID: 9, Floor: 5, Room: 501, Temperature: 90}
	c := cluster.Cluster{Floor: 5, Room: 501, Sensors: []models.SensorRecord{trigger}}

	_, err := a.Assemble(c, trigger)
	if !errors.Is(err, location.ErrUnknownLocation) {
		t.Fatalf("expected ErrUnknownLocation, got %v", err)
	}
}

func TestEncodeFieldNames(t *testing.T) {
	payload, err := Encode(models.AlertRecord{
		Location:          "Room C, Floor 2",
		Temperature:       61,
		SmokeLevel:        350,
		AffectedLocations: []string{"Room C", "Room D"},
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	for _, field := range []string{"location", "temperature", "smoke_level", "cluster"} {
		if _, ok := decoded[field]; !ok {
			t.Errorf("payload %s missing field %q", payload, field)
		}
	}
	if len(decoded) != 4 {
		t.Errorf("expected 4 fields, got %d: %s", len(decoded), payload)
	}
	if rooms, ok := decoded["cluster"].([]any); !ok || len(rooms) != 2 {
		t.Errorf("cluster field: got %#v", decoded["cluster"])
	}
}

func TestEncodeFailure(t *testing.T) {
	_, err := Encode(models.AlertRecord{Location: "Room A, Floor 1", Temperature: math.NaN()})

	var encErr *EncodingError
	if !errors.As(err, &encErr) {
		t.Fatalf("expected EncodingError, got %v", err)
	}
	if encErr.Location != "Room A, Floor 1" {
		t.Errorf("got location %q", encErr.Location)
	}
}
