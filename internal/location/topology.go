package location

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"fire-backend/internal/models"
)

// Topology describes the building: floors with their rooms, and where each sensor sits
type Topology struct {
	Floors  []Floor                  `yaml:"floors"`
	Sensors []models.SensorPlacement `yaml:"sensors"`
}

// Floor is one floor of the building
type Floor struct {
	Number int    `yaml:"number"`
	Label  string `yaml:"label"`
	Rooms  []Room `yaml:"rooms"`
}

// Room is one room on a floor
type Room struct {
	Number int    `yaml:"number"`
	Label  string `yaml:"label"`
}

// DefaultTopology returns the built-in two-floor layout used when no topology file is configured
func DefaultTopology() *Topology {
	return &Topology{
		Floors: []Floor{
			{Number: 1, Label: "Floor 1", Rooms: []Room{
				{Number: 101, Label: "Room A"},
				{Number: 102, Label: "Room B"},
			}},
			{Number: 2, Label: "Floor 2", Rooms: []Room{
				{Number: 201, Label: "Room C"},
				{Number: 202, Label: "Room D"},
			}},
		},
		Sensors: []models.SensorPlacement{
			{ID: 1, X: 1.0, Y: 1.0, Floor: 1, Room: 101},
			{ID: 2, X: 2.0, Y: 2.0, Floor: 1, Room: 101},
			{ID: 3, X: 3.0, Y: 3.0, Floor: 1, Room: 102},
			{ID: 4, X: 1.0, Y: 1.0, Floor: 2, Room: 201},
			{ID: 5, X: 3.0, Y: 3.0, Floor: 2, Room: 202},
		},
	}
}

// LoadTopology reads a YAML topology file. An empty path yields DefaultTopology.
func LoadTopology(path string) (*Topology, error) {
	if path == "" {
		log.Println("Topology: No topology file configured, using built-in layout")
		return DefaultTopology(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read topology file: %w", err)
	}

	topo, err := ParseTopology(data)
	if err != nil {
		return nil, fmt.Errorf("topology %s: %w", path, err)
	}

	log.Printf("Topology: Loaded %d floors and %d sensors from %s", len(topo.Floors), len(topo.Sensors), path)
	return topo, nil
}

// ParseTopology decodes and validates a YAML topology document
func ParseTopology(data []byte) (*Topology, error) {
	var topo Topology
	if err := yaml.Unmarshal(data, &topo); err != nil {
		return nil, fmt.Errorf("failed to unmarshal topology: %w", err)
	}
	if err := topo.Validate(); err != nil {
		return nil, err
	}
	return &topo, nil
}

// Validate checks that labels and numbers are unique and every sensor sits in a declared room
func (t *Topology) Validate() error {
	if len(t.Floors) == 0 {
		return fmt.Errorf("topology declares no floors")
	}

	floorLabels := make(map[string]bool)
	rooms := make(map[int]map[int]bool)
	for _, f := range t.Floors {
		if f.Label == "" {
			return fmt.Errorf("floor %d has no label", f.Number)
		}
		if _, dup := rooms[f.Number]; dup {
			return fmt.Errorf("floor %d declared twice", f.Number)
		}
		if floorLabels[f.Label] {
			return fmt.Errorf("floor label %q declared twice", f.Label)
		}
		floorLabels[f.Label] = true

		rooms[f.Number] = make(map[int]bool)
		for _, r := range f.Rooms {
			if r.Label == "" {
				return fmt.Errorf("room %d on floor %d has no label", r.Number, f.Number)
			}
			if rooms[f.Number][r.Number] {
				return fmt.Errorf("room %d declared twice on floor %d", r.Number, f.Number)
			}
			rooms[f.Number][r.Number] = true
		}
	}

	sensorIDs := make(map[int]bool)
	for _, s := range t.Sensors {
		if sensorIDs[s.ID] {
			return fmt.Errorf("sensor %d declared twice", s.ID)
		}
		sensorIDs[s.ID] = true

		floorRooms, ok := rooms[s.Floor]
		if !ok {
			return fmt.Errorf("sensor %d is on undeclared floor %d", s.ID, s.Floor)
		}
		if !floorRooms[s.Room] {
			return fmt.Errorf("sensor %d is in undeclared room %d on floor %d", s.ID, s.Room, s.Floor)
		}
	}

	return nil
}
