// Package location maps numeric (floor, room) keys to human labels.
//
// The Index is derived from the building Topology, so a cluster's own key
// yields its labels and the labels of its floor's rooms.
package location

import (
	"errors"
	"fmt"
)

// ErrUnknownLocation is wrapped by UnknownLocationError
var ErrUnknownLocation = errors.New("unknown location")

// UnknownLocationError reports a lookup miss in the Index
type UnknownLocationError struct {
	Label string // Floor label, when the lookup was by label
	Floor int
	Room  int
}

func (e *UnknownLocationError) Error() string {
	if e.Label != "" {
		return fmt.Sprintf("unknown location %q", e.Label)
	}
	return fmt.Sprintf("unknown location floor=%d room=%d", e.Floor, e.Room)
}

func (e *UnknownLocationError) Unwrap() error {
	return ErrUnknownLocation
}

type roomKey struct {
	floor int
	room  int
}

// Index is a read-only lookup from floor labels to room labels and from
// numeric keys to labels
type Index struct {
	floorOrder  []string
	roomsByName map[string][]string
	floorLabels map[int]string
	roomLabels  map[roomKey]string
}

// NewIndex derives an Index from the topology. Room labels keep declaration order.
func NewIndex(topo *Topology) *Index {
	idx := &Index{
		roomsByName: make(map[string][]string),
		floorLabels: make(map[int]string),
		roomLabels:  make(map[roomKey]string),
	}

	for _, f := range topo.Floors {
		idx.floorOrder = append(idx.floorOrder, f.Label)
		idx.floorLabels[f.Number] = f.Label

		labels := make([]string, 0, len(f.Rooms))
		for _, r := range f.Rooms {
			labels = append(labels, r.Label)
			idx.roomLabels[roomKey{floor: f.Number, room: r.Number}] = r.Label
		}
		idx.roomsByName[f.Label] = labels
	}

	return idx
}

// AffectedRooms returns the room labels declared for a floor label
func (idx *Index) AffectedRooms(floorLabel string) ([]string, error) {
	rooms, ok := idx.roomsByName[floorLabel]
	if !ok {
		return nil, &UnknownLocationError{Label: floorLabel}
	}
	out := make([]string, len(rooms))
	copy(out, rooms)
	return out, nil
}

// FloorLabel returns the label of a floor number
func (idx *Index) FloorLabel(floor int) (string, error) {
	label, ok := idx.floorLabels[floor]
	if !ok {
		return "", &UnknownLocationError{Floor: floor}
	}
	return label, nil
}

// RoomLabel returns the label of a room on a floor
func (idx *Index) RoomLabel(floor, room int) (string, error) {
	label, ok := idx.roomLabels[roomKey{floor: floor, room: room}]
	if !ok {
		return "", &UnknownLocationError{Floor: floor, Room: room}
	}
	return label, nil
}

// Describe returns "<room label>, <floor label>" for a numeric key
func (idx *Index) Describe(floor, room int) (string, error) {
	floorLabel, err := idx.FloorLabel(floor)
	if err != nil {
		return "", err
	}
	roomLabel, err := idx.RoomLabel(floor, room)
	if err != nil {
		return "", err
	}
	return roomLabel + ", " + floorLabel, nil
}

// Floors returns floor labels in declaration order
func (idx *Index) Floors() []string {
	out := make([]string, len(idx.floorOrder))
	copy(out, idx.floorOrder)
	return out
}
