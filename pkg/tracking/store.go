package tracking

import (
	"fmt"
	"sync"
)

// HomeEntityID is the entity the view recenters on.
const HomeEntityID = "v1"

// Zoom bounds and step for the map viewport.
const (
	ZoomMin  = 1.0
	ZoomMax  = 3.0
	ZoomStep = 0.5
)

// Store holds the live-tracking state: the tracked entities, the current
// selection, and the viewport zoom. All methods are safe for concurrent use.
type Store struct {
	mu         sync.Mutex
	entities   []Entity
	selectedID string
	zoom       float64
}

// NewStore returns a store seeded with the demo fleet: the family vehicle
// and a wearable, with the vehicle selected at default zoom.
func NewStore() *Store {
	return &Store{
		entities: []Entity{
			{
				ID:           "v1",
				Name:         "Vehicle 01",
				Owner:        "Dad",
				Kind:         KindVehicle,
				X:            42,
				Y:            38,
				Data:         "65 km/h",
				Status:       "Northbound",
				Color:        "emerald",
				Fuel:         18,
				TirePressure: 32,
				EngineTemp:   92,
				OilLife:      68,
			},
			{
				ID:      "w1",
				Name:    "Wearable 04",
				Owner:   "Mom",
				Kind:    KindWearable,
				X:       68,
				Y:       55,
				Data:    "72 BPM",
				Status:  "Stationary",
				Color:   "amber",
				Battery: 84,
			},
		},
		selectedID: HomeEntityID,
		zoom:       ZoomMin,
	}
}

// Entities returns a snapshot of all tracked entities in stable order.
func (s *Store) Entities() []Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entity, len(s.entities))
	copy(out, s.entities)
	return out
}

// Selected returns the currently selected entity.
func (s *Store) Selected() (Entity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entities {
		if e.ID == s.selectedID {
			return e, true
		}
	}
	return Entity{}, false
}

// Select changes the selection. Unknown IDs leave the selection untouched.
func (s *Store) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entities {
		if e.ID == id {
			s.selectedID = id
			return nil
		}
	}
	return fmt.Errorf("unknown entity %q", id)
}

// Zoom returns the current viewport zoom.
func (s *Store) Zoom() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zoom
}

// ZoomIn steps the zoom up to its maximum and returns the new value.
func (s *Store) ZoomIn() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zoom += ZoomStep
	if s.zoom > ZoomMax {
		s.zoom = ZoomMax
	}
	return s.zoom
}

// ZoomOut steps the zoom down to its minimum and returns the new value.
func (s *Store) ZoomOut() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zoom -= ZoomStep
	if s.zoom < ZoomMin {
		s.zoom = ZoomMin
	}
	return s.zoom
}

// Recenter reselects the home vehicle and resets the zoom.
func (s *Store) Recenter() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedID = HomeEntityID
	s.zoom = ZoomMin
}

// ApplyTick advances every entity by one simulation step and returns the
// resulting snapshot.
func (s *Store) ApplyTick(r Rand) []Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entities {
		s.entities[i] = AdvanceTick(s.entities[i], r)
	}
	out := make([]Entity, len(s.entities))
	copy(out, s.entities)
	return out
}

// Warnings returns the entities currently in a warning state.
func (s *Store) Warnings() []Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entity
	for _, e := range s.entities {
		if e.HasWarning() {
			out = append(out, e)
		}
	}
	return out
}
