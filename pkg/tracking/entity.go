// Package tracking simulates the live-tracking feed of the MAA dashboard: a
// small fleet of tracked entities whose telemetry advances on a fixed tick.
package tracking

// Kind discriminates tracked entity types.
type Kind string

const (
	KindVehicle  Kind = "vehicle"
	KindWearable Kind = "wearable"
)

// Entity is one tracked unit on the map. Positions are percentages of the
// map viewport on both axes. Vehicle telemetry (Fuel, TirePressure,
// EngineTemp, OilLife) is zero for wearables, and Battery is zero for
// vehicles.
type Entity struct {
	ID     string
	Name   string
	Owner  string
	Kind   Kind
	X      float64
	Y      float64
	Data   string // live readout, "65 km/h" or "72 BPM"
	Status string // e.g. "Northbound", "Stationary"
	Color  string

	Fuel         float64
	TirePressure float64
	EngineTemp   int
	OilLife      int
	Battery      float64
}

// HasWarning reports whether the entity is in a low-resource state that the
// dashboard surfaces as a warning: fuel or battery below 20 percent.
func (e Entity) HasWarning() bool {
	if e.Fuel > 0 && e.Fuel < 20 {
		return true
	}
	if e.Battery > 0 && e.Battery < 20 {
		return true
	}
	return false
}
