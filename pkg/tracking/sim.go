package tracking

import (
	"fmt"
	"math"
	"math/rand"
)

// Rand is the randomness source for the simulation. Float64 must return a
// value in [0, 1). Injected so tests can drive the walk deterministically.
type Rand interface {
	Float64() float64
}

// SystemRand draws from the process-wide PRNG.
type SystemRand struct{}

func (SystemRand) Float64() float64 { return rand.Float64() }

// Simulation constants. Positions random-walk within a margin of the map,
// vehicle temperature fluctuates inside its gauge range, and the wearable
// battery drains slowly and wraps around when depleted.
const (
	posMin = 10
	posMax = 90

	tempMin = 85
	tempMax = 105

	batteryDrain = 0.2
)

// AdvanceTick returns the entity advanced by one simulation tick. The input
// is not modified.
func AdvanceTick(e Entity, r Rand) Entity {
	switch e.Kind {
	case KindVehicle:
		e.X = clamp(e.X+(r.Float64()-0.5)*4, posMin, posMax)
		e.Y = clamp(e.Y+(r.Float64()-0.5)*4, posMin, posMax)

		speed := int(math.Floor(60 + r.Float64()*10))
		e.Data = fmt.Sprintf("%d km/h", speed)

		temp := clamp(float64(e.EngineTemp)+(r.Float64()-0.5)*2, tempMin, tempMax)
		e.EngineTemp = int(math.Floor(temp))
	case KindWearable:
		bpm := int(math.Floor(70 + r.Float64()*5))
		e.Data = fmt.Sprintf("%d BPM", bpm)

		e.Battery -= batteryDrain
		if e.Battery < 0 {
			e.Battery = 100
		}
	}
	return e
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
