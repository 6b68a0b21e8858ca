package tracking

import (
	"math"
	"testing"
)

// constRand always returns the same value, pinning the walk direction.
type constRand float64

func (c constRand) Float64() float64 { return float64(c) }

func TestAdvanceTick_VehicleWalksAndFloorsSpeed(t *testing.T) {
	v := Entity{
		Kind:       KindVehicle,
		X:          42,
		Y:          38,
		EngineTemp: 92,
	}

	got := AdvanceTick(v, constRand(0))

	if got.X != 40 || got.Y != 36 {
		t.Errorf("position = (%v, %v), want (40, 36)", got.X, got.Y)
	}
	if got.Data != "60 km/h" {
		t.Errorf("Data = %q, want %q", got.Data, "60 km/h")
	}
	if got.EngineTemp != 91 {
		t.Errorf("EngineTemp = %d, want 91", got.EngineTemp)
	}
}

func TestAdvanceTick_VehicleClampsToMap(t *testing.T) {
	v := Entity{Kind: KindVehicle, X: 10, Y: 90, EngineTemp: 92}

	low := AdvanceTick(v, constRand(0))
	if low.X != posMin {
		t.Errorf("X = %v, want clamped to %v", low.X, float64(posMin))
	}

	high := AdvanceTick(v, constRand(0.999))
	if high.Y != posMax {
		t.Errorf("Y = %v, want clamped to %v", high.Y, float64(posMax))
	}
}

func TestAdvanceTick_EngineTempStaysInGaugeRange(t *testing.T) {
	cold := AdvanceTick(Entity{Kind: KindVehicle, X: 50, Y: 50, EngineTemp: 85}, constRand(0))
	if cold.EngineTemp != tempMin {
		t.Errorf("EngineTemp = %d, want %d", cold.EngineTemp, tempMin)
	}

	hot := AdvanceTick(Entity{Kind: KindVehicle, X: 50, Y: 50, EngineTemp: 105}, constRand(0.999))
	if hot.EngineTemp != tempMax {
		t.Errorf("EngineTemp = %d, want %d", hot.EngineTemp, tempMax)
	}
}

func TestAdvanceTick_WearableHeartbeatAndDrain(t *testing.T) {
	w := Entity{Kind: KindWearable, X: 68, Y: 55, Battery: 84}

	got := AdvanceTick(w, constRand(0.999))

	if got.Data != "74 BPM" {
		t.Errorf("Data = %q, want %q", got.Data, "74 BPM")
	}
	if math.Abs(got.Battery-83.8) > 1e-9 {
		t.Errorf("Battery = %v, want 83.8", got.Battery)
	}
	if got.X != 68 || got.Y != 55 {
		t.Error("wearables do not move")
	}
}

func TestAdvanceTick_BatteryWrapsWhenDepleted(t *testing.T) {
	w := Entity{Kind: KindWearable, Battery: 0.1}

	got := AdvanceTick(w, constRand(0))

	if got.Battery != 100 {
		t.Errorf("Battery = %v, want wrap to 100", got.Battery)
	}
}

func TestEntity_HasWarning(t *testing.T) {
	tests := []struct {
		name   string
		entity Entity
		want   bool
	}{
		{"low fuel", Entity{Kind: KindVehicle, Fuel: 18}, true},
		{"fuel at threshold", Entity{Kind: KindVehicle, Fuel: 20}, false},
		{"low battery", Entity{Kind: KindWearable, Battery: 19}, true},
		{"healthy battery", Entity{Kind: KindWearable, Battery: 84}, false},
		{"depleted battery reads as absent", Entity{Kind: KindWearable, Battery: 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entity.HasWarning(); got != tt.want {
				t.Errorf("HasWarning() = %v, want %v", got, tt.want)
			}
		})
	}
}
