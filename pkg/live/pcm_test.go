package live

import (
	"encoding/binary"
	"math"
	"testing"
)

func s16Frame(sample int16, count int) []byte {
	out := make([]byte, count*2)
	for i := 0; i < count; i++ {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(sample))
	}
	return out
}

func TestMeterLevel(t *testing.T) {
	if got := meterLevel(nil); got != 0 {
		t.Errorf("meterLevel(nil) = %v, want 0", got)
	}
	if got := meterLevel(s16Frame(0, 4096)); got != 0 {
		t.Errorf("silence level = %v, want 0", got)
	}

	// A constant half-scale signal meters at ~0.5 regardless of the
	// subsampling stride.
	got := meterLevel(s16Frame(16384, 4096))
	if math.Abs(got-0.5) > 0.01 {
		t.Errorf("half-scale level = %v, want ~0.5", got)
	}

	loud := meterLevel(s16Frame(16384, 4096))
	quiet := meterLevel(s16Frame(1024, 4096))
	if loud <= quiet {
		t.Errorf("louder signal must meter higher: %v vs %v", loud, quiet)
	}
}

func TestPCMDuration(t *testing.T) {
	// One second of 24kHz mono s16.
	if got := pcmDuration(make([]byte, 48000), 24000); got != 1.0 {
		t.Errorf("duration = %v, want 1.0", got)
	}
	if got := pcmDuration(make([]byte, 2400), 24000); got != 0.05 {
		t.Errorf("duration = %v, want 0.05", got)
	}
	if got := pcmDuration(make([]byte, 2400), 0); got != 0 {
		t.Errorf("duration with zero rate = %v, want 0", got)
	}
}
