package live

import (
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestScheduler_QueuesChunksBackToBack(t *testing.T) {
	clock := newFakeClock()
	s := newScheduler(clock.Now)

	first := s.schedule(100 * time.Millisecond)
	if !first.Equal(clock.Now()) {
		t.Errorf("first chunk starts at %v, want now %v", first, clock.Now())
	}

	// Still playing the first chunk; the second must queue behind it.
	second := s.schedule(100 * time.Millisecond)
	if want := first.Add(100 * time.Millisecond); !second.Equal(want) {
		t.Errorf("second chunk starts at %v, want %v", second, want)
	}

	if got := s.buffered(); got != 200*time.Millisecond {
		t.Errorf("buffered = %v, want 200ms", got)
	}
}

func TestScheduler_CursorCatchesUpAfterGap(t *testing.T) {
	clock := newFakeClock()
	s := newScheduler(clock.Now)

	s.schedule(100 * time.Millisecond)

	// Playback drained long ago; the next chunk starts now, not at the
	// stale cursor.
	clock.Advance(5 * time.Second)
	start := s.schedule(100 * time.Millisecond)
	if !start.Equal(clock.Now()) {
		t.Errorf("chunk after gap starts at %v, want now %v", start, clock.Now())
	}
}

func TestScheduler_BufferedDrains(t *testing.T) {
	clock := newFakeClock()
	s := newScheduler(clock.Now)

	s.schedule(300 * time.Millisecond)
	clock.Advance(200 * time.Millisecond)
	if got := s.buffered(); got != 100*time.Millisecond {
		t.Errorf("buffered = %v, want 100ms", got)
	}

	clock.Advance(200 * time.Millisecond)
	if got := s.buffered(); got != 0 {
		t.Errorf("buffered = %v, want 0 after drain", got)
	}
}

func TestScheduler_Reset(t *testing.T) {
	clock := newFakeClock()
	s := newScheduler(clock.Now)

	s.schedule(time.Second)
	s.reset()

	if got := s.buffered(); got != 0 {
		t.Errorf("buffered = %v, want 0 after reset", got)
	}
	start := s.schedule(100 * time.Millisecond)
	if !start.Equal(clock.Now()) {
		t.Errorf("chunk after reset starts at %v, want now", start)
	}
}
