package live

import (
	"sync"
	"time"
)

// scheduler keeps the playback cursor for inbound audio. Chunks are queued
// back to back: each chunk starts at the later of the cursor and the current
// time, and the cursor advances by the chunk duration. The clock is injected
// so tests can pin it.
type scheduler struct {
	mu   sync.Mutex
	now  func() time.Time
	next time.Time
}

func newScheduler(now func() time.Time) *scheduler {
	if now == nil {
		now = time.Now
	}
	return &scheduler{now: now}
}

// schedule reserves playback time for a chunk and returns its start time.
func (s *scheduler) schedule(d time.Duration) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.next
	if n := s.now(); n.After(start) {
		start = n
	}
	s.next = start.Add(d)
	return start
}

// buffered reports how much queued audio has not yet played out.
func (s *scheduler) buffered() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	rem := s.next.Sub(s.now())
	if rem < 0 {
		return 0
	}
	return rem
}

// reset drops the cursor so the next chunk starts immediately. Used when the
// model turn is interrupted and queued audio is discarded.
func (s *scheduler) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next = time.Time{}
}
