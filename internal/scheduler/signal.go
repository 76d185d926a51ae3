package scheduler

import "sync/atomic"

// Signal is the external excitement flag. Writers may live on any goroutine;
// the scheduler samples it once per frame.
type Signal struct {
	excited atomic.Bool
}

func (s *Signal) Set(excited bool) { s.excited.Store(excited) }

func (s *Signal) Excited() bool { return s.excited.Load() }

// Toggle flips the flag and returns the new value.
func (s *Signal) Toggle() bool {
	for {
		old := s.excited.Load()
		if s.excited.CompareAndSwap(old, !old) {
			return !old
		}
	}
}
