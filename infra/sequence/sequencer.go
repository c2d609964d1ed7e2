package sequence

import "sync/atomic"

// Sequencer issues strictly monotonic ids. Allocation order is the
// global arrival order across all submitting goroutines.
type Sequencer struct {
	last atomic.Uint64
}

// New creates a sequencer whose first issued id is start; a start of
// 0 behaves like 1.
func New(start uint64) *Sequencer {
	s := &Sequencer{}
	if start > 0 {
		s.last.Store(start - 1)
	}
	return s
}

// Next returns the next id.
func (s *Sequencer) Next() uint64 {
	return s.last.Add(1)
}

// Current returns the last issued id, 0 if none yet.
func (s *Sequencer) Current() uint64 {
	return s.last.Load()
}
