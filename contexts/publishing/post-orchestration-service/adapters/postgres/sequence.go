package postgresadapter

import (
	"sync/atomic"
	"time"
)

// sequence stamps rows with strictly increasing values that also increase across
// restarts: each value is at least the current wall clock in nanoseconds.
type sequence struct {
	last atomic.Int64
}

func (s *sequence) Next() int64 {
	for {
		prev := s.last.Load()
		next := time.Now().UnixNano()
		if next <= prev {
			next = prev + 1
		}
		if s.last.CompareAndSwap(prev, next) {
			return next
		}
	}
}
