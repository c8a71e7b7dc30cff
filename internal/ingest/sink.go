package ingest

import (
	"context"
	"sync/atomic"

	"github.com/spotwatch/spotwatch/internal/model"
)

// Sink is the bounded buffer shared by all region workers. Pushes from N
// producers block when the buffer is full (backpressure) and unblock on
// cancellation; a single consumer receives from C in arrival order.
type Sink struct {
	ch chan model.PriceObservation

	pushed    atomic.Int64
	discarded atomic.Int64
}

// NewSink creates a sink with the given capacity.
func NewSink(capacity int) *Sink {
	if capacity < 1 {
		capacity = 1
	}
	return &Sink{
		ch: make(chan model.PriceObservation, capacity),
	}
}

// Push enqueues one observation, blocking while the sink is full. Returns
// ctx.Err() if the context is canceled before space frees up.
func (s *Sink) Push(ctx context.Context, obs model.PriceObservation) error {
	select {
	case s.ch <- obs:
		s.pushed.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// C returns the consumer side of the sink.
func (s *Sink) C() <-chan model.PriceObservation {
	return s.ch
}

// Drain discards everything currently buffered and returns the count.
// Only call after all producers have stopped.
func (s *Sink) Drain() int {
	n := 0
	for {
		select {
		case <-s.ch:
			n++
		default:
			s.discarded.Add(int64(n))
			return n
		}
	}
}

// SinkStats reports sink counters.
type SinkStats struct {
	Pushed    int64
	Discarded int64
	Buffered  int
}

// Stats returns current counters.
func (s *Sink) Stats() SinkStats {
	return SinkStats{
		Pushed:    s.pushed.Load(),
		Discarded: s.discarded.Load(),
		Buffered:  len(s.ch),
	}
}
