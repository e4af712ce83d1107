package geometry

import "time"

// Sample is a pointer position at an event time.
type Sample struct {
	Point Point
	At    time.Duration
}

// Throttle limits how often pointer moves reach the pipeline. Time is the event
// timestamp, not the wall clock, so replays behave exactly like live input. Moves that
// arrive inside the interval are coalesced: the newest one is held and released by the
// next move that lands outside the interval, or by Flush.
type Throttle struct {
	interval time.Duration
	last     time.Duration
	fired    bool
	pending  *Sample
}

func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{interval: interval}
}

// Offer returns the samples to process now, oldest first. It is empty while the
// throttle is holding the sample back.
func (t *Throttle) Offer(s Sample) []Sample {
	if t.fired && s.At-t.last < t.interval {
		t.pending = &s
		return nil
	}
	out := make([]Sample, 0, 2)
	if t.pending != nil {
		out = append(out, *t.pending)
	}
	t.fired, t.last, t.pending = true, s.At, nil
	return append(out, s)
}

// Flush releases the held sample, if any.
func (t *Throttle) Flush() []Sample {
	if t.pending == nil {
		return nil
	}
	s := *t.pending
	t.pending = nil
	t.last = s.At
	return []Sample{s}
}

// Reset forgets all state; used at gesture start.
func (t *Throttle) Reset() {
	t.fired, t.last, t.pending = false, 0, nil
}
