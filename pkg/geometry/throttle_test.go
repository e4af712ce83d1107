package geometry

import (
	"testing"
	"time"
)

func TestThrottleCoalesces(t *testing.T) {
	th := NewThrottle(4 * time.Millisecond)
	ms := func(n int) time.Duration { return time.Duration(n) * time.Millisecond }

	if got := th.Offer(Sample{Point: Point{X: 0}, At: ms(0)}); len(got) != 1 {
		t.Fatalf("first move should pass, got %v", got)
	}
	if got := th.Offer(Sample{Point: Point{X: 1}, At: ms(1)}); got != nil {
		t.Fatalf("move inside interval should be held, got %v", got)
	}
	if got := th.Offer(Sample{Point: Point{X: 2}, At: ms(2)}); got != nil {
		t.Fatalf("move inside interval should be held, got %v", got)
	}
	flushed := th.Flush()
	if len(flushed) != 1 || flushed[0].Point.X != 2 {
		t.Fatalf("flush should release the newest held move, got %v", flushed)
	}
	if got := th.Flush(); got != nil {
		t.Fatalf("second flush should be empty, got %v", got)
	}
	if got := th.Offer(Sample{Point: Point{X: 3}, At: ms(7)}); len(got) != 1 || got[0].Point.X != 3 {
		t.Fatalf("move after interval should pass, got %v", got)
	}
}

func TestThrottleReleasesHeldMoveBeforeLateMove(t *testing.T) {
	th := NewThrottle(4 * time.Millisecond)
	th.Offer(Sample{Point: Point{X: 0, Y: 0}, At: 0})
	if got := th.Offer(Sample{Point: Point{X: 100, Y: 0}, At: time.Millisecond}); got != nil {
		t.Fatalf("move inside interval should be held, got %v", got)
	}
	got := th.Offer(Sample{Point: Point{X: 100, Y: 100}, At: 200 * time.Millisecond})
	if len(got) != 2 {
		t.Fatalf("expected held and late move, got %v", got)
	}
	if got[0].Point != (Point{X: 100, Y: 0}) || got[1].Point != (Point{X: 100, Y: 100}) {
		t.Fatalf("samples out of order or wrong: %v", got)
	}
	if got := th.Flush(); got != nil {
		t.Fatalf("nothing should be held after release, got %v", got)
	}
}

func TestThrottleReset(t *testing.T) {
	th := NewThrottle(time.Second)
	th.Offer(Sample{At: 0})
	th.Offer(Sample{At: time.Millisecond})
	th.Reset()
	if got := th.Flush(); got != nil {
		t.Fatalf("reset should drop held move, got %v", got)
	}
	if got := th.Offer(Sample{At: 2 * time.Millisecond}); len(got) != 1 {
		t.Fatalf("first move after reset should pass")
	}
}
