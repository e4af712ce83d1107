package geometry

import (
	"math"
	"reflect"
	"testing"
	"time"
)

func zigzag(n int, step float64) []Point {
	out := make([]Point, n)
	for i := range out {
		y := 0.0
		if i%2 == 1 {
			y = step / 2
		}
		out[i] = Point{X: float64(i) * step, Y: y}
	}
	return out
}

func TestTierFor(t *testing.T) {
	cfg := DefaultConfig()
	cases := []struct {
		velocity float64
		want     string
	}{
		{0, "low"},
		{0.3, "low"},
		{0.31, "medium"},
		{0.8, "medium"},
		{0.81, "high"},
		{5, "high"},
	}
	for _, tc := range cases {
		if got := cfg.TierFor(tc.velocity).Name; got != tc.want {
			t.Errorf("TierFor(%v) = %s, want %s", tc.velocity, got, tc.want)
		}
	}
}

func TestInterpolateBoundsGaps(t *testing.T) {
	for _, tier := range []Tier{DefaultConfig().High, DefaultConfig().Medium, DefaultConfig().Low} {
		t.Run(tier.Name, func(t *testing.T) {
			in := []Point{{0, 0}, {100, 0}, {100, 37}, {101, 37}, {-50, -80}}
			out := Interpolate(in, tier.MaxGap)
			for i := 1; i < len(out); i++ {
				if d := Distance(out[i-1], out[i]); d > tier.MaxGap {
					t.Fatalf("gap %v between %v and %v exceeds %v", d, out[i-1], out[i], tier.MaxGap)
				}
			}
			if out[0] != in[0] || out[len(out)-1] != in[len(in)-1] {
				t.Fatalf("endpoints changed: %v", out)
			}
		})
	}
}

func TestInterpolateInsertsCeilPoints(t *testing.T) {
	out := Interpolate([]Point{{0, 0}, {20, 0}}, 8)
	// ceil(20/8) = 3 inserted points
	if len(out) != 5 {
		t.Fatalf("expected 5 points, got %d: %v", len(out), out)
	}
	if out[2] != (Point{X: 10, Y: 0}) {
		t.Fatalf("expected evenly spaced midpoint, got %v", out[2])
	}
}

func TestDecimateKeepsEndpoints(t *testing.T) {
	cases := []struct {
		name string
		in   []Point
		min  float64
	}{
		{"dense", []Point{{0, 0}, {0.1, 0}, {0.2, 0}, {0.3, 0}}, 5},
		{"last close to previous", []Point{{0, 0}, {10, 0}, {10.5, 0}}, 3},
		{"two points", []Point{{0, 0}, {0, 0}}, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := Decimate(tc.in, tc.min)
			if out[0] != tc.in[0] {
				t.Errorf("first point dropped: %v", out)
			}
			if out[len(out)-1] != tc.in[len(tc.in)-1] {
				t.Errorf("last point dropped: %v", out)
			}
		})
	}
}

func TestDecimateSpacing(t *testing.T) {
	in := make([]Point, 0, 50)
	for i := 0; i < 50; i++ {
		in = append(in, Point{X: float64(i) * 0.5})
	}
	out := Decimate(in, 2)
	for i := 1; i < len(out)-1; i++ {
		if d := Distance(out[i-1], out[i]); d < 2 {
			t.Fatalf("kept points %v and %v are only %v apart", out[i-1], out[i], d)
		}
	}
}

func TestSmoothPassesEdgesThrough(t *testing.T) {
	cfg := DefaultConfig()
	in := zigzag(6, 10)
	for _, tc := range []struct {
		tier  Tier
		steps int
	}{{cfg.High, cfg.BezierSteps}, {cfg.Medium, cfg.SplineSteps}, {cfg.Low, cfg.SplineSteps}} {
		t.Run(tc.tier.Name, func(t *testing.T) {
			out := Smooth(in, tc.tier, tc.steps)
			if out[0] != in[0] || out[len(out)-1] != in[len(in)-1] {
				t.Fatalf("edges moved: first %v last %v", out[0], out[len(out)-1])
			}
			if len(out) <= len(in) {
				t.Fatalf("expected subdivided output, got %d points", len(out))
			}
		})
	}
}

func TestSmoothShortSequenceUnchanged(t *testing.T) {
	in := []Point{{0, 0}, {5, 5}}
	if out := Smooth(in, DefaultConfig().Low, 3); !reflect.DeepEqual(out, in) {
		t.Fatalf("expected %v unchanged, got %v", in, out)
	}
}

func TestCatmullRomHitsControlPoints(t *testing.T) {
	in := zigzag(5, 12)
	out := catmullRom(in, 0.3, 3)
	if len(out) != 1+(len(in)-1)*3 {
		t.Fatalf("unexpected length %d", len(out))
	}
	for i, p := range in {
		if got := out[i*3]; math.Abs(got.X-p.X) > 1e-9 || math.Abs(got.Y-p.Y) > 1e-9 {
			t.Fatalf("control point %d: got %v want %v", i, got, p)
		}
	}
}

func TestQuadraticRoundingAnchorsOnMidpoints(t *testing.T) {
	in := zigzag(5, 12)
	out := quadraticRounding(in, 4)
	if len(out) != 1+(len(in)-2)*4 {
		t.Fatalf("unexpected length %d", len(out))
	}
	if out[0] != in[0] || out[len(out)-1] != in[len(in)-1] {
		t.Fatalf("endpoints moved: %v ... %v", out[0], out[len(out)-1])
	}
	// interior segments end on the midpoint between the raw corner and its successor
	for i := 1; i < len(in)-2; i++ {
		if got, want := out[i*4], midpoint(in[i], in[i+1]); math.Abs(got.X-want.X) > 1e-9 || math.Abs(got.Y-want.Y) > 1e-9 {
			t.Fatalf("segment %d ends at %v, want %v", i, got, want)
		}
	}
}

func TestRunIsDeterministic(t *testing.T) {
	p := NewPipeline(DefaultConfig())
	raw := zigzag(12, 15)
	for _, speeds := range [][]float64{{0.1, 0.1}, {0.5, 0.4, 0.6}, {1, 2, 0.1, 4, 0.5, 0.2, 3}} {
		a := p.Run(raw, speeds)
		b := p.Run(raw, speeds)
		if !reflect.DeepEqual(a, b) {
			t.Fatalf("speeds %v: outputs differ", speeds)
		}
	}
}

func TestCaptureMatchesRun(t *testing.T) {
	p := NewPipeline(DefaultConfig())
	raw := zigzag(10, 20)
	speeds := []float64{0, 0.1, 0.1, 2, 2, 2, 0.5, 0.5, 0.1, 0.1}
	c := p.NewCapture()
	var out []Point
	for i, r := range raw {
		out = c.Add(r, speeds[i])
	}
	if want := p.Run(raw, speeds); !reflect.DeepEqual(out, want) {
		t.Fatalf("capture %v\nrun %v", out, want)
	}
}

func TestFiveSlowPoints(t *testing.T) {
	p := NewPipeline(DefaultConfig())
	raw := []Point{{0, 0}, {10, 5}, {40, 5}, {45, 20}, {80, 30}}
	out := p.Run(raw, []float64{0.1, 0.1, 0.1, 0.1, 0.1})

	low := DefaultConfig().Low
	base := Decimate(Interpolate(raw, low.MaxGap), low.MinDistance)
	if len(out) < len(base) {
		t.Fatalf("expected at least %d points, got %d", len(base), len(out))
	}
	if len(out) <= len(raw) {
		t.Fatalf("expected more than %d points, got %d", len(raw), len(out))
	}
	if out[0] != raw[0] || out[len(out)-1] != raw[len(raw)-1] {
		t.Fatalf("endpoints moved: %v ... %v", out[0], out[len(out)-1])
	}
}

func TestSpeedChangeKeepsDrawnPart(t *testing.T) {
	p := NewPipeline(DefaultConfig())
	c := p.NewCapture()
	var slow []Point
	for _, r := range zigzag(6, 20) {
		slow = c.Add(r, 0.1)
	}
	var out []Point
	for i := 6; i < 12; i++ {
		out = c.Add(Point{X: float64(i) * 20, Y: 40}, 3)
	}
	if len(out) <= len(slow) {
		t.Fatalf("stroke did not grow: %d <= %d", len(out), len(slow))
	}
	if !reflect.DeepEqual(out[:len(slow)], slow) {
		t.Fatalf("slow part was reshaped after speeding up")
	}
	if last := out[len(out)-1]; last != (Point{X: 220, Y: 40}) {
		t.Fatalf("stroke must end on the last raw point, got %v", last)
	}
}

func TestSinglePoint(t *testing.T) {
	out := NewPipeline(DefaultConfig()).NewCapture().Add(Point{3, 4}, 0)
	if len(out) != 1 || out[0] != (Point{3, 4}) {
		t.Fatalf("unexpected output %v", out)
	}
}

func TestVelocityTrackerWindow(t *testing.T) {
	v := NewVelocityTracker(5)
	for i := 0; i <= 8; i++ {
		v.Observe(Point{X: float64(i) * 10}, time.Duration(i)*10*time.Millisecond)
	}
	if got := len(v.Samples()); got != 5 {
		t.Fatalf("expected 5 samples, got %d", got)
	}
	if got := v.Average(); math.Abs(got-1) > 1e-9 {
		t.Fatalf("expected average 1 px/ms, got %v", got)
	}
	v.Observe(Point{X: 90}, 80*time.Millisecond)
	if got := len(v.Samples()); got != 5 {
		t.Fatalf("zero elapsed sample should be ignored, got %d samples", got)
	}
}

func TestFlattenRoundTrip(t *testing.T) {
	pts := []Point{{1, 2}, {3, 4}}
	flat := Flatten(pts)
	if !reflect.DeepEqual(flat, []float64{1, 2, 3, 4}) {
		t.Fatalf("unexpected flat %v", flat)
	}
	if !reflect.DeepEqual(Unflatten(append(flat, 9)), pts) {
		t.Fatalf("unflatten mismatch")
	}
}
