package geometry

import "time"

// Smoothing selects the curve fitted through decimated points.
type Smoothing int

const (
	SmoothCatmullRom Smoothing = iota
	SmoothBezier
)

func (s Smoothing) String() string {
	if s == SmoothBezier {
		return "bezier"
	}
	return "catmull-rom"
}

// Tier is the set of pipeline parameters used for one speed band.
type Tier struct {
	Name        string
	MaxGap      float64
	MinDistance float64
	Smoothing   Smoothing
	Tension     float64
}

// Config holds the speed thresholds (px/ms) and the tier used above each of them.
type Config struct {
	HighThreshold   float64
	MediumThreshold float64
	High            Tier
	Medium          Tier
	Low             Tier
	// VelocityWindow is the number of velocity samples averaged to pick a tier.
	VelocityWindow int
	// BezierSteps and SplineSteps are the subdivisions per smoothed segment.
	BezierSteps int
	SplineSteps int
	// MoveInterval is the minimum event-time spacing between processed pointer moves.
	MoveInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		HighThreshold:   0.8,
		MediumThreshold: 0.3,
		High:            Tier{Name: "high", MaxGap: 8, MinDistance: 1, Smoothing: SmoothBezier},
		Medium:          Tier{Name: "medium", MaxGap: 12, MinDistance: 2, Smoothing: SmoothCatmullRom, Tension: 0.2},
		Low:             Tier{Name: "low", MaxGap: 16, MinDistance: 3, Smoothing: SmoothCatmullRom, Tension: 0.4},
		VelocityWindow:  5,
		BezierSteps:     4,
		SplineSteps:     3,
		MoveInterval:    4 * time.Millisecond,
	}
}

// TierFor picks the tier for an average velocity.
func (c Config) TierFor(avgVelocity float64) Tier {
	switch {
	case avgVelocity > c.HighThreshold:
		return c.High
	case avgVelocity > c.MediumThreshold:
		return c.Medium
	default:
		return c.Low
	}
}

// Average of a velocity history; zero when empty.
func Average(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s
	}
	return sum / float64(len(samples))
}

// VelocityTracker turns timestamped samples into a rolling velocity window.
type VelocityTracker struct {
	window  int
	samples []float64
	last    Point
	lastAt  time.Duration
	primed  bool
}

func NewVelocityTracker(window int) *VelocityTracker {
	if window <= 0 {
		window = 5
	}
	return &VelocityTracker{window: window}
}

// Observe records a pointer sample taken at event time at. The first sample only
// primes the tracker. Samples with no elapsed time are folded into the next one.
func (v *VelocityTracker) Observe(p Point, at time.Duration) {
	if !v.primed {
		v.last, v.lastAt, v.primed = p, at, true
		return
	}
	elapsed := float64(at-v.lastAt) / float64(time.Millisecond)
	if elapsed <= 0 {
		return
	}
	v.samples = append(v.samples, Distance(v.last, p)/elapsed)
	if len(v.samples) > v.window {
		v.samples = v.samples[len(v.samples)-v.window:]
	}
	v.last, v.lastAt = p, at
}

// Samples returns a copy of the current window.
func (v *VelocityTracker) Samples() []float64 {
	return append([]float64(nil), v.samples...)
}

func (v *VelocityTracker) Average() float64 {
	return Average(v.samples)
}

func (v *VelocityTracker) Reset() {
	v.samples = nil
	v.primed = false
}
