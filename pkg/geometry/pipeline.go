package geometry

import "math"

// Interpolate inserts ceil(d/maxGap) evenly spaced points between every pair of
// consecutive points that are more than maxGap apart, so no output segment is longer
// than maxGap.
func Interpolate(points []Point, maxGap float64) []Point {
	if len(points) < 2 || maxGap <= 0 {
		return append([]Point(nil), points...)
	}
	out := make([]Point, 0, len(points))
	out = append(out, points[0])
	for i := 1; i < len(points); i++ {
		a, b := points[i-1], points[i]
		if d := Distance(a, b); d > maxGap {
			n := int(math.Ceil(d / maxGap))
			for k := 1; k <= n; k++ {
				out = append(out, lerp(a, b, float64(k)/float64(n+1)))
			}
		}
		out = append(out, b)
	}
	return out
}

// Decimate drops points closer than minDistance to the last kept point. The first and
// last points always survive.
func Decimate(points []Point, minDistance float64) []Point {
	if len(points) <= 2 {
		return append([]Point(nil), points...)
	}
	out := []Point{points[0]}
	for _, p := range points[1 : len(points)-1] {
		if Distance(out[len(out)-1], p) >= minDistance {
			out = append(out, p)
		}
	}
	return append(out, points[len(points)-1])
}

// Smooth fits a curve through points using the tier's smoothing flavour. Sequences
// shorter than three points are returned unchanged; the first and last points are
// never moved.
func Smooth(points []Point, tier Tier, steps int) []Point {
	if len(points) < 3 {
		return append([]Point(nil), points...)
	}
	if tier.Smoothing == SmoothBezier {
		return quadraticRounding(points, steps)
	}
	return catmullRom(points, tier.Tension, steps)
}

// quadraticRounding replaces each interior corner with a quadratic Bezier whose control
// point is the raw point and whose anchors are the midpoints to its neighbours.
func quadraticRounding(points []Point, steps int) []Point {
	if steps <= 0 {
		steps = 4
	}
	out := []Point{points[0]}
	start := points[0]
	for i := 1; i < len(points)-1; i++ {
		ctrl := points[i]
		end := midpoint(points[i], points[i+1])
		if i == len(points)-2 {
			end = points[i+1]
		}
		for s := 1; s <= steps; s++ {
			out = append(out, quadratic(start, ctrl, end, float64(s)/float64(steps)))
		}
		start = end
	}
	if last := points[len(points)-1]; out[len(out)-1] != last {
		out = append(out, last)
	}
	return out
}

func quadratic(p0, p1, p2 Point, t float64) Point {
	u := 1 - t
	return Point{
		X: u*u*p0.X + 2*u*t*p1.X + t*t*p2.X,
		Y: u*u*p0.Y + 2*u*t*p1.Y + t*t*p2.Y,
	}
}

// catmullRom walks a 4-point window over the sequence. At the start the first point is
// reused as p0; at the end the missing p3 is replaced by p2.
func catmullRom(points []Point, tension float64, steps int) []Point {
	if steps <= 0 {
		steps = 3
	}
	out := []Point{points[0]}
	for i := 0; i < len(points)-1; i++ {
		p0 := points[i]
		if i > 0 {
			p0 = points[i-1]
		}
		p1, p2 := points[i], points[i+1]
		p3 := p2
		if i+2 < len(points) {
			p3 = points[i+2]
		}
		for s := 1; s <= steps; s++ {
			out = append(out, hermite(p0, p1, p2, p3, tension, float64(s)/float64(steps)))
		}
	}
	out[len(out)-1] = points[len(points)-1]
	return out
}

// hermite evaluates a cardinal spline segment from p1 to p2 whose tangents are
// tension*(p2-p0) and tension*(p3-p1).
func hermite(p0, p1, p2, p3 Point, tension, t float64) Point {
	t2, t3 := t*t, t*t*t
	h00 := 2*t3 - 3*t2 + 1
	h10 := t3 - 2*t2 + t
	h01 := -2*t3 + 3*t2
	h11 := t3 - t2
	m1 := Point{X: tension * (p2.X - p0.X), Y: tension * (p2.Y - p0.Y)}
	m2 := Point{X: tension * (p3.X - p1.X), Y: tension * (p3.Y - p1.Y)}
	return Point{
		X: h00*p1.X + h10*m1.X + h01*p2.X + h11*m2.X,
		Y: h00*p1.Y + h10*m1.Y + h01*p2.Y + h11*m2.Y,
	}
}

// Pipeline applies interpolate → decimate → smooth to a stroke's raw samples.
type Pipeline struct {
	cfg Config
}

func NewPipeline(cfg Config) *Pipeline {
	return &Pipeline{cfg: cfg}
}

func (p *Pipeline) Config() Config { return p.cfg }

// Run processes a complete raw sequence. speeds[i] is the average velocity observed
// when raw[i] arrived; a missing speed counts as zero. The result is the sequence a
// Capture fed the same samples would return.
func (p *Pipeline) Run(raw []Point, speeds []float64) []Point {
	c := p.NewCapture()
	var out []Point
	for i, r := range raw {
		speed := 0.0
		if i < len(speeds) {
			speed = speeds[i]
		}
		out = c.Add(r, speed)
	}
	return out
}

func (p *Pipeline) trace(raw []Point, tier Tier) []Point {
	steps := p.cfg.SplineSteps
	if tier.Smoothing == SmoothBezier {
		steps = p.cfg.BezierSteps
	}
	return Smooth(Decimate(Interpolate(raw, tier.MaxGap), tier.MinDistance), tier, steps)
}

// Capture builds one stroke sample by sample. Consecutive samples drawn at the same
// speed tier form a run that is smoothed with that tier. A run is closed when the tier
// changes and its output is never recomputed, so speeding up or slowing down only
// reshapes the part of the stroke still being drawn.
type Capture struct {
	p      *Pipeline
	frozen []Point
	run    []Point
	tier   Tier
}

func (p *Pipeline) NewCapture() *Capture {
	return &Capture{p: p}
}

// Add appends a raw sample seen at the given average velocity and returns the whole
// renderable stroke. The last raw point always terminates it.
func (c *Capture) Add(raw Point, speed float64) []Point {
	tier := c.p.cfg.TierFor(speed)
	switch {
	case len(c.run) == 0:
		c.run, c.tier = []Point{raw}, tier
	case tier == c.tier:
		c.run = append(c.run, raw)
	case len(c.run) == 1:
		c.run, c.tier = append(c.run, raw), tier
	default:
		c.frozen = c.join(c.frozen, c.p.trace(c.run, c.tier))
		c.run, c.tier = []Point{c.run[len(c.run)-1], raw}, tier
	}
	return c.join(append([]Point(nil), c.frozen...), c.p.trace(c.run, c.tier))
}

// join appends a run's output to the stroke. Runs share their boundary point.
func (c *Capture) join(stroke, run []Point) []Point {
	if len(stroke) > 0 && len(run) > 0 {
		run = run[1:]
	}
	return append(stroke, run...)
}
