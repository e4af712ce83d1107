package board

import "math"

// Box is an axis-aligned bounding box.
type Box struct {
	MinX, MinY, MaxX, MaxY float64
}

// Contains reports whether (x, y) lies inside the box grown by tolerance on every side.
func (b Box) Contains(x, y, tolerance float64) bool {
	return x >= b.MinX-tolerance && x <= b.MaxX+tolerance &&
		y >= b.MinY-tolerance && y <= b.MaxY+tolerance
}

func (b Box) Width() float64  { return b.MaxX - b.MinX }
func (b Box) Height() float64 { return b.MaxY - b.MinY }

// boxOf spans two corners in any order.
func boxOf(x1, y1, x2, y2 float64) Box {
	return Box{
		MinX: math.Min(x1, x2),
		MinY: math.Min(y1, y2),
		MaxX: math.Max(x1, x2),
		MaxY: math.Max(y1, y2),
	}
}

func pointsBox(points []float64, dx, dy float64) Box {
	if len(points) < 2 {
		return Box{MinX: dx, MinY: dy, MaxX: dx, MaxY: dy}
	}
	b := Box{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	for i := 0; i+1 < len(points); i += 2 {
		x, y := points[i]+dx, points[i+1]+dy
		b.MinX = math.Min(b.MinX, x)
		b.MinY = math.Min(b.MinY, y)
		b.MaxX = math.Max(b.MaxX, x)
		b.MaxY = math.Max(b.MaxY, y)
	}
	return b
}

// scale treats an unset (zero) scale as identity, which is what the renderer does.
func scale(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}

// Bounds of a stroke are the extremes of its points. Half the stroke width is added so
// thick lines are hit on their painted edge.
func (s Stroke) Bounds() Box {
	b := pointsBox(s.Points, 0, 0)
	pad := s.StrokeWidth / 2
	return Box{MinX: b.MinX - pad, MinY: b.MinY - pad, MaxX: b.MaxX + pad, MaxY: b.MaxY + pad}
}

// Bounds ignores rotation on purpose; the box is a cheap approximation.
func (s Shape) Bounds() Box {
	sx, sy := scale(s.ScaleX), scale(s.ScaleY)
	switch s.Type {
	case Rectangle:
		return boxOf(s.X, s.Y, s.X+s.Width*sx, s.Y+s.Height*sy)
	case Circle:
		rx, ry := math.Abs(s.Radius*sx), math.Abs(s.Radius*sy)
		return Box{MinX: s.X - rx, MinY: s.Y - ry, MaxX: s.X + rx, MaxY: s.Y + ry}
	case Ellipse:
		rx, ry := math.Abs(s.RadiusX*sx), math.Abs(s.RadiusY*sy)
		return Box{MinX: s.X - rx, MinY: s.Y - ry, MaxX: s.X + rx, MaxY: s.Y + ry}
	case Line:
		scaled := make([]float64, len(s.Points))
		for i := 0; i+1 < len(s.Points); i += 2 {
			scaled[i] = s.Points[i] * sx
			scaled[i+1] = s.Points[i+1] * sy
		}
		return pointsBox(scaled, s.X, s.Y)
	}
	return Box{MinX: s.X, MinY: s.Y, MaxX: s.X, MaxY: s.Y}
}

func (i Image) Bounds() Box {
	return boxOf(i.X, i.Y, i.X+i.Width*scale(i.ScaleX), i.Y+i.Height*scale(i.ScaleY))
}

const (
	glyphWidthRatio = 0.6
	lineHeightRatio = 1.2
	defaultFontSize = 16
)

// Bounds approximates the glyph box from the rune count and font size. Multi-line
// text uses the longest line.
func (t Text) Bounds() Box {
	size := t.FontSize
	if size <= 0 {
		size = defaultFontSize
	}
	lines, longest, current := 1, 0, 0
	for _, r := range t.Text {
		if r == '\n' {
			lines++
			current = 0
			continue
		}
		current++
		if current > longest {
			longest = current
		}
	}
	if longest == 0 {
		longest = 1
	}
	w := float64(longest) * size * glyphWidthRatio * scale(t.ScaleX)
	h := float64(lines) * size * lineHeightRatio * scale(t.ScaleY)
	return boxOf(t.X, t.Y, t.X+w, t.Y+h)
}
