package tools

import (
	"math"

	"github.com/astromechza/automerge-whiteboard/pkg/board"
	"github.com/astromechza/automerge-whiteboard/pkg/geometry"
)

// Default size of a newly placed image.
const (
	DefaultImageWidth  = 200
	DefaultImageHeight = 150
)

type penTool struct{}

func (penTool) Start(p Pointer, ctx *Context) *Draft {
	if p.Pos == nil {
		return nil
	}
	pipeline := ctx.Pipeline
	if pipeline == nil {
		pipeline = geometry.NewPipeline(geometry.DefaultConfig())
	}
	d := &Draft{
		Kind:     Pen,
		start:    *p.Pos,
		velocity: geometry.NewVelocityTracker(pipeline.Config().VelocityWindow),
		capture:  pipeline.NewCapture(),
	}
	d.velocity.Observe(*p.Pos, p.At)
	d.capture.Add(*p.Pos, d.velocity.Average())
	d.Entity = board.Stroke{
		ID:          board.NewID("line"),
		Kind:        board.PenKind,
		Points:      []float64{p.Pos.X, p.Pos.Y},
		Color:       ctx.Style.Color,
		StrokeWidth: ctx.Style.StrokeWidth,
	}
	return d
}

// Move feeds the capture. The draft shown while drawing is exactly what End commits.
func (penTool) Move(p Pointer, d *Draft) *Draft {
	if p.Pos == nil || d == nil {
		return d
	}
	d.velocity.Observe(*p.Pos, p.At)
	points := d.capture.Add(*p.Pos, d.velocity.Average())
	s := d.Entity.(board.Stroke)
	s.Points = geometry.Flatten(points)
	d.Entity = s
	d.moved = true
	return d
}

func (penTool) End(d *Draft) bool {
	if d == nil {
		return false
	}
	s, ok := d.Entity.(board.Stroke)
	if !ok || !board.ShouldSyncLine(s) {
		return false
	}
	d.Action = ActionInsert
	return true
}

type shapeTool struct {
	kind Kind
}

func (t shapeTool) Start(p Pointer, ctx *Context) *Draft {
	if p.Pos == nil {
		return nil
	}
	s := board.Shape{
		ID:          board.NewID(string(t.kind)),
		Type:        board.ShapeType(t.kind),
		X:           p.Pos.X,
		Y:           p.Pos.Y,
		Color:       ctx.Style.Color,
		StrokeWidth: ctx.Style.StrokeWidth,
		ScaleX:      1,
		ScaleY:      1,
	}
	if s.Type == board.Line {
		s.Points = []float64{0, 0, 0, 0}
	}
	return &Draft{Kind: t.kind, Entity: s, start: *p.Pos}
}

// Move recomputes the extent from the gesture start to the pointer. Rectangles keep
// their signed size; circles and ellipses are centred on the start point.
func (t shapeTool) Move(p Pointer, d *Draft) *Draft {
	if p.Pos == nil || d == nil {
		return d
	}
	s := d.Entity.(board.Shape)
	dx, dy := p.Pos.X-d.start.X, p.Pos.Y-d.start.Y
	switch s.Type {
	case board.Rectangle:
		s.Width, s.Height = dx, dy
	case board.Circle:
		s.Radius = math.Hypot(dx, dy)
	case board.Ellipse:
		s.RadiusX, s.RadiusY = math.Abs(dx), math.Abs(dy)
	case board.Line:
		s.Points = []float64{0, 0, dx, dy}
	}
	d.Entity = s
	d.moved = true
	return d
}

func (t shapeTool) End(d *Draft) bool {
	if d == nil {
		return false
	}
	s, ok := d.Entity.(board.Shape)
	if !ok || s.Degenerate() {
		return false
	}
	d.Action = ActionInsert
	return true
}

type imageTool struct{}

func (imageTool) Start(p Pointer, ctx *Context) *Draft {
	if p.Pos == nil || ctx.ImageSrc == "" {
		return nil
	}
	return &Draft{
		Kind:  Image,
		start: *p.Pos,
		Entity: board.Image{
			ID:     board.NewID("image"),
			X:      p.Pos.X,
			Y:      p.Pos.Y,
			Width:  DefaultImageWidth,
			Height: DefaultImageHeight,
			ScaleX: 1,
			ScaleY: 1,
			Src:    ctx.ImageSrc,
		},
	}
}

// Move drags the image being placed.
func (imageTool) Move(p Pointer, d *Draft) *Draft {
	if p.Pos == nil || d == nil {
		return d
	}
	im := d.Entity.(board.Image)
	im.X, im.Y = p.Pos.X, p.Pos.Y
	d.Entity = im
	d.moved = true
	return d
}

func (imageTool) End(d *Draft) bool {
	if d == nil {
		return false
	}
	im, ok := d.Entity.(board.Image)
	if !ok || im.Src == "" {
		return false
	}
	d.Action = ActionInsert
	return true
}
