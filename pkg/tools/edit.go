package tools

import (
	"strings"

	"github.com/astromechza/automerge-whiteboard/pkg/board"
	"github.com/astromechza/automerge-whiteboard/pkg/collision"
	"github.com/astromechza/automerge-whiteboard/pkg/geometry"
)

func tolerance(ctx *Context) float64 {
	if ctx.Tolerance > 0 {
		return ctx.Tolerance
	}
	return collision.DefaultTolerance
}

type eraserTool struct{}

// Start keeps a copy of the canvas; ids that vanish before the gesture ends are simply
// not found when the deletions are applied.
func (eraserTool) Start(p Pointer, ctx *Context) *Draft {
	if p.Pos == nil {
		return nil
	}
	return &Draft{
		Kind:      Eraser,
		start:     *p.Pos,
		Path:      []geometry.Point{*p.Pos},
		snapshot:  ctx.Snapshot.Clone(),
		tolerance: tolerance(ctx),
	}
}

func (eraserTool) Move(p Pointer, d *Draft) *Draft {
	if p.Pos == nil || d == nil {
		return d
	}
	d.Path = append(d.Path, *p.Pos)
	d.moved = true
	return d
}

func (eraserTool) End(d *Draft) bool {
	if d == nil {
		return false
	}
	d.Deletions = collision.Detect(d.Path, d.snapshot, d.tolerance)
	if d.Deletions.Empty() {
		return false
	}
	d.Action = ActionErase
	return true
}

type textTool struct{}

func (textTool) Start(p Pointer, ctx *Context) *Draft {
	if p.Pos == nil {
		return nil
	}
	return &Draft{
		Kind:  Text,
		start: *p.Pos,
		Entity: board.Text{
			ID:         board.NewID("text"),
			X:          p.Pos.X,
			Y:          p.Pos.Y,
			Color:      ctx.Style.Color,
			FontSize:   ctx.Style.FontSize,
			FontFamily: ctx.Style.FontFamily,
			ScaleX:     1,
			ScaleY:     1,
			IsEditing:  true,
		},
	}
}

func (textTool) Move(_ Pointer, d *Draft) *Draft { return d }

// End hands the empty text over for editing; FinishText decides whether it is kept.
func (textTool) End(d *Draft) bool {
	if d == nil {
		return false
	}
	d.Action = ActionEdit
	return true
}

// FinishText completes a text edit. Blank content discards the text.
func FinishText(t board.Text, content string) (board.Text, bool) {
	if strings.TrimSpace(content) == "" {
		return board.Text{}, false
	}
	t.Text = content
	t.IsEditing = false
	return t, true
}

type selectTool struct{}

func (selectTool) Start(p Pointer, ctx *Context) *Draft {
	if p.Pos == nil {
		return nil
	}
	d := &Draft{Kind: Select, start: *p.Pos}
	e, ok := collision.HitTest(*p.Pos, ctx.Snapshot, tolerance(ctx))
	if !ok {
		return d
	}
	d.Selection = &Selection{ID: e.EntityID(), Collection: e.Collection()}
	d.origin = e
	d.Entity = e
	return d
}

// Move drags the selected entity.
func (selectTool) Move(p Pointer, d *Draft) *Draft {
	if p.Pos == nil || d == nil || d.origin == nil {
		return d
	}
	dx, dy := p.Pos.X-d.start.X, p.Pos.Y-d.start.Y
	d.Entity = board.Translate(d.origin, dx, dy)
	d.moved = dx != 0 || dy != 0
	return d
}

func (selectTool) End(d *Draft) bool {
	if d == nil {
		return false
	}
	if d.moved && d.origin != nil {
		d.Action = ActionUpdate
	} else {
		d.Action = ActionSelect
	}
	return true
}

type panTool struct{}

func (panTool) Start(p Pointer, ctx *Context) *Draft {
	if p.Pos == nil {
		return nil
	}
	return &Draft{Kind: Pan, start: *p.Pos, baseView: ctx.View, View: ctx.View}
}

func (panTool) Move(p Pointer, d *Draft) *Draft {
	if p.Pos == nil || d == nil {
		return d
	}
	d.View = board.ViewState{
		X: d.baseView.X + p.Pos.X - d.start.X,
		Y: d.baseView.Y + p.Pos.Y - d.start.Y,
	}
	d.moved = d.View != d.baseView
	return d
}

func (panTool) End(d *Draft) bool {
	if d == nil || !d.moved {
		return false
	}
	d.Action = ActionView
	return true
}
