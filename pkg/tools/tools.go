// Package tools holds the gesture state machines behind every drawing tool.
//
// A tool never touches the shared document. It turns pointer events into a Draft and,
// at gesture end, reports whether the draft should be applied. What applying means is
// carried by Draft.Action and carried out by the whiteboard.
package tools

import (
	"fmt"
	"time"

	"github.com/astromechza/automerge-whiteboard/pkg/board"
	"github.com/astromechza/automerge-whiteboard/pkg/collision"
	"github.com/astromechza/automerge-whiteboard/pkg/geometry"
)

// Kind names a tool.
type Kind string

const (
	Pen       Kind = "pen"
	Pan       Kind = "pan"
	Image     Kind = "image"
	Rectangle Kind = "rectangle"
	Circle    Kind = "circle"
	Line      Kind = "line"
	Ellipse   Kind = "ellipse"
	Select    Kind = "select"
	Text      Kind = "text"
	Eraser    Kind = "eraser"
)

// Kinds lists every tool.
var Kinds = []Kind{Pen, Pan, Image, Rectangle, Circle, Line, Ellipse, Select, Text, Eraser}

// ParseKind validates a tool name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown tool %q", s)
}

// Pointer is one pointer event. Pos is nil when the event had no usable position; tools
// treat such events as no-ops. At is the event time used for velocity and throttling.
type Pointer struct {
	Pos *geometry.Point
	At  time.Duration
}

// At builds a positioned pointer event.
func At(x, y float64, at time.Duration) Pointer {
	return Pointer{Pos: &geometry.Point{X: x, Y: y}, At: at}
}

// Style is the current drawing style.
type Style struct {
	Color       string
	StrokeWidth float64
	FontSize    float64
	FontFamily  string
}

func DefaultStyle() Style {
	return Style{Color: "#000000", StrokeWidth: 2, FontSize: 20, FontFamily: "sans-serif"}
}

// Context is what a tool may look at when a gesture starts.
type Context struct {
	Style     Style
	Snapshot  board.Snapshot
	View      board.ViewState
	ImageSrc  string
	Pipeline  *geometry.Pipeline
	Tolerance float64
}

// Action says how the whiteboard applies a finished draft.
type Action int

const (
	// ActionNone discards the draft.
	ActionNone Action = iota
	// ActionInsert pushes Draft.Entity.
	ActionInsert
	// ActionUpdate replaces the entity with Draft.Entity's id.
	ActionUpdate
	// ActionErase deletes Draft.Deletions.
	ActionErase
	// ActionView writes Draft.View to the shared view register.
	ActionView
	// ActionEdit opens Draft.Entity (a text) for editing.
	ActionEdit
	// ActionSelect replaces the selection with Draft.Selection (nil clears it).
	ActionSelect
)

// Selection identifies the single selected entity.
type Selection struct {
	ID         string
	Collection board.Collection
}

// Draft is the in-progress state of one gesture. It is owned by the whiteboard and
// never replicated.
type Draft struct {
	Kind   Kind
	Action Action

	// Entity is the entity being built or moved.
	Entity board.Entity
	// Path is the eraser path.
	Path      []geometry.Point
	Deletions collision.Deletions
	Selection *Selection
	View      board.ViewState

	start geometry.Point
	moved bool

	velocity *geometry.VelocityTracker
	capture  *geometry.Capture

	origin    board.Entity
	baseView  board.ViewState
	snapshot  board.Snapshot
	tolerance float64
}

// Tool is one gesture state machine.
type Tool interface {
	// Start begins a gesture and returns its draft, or nil when the gesture does not
	// apply here.
	Start(p Pointer, ctx *Context) *Draft
	// Move advances the draft. It returns the draft to keep.
	Move(p Pointer, d *Draft) *Draft
	// End finishes the gesture. True means the draft's Action should be applied.
	End(d *Draft) bool
}

// ForKind returns the state machine for a tool.
func ForKind(k Kind) (Tool, error) {
	switch k {
	case Pen:
		return penTool{}, nil
	case Rectangle, Circle, Ellipse, Line:
		return shapeTool{kind: k}, nil
	case Image:
		return imageTool{}, nil
	case Eraser:
		return eraserTool{}, nil
	case Text:
		return textTool{}, nil
	case Select:
		return selectTool{}, nil
	case Pan:
		return panTool{}, nil
	}
	return nil, fmt.Errorf("unknown tool %q", k)
}
