// Package board holds the entity records that make up a shared canvas.
//
// Every entity is a flat record that round-trips through JSON unchanged, which is
// how it is stored inside the replicated document and how it crosses the wire.
package board

import (
	"errors"
	"fmt"
)

// Collection names one of the four ordered entity lists of a canvas.
type Collection string

const (
	Lines  Collection = "lines"
	Images Collection = "images"
	Shapes Collection = "shapes"
	Texts  Collection = "texts"
)

// Collections lists every collection in a stable order.
var Collections = []Collection{Lines, Images, Shapes, Texts}

var ErrUnknownCollection = errors.New("unknown collection")

func (c Collection) Valid() bool {
	switch c {
	case Lines, Images, Shapes, Texts:
		return true
	}
	return false
}

// Entity is implemented by every record that can live in a collection.
type Entity interface {
	EntityID() string
	Collection() Collection
	Bounds() Box
	Validate() error
}

const PenKind = "pen"

// Stroke is a freehand pen line. Points holds flat x,y pairs.
type Stroke struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Points      []float64 `json:"points"`
	Color       string    `json:"color"`
	StrokeWidth float64   `json:"strokeWidth"`
}

// ShouldSyncLine reports whether a stroke has at least two coordinate pairs and may
// be shared. Anything shorter is still a draft.
func ShouldSyncLine(s Stroke) bool {
	return len(s.Points) >= 4 && len(s.Points)%2 == 0
}

func (s Stroke) EntityID() string       { return s.ID }
func (s Stroke) Collection() Collection { return Lines }

func (s Stroke) Validate() error {
	if s.ID == "" {
		return errors.New("stroke without id")
	}
	if len(s.Points)%2 != 0 {
		return fmt.Errorf("stroke %s has an odd number of coordinates (%d)", s.ID, len(s.Points))
	}
	return nil
}

func (s Stroke) clone() Stroke {
	s.Points = append([]float64(nil), s.Points...)
	return s
}

// ShapeType is the geometry of a Shape.
type ShapeType string

const (
	Rectangle ShapeType = "rectangle"
	Circle    ShapeType = "circle"
	Ellipse   ShapeType = "ellipse"
	Line      ShapeType = "line"
)

// Shape is a geometric primitive. Which extent fields are meaningful depends on Type:
// Width/Height for rectangles, Radius for circles, RadiusX/RadiusY for ellipses and
// Points (relative to X,Y) for lines.
type Shape struct {
	ID          string    `json:"id"`
	Type        ShapeType `json:"type"`
	X           float64   `json:"x"`
	Y           float64   `json:"y"`
	Width       float64   `json:"width,omitempty"`
	Height      float64   `json:"height,omitempty"`
	Radius      float64   `json:"radius,omitempty"`
	RadiusX     float64   `json:"radiusX,omitempty"`
	RadiusY     float64   `json:"radiusY,omitempty"`
	Points      []float64 `json:"points,omitempty"`
	Color       string    `json:"color"`
	StrokeWidth float64   `json:"strokeWidth"`
	ScaleX      float64   `json:"scaleX"`
	ScaleY      float64   `json:"scaleY"`
	Rotation    float64   `json:"rotation"`
}

func (s Shape) EntityID() string       { return s.ID }
func (s Shape) Collection() Collection { return Shapes }

func (s Shape) Validate() error {
	if s.ID == "" {
		return errors.New("shape without id")
	}
	switch s.Type {
	case Rectangle, Circle, Ellipse:
	case Line:
		if len(s.Points)%2 != 0 {
			return fmt.Errorf("line shape %s has an odd number of coordinates", s.ID)
		}
	default:
		return fmt.Errorf("shape %s has unknown type %q", s.ID, s.Type)
	}
	return nil
}

// Degenerate reports whether the shape has no visible extent.
func (s Shape) Degenerate() bool {
	switch s.Type {
	case Rectangle:
		return s.Width == 0 || s.Height == 0
	case Circle:
		return s.Radius <= 0
	case Ellipse:
		return s.RadiusX <= 0 || s.RadiusY <= 0
	case Line:
		if len(s.Points) < 4 {
			return true
		}
		for i := 2; i+1 < len(s.Points); i += 2 {
			if s.Points[i] != s.Points[0] || s.Points[i+1] != s.Points[1] {
				return false
			}
		}
		return true
	}
	return true
}

func (s Shape) clone() Shape {
	s.Points = append([]float64(nil), s.Points...)
	return s
}

// Image is a placed picture. Src is an opaque content reference; decoding happens
// elsewhere.
type Image struct {
	ID       string  `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	ScaleX   float64 `json:"scaleX"`
	ScaleY   float64 `json:"scaleY"`
	Rotation float64 `json:"rotation"`
	Src      string  `json:"src"`
}

func (i Image) EntityID() string       { return i.ID }
func (i Image) Collection() Collection { return Images }

func (i Image) Validate() error {
	if i.ID == "" {
		return errors.New("image without id")
	}
	if i.Src == "" {
		return fmt.Errorf("image %s has no source", i.ID)
	}
	return nil
}

// Text is a block of text. IsEditing is only true while the local author is typing
// and never reaches the shared document.
type Text struct {
	ID         string  `json:"id"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Text       string  `json:"text"`
	Color      string  `json:"color"`
	FontSize   float64 `json:"fontSize"`
	FontFamily string  `json:"fontFamily"`
	ScaleX     float64 `json:"scaleX"`
	ScaleY     float64 `json:"scaleY"`
	Rotation   float64 `json:"rotation"`
	IsEditing  bool    `json:"isEditing"`
}

func (t Text) EntityID() string       { return t.ID }
func (t Text) Collection() Collection { return Texts }

func (t Text) Validate() error {
	if t.ID == "" {
		return errors.New("text without id")
	}
	return nil
}

// ViewState is the shared pan offset.
type ViewState struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}
