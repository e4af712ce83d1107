package board

import (
	"time"

	"github.com/google/uuid"
)

// Snapshot is a point-in-time copy of all four collections.
type Snapshot struct {
	Lines     []Stroke  `json:"lines"`
	Images    []Image   `json:"images"`
	Shapes    []Shape   `json:"shapes"`
	Texts     []Text    `json:"texts"`
	Timestamp time.Time `json:"timestamp"`
}

// Clone returns a deep copy that shares no memory with s.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Lines:     make([]Stroke, len(s.Lines)),
		Images:    append([]Image{}, s.Images...),
		Shapes:    make([]Shape, len(s.Shapes)),
		Texts:     append([]Text{}, s.Texts...),
		Timestamp: s.Timestamp,
	}
	for i, l := range s.Lines {
		out.Lines[i] = l.clone()
	}
	for i, sh := range s.Shapes {
		out.Shapes[i] = sh.clone()
	}
	return out
}

// Len is the total number of entities.
func (s Snapshot) Len() int {
	return len(s.Lines) + len(s.Images) + len(s.Shapes) + len(s.Texts)
}

// Count returns the number of entities in one collection.
func (s Snapshot) Count(c Collection) int {
	switch c {
	case Lines:
		return len(s.Lines)
	case Images:
		return len(s.Images)
	case Shapes:
		return len(s.Shapes)
	case Texts:
		return len(s.Texts)
	}
	return 0
}

// Entities returns one collection as a generic slice, preserving order.
func (s Snapshot) Entities(c Collection) []Entity {
	out := make([]Entity, 0, s.Count(c))
	switch c {
	case Lines:
		for _, e := range s.Lines {
			out = append(out, e)
		}
	case Images:
		for _, e := range s.Images {
			out = append(out, e)
		}
	case Shapes:
		for _, e := range s.Shapes {
			out = append(out, e)
		}
	case Texts:
		for _, e := range s.Texts {
			out = append(out, e)
		}
	}
	return out
}

// Find returns the entity with the given id from a collection.
func (s Snapshot) Find(c Collection, id string) (Entity, bool) {
	for _, e := range s.Entities(c) {
		if e.EntityID() == id {
			return e, true
		}
	}
	return nil, false
}

// NewID returns a fresh entity id. Ids are random v4 UUIDs and are never reused.
func NewID(prefix string) string {
	if prefix == "" {
		return uuid.NewString()
	}
	return prefix + "-" + uuid.NewString()
}
