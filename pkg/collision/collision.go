// Package collision decides which canvas entities an eraser path touches.
//
// Every entity is reduced to its axis-aligned bounding box. That over-reports near box
// corners and for rotated shapes, which is accepted; an eraser crossing an entity is
// never missed.
package collision

import (
	"github.com/astromechza/automerge-whiteboard/pkg/board"
	"github.com/astromechza/automerge-whiteboard/pkg/geometry"
)

// DefaultTolerance is how far outside a box a path point may lie and still hit.
const DefaultTolerance = 4.0

// IDSet is a set of entity ids.
type IDSet map[string]struct{}

func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Deletions holds the ids to remove from each collection.
type Deletions struct {
	Lines  IDSet
	Images IDSet
	Shapes IDSet
	Texts  IDSet
}

func newDeletions() Deletions {
	return Deletions{Lines: IDSet{}, Images: IDSet{}, Shapes: IDSet{}, Texts: IDSet{}}
}

// For returns the set belonging to a collection.
func (d Deletions) For(c board.Collection) IDSet {
	switch c {
	case board.Lines:
		return d.Lines
	case board.Images:
		return d.Images
	case board.Shapes:
		return d.Shapes
	case board.Texts:
		return d.Texts
	}
	return nil
}

func (d Deletions) Len() int {
	return len(d.Lines) + len(d.Images) + len(d.Shapes) + len(d.Texts)
}

func (d Deletions) Empty() bool { return d.Len() == 0 }

// Detect returns, per collection, the ids of entities whose bounding box contains a
// point of path. The path is densified to the tolerance first so a fast eraser stroke
// cannot step over a thin entity.
func Detect(path []geometry.Point, snap board.Snapshot, tolerance float64) Deletions {
	out := newDeletions()
	if len(path) == 0 {
		return out
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	dense := geometry.Interpolate(path, tolerance)

	for _, c := range board.Collections {
		hits := out.For(c)
		for _, e := range snap.Entities(c) {
			if touches(dense, e.Bounds(), tolerance) {
				hits[e.EntityID()] = struct{}{}
			}
		}
	}
	return out
}

func touches(path []geometry.Point, box board.Box, tolerance float64) bool {
	for _, p := range path {
		if box.Contains(p.X, p.Y, tolerance) {
			return true
		}
	}
	return false
}

// HitTest returns the topmost entity under a point, searching texts, images, shapes
// and then lines, each from the most recently added.
func HitTest(p geometry.Point, snap board.Snapshot, tolerance float64) (board.Entity, bool) {
	for _, c := range []board.Collection{board.Texts, board.Images, board.Shapes, board.Lines} {
		entities := snap.Entities(c)
		for i := len(entities) - 1; i >= 0; i-- {
			if entities[i].Bounds().Contains(p.X, p.Y, tolerance) {
				return entities[i], true
			}
		}
	}
	return nil, false
}
