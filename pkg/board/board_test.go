package board

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestShouldSyncLine(t *testing.T) {
	cases := []struct {
		name   string
		points []float64
		want   bool
	}{
		{name: "empty", points: nil, want: false},
		{name: "single pair", points: []float64{1, 2}, want: false},
		{name: "odd", points: []float64{1, 2, 3}, want: false},
		{name: "two pairs", points: []float64{1, 2, 3, 4}, want: true},
		{name: "many pairs", points: []float64{1, 2, 3, 4, 5, 6}, want: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ShouldSyncLine(Stroke{ID: "s", Points: tc.points}); got != tc.want {
				t.Fatalf("ShouldSyncLine(%v) = %v, want %v", tc.points, got, tc.want)
			}
		})
	}
}

func TestSnapshotCloneIsIndependent(t *testing.T) {
	orig := Snapshot{
		Lines:  []Stroke{{ID: "l1", Kind: PenKind, Points: []float64{0, 0, 10, 10}}},
		Shapes: []Shape{{ID: "s1", Type: Line, Points: []float64{0, 0, 5, 5}}},
		Texts:  []Text{{ID: "t1", Text: "hi"}},
		Images: []Image{{ID: "i1", Src: "a.png"}},
	}
	clone := orig.Clone()

	orig.Lines[0].Points[0] = 99
	orig.Shapes[0].Points[2] = 99
	orig.Texts[0].Text = "changed"
	orig.Images[0].Src = "b.png"
	orig.Lines = append(orig.Lines, Stroke{ID: "l2"})

	if clone.Lines[0].Points[0] != 0 {
		t.Errorf("stroke points shared with original")
	}
	if clone.Shapes[0].Points[2] != 5 {
		t.Errorf("shape points shared with original")
	}
	if clone.Texts[0].Text != "hi" || clone.Images[0].Src != "a.png" {
		t.Errorf("clone mutated: %+v", clone)
	}
	if len(clone.Lines) != 1 {
		t.Errorf("expected 1 line in clone, got %d", len(clone.Lines))
	}
}

func TestCloneOfEmptySnapshotHasNonNilSlices(t *testing.T) {
	c := Snapshot{}.Clone()
	raw, err := json.Marshal(c)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), "null") {
		t.Fatalf("expected empty arrays, got %s", raw)
	}
}

func TestBounds(t *testing.T) {
	cases := []struct {
		name   string
		entity Entity
		want   Box
	}{
		{
			name:   "stroke",
			entity: Stroke{ID: "a", Points: []float64{10, 20, 30, 5}},
			want:   Box{MinX: 10, MinY: 5, MaxX: 30, MaxY: 20},
		},
		{
			name:   "rectangle negative extent",
			entity: Shape{ID: "b", Type: Rectangle, X: 50, Y: 50, Width: -20, Height: 10},
			want:   Box{MinX: 30, MinY: 50, MaxX: 50, MaxY: 60},
		},
		{
			name:   "scaled rectangle",
			entity: Shape{ID: "b", Type: Rectangle, X: 0, Y: 0, Width: 10, Height: 10, ScaleX: 2, ScaleY: 3},
			want:   Box{MinX: 0, MinY: 0, MaxX: 20, MaxY: 30},
		},
		{
			name:   "circle",
			entity: Shape{ID: "c", Type: Circle, X: 10, Y: 10, Radius: 5},
			want:   Box{MinX: 5, MinY: 5, MaxX: 15, MaxY: 15},
		},
		{
			name:   "ellipse",
			entity: Shape{ID: "d", Type: Ellipse, X: 0, Y: 0, RadiusX: 4, RadiusY: 2},
			want:   Box{MinX: -4, MinY: -2, MaxX: 4, MaxY: 2},
		},
		{
			name:   "line",
			entity: Shape{ID: "e", Type: Line, X: 100, Y: 100, Points: []float64{0, 0, -10, 20}},
			want:   Box{MinX: 90, MinY: 100, MaxX: 100, MaxY: 120},
		},
		{
			name:   "image",
			entity: Image{ID: "f", X: 1, Y: 2, Width: 10, Height: 20, Src: "x"},
			want:   Box{MinX: 1, MinY: 2, MaxX: 11, MaxY: 22},
		},
		{
			name:   "text",
			entity: Text{ID: "g", X: 0, Y: 0, Text: "abcde", FontSize: 10},
			want:   Box{MinX: 0, MinY: 0, MaxX: 30, MaxY: 12},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.entity.Bounds(); got != tc.want {
				t.Fatalf("Bounds() = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestShapeDegenerate(t *testing.T) {
	cases := []struct {
		name  string
		shape Shape
		want  bool
	}{
		{"zero rect", Shape{Type: Rectangle, Width: 0, Height: 10}, true},
		{"rect", Shape{Type: Rectangle, Width: 5, Height: 10}, false},
		{"zero circle", Shape{Type: Circle}, true},
		{"circle", Shape{Type: Circle, Radius: 1}, false},
		{"flat ellipse", Shape{Type: Ellipse, RadiusX: 3}, true},
		{"same point line", Shape{Type: Line, Points: []float64{0, 0, 0, 0}}, true},
		{"line", Shape{Type: Line, Points: []float64{0, 0, 1, 0}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.shape.Degenerate(); got != tc.want {
				t.Fatalf("Degenerate() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestNewIDUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		id := NewID("line")
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		if !strings.HasPrefix(id, "line-") {
			t.Fatalf("missing prefix: %s", id)
		}
		seen[id] = true
	}
}

func TestTranslateCopies(t *testing.T) {
	s := Stroke{ID: "s", Points: []float64{0, 0, 10, 10}}
	moved := Translate(s, 5, -5).(Stroke)
	if moved.Points[0] != 5 || moved.Points[3] != 5 {
		t.Fatalf("Translate() points = %v", moved.Points)
	}
	if s.Points[0] != 0 {
		t.Fatalf("Translate mutated its input")
	}
	sh := Translate(Shape{ID: "l", Type: Line, X: 1, Y: 1, Points: []float64{0, 0, 3, 3}}, 2, 2).(Shape)
	if sh.X != 3 || sh.Y != 3 || sh.Points[2] != 3 {
		t.Fatalf("line shape translated wrongly: %+v", sh)
	}
}
