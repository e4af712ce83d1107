package whiteboard

import (
	"errors"
	"testing"
	"time"

	"github.com/astromechza/automerge-whiteboard/pkg/board"
	"github.com/astromechza/automerge-whiteboard/pkg/doc"
	"github.com/astromechza/automerge-whiteboard/pkg/history"
	"github.com/astromechza/automerge-whiteboard/pkg/tools"
)

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func newBoard(t *testing.T) (*Board, *doc.Doc) {
	t.Helper()
	d, err := doc.New()
	if err != nil {
		t.Fatal(err)
	}
	b := New(d, Options{})
	t.Cleanup(b.Close)
	b.Baseline()
	return b, d
}

func drag(t *testing.T, b *Board, from, to [2]float64) {
	t.Helper()
	b.PointerDown(tools.At(from[0], from[1], 0))
	b.PointerMove(tools.At(to[0], to[1], ms(20)))
	if err := b.PointerUp(tools.At(to[0], to[1], ms(21))); err != nil {
		t.Fatal(err)
	}
}

func setTool(t *testing.T, b *Board, k tools.Kind) {
	t.Helper()
	if err := b.SetTool(k); err != nil {
		t.Fatal(err)
	}
}

func TestDrawUndoRedo(t *testing.T) {
	b, d := newBoard(t)
	setTool(t, b, tools.Rectangle)
	drag(t, b, [2]float64{0, 0}, [2]float64{50, 40})

	if n := len(d.Snapshot().Shapes); n != 1 {
		t.Fatalf("expected one shape, got %d", n)
	}
	if n := b.History().Len(); n != 2 {
		t.Fatalf("history Len() = %d, want 2", n)
	}

	if err := b.Undo(); err != nil {
		t.Fatal(err)
	}
	if n := len(d.Snapshot().Shapes); n != 0 {
		t.Fatalf("undo left %d shapes", n)
	}
	if n := b.History().Len(); n != 2 {
		t.Fatalf("undo must not record a new entry, Len() = %d", n)
	}

	if err := b.Redo(); err != nil {
		t.Fatal(err)
	}
	if n := len(d.Snapshot().Shapes); n != 1 {
		t.Fatalf("redo restored %d shapes", n)
	}
	if err := b.Redo(); !errors.Is(err, history.ErrNothingToRedo) {
		t.Fatalf("Redo at top = %v, want ErrNothingToRedo", err)
	}
}

func TestUndoAtBottom(t *testing.T) {
	b, _ := newBoard(t)
	if err := b.Undo(); !errors.Is(err, history.ErrNothingToUndo) {
		t.Fatalf("Undo() = %v, want ErrNothingToUndo", err)
	}
}

func TestDegenerateShapeIsDiscarded(t *testing.T) {
	b, d := newBoard(t)
	setTool(t, b, tools.Circle)
	drag(t, b, [2]float64{5, 5}, [2]float64{5, 5})
	if d.Snapshot().Len() != 0 || b.History().Len() != 1 {
		t.Fatalf("degenerate circle was committed")
	}
}

func TestPenStrokeIsThrottledAndComplete(t *testing.T) {
	b, d := newBoard(t)
	b.PointerDown(tools.At(0, 0, 0))
	for i := 1; i <= 40; i++ {
		b.PointerMove(tools.At(float64(i*2), 0, ms(i)))
	}
	draft := b.Scene().Draft.(board.Stroke)
	if err := b.PointerUp(tools.At(80, 0, ms(41))); err != nil {
		t.Fatal(err)
	}
	lines := d.Snapshot().Lines
	if len(lines) != 1 {
		t.Fatalf("expected one stroke, got %d", len(lines))
	}
	pts := lines[0].Points
	if pts[len(pts)-2] != 80 {
		t.Fatalf("stroke must end at the last pointer position, got %v", pts[len(pts)-2:])
	}
	if lines[0].ID != draft.ID {
		t.Fatalf("committed id %s differs from draft id %s", lines[0].ID, draft.ID)
	}
}

func TestMissingPositionAndLeave(t *testing.T) {
	b, d := newBoard(t)
	b.PointerDown(tools.Pointer{At: 0})
	if b.Scene().Draft != nil {
		t.Fatalf("down without position started a gesture")
	}

	b.PointerDown(tools.At(0, 0, 0))
	b.PointerMove(tools.Pointer{At: ms(10)})
	b.PointerMove(tools.At(30, 30, ms(20)))
	b.PointerLeave()
	if err := b.PointerUp(tools.At(30, 30, ms(30))); err != nil {
		t.Fatal(err)
	}
	if d.Snapshot().Len() != 0 {
		t.Fatalf("abandoned gesture was committed")
	}
}

func TestEraser(t *testing.T) {
	b, d := newBoard(t)
	setTool(t, b, tools.Rectangle)
	drag(t, b, [2]float64{0, 0}, [2]float64{20, 20})
	drag(t, b, [2]float64{100, 100}, [2]float64{120, 120})

	setTool(t, b, tools.Eraser)
	drag(t, b, [2]float64{10, -10}, [2]float64{10, 30})

	shapes := d.Snapshot().Shapes
	if len(shapes) != 1 || shapes[0].X != 100 {
		t.Fatalf("eraser should remove only the first rectangle, got %+v", shapes)
	}
	if err := b.Undo(); err != nil {
		t.Fatal(err)
	}
	if n := len(d.Snapshot().Shapes); n != 2 {
		t.Fatalf("undo of erase restored %d shapes", n)
	}
}

func TestTextEditing(t *testing.T) {
	b, d := newBoard(t)
	if err := b.FinishText("x"); !errors.Is(err, ErrNotEditing) {
		t.Fatalf("FinishText without edit = %v", err)
	}
	setTool(t, b, tools.Text)

	b.PointerDown(tools.At(10, 10, 0))
	if err := b.PointerUp(tools.At(10, 10, 0)); err != nil {
		t.Fatal(err)
	}
	if b.Scene().Editing == nil {
		t.Fatalf("expected an open edit")
	}
	if err := b.FinishText(""); err != nil {
		t.Fatal(err)
	}
	if d.Snapshot().Len() != 0 {
		t.Fatalf("empty text was committed")
	}

	b.PointerDown(tools.At(10, 10, 0))
	if err := b.PointerUp(tools.At(10, 10, 0)); err != nil {
		t.Fatal(err)
	}
	if err := b.FinishText("hello"); err != nil {
		t.Fatal(err)
	}
	texts := d.Snapshot().Texts
	if len(texts) != 1 || texts[0].Text != "hello" || texts[0].IsEditing {
		t.Fatalf("unexpected texts %+v", texts)
	}
}

func TestNewGestureAbandonsTextEdit(t *testing.T) {
	b, d := newBoard(t)
	setTool(t, b, tools.Text)
	b.PointerDown(tools.At(10, 10, 0))
	if err := b.PointerUp(tools.At(10, 10, 0)); err != nil {
		t.Fatal(err)
	}
	setTool(t, b, tools.Rectangle)
	drag(t, b, [2]float64{100, 100}, [2]float64{150, 150})
	if b.Scene().Editing != nil {
		t.Fatalf("edit survived a new gesture")
	}
	if err := b.FinishText("late"); !errors.Is(err, ErrNotEditing) {
		t.Fatalf("FinishText after new gesture = %v, want ErrNotEditing", err)
	}
	if s := d.Snapshot(); len(s.Texts) != 0 || len(s.Shapes) != 1 {
		t.Fatalf("unexpected canvas %+v", s)
	}

	setTool(t, b, tools.Text)
	b.PointerDown(tools.At(10, 10, ms(100)))
	if err := b.PointerUp(tools.At(10, 10, ms(100))); err != nil {
		t.Fatal(err)
	}
	setTool(t, b, tools.Pen)
	if err := b.FinishText("late"); !errors.Is(err, ErrNotEditing) {
		t.Fatalf("FinishText after tool switch = %v, want ErrNotEditing", err)
	}
}

func TestDragOfEntityDeletedByPeer(t *testing.T) {
	b, d := newBoard(t)
	setTool(t, b, tools.Rectangle)
	drag(t, b, [2]float64{0, 0}, [2]float64{20, 20})
	id := d.Snapshot().Shapes[0].ID

	setTool(t, b, tools.Select)
	b.PointerDown(tools.At(10, 10, ms(100)))
	b.PointerMove(tools.At(60, 10, ms(120)))
	err := d.Mutate(doc.SourceRemote, func(tx *doc.Tx) error {
		_, err := tx.DeleteIDs(board.Shapes, map[string]struct{}{id: {}})
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := b.PointerUp(tools.At(60, 10, ms(121))); err != nil {
		t.Fatalf("PointerUp after peer delete = %v, want nil", err)
	}
	if d.Snapshot().Len() != 0 || b.Selection() != nil {
		t.Fatalf("deleted shape came back or stayed selected")
	}
}

func TestPenKeepsHeldCorner(t *testing.T) {
	b, d := newBoard(t)
	b.PointerDown(tools.At(0, 0, 0))
	b.PointerMove(tools.At(100, 0, ms(1)))
	b.PointerMove(tools.At(100, 100, ms(200)))
	if err := b.PointerUp(tools.At(100, 100, ms(201))); err != nil {
		t.Fatal(err)
	}
	lines := d.Snapshot().Lines
	if len(lines) != 1 {
		t.Fatalf("expected one stroke, got %d", len(lines))
	}
	pts := lines[0].Points
	for i := 0; i+1 < len(pts); i += 2 {
		if pts[i] >= 90 && pts[i+1] <= 10 {
			return
		}
	}
	t.Fatalf("stroke skips the corner at (100,0): %v", pts)
}

func TestSelectDragAndDelete(t *testing.T) {
	b, d := newBoard(t)
	setTool(t, b, tools.Rectangle)
	drag(t, b, [2]float64{0, 0}, [2]float64{20, 20})

	setTool(t, b, tools.Select)
	drag(t, b, [2]float64{10, 10}, [2]float64{60, 10})
	shapes := d.Snapshot().Shapes
	if len(shapes) != 1 || shapes[0].X != 50 {
		t.Fatalf("drag should move the shape, got %+v", shapes)
	}
	sel := b.Selection()
	if sel == nil || sel.ID != shapes[0].ID {
		t.Fatalf("dragged shape should stay selected, got %+v", sel)
	}
	if err := b.DeleteSelection(); err != nil {
		t.Fatal(err)
	}
	if d.Snapshot().Len() != 0 || b.Selection() != nil {
		t.Fatalf("delete selection failed")
	}
}

func TestPanMovesSharedViewAndMapsPointers(t *testing.T) {
	b, d := newBoard(t)
	setTool(t, b, tools.Pan)
	drag(t, b, [2]float64{0, 0}, [2]float64{100, 0})
	if v := d.View(); v != (board.ViewState{X: 100}) {
		t.Fatalf("View() = %+v, want x=100", v)
	}

	setTool(t, b, tools.Rectangle)
	drag(t, b, [2]float64{110, 10}, [2]float64{130, 30})
	s := d.Snapshot().Shapes
	if len(s) != 1 || s[0].X != 10 {
		t.Fatalf("pointer should map into canvas space, got %+v", s)
	}
}

func TestImageRequiresSource(t *testing.T) {
	b, d := newBoard(t)
	setTool(t, b, tools.Image)
	drag(t, b, [2]float64{0, 0}, [2]float64{5, 5})
	if d.Snapshot().Len() != 0 {
		t.Fatalf("image without source was placed")
	}
	b.SetImageSource("cat.png")
	drag(t, b, [2]float64{0, 0}, [2]float64{5, 5})
	if im := d.Snapshot().Images; len(im) != 1 || im[0].Src != "cat.png" {
		t.Fatalf("unexpected images %+v", im)
	}
}

func TestClearCanvasIsUndoable(t *testing.T) {
	b, d := newBoard(t)
	setTool(t, b, tools.Line)
	drag(t, b, [2]float64{0, 0}, [2]float64{30, 30})
	if err := b.ClearCanvas(); err != nil {
		t.Fatal(err)
	}
	if d.Snapshot().Len() != 0 {
		t.Fatalf("clear left entities")
	}
	if err := b.Undo(); err != nil {
		t.Fatal(err)
	}
	if d.Snapshot().Len() != 1 {
		t.Fatalf("undo of clear failed")
	}
}

func TestRemoteChangesAreNotRecorded(t *testing.T) {
	b, a := newBoard(t)
	peer, err := doc.Load(a.Save(), doc.NewActorID())
	if err != nil {
		t.Fatal(err)
	}
	if err := peer.Push(board.Text{ID: "remote", Text: "hi"}); err != nil {
		t.Fatal(err)
	}

	sa, sp := a.NewSyncSession(), peer.NewSyncSession()
	for i := 0; i < 10; i++ {
		if msg, ok := sp.Generate(); ok {
			if err := sa.Receive(msg); err != nil {
				t.Fatal(err)
			}
		}
		if msg, ok := sa.Generate(); ok {
			if err := sp.Receive(msg); err != nil {
				t.Fatal(err)
			}
		}
	}
	if n := len(a.Snapshot().Texts); n != 1 {
		t.Fatalf("remote text did not arrive, got %d", n)
	}
	if n := b.History().Len(); n != 1 {
		t.Fatalf("remote merge was recorded, history Len() = %d", n)
	}
}
