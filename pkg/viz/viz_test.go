package viz

import (
	"bytes"
	"strings"
	"testing"

	"github.com/astromechza/automerge-whiteboard/pkg/board"
	"github.com/astromechza/automerge-whiteboard/pkg/doc"
)

func TestLabel(t *testing.T) {
	r := doc.Revision{
		ChangeInfo: doc.ChangeInfo{Hash: "0123456789abcdef", Actor: "aabbccddeeff", Seq: 3},
		Counts:     map[board.Collection]int{board.Lines: 2},
	}
	want := "01234567 aabbccdd@3 lines=2 images=0 shapes=0 texts=0"
	if got := Label(r); got != want {
		t.Fatalf("Label() = %q, want %q", got, want)
	}
}

func TestRenderSVG(t *testing.T) {
	d, err := doc.New()
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Push(board.Text{ID: "t", Text: "hi"}); err != nil {
		t.Fatal(err)
	}
	revs, err := d.Revisions()
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := RenderSVG(revs, &buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "<svg") {
		t.Fatalf("expected svg output, got %q", out)
	}
	if !strings.Contains(out, "texts=1") {
		t.Fatalf("expected latest revision label in output")
	}
}
