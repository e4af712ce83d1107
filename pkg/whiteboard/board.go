// Package whiteboard is the per-client controller: it owns tool selection, the current
// draft and selection, and turns pointer events into document mutations and history
// entries.
package whiteboard

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/astromechza/automerge-whiteboard/pkg/board"
	"github.com/astromechza/automerge-whiteboard/pkg/doc"
	"github.com/astromechza/automerge-whiteboard/pkg/geometry"
	"github.com/astromechza/automerge-whiteboard/pkg/history"
	"github.com/astromechza/automerge-whiteboard/pkg/tools"
)

var ErrNotEditing = errors.New("no text is being edited")

type Options struct {
	Logger          *slog.Logger
	HistoryCapacity int
	// Geometry defaults to geometry.DefaultConfig when zero.
	Geometry  geometry.Config
	Tolerance float64
}

// Scene is everything a renderer needs for one frame.
type Scene struct {
	Snapshot  board.Snapshot
	View      board.ViewState
	Draft     board.Entity
	Eraser    []geometry.Point
	Selection *tools.Selection
	Editing   *board.Text
}

// Board drives one client's interaction with a shared document.
type Board struct {
	mu sync.Mutex

	doc      *doc.Doc
	history  *history.Manager
	log      *slog.Logger
	pipeline *geometry.Pipeline
	throttle *geometry.Throttle
	tol      float64

	kind      tools.Kind
	tool      tools.Tool
	style     tools.Style
	imageSrc  string
	draft     *tools.Draft
	editing   *board.Text
	selection *tools.Selection

	unsubscribe func() error
}

func New(d *doc.Doc, opts Options) *Board {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	cfg := opts.Geometry
	if cfg.VelocityWindow == 0 {
		cfg = geometry.DefaultConfig()
	}
	pen, _ := tools.ForKind(tools.Pen)
	b := &Board{
		doc:      d,
		history:  history.NewManager(opts.HistoryCapacity),
		log:      opts.Logger,
		pipeline: geometry.NewPipeline(cfg),
		throttle: geometry.NewThrottle(cfg.MoveInterval),
		tol:      opts.Tolerance,
		kind:     tools.Pen,
		tool:     pen,
		style:    tools.DefaultStyle(),
	}
	b.unsubscribe = d.Subscribe(b.record)
	return b
}

// record is the history observer. Restores and remote merges are not user actions
// and are never recorded.
func (b *Board) record(c doc.Change) {
	if c.Source != doc.SourceLocal {
		return
	}
	b.history.SaveState(b.doc.Snapshot())
}

// Baseline records the current canvas as the bottom of the history. Call it once the
// initial sync has settled.
func (b *Board) Baseline() {
	b.history.SaveState(b.doc.Snapshot())
}

func (b *Board) History() *history.Manager { return b.history }

func (b *Board) Tool() tools.Kind {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.kind
}

// SetTool switches tools and abandons any gesture in progress.
func (b *Board) SetTool(k tools.Kind) error {
	tool, err := tools.ForKind(k)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.kind, b.tool = k, tool
	b.draft = nil
	b.editing = nil
	b.throttle.Reset()
	if k != tools.Select {
		b.selection = nil
	}
	return nil
}

func (b *Board) SetStyle(s tools.Style) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.style = s
}

// SetImageSource sets the picture the image tool places next.
func (b *Board) SetImageSource(src string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.imageSrc = src
}

// toCanvas maps a screen-space pointer into canvas space. Pan works in screen space.
func (b *Board) toCanvas(p tools.Pointer, view board.ViewState) tools.Pointer {
	if p.Pos == nil || b.kind == tools.Pan {
		return p
	}
	return tools.At(p.Pos.X-view.X, p.Pos.Y-view.Y, p.At)
}

func (b *Board) PointerDown(p tools.Pointer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p.Pos == nil {
		return
	}
	// an open text edit is abandoned, not committed
	b.editing = nil
	view := b.doc.View()
	ctx := &tools.Context{
		Style:     b.style,
		Snapshot:  b.doc.Snapshot(),
		View:      view,
		ImageSrc:  b.imageSrc,
		Pipeline:  b.pipeline,
		Tolerance: b.tol,
	}
	b.throttle.Reset()
	b.draft = b.tool.Start(b.toCanvas(p, view), ctx)
	if b.draft != nil {
		b.throttle.Offer(geometry.Sample{Point: *p.Pos, At: p.At})
	}
}

func (b *Board) PointerMove(p tools.Pointer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.draft == nil || p.Pos == nil {
		return
	}
	b.advance(b.throttle.Offer(geometry.Sample{Point: *p.Pos, At: p.At}))
}

func (b *Board) advance(samples []geometry.Sample) {
	if len(samples) == 0 {
		return
	}
	view := b.doc.View()
	for _, s := range samples {
		pt := tools.At(s.Point.X, s.Point.Y, s.At)
		b.draft = b.tool.Move(b.toCanvas(pt, view), b.draft)
	}
}

// PointerUp ends the gesture and applies the draft. The pointer position itself is
// not used: the last move already carried it.
func (b *Board) PointerUp(_ tools.Pointer) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.draft == nil {
		return nil
	}
	b.advance(b.throttle.Flush())
	d := b.draft
	b.draft = nil
	if !b.tool.End(d) {
		return nil
	}
	return b.apply(d)
}

// PointerLeave abandons the gesture without committing.
func (b *Board) PointerLeave() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.draft = nil
	b.throttle.Reset()
}

func (b *Board) apply(d *tools.Draft) error {
	switch d.Action {
	case tools.ActionInsert:
		if err := b.doc.Push(d.Entity); err != nil {
			return fmt.Errorf("failed to add %s: %w", d.Entity.EntityID(), err)
		}
	case tools.ActionUpdate:
		if err := b.doc.Update(d.Entity); errors.Is(err, doc.ErrNotFound) {
			b.log.Info("moved entity was deleted by a peer", "id", d.Entity.EntityID())
			b.selection = nil
			return nil
		} else if err != nil {
			return fmt.Errorf("failed to move %s: %w", d.Entity.EntityID(), err)
		}
		b.selection = d.Selection
	case tools.ActionErase:
		err := b.doc.Mutate(doc.SourceLocal, func(tx *doc.Tx) error {
			for _, c := range board.Collections {
				if _, err := tx.DeleteIDs(c, d.Deletions.For(c)); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to erase: %w", err)
		}
		if b.selection != nil && d.Deletions.For(b.selection.Collection).Has(b.selection.ID) {
			b.selection = nil
		}
	case tools.ActionView:
		if err := b.doc.SetView(d.View); err != nil {
			return fmt.Errorf("failed to pan: %w", err)
		}
	case tools.ActionEdit:
		t := d.Entity.(board.Text)
		b.editing = &t
	case tools.ActionSelect:
		b.selection = d.Selection
	}
	return nil
}

// FinishText completes the open text edit. Blank content discards the text.
func (b *Board) FinishText(content string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.editing == nil {
		return ErrNotEditing
	}
	done, ok := tools.FinishText(*b.editing, content)
	b.editing = nil
	if !ok {
		return nil
	}
	if err := b.doc.Push(done); err != nil {
		return fmt.Errorf("failed to add text: %w", err)
	}
	return nil
}

// Undo restores the previous history entry. It returns history.ErrNothingToUndo at the
// bottom of the stack.
func (b *Board) Undo() error {
	return b.restore(b.history.Undo)
}

// Redo is the inverse of Undo.
func (b *Board) Redo() error {
	return b.restore(b.history.Redo)
}

func (b *Board) restore(step func() (board.Snapshot, error)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, err := step()
	if err != nil {
		return err
	}
	b.draft = nil
	b.selection = nil
	if err := b.doc.ReplaceAll(s, doc.SourceRestore); err != nil {
		return fmt.Errorf("failed to restore: %w", err)
	}
	return nil
}

// ClearCanvas empties every collection. It is an ordinary edit and can be undone.
func (b *Board) ClearCanvas() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.selection = nil
	return b.doc.ReplaceAll(board.Snapshot{}, doc.SourceLocal)
}

// DeleteSelection removes the selected entity.
func (b *Board) DeleteSelection() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.selection == nil {
		return nil
	}
	sel := *b.selection
	b.selection = nil
	return b.doc.Mutate(doc.SourceLocal, func(tx *doc.Tx) error {
		_, err := tx.DeleteIDs(sel.Collection, map[string]struct{}{sel.ID: {}})
		return err
	})
}

func (b *Board) Selection() *tools.Selection {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.selection == nil {
		return nil
	}
	s := *b.selection
	return &s
}

// Scene returns the renderer input. A pan in progress shows its local view; everyone
// else sees it once the gesture ends.
func (b *Board) Scene() Scene {
	b.mu.Lock()
	defer b.mu.Unlock()
	sc := Scene{Snapshot: b.doc.Snapshot(), View: b.doc.View()}
	if b.selection != nil {
		s := *b.selection
		sc.Selection = &s
	}
	if b.editing != nil {
		t := *b.editing
		sc.Editing = &t
	}
	if d := b.draft; d != nil {
		switch d.Kind {
		case tools.Pan:
			sc.View = d.View
		case tools.Eraser:
			sc.Eraser = append([]geometry.Point(nil), d.Path...)
		default:
			sc.Draft = d.Entity
		}
	}
	return sc
}

// Close detaches the history observer. A failed detach is logged and ignored.
func (b *Board) Close() {
	if err := b.unsubscribe(); err != nil {
		b.log.Warn("failed to detach history observer", "err", err)
	}
}
