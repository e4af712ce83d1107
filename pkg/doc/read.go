package doc

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/automerge/automerge-go"

	"github.com/astromechza/automerge-whiteboard/pkg/board"
)

func elementString(l *automerge.List, i int) (string, bool) {
	v, err := l.Get(i)
	if err != nil || v.Kind() != automerge.KindStr {
		return "", false
	}
	return v.Str(), true
}

func elementID(l *automerge.List, i int) (string, bool) {
	raw, ok := elementString(l, i)
	if !ok {
		return "", false
	}
	var head struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(raw), &head); err != nil || head.ID == "" {
		return "", false
	}
	return head.ID, true
}

func decode(c board.Collection, raw string) (board.Entity, error) {
	var (
		e   board.Entity
		err error
	)
	switch c {
	case board.Lines:
		var s board.Stroke
		err = json.Unmarshal([]byte(raw), &s)
		e = s
	case board.Images:
		var im board.Image
		err = json.Unmarshal([]byte(raw), &im)
		e = im
	case board.Shapes:
		var sh board.Shape
		err = json.Unmarshal([]byte(raw), &sh)
		e = sh
	case board.Texts:
		var tx board.Text
		err = json.Unmarshal([]byte(raw), &tx)
		e = tx
	default:
		return nil, fmt.Errorf("%w: %q", board.ErrUnknownCollection, c)
	}
	if err != nil {
		return nil, err
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Snapshot reads the whole canvas. Elements that do not decode into a valid entity are
// dropped with a warning.
func (d *Doc) Snapshot() board.Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked()
}

func (d *Doc) snapshotLocked() board.Snapshot {
	s := board.Snapshot{
		Lines:     []board.Stroke{},
		Images:    []board.Image{},
		Shapes:    []board.Shape{},
		Texts:     []board.Text{},
		Timestamp: time.Now(),
	}
	for _, c := range board.Collections {
		l, ok := listAt(d.am, c)
		if !ok {
			d.log.Warn("collection missing from document", "collection", c)
			continue
		}
		for i := 0; i < l.Len(); i++ {
			raw, ok := elementString(l, i)
			if !ok {
				d.log.Warn("dropping non-string element", "collection", c, "index", i)
				continue
			}
			e, err := decode(c, raw)
			if err != nil {
				d.log.Warn("dropping malformed element", "collection", c, "index", i, "err", err)
				continue
			}
			switch v := e.(type) {
			case board.Stroke:
				s.Lines = append(s.Lines, v)
			case board.Image:
				s.Images = append(s.Images, v)
			case board.Shape:
				s.Shapes = append(s.Shapes, v)
			case board.Text:
				s.Texts = append(s.Texts, v)
			}
		}
	}
	return s
}

// View reads the shared pan offset. A missing or unreadable register is the origin.
func (d *Doc) View() board.ViewState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.viewLocked()
}

func (d *Doc) viewLocked() board.ViewState {
	var vs board.ViewState
	v, err := d.am.Path(viewKey).Get()
	if err != nil || v.Kind() != automerge.KindStr {
		return vs
	}
	if err := json.Unmarshal([]byte(v.Str()), &vs); err != nil {
		d.log.Warn("dropping malformed view", "err", err)
		return board.ViewState{}
	}
	return vs
}

// Len returns how many elements a collection holds, malformed ones included.
func (d *Doc) Len(c board.Collection) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := listAt(d.am, c)
	if !ok {
		return 0
	}
	return l.Len()
}
